// Package config holds the editor settings. A Config is a value: the With*
// setters return a modified copy and never touch the receiver.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

// RCFile is the settings file read from the home directory.
const RCFile = ".animtermrc"

var ErrInvalid = errors.New("invalid config")

type Config struct {
	SaveDirectory     string  `toml:"save_directory"`
	StartMenu         bool    `toml:"start_menu"`
	Confirmations     bool    `toml:"confirmations"`
	AutoAddToTimeline bool    `toml:"auto_add_to_timeline"`
	SceneEndTime      float64 `toml:"scene_end_time"`
	FPS               int     `toml:"fps"`
	Loop              bool    `toml:"loop"`
	CanvasWidth       int     `toml:"canvas_width"`
	CanvasHeight      int     `toml:"canvas_height"`
	LogLevel          string  `toml:"log_level"`
}

func Default() Config {
	return Config{
		StartMenu:     true,
		Confirmations: true,
		SceneEndTime:  10,
		FPS:           24,
		Loop:          true,
		CanvasWidth:   640,
		CanvasHeight:  360,
		LogLevel:      "info",
	}
}

// Validate checks the values the scene engine relies on.
func (c Config) Validate() error {
	switch {
	case c.SceneEndTime <= 0:
		return fmt.Errorf("%w: scene_end_time %v must be positive", ErrInvalid, c.SceneEndTime)
	case c.FPS <= 0:
		return fmt.Errorf("%w: fps %d must be positive", ErrInvalid, c.FPS)
	case c.CanvasWidth <= 0 || c.CanvasHeight <= 0:
		return fmt.Errorf("%w: canvas %dx%d", ErrInvalid, c.CanvasWidth, c.CanvasHeight)
	}
	return nil
}

func (c Config) WithSceneEndTime(t float64) Config {
	c.SceneEndTime = t
	return c
}

func (c Config) WithAutoAddToTimeline(on bool) Config {
	c.AutoAddToTimeline = on
	return c
}

func (c Config) WithFPS(fps int) Config {
	c.FPS = fps
	return c
}

func (c Config) WithLoop(on bool) Config {
	c.Loop = on
	return c
}

func (c Config) WithCanvasSize(w, h int) Config {
	c.CanvasWidth, c.CanvasHeight = w, h
	return c
}

func (c Config) WithSaveDirectory(dir string) Config {
	c.SaveDirectory = dir
	return c
}

// RCPath returns the settings file location in the user's home directory.
func RCPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, RCFile), nil
}

// Load reads the rc file at path over the defaults. A missing file yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	return Parse(data)
}

// Parse decodes TOML settings over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parsing %s: %w", RCFile, err)
	}
	if cfg.SaveDirectory != "" {
		dir, err := homedir.Expand(cfg.SaveDirectory)
		if err != nil {
			return Default(), err
		}
		if !filepath.IsAbs(dir) {
			if abs, err := filepath.Abs(dir); err == nil {
				dir = abs
			}
		}
		cfg.SaveDirectory = dir
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Marshal encodes the settings as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// SavePath joins filename onto the save directory, creating it if needed.
func (c Config) SavePath(filename string) string {
	if c.SaveDirectory == "" || filepath.IsAbs(filename) {
		return filename
	}
	os.MkdirAll(c.SaveDirectory, 0755)
	return filepath.Join(c.SaveDirectory, filename)
}
