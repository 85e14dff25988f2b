package main

import (
	"log/slog"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"animterm/internal/config"
)

// loadConfig reads ~/.animtermrc. A broken rc file is logged and the
// defaults are used.
func loadConfig(log *slog.Logger) (config.Config, string) {
	path, err := config.RCPath()
	if err != nil {
		log.Warn("no home directory, using defaults", "err", err)
		return config.Default(), ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Warn("ignoring rc file", "path", path, "err", err)
		return config.Default(), path
	}
	return cfg, path
}

// watchConfig watches the directory holding the rc file, since editors
// often replace the file rather than write it.
func watchConfig(path string, log *slog.Logger) *fsnotify.Watcher {
	if path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("config hot reload disabled", "err", err)
		return nil
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		log.Warn("config hot reload disabled", "err", err)
		w.Close()
		return nil
	}
	return w
}

// waitForConfig blocks until the rc file changes and reports the new
// settings. The model asks again after every message.
func waitForConfig(w *fsnotify.Watcher, path string) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				cfg, err := config.Load(path)
				return configChangedMsg{cfg: cfg, err: err}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				return configChangedMsg{err: err}
			}
		}
	}
}

// applyConfig takes new settings from the rc file. The scene length and
// canvas size belong to the open scene and apply to the next one.
func (m *model) applyConfig(msg configChangedMsg) {
	if msg.err != nil {
		m.errorMessage = "config: " + msg.err.Error()
		m.log.Warn("config reload failed", "err", msg.err)
		return
	}
	cfg := msg.cfg.
		WithSceneEndTime(m.session.scene.EndTime()).
		WithCanvasSize(m.session.cfg.CanvasWidth, m.session.cfg.CanvasHeight)
	m.cfg = msg.cfg
	m.session.setConfig(cfg)
	m.successMessage = "Config reloaded"
	m.log.Info("config reloaded", "fps", cfg.FPS, "loop", cfg.Loop, "autoAdd", cfg.AutoAddToTimeline)
}
