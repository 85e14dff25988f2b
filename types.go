package main

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"animterm/internal/config"
	"animterm/internal/history"
	"animterm/internal/playback"
	"animterm/internal/scene"
	"animterm/internal/shape"
)

// session is one open scene. The model is copied on every update, so state
// that subscribers write lives here behind a pointer.
type session struct {
	cfg      config.Config
	scene    *scene.Controller
	history  *history.Manager
	player   *playback.Player
	filename string
	dirty    bool
	selected shape.Shape
	subs     []scene.Subscription
	histSub  int
}

type model struct {
	width          int
	height         int
	mode           Mode
	help           bool
	helpScroll     int
	cfg            config.Config
	log            *slog.Logger
	session        *session
	input          string
	fileOp         FileOperation
	confirmAction  ConfirmAction
	errorMessage   string
	successMessage string
	watcher        *fsnotify.Watcher
	rcPath         string
	ticking        bool
}

// sceneRootWindow is the editor state saved alongside a scene.
type sceneRootWindow struct {
	Selected string `json:"selected,omitempty"`
}

type tickMsg struct{}

type configChangedMsg struct {
	cfg config.Config
	err error
}
