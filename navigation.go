package main

import (
	"context"
	"fmt"

	"animterm/internal/geom"
	"animterm/internal/ops"
)

// handleScrub moves the clock a frame at a time, or a second with shift.
func (m *model) handleScrub(ctx context.Context, key string) {
	sc := m.session.scene
	step := 1 / float64(max(m.session.cfg.FPS, 1))
	if key == "H" || key == "L" {
		step = 1
	}
	t := sc.Clock()
	switch key {
	case "h", "H":
		t -= step
	case "l", "L":
		t += step
	case "0", "home":
		t = 0
	case "$", "end":
		t = sc.EndTime()
	}
	t = max(0, min(sc.EndTime(), t))
	if err := sc.GoToTime(ctx, t); err != nil {
		m.errorMessage = err.Error()
	}
}

// startMove begins a drag of the selected shape. Every key press in move
// mode is one step of the same action.
func (m *model) startMove() {
	if _, ok := m.session.selectedDisplayed(); !ok {
		m.errorMessage = "Select a shape first (tab)"
		return
	}
	if err := m.session.history.BeginAction(); err != nil {
		m.errorMessage = err.Error()
		return
	}
	m.mode = ModeMove
}

func (m *model) handleMoveKey(ctx context.Context, key string) {
	h := m.session.history
	switch key {
	case "enter":
		if err := h.EndAction(ctx); err != nil {
			m.errorMessage = err.Error()
		}
		m.mode = ModeNormal
		return
	case "esc":
		if err := h.AbortAction(ctx); err != nil {
			m.errorMessage = err.Error()
		}
		m.mode = ModeNormal
		return
	}

	speed := m.getMoveSpeed(key)
	var d geom.Vec
	switch key {
	case "h", "left", "H", "shift+left":
		d = geom.V(-moveStep*speed, 0)
	case "l", "right", "L", "shift+right":
		d = geom.V(moveStep*speed, 0)
	case "k", "up", "K", "shift+up":
		d = geom.V(0, -moveStep*speed)
	case "j", "down", "J", "shift+down":
		d = geom.V(0, moveStep*speed)
	default:
		return
	}
	if _, err := h.TakeStep(ctx, ops.MoveBy(m.session.selected, d)); err != nil {
		m.errorMessage = fmt.Sprintf("move: %v", err)
	}
}

func (m *model) getMoveSpeed(key string) float64 {
	switch key {
	case "H", "L", "K", "J", "shift+left", "shift+right", "shift+up", "shift+down":
		return 2
	default:
		return 1
	}
}
