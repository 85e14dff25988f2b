package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"

	"animterm/internal/config"
	"animterm/internal/geom"
	"animterm/internal/history"
	"animterm/internal/ops"
	"animterm/internal/playback"
	"animterm/internal/scene"
	"animterm/internal/shape"
)

func newSession(cfg config.Config, log *slog.Logger, filename string) *session {
	sc := scene.New(cfg, scene.WithLogger(log))
	h := history.New(sc, cfg, history.WithLogger(log))
	s := &session{
		cfg:      cfg,
		scene:    sc,
		history:  h,
		player:   playback.New(sc, h, cfg, playback.WithLogger(log)),
		filename: filename,
	}
	s.subs = append(s.subs, sc.Subscribe(scene.AllShapes, scene.SubscriberFunc(func(n scene.Notification) {
		for _, r := range n.Removed {
			if r == s.selected {
				s.selected = nil
			}
		}
	})))
	s.histSub = h.Subscribe(func(history.Change) { s.dirty = true })
	return s
}

func (s *session) close() {
	if err := s.player.Stop(); err != nil {
		s.scene.Logger().Warn("stopping playback", "err", err)
	}
	for _, sub := range s.subs {
		s.scene.Unsubscribe(sub)
	}
	s.history.Unsubscribe(s.histSub)
}

func (s *session) setConfig(cfg config.Config) {
	s.cfg = cfg
	s.history.SetConfig(cfg)
	s.player.SetConfig(cfg)
}

// selectNext moves the selection through the displayed shapes, front to
// back, wrapping at either end.
func (s *session) selectNext(delta int) {
	shapes := s.scene.DisplayShapes()
	if len(shapes) == 0 {
		s.selected = nil
		return
	}
	idx := -1
	for i, sh := range shapes {
		if sh == s.selected {
			idx = i
		}
	}
	if idx == -1 {
		s.selected = shapes[len(shapes)-1]
		return
	}
	idx = (idx - delta + len(shapes)) % len(shapes)
	s.selected = shapes[idx]
}

// selectedDisplayed returns the selection if it is on screen now.
func (s *session) selectedDisplayed() (shape.Shape, bool) {
	if s.selected == nil || !s.scene.IsDisplayed(s.selected) {
		return nil, false
	}
	return s.selected, true
}

func (s *session) rootWindow() json.RawMessage {
	rw := sceneRootWindow{}
	if s.selected != nil {
		rw.Selected = s.selected.Common().Name
	}
	data, err := json.Marshal(rw)
	if err != nil {
		return nil
	}
	return data
}

func (s *session) restoreRootWindow(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var rw sceneRootWindow
	if err := json.Unmarshal(raw, &rw); err != nil {
		s.scene.Logger().Warn("ignoring rootWindow", "err", err)
		return
	}
	if sh, ok := s.scene.ShapeByName(rw.Selected); ok {
		s.selected = sh
	}
}

// copySelected puts the selected shape on the system clipboard as JSON.
func (m *model) copySelected() error {
	sh, ok := m.session.selectedDisplayed()
	if !ok {
		return fmt.Errorf("nothing selected")
	}
	saved, err := sh.Save()
	if err != nil {
		return err
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	return clipboard.WriteAll(string(data))
}

// pasteShape reads a shape from the clipboard and adds a copy of it, offset
// so it does not cover the original.
func (m *model) pasteShape(ctx context.Context) error {
	text, err := readClipboardText()
	if err != nil {
		return err
	}
	var saved shape.Save
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &saved); err != nil {
		return fmt.Errorf("clipboard holds no shape")
	}
	sh, err := shape.Load(saved)
	if err != nil {
		return err
	}
	if g, ok := sh.(*shape.Graphic); ok {
		if err := g.Decode(); err != nil {
			return err
		}
	}
	b := sh.Common()
	b.AppearanceTime = m.session.scene.Clock()
	b.DisappearanceTime = m.session.scene.EndTime()
	z, _ := m.session.scene.ZRange()
	b.ZIndex = z + 1
	sh.Translate(geom.V(moveStep, moveStep))
	sh.UpdateGeometry()

	if _, err := m.session.history.PerformAction(ctx, []ops.Step{ops.New(ops.RestoreShape, sh)}); err != nil {
		return err
	}
	m.session.selected = sh
	return nil
}

func readClipboardText() (string, error) {
	if runtime.GOOS == "darwin" {
		if output, err := exec.Command("pbpaste", "-Prefer", "txt").Output(); err == nil {
			return string(output), nil
		}
	}
	return clipboard.ReadAll()
}
