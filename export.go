package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"animterm/internal/document"
	"animterm/internal/render"
)

func (m *model) renderer() (*render.Renderer, error) {
	return render.New(m.session.cfg.CanvasWidth, m.session.cfg.CanvasHeight)
}

// exportFrames writes the whole scene as a PNG sequence into dir.
func (m *model) exportFrames(ctx context.Context, dir string) error {
	r, err := m.renderer()
	if err != nil {
		return err
	}
	n, err := r.ExportFrames(ctx, m.session.scene, m.cfg.SavePath(dir), m.session.cfg.FPS)
	if err != nil {
		return err
	}
	m.successMessage = fmt.Sprintf("Exported %d frames to %s", n, dir)
	return nil
}

// exportPNG writes the frame at the clock.
func (m *model) exportPNG(filename string) error {
	r, err := m.renderer()
	if err != nil {
		return err
	}
	path := m.cfg.SavePath(withExt(filename, ".png"))
	if err := r.SaveFrame(path, m.session.scene); err != nil {
		return err
	}
	m.successMessage = "Exported " + path
	return nil
}

func (m *model) saveScene(filename string) error {
	path := m.cfg.SavePath(withExt(filename, sceneExt))
	s := m.session
	if err := document.Save(path, s.scene, s.rootWindow()); err != nil {
		return err
	}
	s.filename = filename
	s.dirty = false
	m.successMessage = "Saved " + path
	return nil
}

// openScene replaces the session with the scene in filename. The old
// session stays open if loading fails.
func (m *model) openScene(ctx context.Context, filename string) error {
	path := m.cfg.SavePath(withExt(filename, sceneExt))
	doc, err := document.Open(ctx, path)
	if err != nil {
		return err
	}
	s := newSession(doc.Settings.Apply(m.cfg), m.log, filename)
	if err := s.scene.Install(doc.Snapshot); err != nil {
		s.close()
		return err
	}
	s.restoreRootWindow(doc.RootWindow)
	s.dirty = false
	m.session.close()
	m.session = s
	m.successMessage = "Opened " + path
	return nil
}

func (m *model) newScene() {
	m.session.close()
	m.session = newSession(m.cfg, m.log, "")
}

func withExt(filename, ext string) string {
	if strings.EqualFold(filepath.Ext(filename), ext) {
		return filename
	}
	return filename + ext
}
