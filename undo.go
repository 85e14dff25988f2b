package main

import (
	"context"
	"errors"
	"fmt"

	"animterm/internal/geom"
	"animterm/internal/history"
	"animterm/internal/ops"
	"animterm/internal/shape"
)

func (m *model) undo(ctx context.Context) {
	h := m.session.history
	if !h.CanUndo() {
		m.successMessage = "Nothing to undo"
		return
	}
	if err := h.Undo(ctx); err != nil {
		m.errorMessage = err.Error()
	}
}

func (m *model) redo(ctx context.Context) {
	h := m.session.history
	if !h.CanRedo() {
		m.successMessage = "Nothing to redo"
		return
	}
	if err := h.Redo(ctx); err != nil {
		m.errorMessage = err.Error()
	}
}

// addKeyframe turns the last action into a keyframe at the clock.
func (m *model) addKeyframe(ctx context.Context) {
	err := m.session.history.AddToTimeline(ctx)
	if errors.Is(err, history.ErrNotAddable) {
		m.errorMessage = "Last action cannot become a keyframe"
		return
	}
	if err != nil {
		m.errorMessage = err.Error()
		return
	}
	m.successMessage = fmt.Sprintf("Keyframe at %.2fs", m.session.scene.Clock())
}

// addTween turns the last move, rotation or scale into a tween starting at
// the clock.
func (m *model) addTween(ctx context.Context) {
	sc := m.session.scene
	length := min(tweenLength, sc.EndTime()-sc.Clock())
	err := m.session.history.AddAsTween(ctx, length)
	if errors.Is(err, history.ErrNotAddable) {
		m.errorMessage = "Last action cannot become a tween"
		return
	}
	if err != nil {
		m.errorMessage = err.Error()
		return
	}
	m.successMessage = fmt.Sprintf("Tween %.2fs-%.2fs", sc.Clock(), sc.Clock()+length)
}

// perform runs steps as one undoable action and reports failures in the
// status line.
func (m *model) perform(ctx context.Context, steps ...ops.Step) []any {
	rets, err := m.session.history.PerformAction(ctx, steps)
	if err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	return rets
}

func (m *model) create(ctx context.Context, step ops.Step) {
	rets := m.perform(ctx, step)
	if len(rets) == 1 {
		if sh, ok := rets[0].(shape.Shape); ok {
			m.session.selected = sh
		}
	}
}

func (m *model) sceneCentre() geom.Vec {
	cfg := m.session.cfg
	return geom.V(float64(cfg.CanvasWidth)/2, float64(cfg.CanvasHeight)/2)
}

func (m *model) createEllipse(ctx context.Context) {
	m.create(ctx, ops.New(ops.CreateEllipse, m.sceneCentre(), geom.V(40, 30)))
}

func (m *model) createPolygon(ctx context.Context) {
	c := m.sceneCentre()
	m.create(ctx, ops.New(ops.CreatePolygon, []geom.Vec{
		c.Add(geom.V(0, -40)), c.Add(geom.V(40, 30)), c.Add(geom.V(-40, 30)),
	}))
}

func (m *model) createText(ctx context.Context, content string) {
	m.create(ctx, ops.New(ops.CreateText, content, m.sceneCentre()))
}

// editSelected runs op on the selected shape with extra operands.
func (m *model) editSelected(ctx context.Context, op ops.Op, args ...any) []any {
	sh, ok := m.session.selectedDisplayed()
	if !ok {
		m.errorMessage = "Select a shape first (tab)"
		return nil
	}
	return m.perform(ctx, ops.New(op, append([]any{sh}, args...)...))
}

func (m *model) rotateSelected(ctx context.Context, degrees float64) {
	if sh, ok := m.session.selectedDisplayed(); ok {
		m.editSelected(ctx, ops.Rotate, degrees, sh.Bounds().Centre())
		return
	}
	m.errorMessage = "Select a shape first (tab)"
}

func (m *model) scaleSelected(ctx context.Context, factor float64) {
	if sh, ok := m.session.selectedDisplayed(); ok {
		m.editSelected(ctx, ops.Scale, factor, sh.Bounds().Centre())
		return
	}
	m.errorMessage = "Select a shape first (tab)"
}

func (m *model) duplicateSelected(ctx context.Context) {
	rets := m.editSelected(ctx, ops.Duplicate)
	if len(rets) == 1 {
		if sh, ok := rets[0].(shape.Shape); ok {
			m.session.selected = sh
		}
	}
}

func (m *model) deleteSelected(ctx context.Context) {
	m.editSelected(ctx, ops.DeleteShape)
	m.session.selected = nil
}
