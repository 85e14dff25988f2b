package history

import (
	"context"
	"errors"
	"fmt"

	"animterm/internal/ops"
	"animterm/internal/timeline"
	"animterm/internal/tween"
)

var ErrNotAddable = errors.New("action cannot be added to the timeline")

// AddToTimeline turns the current action into a keyframe at the clock. The
// live edit is taken back and replayed by the keyframe, so the scene looks
// the same; the action then stands for adding the keyframe.
func (h *Manager) AddToTimeline(ctx context.Context) error {
	h.mu.Lock()
	defer h.unlock()
	if err := h.transition(promote); err != nil {
		return err
	}
	if err := h.addToTimeline(ctx); err != nil {
		return err
	}
	h.changed()
	return nil
}

func (h *Manager) addToTimeline(ctx context.Context) error {
	a, err := h.promotable()
	if err != nil {
		return err
	}
	subject, _ := ops.Subject(a.Forward[0])
	ev := timeline.NewAttributeChange(subject, h.scene.Clock(), a.Forward, a.Backward)
	add := ops.New(ops.AddTimelineEvent, ev)
	if err := h.replace(ctx, a, add, ops.New(ops.RemoveTimelineEvent, ev)); err != nil {
		return err
	}
	h.log.Info("action added to timeline", "event", ev.String())
	return nil
}

// AddAsTween turns the current translate, rotate or scale action into a
// tween from the clock lasting length seconds.
func (h *Manager) AddAsTween(ctx context.Context, length float64) error {
	h.mu.Lock()
	defer h.unlock()
	if err := h.transition(promote); err != nil {
		return err
	}
	a, err := h.promotable()
	if err != nil {
		return err
	}
	tw, err := tween.FromSteps(a.Forward, h.scene.Clock(), length)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotAddable, err)
	}
	if err := h.replace(ctx, a, ops.New(ops.AddTween, tw), ops.New(ops.RemoveTween, tw)); err != nil {
		return err
	}
	h.log.Info("action added as tween", "tween", tw.String())
	h.changed()
	return nil
}

func (h *Manager) promotable() (*Action, error) {
	if h.current == 0 {
		return nil, fmt.Errorf("%w: nothing to add", ErrNotAddable)
	}
	a := &h.actions[h.current]
	if !a.Addable || len(a.Forward) == 0 {
		return nil, ErrNotAddable
	}
	return a, nil
}

// replace undoes the live edit and applies forward in one batch, then makes
// the action stand for forward and backward.
func (h *Manager) replace(ctx context.Context, a *Action, forward, backward ops.Step) error {
	steps := append(append([]ops.Step(nil), a.Backward...), forward)
	if _, err := h.scene.ExecuteSteps(ctx, steps); err != nil {
		return err
	}
	a.Forward = []ops.Step{forward}
	a.Backward = []ops.Step{backward}
	a.Addable = false
	return nil
}
