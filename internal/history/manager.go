// Package history records reversible actions on a scene and replays them for
// undo and redo. Actions live in an arena addressed by index; index 0 is the
// root, whose Previous is itself, so undo stops there.
package history

import (
	"context"
	"log/slog"
	"sync"

	"animterm/internal/config"
	"animterm/internal/ops"
)

// Scene is what the history drives.
type Scene interface {
	ExecuteSteps(ctx context.Context, steps []ops.Step) ([]any, error)
	Clock() float64
}

// Action is one undo unit. Next is -1 when nothing can be redone.
type Action struct {
	Forward  []ops.Step
	Backward []ops.Step
	// Addable means the action edits one shape in a way that can become a
	// keyframe, and for translate, rotate or scale also a tween.
	Addable  bool
	Previous int
	Next     int
}

// Change is sent to subscribers whenever the current action or the state
// changes.
type Change struct {
	Current int
	Action  Action
	CanUndo bool
	CanRedo bool
	State   State
}

type Manager struct {
	mu    sync.Mutex
	scene Scene
	cfg   config.Config
	log   *slog.Logger

	actions []Action
	current int
	state   State

	receivedSteps []ops.Step
	receivedRets  []any

	subs    map[int]func(Change)
	nextSub int
	pending []Change
}

type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(h *Manager) { h.log = l }
}

func New(scene Scene, cfg config.Config, opts ...Option) *Manager {
	h := &Manager{
		scene:   scene,
		cfg:     cfg,
		log:     slog.Default(),
		actions: []Action{{Previous: 0, Next: -1}},
		subs:    make(map[int]func(Change)),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// SetConfig replaces the configuration used for later actions.
func (h *Manager) SetConfig(cfg config.Config) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg = cfg
}

// unlock releases the mutex and then tells subscribers about queued changes,
// so a subscriber may read the history.
func (h *Manager) unlock() {
	pending := h.pending
	h.pending = nil
	subs := make([]func(Change), 0, len(h.subs))
	for id := 0; id < h.nextSub; id++ {
		if fn, ok := h.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	h.mu.Unlock()

	for _, c := range pending {
		for _, fn := range subs {
			h.notify(fn, c)
		}
	}
}

func (h *Manager) notify(fn func(Change), c Change) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("history subscriber failed", "panic", r)
		}
	}()
	fn(c)
}

func (h *Manager) changed() {
	h.pending = append(h.pending, h.snapshot())
}

func (h *Manager) snapshot() Change {
	a := h.actions[h.current]
	return Change{
		Current: h.current,
		Action:  a,
		CanUndo: h.current != 0,
		CanRedo: a.Next >= 0,
		State:   h.state,
	}
}

// Subscribe registers fn and returns an id for Unsubscribe.
func (h *Manager) Subscribe(fn func(Change)) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	return id
}

func (h *Manager) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

func (h *Manager) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Manager) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current != 0
}

func (h *Manager) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.actions[h.current].Next >= 0
}

// Current returns the index and a copy of the current action.
func (h *Manager) Current() (int, Action) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current, h.actions[h.current]
}

// Len is the number of actions in the arena, root included.
func (h *Manager) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.actions)
}

// Reset drops every action, as after loading a new document.
func (h *Manager) Reset() {
	h.mu.Lock()
	defer h.unlock()
	h.actions = []Action{{Previous: 0, Next: -1}}
	h.current = 0
	h.state = Idle
	h.receivedSteps, h.receivedRets = nil, nil
	h.changed()
}

func (h *Manager) transition(t transition) error {
	to, err := next(h.state, t)
	if err != nil {
		h.log.Warn("rejected", "err", err)
		return err
	}
	if to != h.state {
		h.state = to
		h.changed()
	}
	return nil
}

// PerformAction runs steps on the scene and records them as one action.
func (h *Manager) PerformAction(ctx context.Context, steps []ops.Step) ([]any, error) {
	h.mu.Lock()
	defer h.unlock()
	if err := h.transition(perform); err != nil {
		return nil, err
	}
	return h.perform(ctx, steps)
}

func (h *Manager) perform(ctx context.Context, steps []ops.Step) ([]any, error) {
	rets, err := h.scene.ExecuteSteps(ctx, steps)
	if err != nil {
		return nil, err
	}
	if err := h.newAction(ctx, steps, rets); err != nil {
		return rets, err
	}
	return rets, nil
}

// newAction appends the action after the current one, dropping anything
// that could have been redone.
func (h *Manager) newAction(ctx context.Context, steps []ops.Step, rets []any) error {
	forward, backward, addable, err := ops.Record(steps, rets)
	if err != nil {
		return err
	}
	for i := h.current + 1; i < len(h.actions); i++ {
		h.actions[i] = Action{}
	}
	h.actions = h.actions[:h.current+1]
	h.actions = append(h.actions, Action{
		Forward:  forward,
		Backward: backward,
		Addable:  addable,
		Previous: h.current,
		Next:     -1,
	})
	idx := len(h.actions) - 1
	h.actions[h.current].Next = idx
	h.current = idx
	h.log.Debug("action recorded", "index", idx, "steps", len(forward), "addable", addable)

	if addable && h.cfg.AutoAddToTimeline {
		if err := h.addToTimeline(ctx); err != nil {
			h.log.Error("auto add to timeline failed", "err", err)
		}
	}
	h.changed()
	return nil
}

// BeginAction starts an incremental action. Steps taken until EndAction
// become one undo unit.
func (h *Manager) BeginAction() error {
	h.mu.Lock()
	defer h.unlock()
	if err := h.transition(beginAction); err != nil {
		return err
	}
	h.receivedSteps, h.receivedRets = nil, nil
	return nil
}

// TakeStep runs steps as part of the open action.
func (h *Manager) TakeStep(ctx context.Context, steps ...ops.Step) ([]any, error) {
	h.mu.Lock()
	defer h.unlock()
	if err := h.transition(takeStep); err != nil {
		return nil, err
	}
	rets, err := h.scene.ExecuteSteps(ctx, steps)
	if err != nil {
		return nil, err
	}
	h.receivedSteps = append(h.receivedSteps, steps...)
	h.receivedRets = append(h.receivedRets, rets...)
	return rets, nil
}

// EndAction records the steps taken since BeginAction. An action with no
// steps records nothing.
func (h *Manager) EndAction(ctx context.Context) error {
	h.mu.Lock()
	defer h.unlock()
	if err := h.transition(endAction); err != nil {
		return err
	}
	steps, rets := h.receivedSteps, h.receivedRets
	h.receivedSteps, h.receivedRets = nil, nil
	if len(steps) == 0 {
		return nil
	}
	return h.newAction(ctx, steps, rets)
}

// AbortAction undoes the steps taken since BeginAction and records nothing.
func (h *Manager) AbortAction(ctx context.Context) error {
	h.mu.Lock()
	defer h.unlock()
	if err := h.transition(endAction); err != nil {
		return err
	}
	steps, rets := h.receivedSteps, h.receivedRets
	h.receivedSteps, h.receivedRets = nil, nil
	if len(steps) == 0 {
		return nil
	}
	_, backward, _, err := ops.Record(steps, rets)
	if err != nil {
		return err
	}
	_, err = h.scene.ExecuteSteps(ctx, backward)
	return err
}

// Undo runs the current action's backward steps. At the root it does
// nothing.
func (h *Manager) Undo(ctx context.Context) error {
	h.mu.Lock()
	defer h.unlock()
	if err := h.transition(undoRedo); err != nil {
		return err
	}
	if h.current == 0 {
		return nil
	}
	a := h.actions[h.current]
	if _, err := h.scene.ExecuteSteps(ctx, a.Backward); err != nil {
		return err
	}
	h.current = a.Previous
	h.changed()
	return nil
}

// Redo runs the next action's forward steps. With nothing undone it does
// nothing.
func (h *Manager) Redo(ctx context.Context) error {
	h.mu.Lock()
	defer h.unlock()
	if err := h.transition(undoRedo); err != nil {
		return err
	}
	next := h.actions[h.current].Next
	if next < 0 {
		return nil
	}
	if _, err := h.scene.ExecuteSteps(ctx, h.actions[next].Forward); err != nil {
		return err
	}
	h.current = next
	h.changed()
	return nil
}

// Play enters the Playing state. Only Pause is accepted until then.
func (h *Manager) Play() error {
	h.mu.Lock()
	defer h.unlock()
	return h.transition(play)
}

func (h *Manager) Pause() error {
	h.mu.Lock()
	defer h.unlock()
	return h.transition(pause)
}

// ExecuteScript performs each entry of script as its own action. Other
// requests are rejected while it runs. It stops at the first failing action;
// the actions before it stay recorded.
func (h *Manager) ExecuteScript(ctx context.Context, script [][]ops.Step) error {
	h.mu.Lock()
	err := h.transition(runScript)
	h.unlock()
	if err != nil {
		return err
	}
	defer func() {
		h.mu.Lock()
		h.state = Idle
		h.changed()
		h.unlock()
	}()

	for i, steps := range script {
		if len(steps) == 0 {
			continue
		}
		h.mu.Lock()
		_, err := h.perform(ctx, steps)
		h.unlock()
		if err != nil {
			h.log.Error("script stopped", "action", i, "err", err)
			return err
		}
	}
	return nil
}
