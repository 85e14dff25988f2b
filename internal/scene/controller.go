// Package scene is the authoritative model of one animation: its shapes,
// their timeline events and tweens, which shapes are on screen, and the
// clock. Every mutation goes through ExecuteSteps, which applies a batch of
// ops.Step values under a mutex and then tells subscribers what changed.
package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"animterm/internal/config"
	"animterm/internal/ops"
	"animterm/internal/shape"
	"animterm/internal/timeline"
	"animterm/internal/tween"
)

// TimeEpsilon is the smallest time step the engine distinguishes. Timeline
// mutations rewind to just before the earliest affected event by this much.
const TimeEpsilon = 1e-6

var (
	ErrUnknownShape   = errors.New("shape not in scene")
	ErrShapeExists    = errors.New("shape already in scene")
	ErrUnknownTween   = errors.New("tween not in scene")
	ErrTweenExists    = errors.New("tween already in scene")
	ErrEventNotFound  = errors.New("timeline event not found")
	ErrEventExists    = errors.New("timeline event already in timeline")
	ErrTimeOutOfRange = errors.New("time outside the scene")
	ErrInvariant      = errors.New("timeline invariant violated")
)

// record is everything the scene keeps for one shape. It outlives a
// deleteShape so that restoreShape brings back the same events and tweens.
type record struct {
	appearance    *timeline.Event
	disappearance *timeline.Event
	keyframes     []*timeline.Event
	tweens        []*tween.Tween
}

func (r *record) events() []*timeline.Event {
	events := []*timeline.Event{r.appearance, r.disappearance}
	events = append(events, r.keyframes...)
	for _, tw := range r.tweens {
		events = append(events, tw.Events()...)
	}
	return events
}

type Controller struct {
	mu  sync.Mutex
	cfg config.Config
	log *slog.Logger

	clock   float64
	current int
	events  timeline.List

	records map[shape.Shape]*record
	live    map[shape.Shape]bool
	names   map[string]shape.Shape
	display map[shape.Shape]bool
	tweens  map[*tween.Tween]bool
	active  []*tween.Tween

	zHigh  float64
	zLow   float64
	counts map[shape.Kind]int

	subs   map[Model]map[int]Subscriber
	nextID int

	batch *batch
	run   *run
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New returns an empty scene with the clock at 0.
func New(cfg config.Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:  cfg,
		log:  slog.Default(),
		subs: make(map[Model]map[int]Subscriber),
	}
	for _, o := range opts {
		o(c)
	}
	c.reset()
	return c
}

func (c *Controller) reset() {
	c.clock = 0
	c.current = -1
	c.events.Reset()
	c.records = make(map[shape.Shape]*record)
	c.live = make(map[shape.Shape]bool)
	c.names = make(map[string]shape.Shape)
	c.display = make(map[shape.Shape]bool)
	c.tweens = make(map[*tween.Tween]bool)
	c.active = nil
	c.zHigh, c.zLow = 0, 0
	c.counts = make(map[shape.Kind]int)
	c.batch = newBatch()
}

// ExecuteSteps applies steps in order as one batch and returns one value per
// step, nil where a step produces none. Asynchronous work scheduled by the
// steps is joined before subscribers hear about the batch. If a step fails
// the steps already applied are undone and nothing is returned.
func (c *Controller) ExecuteSteps(ctx context.Context, steps []ops.Step) ([]any, error) {
	c.mu.Lock()
	rets, err := c.runSteps(ctx, steps)
	pending := c.flush()
	c.mu.Unlock()

	c.deliver(pending)
	return rets, err
}

// ExecuteInvisibleSteps applies steps without closing a batch. Subscribers
// hear about the changes when the next ExecuteSteps finishes.
func (c *Controller) ExecuteInvisibleSteps(ctx context.Context, steps []ops.Step) ([]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runSteps(ctx, steps)
}

// GoToTime moves the clock to t.
func (c *Controller) GoToTime(ctx context.Context, t float64) error {
	_, err := c.ExecuteSteps(ctx, []ops.Step{ops.Time(t)})
	return err
}

func (c *Controller) Config() config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

func (c *Controller) Logger() *slog.Logger {
	return c.log
}

func (c *Controller) Clock() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clock
}

func (c *Controller) EndTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.SceneEndTime
}

// CurrentEvent is the index of the last timeline event at or before the
// clock, or -1.
func (c *Controller) CurrentEvent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Timeline returns the events in time order.
func (c *Controller) Timeline() []*timeline.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events.Events()
}

// AllShapes returns every shape in the scene, back to front.
func (c *Controller) AllShapes() []shape.Shape {
	c.mu.Lock()
	defer c.mu.Unlock()
	return zOrdered(c.live)
}

// DisplayShapes returns the shapes visible at the clock, back to front.
func (c *Controller) DisplayShapes() []shape.Shape {
	c.mu.Lock()
	defer c.mu.Unlock()
	return zOrdered(c.display)
}

// Tweens returns every tween in the scene ordered by start time.
func (c *Controller) Tweens() []*tween.Tween {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortedTweens()
}

func (c *Controller) ShapeByName(name string) (shape.Shape, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.names[name]
	return s, ok
}

func (c *Controller) IsDisplayed(s shape.Shape) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display[s]
}

// TimelineOf returns the events of s that are in the timeline, in time order.
func (c *Controller) TimelineOf(s shape.Shape) []*timeline.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*timeline.Event
	for _, e := range c.events.Events() {
		if e.Shape == s {
			out = append(out, e)
		}
	}
	return out
}

// Check verifies the timeline is sorted and the cursor matches the clock.
func (c *Controller) Check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.check()
}

func (c *Controller) check() error {
	if !c.events.Sorted() {
		return fmt.Errorf("%w: events out of order", ErrInvariant)
	}
	if want := c.events.UpperBound(c.clock) - 1; c.current != want {
		return fmt.Errorf("%w: cursor at %d, clock %v wants %d", ErrInvariant, c.current, c.clock, want)
	}
	return nil
}

func (c *Controller) sortedTweens() []*tween.Tween {
	out := make([]*tween.Tween, 0, len(c.tweens))
	for tw := range c.tweens {
		out = append(out, tw)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Shape.Common().Name < out[j].Shape.Common().Name
	})
	return out
}

func zOrdered(set map[shape.Shape]bool) []shape.Shape {
	out := make([]shape.Shape, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sortByZ(out)
	return out
}

func sortByZ(shapes []shape.Shape) {
	sort.Slice(shapes, func(i, j int) bool {
		a, b := shapes[i].Common(), shapes[j].Common()
		if a.ZIndex != b.ZIndex {
			return a.ZIndex < b.ZIndex
		}
		return a.Name < b.Name
	})
}
