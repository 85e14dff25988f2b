package scene

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"animterm/internal/ops"
	"animterm/internal/shape"
	"animterm/internal/timeline"
	"animterm/internal/tween"
)

// tracker remembers, for every item touched during a batch, whether it was
// present before the first touch. Comparing that with presence at flush
// time nets out an item added and removed within one batch.
type tracker[T comparable] struct {
	before map[T]bool
	order  []T
}

func (t *tracker[T]) touch(item T, present bool) {
	if t.before == nil {
		t.before = make(map[T]bool)
	}
	if _, seen := t.before[item]; seen {
		return
	}
	t.before[item] = present
	t.order = append(t.order, item)
}

// delta is the netted change to one model over a batch.
type delta struct {
	added, removed, updated []any
}

func (t *tracker[T]) diff(present func(T) bool) delta {
	var d delta
	for _, item := range t.order {
		was, is := t.before[item], present(item)
		switch {
		case !was && is:
			d.added = append(d.added, item)
		case was && !is:
			d.removed = append(d.removed, item)
		case was && is:
			d.updated = append(d.updated, item)
		}
	}
	return d
}

type batch struct {
	shapes  tracker[shape.Shape]
	display tracker[shape.Shape]
	events  tracker[*timeline.Event]
	tweens  tracker[*tween.Tween]

	clockMoved  bool
	clockBefore float64
}

func newBatch() *batch {
	return &batch{}
}

// run is one call into the step executor. Steps with asynchronous work add
// it to group; the completion runs on the caller once every job is done.
type run struct {
	group *errgroup.Group
	ctx   context.Context
	jobs  []*job
}

type job struct {
	done func() error
}

// async schedules work off the mutex. work must not touch the scene; it
// returns a completion that does, which runs in scheduling order after the
// join.
func (c *Controller) async(work func(ctx context.Context) (func() error, error)) {
	r := c.run
	j := &job{}
	r.jobs = append(r.jobs, j)
	r.group.Go(func() error {
		done, err := work(r.ctx)
		if err != nil {
			return err
		}
		j.done = done
		return nil
	})
}

func (c *Controller) runSteps(ctx context.Context, steps []ops.Step) ([]any, error) {
	g, gctx := errgroup.WithContext(ctx)
	outer := c.run
	c.run = &run{group: g, ctx: gctx}
	defer func() { c.run = outer }()

	rets := make([]any, 0, len(steps))
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			c.rollback(steps[:i], rets)
			g.Wait()
			return nil, err
		}
		ret, err := c.apply(s)
		if err != nil {
			c.log.Error("step failed", "index", i, "step", s.String(), "err", err)
			c.rollback(steps[:i], rets)
			g.Wait()
			return nil, fmt.Errorf("step %d %s: %w", i, s.Op, err)
		}
		rets = append(rets, ret)
	}

	if err := g.Wait(); err != nil {
		c.rollback(steps, rets)
		return nil, err
	}
	for _, j := range c.run.jobs {
		if j.done == nil {
			continue
		}
		if err := j.done(); err != nil {
			c.rollback(steps, rets)
			return nil, err
		}
	}
	return rets, nil
}

// rollback undoes steps that have already run, last first. Unknown
// operations did nothing and are skipped.
func (c *Controller) rollback(steps []ops.Step, rets []any) {
	var (
		known     []ops.Step
		knownRets []any
	)
	for i, s := range steps {
		if _, ok := ops.Describe(s.Op); ok {
			known = append(known, s)
			knownRets = append(knownRets, rets[i])
		}
	}
	if len(known) == 0 {
		return
	}
	_, backward, _, err := ops.Record(known, knownRets)
	if err != nil {
		c.log.Error("cannot roll back batch", "err", err)
		return
	}
	for _, s := range backward {
		if _, err := c.apply(s); err != nil {
			c.log.Error("rollback step failed", "step", s.String(), "err", err)
		}
	}
}

// flush turns the batch into notifications and starts a new batch. It runs
// under the mutex; the caller delivers the result after unlocking.
func (c *Controller) flush() []delivery {
	b := c.batch
	c.batch = newBatch()

	var ns []Notification
	add := func(m Model, d delta) {
		n := Notification{Model: m, Added: d.added, Removed: d.removed, Updated: d.updated, Clock: c.clock}
		if !n.Empty() {
			ns = append(ns, n)
		}
	}
	add(AllShapes, b.shapes.diff(func(s shape.Shape) bool { return c.live[s] }))
	add(DisplayShapes, b.display.diff(func(s shape.Shape) bool { return c.display[s] }))
	add(TimelineEvents, b.events.diff(func(e *timeline.Event) bool { return c.events.IndexOf(e) >= 0 }))
	add(Tweens, b.tweens.diff(func(tw *tween.Tween) bool { return c.tweens[tw] }))
	if b.clockMoved && b.clockBefore != c.clock {
		ns = append(ns, Notification{Model: Clock, Clock: c.clock})
	}
	return c.fanOut(ns)
}

func (c *Controller) touchShape(s shape.Shape) {
	c.batch.shapes.touch(s, c.live[s])
	c.batch.display.touch(s, c.display[s])
}

func (c *Controller) touchEvent(e *timeline.Event) {
	c.batch.events.touch(e, c.events.IndexOf(e) >= 0)
}

func (c *Controller) touchTween(tw *tween.Tween) {
	c.batch.tweens.touch(tw, c.tweens[tw])
}

func (c *Controller) setClock(t float64) {
	if t == c.clock {
		return
	}
	if !c.batch.clockMoved {
		c.batch.clockMoved = true
		c.batch.clockBefore = c.clock
	}
	c.clock = t
}
