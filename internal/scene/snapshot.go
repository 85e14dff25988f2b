package scene

import (
	"fmt"
	"math"
	"sort"

	"animterm/internal/shape"
	"animterm/internal/timeline"
	"animterm/internal/tween"
)

// Snapshot is the scene in its base state, with no timeline event applied.
// It is what a save file records and what Install rebuilds from.
type Snapshot struct {
	Clock                float64
	ZIndexOfHighestShape float64
	ZIndexOfLowestShape  float64
	Counts               map[shape.Kind]int
	// Shapes are back to front.
	Shapes []shape.Shape
	// Events holds each shape's timeline events in time order. Install only
	// reads the AttributeChange ones; the others are derived from the shape
	// and its tweens.
	Events map[shape.Shape][]*timeline.Event
	Tweens []*tween.Tween
}

// WithBaseState rewinds every event, calls fn with the scene as a snapshot,
// and returns to the clock. fn runs under the scene's lock and must not call
// back into the Controller. Subscribers are not told about the round trip.
func (c *Controller) WithBaseState(fn func(Snapshot) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	outer := c.batch
	c.batch = newBatch()
	defer func() { c.batch = outer }()

	saved := c.clock
	c.scrub(-TimeEpsilon)
	defer c.scrub(saved)

	snap := Snapshot{
		Clock:                saved,
		ZIndexOfHighestShape: c.zHigh,
		ZIndexOfLowestShape:  c.zLow,
		Counts:               make(map[shape.Kind]int, len(c.counts)),
		Shapes:               zOrdered(c.live),
		Events:               make(map[shape.Shape][]*timeline.Event, len(c.live)),
		Tweens:               c.sortedTweens(),
	}
	for k, n := range c.counts {
		snap.Counts[k] = n
	}
	for _, s := range snap.Shapes {
		events := c.records[s].events()
		sort.SliceStable(events, func(i, j int) bool { return events[i].Time < events[j].Time })
		snap.Events[s] = events
	}
	return fn(snap)
}

// Install replaces the whole scene with snap. snap's shapes and tweens must
// be in their base state. Nothing changes if snap is inconsistent. Every
// subscriber then gets a Reset.
func (c *Controller) Install(snap Snapshot) error {
	c.mu.Lock()
	if err := c.validate(snap); err != nil {
		c.mu.Unlock()
		return err
	}

	c.reset()
	c.clock = -TimeEpsilon
	c.zHigh, c.zLow = snap.ZIndexOfHighestShape, snap.ZIndexOfLowestShape
	for k, n := range snap.Counts {
		c.counts[k] = n
	}
	for _, s := range snap.Shapes {
		b := s.Common()
		b.Name = c.uniqueName(b.Name, s)
		r := c.recordOf(s)
		r.appearance = timeline.NewAppearance(s)
		r.disappearance = timeline.NewDisappearance(s)
		for _, e := range snap.Events[s] {
			if e.Type == timeline.AttributeChange {
				r.keyframes = append(r.keyframes, e)
			}
		}
		c.live[s] = true
		c.names[b.Name] = s
		c.noteZ(b.ZIndex)
	}
	for _, tw := range snap.Tweens {
		r := c.records[tw.Shape]
		r.tweens = append(r.tweens, tw)
		c.tweens[tw] = true
	}
	for _, s := range snap.Shapes {
		for _, e := range c.records[s].events() {
			c.events.Insert(e)
		}
	}
	c.scrub(snap.Clock)
	c.batch = newBatch()
	pending := c.resetAll()
	c.mu.Unlock()

	c.deliver(pending)
	c.log.Info("scene installed", "shapes", len(snap.Shapes), "tweens", len(snap.Tweens), "clock", snap.Clock)
	return nil
}

func (c *Controller) validate(snap Snapshot) error {
	if err := c.checkTime(snap.Clock); err != nil {
		return err
	}
	end := c.cfg.SceneEndTime
	in := make(map[shape.Shape]bool, len(snap.Shapes))
	for _, s := range snap.Shapes {
		if s == nil || in[s] {
			return fmt.Errorf("%w: shape listed twice or nil", ErrInvariant)
		}
		in[s] = true
		b := s.Common()
		if b.AppearanceTime < 0 || b.AppearanceTime > b.DisappearanceTime || b.DisappearanceTime > end {
			return fmt.Errorf("%w: %s lives [%v, %v]", ErrTimeOutOfRange, describe(s), b.AppearanceTime, b.DisappearanceTime)
		}
	}
	for s, events := range snap.Events {
		if !in[s] {
			return fmt.Errorf("%w: events for %s", ErrUnknownShape, describe(s))
		}
		for _, e := range events {
			if e.Type == timeline.AttributeChange && (e.Time < 0 || e.Time > end || math.IsNaN(e.Time)) {
				return fmt.Errorf("%w: %s", ErrTimeOutOfRange, e)
			}
		}
	}
	seen := make(map[*tween.Tween]bool, len(snap.Tweens))
	for _, tw := range snap.Tweens {
		if tw == nil || seen[tw] {
			return fmt.Errorf("%w: tween listed twice or nil", ErrInvariant)
		}
		seen[tw] = true
		if !in[tw.Shape] {
			return fmt.Errorf("%w: tween of %s", ErrUnknownShape, describe(tw.Shape))
		}
		if tw.End() > end {
			return fmt.Errorf("%w: %s", ErrTimeOutOfRange, tw)
		}
	}
	return nil
}
