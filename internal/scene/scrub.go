package scene

import (
	"fmt"
	"math"

	"animterm/internal/ops"
	"animterm/internal/shape"
	"animterm/internal/timeline"
	"animterm/internal/tween"
)

// scrub moves the clock to t. Going forward it applies the Forward steps of
// every event after the cursor up to and including t; going backward it
// applies the Backward steps of every event after t down from the cursor.
// Only the events crossed are visited. Active tweens then follow the clock.
func (c *Controller) scrub(t float64) {
	switch {
	case t > c.clock:
		for c.current+1 < c.events.Len() {
			e := c.events.At(c.current + 1)
			if e.Time > t {
				break
			}
			c.runEvent(e, e.Forward)
			c.current++
		}
	case t < c.clock:
		for c.current >= 0 {
			e := c.events.At(c.current)
			if e.Time <= t {
				break
			}
			c.runEvent(e, e.Backward)
			c.current--
		}
	}
	c.setClock(t)
	c.followClock(nil)
}

// followClock brings the active tweens to the clock, or only those of s when
// s is not nil.
func (c *Controller) followClock(s shape.Shape) {
	for _, tw := range c.active {
		if s != nil && tw.Shape != s {
			continue
		}
		if tw.AppliedProgress() == tw.Progress(c.clock) {
			continue
		}
		tw.GoToTime(c.clock)
		c.touchShape(tw.Shape)
	}
}

func (c *Controller) runEvent(e *timeline.Event, steps []ops.Step) {
	for _, s := range steps {
		if _, err := c.apply(s); err != nil {
			c.log.Error("timeline event step failed", "event", e.String(), "step", s.String(), "err", err)
		}
	}
}

// mutateTimeline rewinds to just before earliest, runs mutate, then returns
// to the clock it started at. Events at or after earliest are unapplied
// while mutate runs, so inserting, removing or retiming them cannot leave
// the cursor pointing at the wrong event. The clock may briefly be negative.
func (c *Controller) mutateTimeline(earliest float64, mutate func() error) error {
	saved := c.clock
	if target := earliest - TimeEpsilon; target < saved {
		c.scrub(target)
	}
	err := mutate()
	c.scrub(saved)
	return err
}

func earliestOf(events []*timeline.Event) float64 {
	t := math.Inf(1)
	for _, e := range events {
		t = math.Min(t, e.Time)
	}
	return t
}

// insertEvent puts e in the timeline. Callers rewind first, so e always
// lands after the cursor.
func (c *Controller) insertEvent(e *timeline.Event) error {
	if c.events.IndexOf(e) >= 0 {
		return fmt.Errorf("%w: %s", ErrEventExists, e)
	}
	c.touchEvent(e)
	if i := c.events.Insert(e); i <= c.current {
		c.events.RemoveAt(i)
		return fmt.Errorf("%w: %s inserted at %d, cursor at %d", ErrInvariant, e, i, c.current)
	}
	return nil
}

func (c *Controller) removeEvent(e *timeline.Event) error {
	i := c.events.IndexOf(e)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrEventNotFound, e)
	}
	if i <= c.current {
		return fmt.Errorf("%w: removing applied event %s", ErrInvariant, e)
	}
	c.touchEvent(e)
	c.events.RemoveAt(i)
	return nil
}

// insertEvents adds events under one rewind.
func (c *Controller) insertEvents(events []*timeline.Event) error {
	return c.mutateTimeline(earliestOf(events), func() error {
		for i, e := range events {
			if err := c.insertEvent(e); err != nil {
				for _, done := range events[:i] {
					c.removeEvent(done)
				}
				return err
			}
		}
		return nil
	})
}

// removeEvents takes events out under one rewind. Events not in the
// timeline are an error and nothing is removed.
func (c *Controller) removeEvents(events []*timeline.Event) error {
	for _, e := range events {
		if c.events.IndexOf(e) < 0 {
			return fmt.Errorf("%w: %s", ErrEventNotFound, e)
		}
	}
	return c.mutateTimeline(earliestOf(events), func() error {
		for _, e := range events {
			if err := c.removeEvent(e); err != nil {
				return err
			}
		}
		return nil
	})
}

// retime moves events to new times under one rewind covering both the old
// and new times. change runs while the events are out of the timeline and
// must update their Time fields; if it fails they go back unchanged.
func (c *Controller) retime(events []*timeline.Event, newEarliest float64, change func() error) error {
	for _, e := range events {
		if c.events.IndexOf(e) < 0 {
			return fmt.Errorf("%w: %s", ErrEventNotFound, e)
		}
	}
	earliest := math.Min(earliestOf(events), newEarliest)
	return c.mutateTimeline(earliest, func() error {
		for _, e := range events {
			if err := c.removeEvent(e); err != nil {
				return err
			}
		}
		changeErr := change()
		for _, e := range events {
			if err := c.insertEvent(e); err != nil {
				return err
			}
		}
		return changeErr
	})
}

func (c *Controller) activate(tw *tween.Tween) {
	for _, a := range c.active {
		if a == tw {
			return
		}
	}
	c.active = append(c.active, tw)
}

func (c *Controller) deactivate(tw *tween.Tween) {
	for i, a := range c.active {
		if a == tw {
			c.active = append(c.active[:i], c.active[i+1:]...)
			return
		}
	}
}

func (c *Controller) checkTime(t float64) error {
	if t < 0 || t > c.cfg.SceneEndTime || math.IsNaN(t) {
		return fmt.Errorf("%w: %v not in [0, %v]", ErrTimeOutOfRange, t, c.cfg.SceneEndTime)
	}
	return nil
}
