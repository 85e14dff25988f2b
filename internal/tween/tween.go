// Package tween interpolates a relative shape mutation over a time window.
//
// Shape mutations are relative, so a tween remembers how much it has
// already applied and on every GoToTime applies only the difference to the
// new target.
package tween

import (
	"errors"
	"fmt"
	"math"

	"animterm/internal/geom"
	"animterm/internal/ops"
	"animterm/internal/shape"
	"animterm/internal/timeline"
)

var (
	ErrInvalidTween = errors.New("invalid tween")
	ErrNotTweenable = errors.New("steps cannot form a tween")
)

type Kind string

const (
	Translation Kind = "translation"
	Rotation    Kind = "rotation"
	Scaling     Kind = "scale"
)

type Tween struct {
	Shape  shape.Shape
	Kind   Kind
	Start  float64
	Length float64
	// Delta is the total displacement of a translation.
	Delta geom.Vec
	// Amount is the total angle of a rotation in degrees, or the total
	// factor of a scale.
	Amount float64
	// Origin is the fixed point of a rotation or scale.
	Origin geom.Vec

	appliedDelta  geom.Vec
	appliedAmount float64
	progress      float64

	startEvent *timeline.Event
	endEvent   *timeline.Event
}

func NewTranslation(s shape.Shape, start, length float64, delta geom.Vec) (*Tween, error) {
	return newTween(&Tween{Shape: s, Kind: Translation, Start: start, Length: length, Delta: delta})
}

func NewRotation(s shape.Shape, start, length, degrees float64, origin geom.Vec) (*Tween, error) {
	return newTween(&Tween{Shape: s, Kind: Rotation, Start: start, Length: length, Amount: degrees, Origin: origin})
}

func NewScale(s shape.Shape, start, length, factor float64, origin geom.Vec) (*Tween, error) {
	return newTween(&Tween{Shape: s, Kind: Scaling, Start: start, Length: length, Amount: factor, Origin: origin})
}

func newTween(tw *Tween) (*Tween, error) {
	if tw.Shape == nil {
		return nil, fmt.Errorf("%w: no shape", ErrInvalidTween)
	}
	if tw.Start < 0 || tw.Length < 0 || math.IsNaN(tw.Start) || math.IsNaN(tw.Length) {
		return nil, fmt.Errorf("%w: window [%v, +%v]", ErrInvalidTween, tw.Start, tw.Length)
	}
	switch tw.Kind {
	case Translation, Rotation:
	case Scaling:
		if tw.Amount <= 0 {
			return nil, fmt.Errorf("%w: scale factor %v must be positive", ErrInvalidTween, tw.Amount)
		}
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidTween, tw.Kind)
	}
	tw.appliedAmount = tw.identity()
	return tw, nil
}

func (tw *Tween) identity() float64 {
	if tw.Kind == Scaling {
		return 1
	}
	return 0
}

func (tw *Tween) End() float64 {
	return tw.Start + tw.Length
}

// Progress is the interpolation parameter at t, clamped to [0, 1].
func (tw *Tween) Progress(t float64) float64 {
	if t <= tw.Start {
		if tw.Length == 0 && t == tw.Start {
			return 1
		}
		return 0
	}
	if t >= tw.End() {
		return 1
	}
	return (t - tw.Start) / tw.Length
}

// GoToTime moves the shape to where the tween puts it at t.
func (tw *Tween) GoToTime(t float64) {
	tw.apply(tw.Progress(t))
}

// Rewind takes back everything the tween has applied.
func (tw *Tween) Rewind() {
	tw.apply(0)
}

// Complete applies the whole tween.
func (tw *Tween) Complete() {
	tw.apply(1)
}

// AppliedProgress is the interpolation parameter last applied.
func (tw *Tween) AppliedProgress() float64 {
	return tw.progress
}

func (tw *Tween) apply(p float64) {
	tw.progress = p
	switch tw.Kind {
	case Translation:
		target := tw.Delta.Mul(p)
		if target == tw.appliedDelta {
			return
		}
		tw.Shape.Translate(target.Sub(tw.appliedDelta))
		tw.appliedDelta = target
	case Rotation:
		target := tw.Amount * p
		if target == tw.appliedAmount {
			return
		}
		tw.Shape.Rotate(target-tw.appliedAmount, tw.Origin)
		tw.appliedAmount = target
	case Scaling:
		target := 1 + (tw.Amount-1)*p
		if target == tw.appliedAmount {
			return
		}
		tw.Shape.Scale(target/tw.appliedAmount, tw.Origin)
		tw.appliedAmount = target
	}
	tw.Shape.UpdateGeometry()
}

// Applied reports whether the tween currently displaces its shape.
func (tw *Tween) Applied() bool {
	return !tw.appliedDelta.IsZero() || tw.appliedAmount != tw.identity()
}

// NewStartTime moves the start keeping the end fixed and returns the
// previous start. The start and end events follow the new window, so a
// caller keeping them in a timeline.List must take them out first.
func (tw *Tween) NewStartTime(t float64) (float64, error) {
	if t < 0 || t > tw.End() {
		return 0, fmt.Errorf("%w: start %v outside [0, %v]", ErrInvalidTween, t, tw.End())
	}
	prev, end := tw.Start, tw.End()
	tw.Start, tw.Length = t, end-t
	tw.syncEvents()
	return prev, nil
}

// NewEndTime moves the end keeping the start fixed and returns the previous
// end.
func (tw *Tween) NewEndTime(t float64) (float64, error) {
	if t < tw.Start {
		return 0, fmt.Errorf("%w: end %v before start %v", ErrInvalidTween, t, tw.Start)
	}
	prev := tw.End()
	tw.Length = t - tw.Start
	tw.syncEvents()
	return prev, nil
}

// StartEvent activates the tween going forward and rewinds it to zero going
// backward. The event is created once and keeps its identity.
func (tw *Tween) StartEvent() *timeline.Event {
	if tw.startEvent == nil {
		tw.startEvent = &timeline.Event{
			Type:     timeline.TweenStart,
			Shape:    tw.Shape,
			Time:     tw.Start,
			Colour:   timeline.TweenStart.Colour(),
			Forward:  []ops.Step{ops.New(ops.TweenActivate, tw)},
			Backward: []ops.Step{ops.New(ops.TweenReset, tw)},
			Tween:    tw,
		}
	}
	return tw.startEvent
}

// EndEvent completes the tween going forward and reactivates it going
// backward.
func (tw *Tween) EndEvent() *timeline.Event {
	if tw.endEvent == nil {
		tw.endEvent = &timeline.Event{
			Type:     timeline.TweenEnd,
			Shape:    tw.Shape,
			Time:     tw.End(),
			Colour:   timeline.TweenEnd.Colour(),
			Forward:  []ops.Step{ops.New(ops.TweenFinish, tw)},
			Backward: []ops.Step{ops.New(ops.TweenActivate, tw)},
			Tween:    tw,
		}
	}
	return tw.endEvent
}

// Events returns the start and end events.
func (tw *Tween) Events() []*timeline.Event {
	return []*timeline.Event{tw.StartEvent(), tw.EndEvent()}
}

func (tw *Tween) syncEvents() {
	if tw.startEvent != nil {
		tw.startEvent.Time = tw.Start
	}
	if tw.endEvent != nil {
		tw.endEvent.Time = tw.End()
	}
}

func (tw *Tween) String() string {
	return fmt.Sprintf("%s of %q [%.3f, %.3f]", tw.Kind, tw.Shape.Common().Name, tw.Start, tw.End())
}
