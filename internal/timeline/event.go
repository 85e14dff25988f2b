// Package timeline holds timed, reversible scene events and the sorted list
// that orders them.
package timeline

import (
	"fmt"

	"animterm/internal/ops"
	"animterm/internal/shape"
)

type EventType int

const (
	Appearance EventType = iota
	Disappearance
	AttributeChange
	TweenStart
	TweenEnd
)

var eventTypeNames = [...]string{
	Appearance:      "appearance",
	Disappearance:   "disappearance",
	AttributeChange: "attributeChange",
	TweenStart:      "tweenStart",
	TweenEnd:        "tweenEnd",
}

func (t EventType) String() string {
	if t >= 0 && int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// ParseEventType is the inverse of EventType.String.
func ParseEventType(s string) (EventType, error) {
	for i, n := range eventTypeNames {
		if n == s {
			return EventType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown timeline event type %q", s)
}

// Colour is the default marker colour for events of this type.
func (t EventType) Colour() string {
	switch t {
	case Appearance:
		return "#2e9e44"
	case Disappearance:
		return "#c0392b"
	case AttributeChange:
		return "#2f6fd0"
	}
	return "#e08e1b"
}

// Tweener is the tween a TweenStart or TweenEnd event bounds.
type Tweener interface {
	GoToTime(t float64)
}

// Event is applied by running Forward when the clock passes Time going
// forward, and Backward when it passes Time going backward.
type Event struct {
	Type     EventType
	Shape    shape.Shape
	Time     float64
	Colour   string
	Forward  []ops.Step
	Backward []ops.Step
	Tween    Tweener
}

func (e *Event) String() string {
	name := ""
	if e.Shape != nil {
		name = e.Shape.Common().Name
	}
	return fmt.Sprintf("%s %q @%.3f", e.Type, name, e.Time)
}

// NewAppearance shows s when the clock reaches its appearance time.
func NewAppearance(s shape.Shape) *Event {
	return &Event{
		Type:     Appearance,
		Shape:    s,
		Time:     s.Common().AppearanceTime,
		Colour:   Appearance.Colour(),
		Forward:  []ops.Step{ops.New(ops.ShowShape, s)},
		Backward: []ops.Step{ops.New(ops.HideShape, s)},
	}
}

// NewDisappearance hides s when the clock reaches its disappearance time.
func NewDisappearance(s shape.Shape) *Event {
	return &Event{
		Type:     Disappearance,
		Shape:    s,
		Time:     s.Common().DisappearanceTime,
		Colour:   Disappearance.Colour(),
		Forward:  []ops.Step{ops.New(ops.HideShape, s)},
		Backward: []ops.Step{ops.New(ops.ShowShape, s)},
	}
}

// NewAttributeChange is a keyframe replaying recorded steps at time t.
func NewAttributeChange(s shape.Shape, t float64, forward, backward []ops.Step) *Event {
	return &Event{
		Type:     AttributeChange,
		Shape:    s,
		Time:     t,
		Colour:   AttributeChange.Colour(),
		Forward:  forward,
		Backward: backward,
	}
}
