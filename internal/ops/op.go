// Package ops defines the closed set of operations a scene understands, the
// Step command that carries them, and the table that inverts them.
package ops

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrBadOperand       = errors.New("bad operand")
	ErrNotInvertible    = errors.New("operation not invertible")
)

// Op identifies one scene operation. The zero value is not an operation.
type Op int

const (
	OpNone Op = iota

	CreateDrawing
	CreateEllipse
	CreateGraphic
	CreatePolygon
	CreateText
	DeleteShape
	RestoreShape
	Duplicate

	Translate
	Rotate
	Scale

	SwapZIndices
	MoveToFront
	MoveToBack
	SetZIndex

	ShapeAttributeUpdate
	NewAppearanceTime
	NewDisappearanceTime

	AddTween
	RemoveTween
	NewTweenStart
	NewTweenEnd

	GoToTime

	AddTimelineEvent
	RemoveTimelineEvent

	ShowShape
	HideShape
	TweenActivate
	TweenReset
	TweenFinish

	opCount
)

var names = [...]string{
	OpNone:               "none",
	CreateDrawing:        "createDrawing",
	CreateEllipse:        "createEllipse",
	CreateGraphic:        "createGraphic",
	CreatePolygon:        "createPolygon",
	CreateText:           "createText",
	DeleteShape:          "deleteShape",
	RestoreShape:         "restoreShape",
	Duplicate:            "duplicate",
	Translate:            "translate",
	Rotate:               "rotate",
	Scale:                "scale",
	SwapZIndices:         "swapZIndices",
	MoveToFront:          "moveToFront",
	MoveToBack:           "moveToBack",
	SetZIndex:            "setZIndex",
	ShapeAttributeUpdate: "shapeAttributeUpdate",
	NewAppearanceTime:    "newAppearanceTime",
	NewDisappearanceTime: "newDisappearanceTime",
	AddTween:             "addTween",
	RemoveTween:          "removeTween",
	NewTweenStart:        "newTweenStart",
	NewTweenEnd:          "newTweenEnd",
	GoToTime:             "goToTime",
	AddTimelineEvent:     "addTimelineEvent",
	RemoveTimelineEvent:  "removeTimelineEvent",
	ShowShape:            "showShape",
	HideShape:            "hideShape",
	TweenActivate:        "tweenActivate",
	TweenReset:           "tweenReset",
	TweenFinish:          "tweenFinish",
}

var byName = func() map[string]Op {
	m := make(map[string]Op, len(names))
	for op := OpNone + 1; op < opCount; op++ {
		m[names[op]] = op
	}
	return m
}()

// All returns every valid operation.
func All() []Op {
	all := make([]Op, 0, opCount-1)
	for op := OpNone + 1; op < opCount; op++ {
		all = append(all, op)
	}
	return all
}

func (op Op) Valid() bool {
	return op > OpNone && op < opCount
}

func (op Op) String() string {
	if op >= 0 && op < opCount {
		return names[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// attributeAliases maps editor-facing property names onto shape attribute
// names. A step named after one of them becomes a shapeAttributeUpdate.
var attributeAliases = map[string]string{
	"fill":         "fill",
	"fillColour":   "fill",
	"fillColor":    "fill",
	"stroke":       "stroke",
	"strokeColour": "stroke",
	"strokeColor":  "stroke",
	"strokeWidth":  "strokeWidth",
	"lineWidth":    "strokeWidth",
	"opacity":      "opacity",
	"text":         "text",
	"fontSize":     "fontSize",
	"radiusX":      "radiusX",
	"radiusY":      "radiusY",
	"width":        "width",
	"height":       "height",
	"name":         "name",
	"directory":    "directory",
}

// Parse resolves an operation name.
func Parse(name string) (Op, error) {
	if op, ok := byName[name]; ok {
		return op, nil
	}
	return OpNone, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
}

// ParseStep builds a step from a name and operands. Attribute aliases take
// (shape, value) operands and expand to shapeAttributeUpdate.
func ParseStep(name string, args ...any) (Step, error) {
	if op, err := Parse(name); err == nil {
		return Step{Op: op, Args: args}, nil
	}
	attr, ok := attributeAliases[strings.TrimSpace(name)]
	if !ok {
		return Step{}, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	if len(args) != 2 {
		return Step{}, fmt.Errorf("%w: %s takes a shape and a value, got %d operands", ErrBadOperand, name, len(args))
	}
	return Step{Op: ShapeAttributeUpdate, Args: []any{args[0], attr, args[1]}}, nil
}
