package ops

import (
	"fmt"
	"strings"

	"animterm/internal/geom"
	"animterm/internal/shape"
)

// Step is one serializable command: an operation and its operands.
type Step struct {
	Op   Op
	Args []any
}

func New(op Op, args ...any) Step {
	return Step{Op: op, Args: args}
}

func (s Step) String() string {
	parts := make([]string, len(s.Args))
	for i, a := range s.Args {
		if sh, ok := a.(shape.Shape); ok {
			parts[i] = fmt.Sprintf("%q", sh.Common().Name)
			continue
		}
		parts[i] = fmt.Sprint(a)
	}
	return s.Op.String() + "(" + strings.Join(parts, ", ") + ")"
}

// Arg returns operand i as a T.
func Arg[T any](s Step, i int) (T, error) {
	var zero T
	if i >= len(s.Args) {
		return zero, fmt.Errorf("%w: %s wants operand %d, has %d", ErrBadOperand, s.Op, i, len(s.Args))
	}
	v, ok := s.Args[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s operand %d is %T, want %T", ErrBadOperand, s.Op, i, s.Args[i], zero)
	}
	return v, nil
}

// Float returns operand i as a float64, accepting any Go number.
func Float(s Step, i int) (float64, error) {
	if i >= len(s.Args) {
		return 0, fmt.Errorf("%w: %s wants operand %d, has %d", ErrBadOperand, s.Op, i, len(s.Args))
	}
	switch v := s.Args[i].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("%w: %s operand %d is %T, want a number", ErrBadOperand, s.Op, i, s.Args[i])
}

// Subject returns the shape a step acts on, if its first operand is one.
func Subject(s Step) (shape.Shape, bool) {
	if len(s.Args) == 0 {
		return nil, false
	}
	sh, ok := s.Args[0].(shape.Shape)
	return sh, ok
}

func MoveBy(s shape.Shape, d geom.Vec) Step {
	return New(Translate, s, d)
}

func RotateBy(s shape.Shape, degrees float64, about geom.Vec) Step {
	return New(Rotate, s, degrees, about)
}

func ScaleBy(s shape.Shape, factor float64, about geom.Vec) Step {
	return New(Scale, s, factor, about)
}

func SetAttribute(s shape.Shape, name string, value any) Step {
	return New(ShapeAttributeUpdate, s, name, value)
}

func Time(t float64) Step {
	return New(GoToTime, t)
}
