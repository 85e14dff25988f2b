package ops

import (
	"fmt"

	"animterm/internal/geom"
	"animterm/internal/shape"
)

// Generates says what kind of timeline entry an operation can be promoted to.
type Generates int

const (
	GeneratesNothing Generates = iota
	// GeneratesKeyframe steps can become an attribute-change event.
	GeneratesKeyframe
	// GeneratesTween steps can become a keyframe or a tween of the same kind.
	GeneratesTween
)

// Descriptor tells how to undo an operation and what it may generate.
type Descriptor struct {
	Inverse Op
	// Operands derives the inverse step's operands from the forward operands
	// and the value the forward step returned. Nil keeps the operands.
	Operands func(args []any, ret any) ([]any, error)
	// Replay rewrites a step that has run into the step that redoes it
	// exactly. Nil replays the step as it is.
	Replay    func(args []any, ret any) (Step, error)
	Creation  bool
	Generates Generates
}

// ZMove is returned by moveToFront and moveToBack: the z-index the shape had
// and the one it was given.
type ZMove struct {
	Prev float64
	New  float64
}

// Pin is returned by translate, rotate and scale: the shape's geometry
// before and after the step. Passed back as the step's last operand, it
// makes the step set To exactly when the shape is still at From, and move
// relatively otherwise.
type Pin struct {
	From shape.Geometry `json:"from"`
	To   shape.Geometry `json:"to"`
}

// Reversed pins the way back.
func (p Pin) Reversed() Pin {
	return Pin{From: p.To, To: p.From}
}

var table = map[Op]Descriptor{
	CreateDrawing: creation(),
	CreateEllipse: creation(),
	CreateGraphic: creation(),
	CreatePolygon: creation(),
	CreateText:    creation(),
	Duplicate:     creation(),
	DeleteShape:   {Inverse: RestoreShape},
	RestoreShape:  {Inverse: DeleteShape},

	Translate: {Inverse: Translate, Generates: GeneratesTween, Replay: pinReplay(Translate, 2), Operands: func(args []any, ret any) ([]any, error) {
		d, err := argAt[geom.Vec](Translate, args, 1)
		if err != nil {
			return nil, err
		}
		return pinInverse([]any{args[0], d.Neg()}, ret), nil
	}},
	Rotate: {Inverse: Rotate, Generates: GeneratesTween, Replay: pinReplay(Rotate, 3), Operands: func(args []any, ret any) ([]any, error) {
		deg, err := Float(Step{Op: Rotate, Args: args}, 1)
		if err != nil || len(args) < 3 {
			return nil, fmt.Errorf("%w: rotate wants (shape, degrees, about)", ErrBadOperand)
		}
		return pinInverse([]any{args[0], -deg, args[2]}, ret), nil
	}},
	Scale: {Inverse: Scale, Generates: GeneratesTween, Replay: pinReplay(Scale, 3), Operands: func(args []any, ret any) ([]any, error) {
		f, err := Float(Step{Op: Scale, Args: args}, 1)
		if err != nil || len(args) < 3 {
			return nil, fmt.Errorf("%w: scale wants (shape, factor, about)", ErrBadOperand)
		}
		if f == 0 {
			return nil, fmt.Errorf("%w: scale by zero", ErrNotInvertible)
		}
		return pinInverse([]any{args[0], 1 / f, args[2]}, ret), nil
	}},

	SwapZIndices: {Inverse: SwapZIndices},
	MoveToFront:  {Inverse: SetZIndex, Operands: zPrevious, Replay: zReplay},
	MoveToBack:   {Inverse: SetZIndex, Operands: zPrevious, Replay: zReplay},
	SetZIndex:    {Inverse: SetZIndex, Operands: withPrevious},

	ShapeAttributeUpdate: {Inverse: ShapeAttributeUpdate, Generates: GeneratesKeyframe, Operands: func(args []any, ret any) ([]any, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("%w: shapeAttributeUpdate wants (shape, name, value)", ErrBadOperand)
		}
		return []any{args[0], args[1], ret}, nil
	}},
	NewAppearanceTime:    {Inverse: NewAppearanceTime, Operands: withPrevious},
	NewDisappearanceTime: {Inverse: NewDisappearanceTime, Operands: withPrevious},

	AddTween:      {Inverse: RemoveTween},
	RemoveTween:   {Inverse: AddTween},
	NewTweenStart: {Inverse: NewTweenStart, Operands: withPrevious},
	NewTweenEnd:   {Inverse: NewTweenEnd, Operands: withPrevious},

	GoToTime: {Inverse: GoToTime, Operands: func(_ []any, ret any) ([]any, error) {
		if _, ok := ret.(float64); !ok {
			return nil, fmt.Errorf("%w: goToTime returned %T, want the previous clock", ErrBadOperand, ret)
		}
		return []any{ret}, nil
	}},

	AddTimelineEvent:    {Inverse: RemoveTimelineEvent},
	RemoveTimelineEvent: {Inverse: AddTimelineEvent},

	ShowShape:     {Inverse: HideShape},
	HideShape:     {Inverse: ShowShape},
	TweenActivate: {Inverse: TweenReset},
	TweenReset:    {Inverse: TweenActivate},
	TweenFinish:   {Inverse: TweenActivate},
}

func creation() Descriptor {
	created := func(ret any) (shape.Shape, error) {
		sh, ok := ret.(shape.Shape)
		if !ok {
			return nil, fmt.Errorf("%w: creation returned %T, want the created shape", ErrBadOperand, ret)
		}
		return sh, nil
	}
	return Descriptor{
		Inverse:  DeleteShape,
		Creation: true,
		Operands: func(_ []any, ret any) ([]any, error) {
			sh, err := created(ret)
			if err != nil {
				return nil, err
			}
			return []any{sh}, nil
		},
		// Redo reinserts the same object instead of creating a new one.
		Replay: func(_ []any, ret any) (Step, error) {
			sh, err := created(ret)
			if err != nil {
				return Step{}, err
			}
			return New(RestoreShape, sh), nil
		},
	}
}

func zPrevious(args []any, ret any) ([]any, error) {
	m, ok := ret.(ZMove)
	if !ok || len(args) == 0 {
		return nil, fmt.Errorf("%w: z move returned %T, want ZMove", ErrBadOperand, ret)
	}
	return []any{args[0], m.Prev}, nil
}

// zReplay pins the index handed out, so redo does not take a fresh one from
// the scene's counters.
func zReplay(args []any, ret any) (Step, error) {
	m, ok := ret.(ZMove)
	if !ok || len(args) == 0 {
		return Step{}, fmt.Errorf("%w: z move returned %T, want ZMove", ErrBadOperand, ret)
	}
	return New(SetZIndex, args[0], m.New), nil
}

// pinInverse appends the reversed pin when the step returned one.
func pinInverse(args []any, ret any) []any {
	if p, ok := ret.(Pin); ok {
		return append(args, p.Reversed())
	}
	return args
}

// pinReplay pins a geometry step at operand n, replacing any pin it had, so
// redo lands on the geometry the step produced.
func pinReplay(op Op, n int) func(args []any, ret any) (Step, error) {
	return func(args []any, ret any) (Step, error) {
		p, ok := ret.(Pin)
		if !ok || len(args) < n {
			return Step{Op: op, Args: args}, nil
		}
		pinned := append(append([]any(nil), args[:n]...), p)
		return Step{Op: op, Args: pinned}, nil
	}
}

// withPrevious pairs the step's subject with the value the step returned.
func withPrevious(args []any, ret any) ([]any, error) {
	if len(args) == 0 || ret == nil {
		return nil, fmt.Errorf("%w: no previous value to restore", ErrBadOperand)
	}
	return []any{args[0], ret}, nil
}

func argAt[T any](op Op, args []any, i int) (T, error) {
	return Arg[T](Step{Op: op, Args: args}, i)
}

// Describe returns the descriptor of op.
func Describe(op Op) (Descriptor, bool) {
	d, ok := table[op]
	return d, ok
}

// Invert returns the step undoing s, given the value s returned when it ran.
func Invert(s Step, ret any) (Step, error) {
	d, ok := table[s.Op]
	if !ok {
		return Step{}, fmt.Errorf("%w: %s", ErrUnknownOperation, s.Op)
	}
	args := s.Args
	if d.Operands != nil {
		var err error
		if args, err = d.Operands(s.Args, ret); err != nil {
			return Step{}, fmt.Errorf("inverting %s: %w", s.Op, err)
		}
	}
	return Step{Op: d.Inverse, Args: args}, nil
}

// Record derives the replayable form of steps that have just run. Steps with
// a Replay are rewritten: creation becomes restoreShape of the created
// shape, so redo reinserts the same object. Backward is the reversed step
// list mapped through the inverse table. The result is addable to the
// timeline only when every step can generate a timeline entry and all of
// them act on the same shape. rets holds one value per step.
func Record(steps []Step, rets []any) (forward, backward []Step, addable bool, err error) {
	if len(rets) != len(steps) {
		return nil, nil, false, fmt.Errorf("%w: %d steps but %d return values", ErrBadOperand, len(steps), len(rets))
	}
	forward = make([]Step, len(steps))
	addable = len(steps) > 0
	var subject shape.Shape
	for i, s := range steps {
		d, ok := table[s.Op]
		if !ok {
			return nil, nil, false, fmt.Errorf("%w: %s", ErrUnknownOperation, s.Op)
		}
		forward[i] = s
		if d.Replay != nil {
			if forward[i], err = d.Replay(s.Args, rets[i]); err != nil {
				return nil, nil, false, fmt.Errorf("recording %s: %w", s.Op, err)
			}
		}
		if d.Creation {
			addable = false
			continue
		}
		if d.Generates == GeneratesNothing {
			addable = false
			continue
		}
		sh, ok := Subject(s)
		if !ok || (subject != nil && sh != subject) {
			addable = false
		}
		subject = sh
	}
	backward = make([]Step, 0, len(steps))
	for i := len(steps) - 1; i >= 0; i-- {
		inv, err := Invert(steps[i], rets[i])
		if err != nil {
			return nil, nil, false, err
		}
		backward = append(backward, inv)
	}
	return forward, backward, addable, nil
}
