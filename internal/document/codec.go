package document

import (
	"fmt"

	"animterm/internal/geom"
	"animterm/internal/ops"
	"animterm/internal/shape"
	"animterm/internal/tween"
)

// StepSave is a step with its operands written by value, except shapes and
// tweens, which are written as indexes into the file's lists.
type StepSave struct {
	Op   string    `json:"op"`
	Args []ArgSave `json:"args"`
}

// ArgSave holds exactly one of its fields. A plain value, including null,
// goes in Value.
type ArgSave struct {
	Shape  *int       `json:"shape,omitempty"`
	Tween  *int       `json:"tween,omitempty"`
	Vec    *geom.Vec  `json:"vec,omitempty"`
	Points []geom.Vec `json:"points,omitempty"`
	Pin    *ops.Pin   `json:"pin,omitempty"`
	Value  any        `json:"value"`
}

func (idx *index) encodeSteps(steps []ops.Step) ([]StepSave, error) {
	out := make([]StepSave, 0, len(steps))
	for _, s := range steps {
		ss := StepSave{Op: s.Op.String(), Args: make([]ArgSave, 0, len(s.Args))}
		for _, a := range s.Args {
			as, err := idx.encodeArg(a)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", s, err)
			}
			ss.Args = append(ss.Args, as)
		}
		out = append(out, ss)
	}
	return out, nil
}

func (idx *index) encodeArg(a any) (ArgSave, error) {
	switch v := a.(type) {
	case shape.Shape:
		i, ok := idx.shapes[v]
		if !ok {
			return ArgSave{}, fmt.Errorf("shape %q is not in the scene", v.Common().Name)
		}
		return ArgSave{Shape: &i}, nil
	case *tween.Tween:
		i, ok := idx.tweens[v]
		if !ok {
			return ArgSave{}, fmt.Errorf("tween %s is not in the scene", v)
		}
		return ArgSave{Tween: &i}, nil
	case geom.Vec:
		return ArgSave{Vec: &v}, nil
	case []geom.Vec:
		return ArgSave{Points: v}, nil
	case ops.Pin:
		return ArgSave{Pin: &v}, nil
	case nil, string, bool, float64, int:
		return ArgSave{Value: v}, nil
	case *string:
		if v == nil {
			return ArgSave{}, nil
		}
		return ArgSave{Value: *v}, nil
	}
	return ArgSave{}, fmt.Errorf("%w: cannot store %T", ops.ErrBadOperand, a)
}

func (idx *index) decodeSteps(saved []StepSave) ([]ops.Step, error) {
	out := make([]ops.Step, 0, len(saved))
	for _, ss := range saved {
		op, err := ops.Parse(ss.Op)
		if err != nil {
			return nil, err
		}
		args := make([]any, 0, len(ss.Args))
		for _, as := range ss.Args {
			a, err := idx.decodeArg(as)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", ss.Op, err)
			}
			args = append(args, a)
		}
		out = append(out, ops.New(op, args...))
	}
	return out, nil
}

func (idx *index) decodeArg(as ArgSave) (any, error) {
	switch {
	case as.Shape != nil:
		if *as.Shape < 0 || *as.Shape >= len(idx.shapeList) {
			return nil, fmt.Errorf("shape %d of %d", *as.Shape, len(idx.shapeList))
		}
		return idx.shapeList[*as.Shape], nil
	case as.Tween != nil:
		if *as.Tween < 0 || *as.Tween >= len(idx.tweenList) {
			return nil, fmt.Errorf("tween %d of %d", *as.Tween, len(idx.tweenList))
		}
		return idx.tweenList[*as.Tween], nil
	case as.Vec != nil:
		return *as.Vec, nil
	case as.Points != nil:
		return as.Points, nil
	case as.Pin != nil:
		return *as.Pin, nil
	}
	return as.Value, nil
}
