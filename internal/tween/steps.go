package tween

import (
	"fmt"

	"animterm/internal/geom"
	"animterm/internal/ops"
	"animterm/internal/shape"
)

// FromSteps folds a run of translate, rotate or scale steps on one shape
// into a single tween over [start, start+length]. A drag records many small
// steps; the tween covers their sum.
func FromSteps(steps []ops.Step, start, length float64) (*Tween, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrNotTweenable)
	}
	op := steps[0].Op
	subject, ok := ops.Subject(steps[0])
	if !ok {
		return nil, fmt.Errorf("%w: %s has no shape", ErrNotTweenable, op)
	}

	var (
		delta  geom.Vec
		amount float64
		origin geom.Vec
	)
	if op == ops.Scale {
		amount = 1
	}
	for i, s := range steps {
		if s.Op != op {
			return nil, fmt.Errorf("%w: mixes %s and %s", ErrNotTweenable, op, s.Op)
		}
		if sh, _ := ops.Subject(s); sh != subject {
			return nil, fmt.Errorf("%w: steps act on more than one shape", ErrNotTweenable)
		}
		switch op {
		case ops.Translate:
			d, err := ops.Arg[geom.Vec](s, 1)
			if err != nil {
				return nil, err
			}
			delta = delta.Add(d)
		case ops.Rotate, ops.Scale:
			v, err := ops.Float(s, 1)
			if err != nil {
				return nil, err
			}
			about, err := ops.Arg[geom.Vec](s, 2)
			if err != nil {
				return nil, err
			}
			if i > 0 && about != origin {
				return nil, fmt.Errorf("%w: %s about more than one point", ErrNotTweenable, op)
			}
			origin = about
			if op == ops.Rotate {
				amount += v
			} else {
				amount *= v
			}
		default:
			return nil, fmt.Errorf("%w: %s", ErrNotTweenable, op)
		}
	}

	switch op {
	case ops.Translate:
		return NewTranslation(subject, start, length, delta)
	case ops.Rotate:
		return NewRotation(subject, start, length, amount, origin)
	}
	return NewScale(subject, start, length, amount, origin)
}

// Save is the serialized tween. Shape is an index into the file's shape
// list.
type Save struct {
	Shape  int      `json:"shape"`
	Kind   Kind     `json:"kind"`
	Start  float64  `json:"startTime"`
	Length float64  `json:"timeLength"`
	Delta  geom.Vec `json:"delta"`
	Amount float64  `json:"amount"`
	Origin geom.Vec `json:"origin"`
}

func (tw *Tween) Save(shapeIndex int) Save {
	return Save{
		Shape:  shapeIndex,
		Kind:   tw.Kind,
		Start:  tw.Start,
		Length: tw.Length,
		Delta:  tw.Delta,
		Amount: tw.Amount,
		Origin: tw.Origin,
	}
}

// Load rebuilds a tween on s, with nothing applied.
func Load(s Save, sh shape.Shape) (*Tween, error) {
	return newTween(&Tween{
		Shape:  sh,
		Kind:   s.Kind,
		Start:  s.Start,
		Length: s.Length,
		Delta:  s.Delta,
		Amount: s.Amount,
		Origin: s.Origin,
	})
}
