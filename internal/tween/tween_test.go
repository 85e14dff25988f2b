package tween

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animterm/internal/geom"
	"animterm/internal/ops"
	"animterm/internal/shape"
)

func TestTranslationAppliesDeltasOnly(t *testing.T) {
	e := shape.NewEllipse(geom.V(0, 0), geom.V(1, 1))
	tw, err := NewTranslation(e, 1, 2, geom.V(10, 20))
	require.NoError(t, err)

	tw.GoToTime(2)
	assert.Equal(t, geom.V(5, 10), e.Centre)
	tw.GoToTime(2)
	assert.Equal(t, geom.V(5, 10), e.Centre, "same time twice moves nothing")
	tw.GoToTime(5)
	assert.Equal(t, geom.V(10, 20), e.Centre)
	tw.GoToTime(0)
	assert.Equal(t, geom.V(0, 0), e.Centre)
	assert.False(t, tw.Applied())
}

func TestRotationAndScale(t *testing.T) {
	p := shape.NewPolygon([]geom.Vec{geom.V(2, 0), geom.V(4, 0), geom.V(3, 1)})
	rot, err := NewRotation(p, 0, 1, 90, geom.V(0, 0))
	require.NoError(t, err)

	rot.Complete()
	assert.InDelta(t, 0.0, p.Points[0].X, 1e-9)
	assert.InDelta(t, 2.0, p.Points[0].Y, 1e-9)
	rot.Rewind()
	assert.InDelta(t, 2.0, p.Points[0].X, 1e-9)
	assert.InDelta(t, 0.0, p.Points[0].Y, 1e-9)

	sc, err := NewScale(p, 0, 4, 3, geom.V(0, 0))
	require.NoError(t, err)
	sc.GoToTime(2)
	assert.InDelta(t, 4.0, p.Points[0].X, 1e-9)
	sc.GoToTime(4)
	assert.InDelta(t, 6.0, p.Points[0].X, 1e-9)
	sc.GoToTime(0)
	assert.InDelta(t, 2.0, p.Points[0].X, 1e-9)

	_, err = NewScale(p, 0, 1, 0, geom.V(0, 0))
	assert.ErrorIs(t, err, ErrInvalidTween)
}

func TestZeroLengthTween(t *testing.T) {
	e := shape.NewEllipse(geom.V(0, 0), geom.V(1, 1))
	tw, err := NewTranslation(e, 2, 0, geom.V(1, 0))
	require.NoError(t, err)

	assert.Equal(t, 0.0, tw.Progress(1.9))
	assert.Equal(t, 1.0, tw.Progress(2))
	tw.GoToTime(2)
	assert.Equal(t, geom.V(1, 0), e.Centre)
	tw.Rewind()
	assert.Equal(t, geom.V(0, 0), e.Centre)
}

func TestRetimingMovesEvents(t *testing.T) {
	e := shape.NewEllipse(geom.V(0, 0), geom.V(1, 1))
	tw, err := NewTranslation(e, 1, 2, geom.V(1, 0))
	require.NoError(t, err)
	start, end := tw.StartEvent(), tw.EndEvent()

	prev, err := tw.NewStartTime(2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, prev)
	assert.Equal(t, 3.0, tw.End())
	assert.Equal(t, 2.0, start.Time)

	prev, err = tw.NewEndTime(5)
	require.NoError(t, err)
	assert.Equal(t, 3.0, prev)
	assert.Equal(t, 5.0, end.Time)
	assert.Same(t, start, tw.StartEvent())

	_, err = tw.NewEndTime(1)
	assert.ErrorIs(t, err, ErrInvalidTween)
	_, err = tw.NewStartTime(6)
	assert.ErrorIs(t, err, ErrInvalidTween)
}

func TestFromStepsMergesADrag(t *testing.T) {
	e := shape.NewEllipse(geom.V(0, 0), geom.V(1, 1))
	steps := []ops.Step{ops.MoveBy(e, geom.V(1, 2)), ops.MoveBy(e, geom.V(3, 4))}

	tw, err := FromSteps(steps, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, Translation, tw.Kind)
	assert.Equal(t, geom.V(4, 6), tw.Delta)

	tw, err = FromSteps([]ops.Step{ops.ScaleBy(e, 2, geom.V(1, 1)), ops.ScaleBy(e, 3, geom.V(1, 1))}, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 6.0, tw.Amount)

	_, err = FromSteps([]ops.Step{ops.MoveBy(e, geom.V(1, 0)), ops.RotateBy(e, 5, geom.V(0, 0))}, 0, 1)
	assert.ErrorIs(t, err, ErrNotTweenable)
	_, err = FromSteps([]ops.Step{ops.RotateBy(e, 5, geom.V(0, 0)), ops.RotateBy(e, 5, geom.V(1, 0))}, 0, 1)
	assert.ErrorIs(t, err, ErrNotTweenable)
	_, err = FromSteps([]ops.Step{ops.SetAttribute(e, "fill", "#fff")}, 0, 1)
	assert.ErrorIs(t, err, ErrNotTweenable)
}

func TestSaveLoad(t *testing.T) {
	e := shape.NewEllipse(geom.V(0, 0), geom.V(1, 1))
	tw, err := NewRotation(e, 1, 3, 45, geom.V(2, 2))
	require.NoError(t, err)
	tw.GoToTime(2)

	s := tw.Save(7)
	assert.Equal(t, 7, s.Shape)

	loaded, err := Load(s, e)
	require.NoError(t, err)
	assert.Equal(t, tw.Start, loaded.Start)
	assert.Equal(t, tw.Amount, loaded.Amount)
	assert.False(t, loaded.Applied())
}
