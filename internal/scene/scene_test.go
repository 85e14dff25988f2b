package scene

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animterm/internal/config"
	"animterm/internal/geom"
	"animterm/internal/ops"
	"animterm/internal/shape"
	"animterm/internal/timeline"
	"animterm/internal/tween"
)

func newScene(t *testing.T) *Controller {
	t.Helper()
	return New(config.Default().WithSceneEndTime(5))
}

func mustRun(t *testing.T, c *Controller, steps ...ops.Step) []any {
	t.Helper()
	rets, err := c.ExecuteSteps(context.Background(), steps)
	require.NoError(t, err)
	require.Len(t, rets, len(steps))
	require.NoError(t, c.Check())
	return rets
}

func newEllipse(t *testing.T, c *Controller) *shape.Ellipse {
	t.Helper()
	rets := mustRun(t, c, ops.New(ops.CreateEllipse, geom.V(0, 0), geom.V(1, 1)))
	return rets[0].(*shape.Ellipse)
}

func displayed(c *Controller) []shape.Shape {
	return c.DisplayShapes()
}

type recorder struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) take() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	got := r.got
	r.got = nil
	return got
}

func TestAppearanceWindow(t *testing.T) {
	c := newScene(t)
	e := newEllipse(t, c)
	mustRun(t, c, ops.New(ops.NewAppearanceTime, e, 1.0), ops.New(ops.NewDisappearanceTime, e, 3.0))

	mustRun(t, c, ops.Time(0))
	assert.Empty(t, displayed(c))
	assert.Equal(t, -1, c.CurrentEvent())
	mustRun(t, c, ops.Time(2))
	assert.Equal(t, []shape.Shape{e}, displayed(c))
	assert.Equal(t, 0, c.CurrentEvent())
	mustRun(t, c, ops.Time(4))
	assert.Empty(t, displayed(c))
	assert.Equal(t, 1, c.CurrentEvent())
	mustRun(t, c, ops.Time(2))
	assert.Equal(t, []shape.Shape{e}, displayed(c))
}

func TestNewShapesLiveFromTheClock(t *testing.T) {
	c := newScene(t)
	mustRun(t, c, ops.Time(2))
	e := newEllipse(t, c)

	assert.Equal(t, 2.0, e.AppearanceTime)
	assert.Equal(t, 5.0, e.DisappearanceTime)
	assert.Equal(t, []shape.Shape{e}, displayed(c))
	mustRun(t, c, ops.Time(1))
	assert.Empty(t, displayed(c))
}

func TestNamesStayUnique(t *testing.T) {
	c := newScene(t)
	first := newEllipse(t, c)
	assert.Equal(t, "Ellipse 1", first.Name)

	rets := mustRun(t, c, ops.New(ops.Duplicate, first))
	dup := rets[0].(shape.Shape)
	assert.Equal(t, "Ellipse 1 (1)", dup.Common().Name)
	assert.NotSame(t, first, dup)

	second := newEllipse(t, c)
	assert.Equal(t, "Ellipse 2", second.Name)

	rets = mustRun(t, c, ops.SetAttribute(second, shape.AttrName, "Ellipse 1"))
	assert.Equal(t, "Ellipse 2", rets[0])
	assert.Equal(t, "Ellipse 1 (2)", second.Name)
	got, ok := c.ShapeByName("Ellipse 1 (2)")
	require.True(t, ok)
	assert.Same(t, second, got)
	_, ok = c.ShapeByName("Ellipse 2")
	assert.False(t, ok)

	mustRun(t, c, ops.New(ops.DeleteShape, first))
	third := newEllipse(t, c)
	mustRun(t, c, ops.SetAttribute(third, shape.AttrName, "Ellipse 1"))
	assert.Equal(t, "Ellipse 1", third.Name)
	mustRun(t, c, ops.New(ops.RestoreShape, first))
	assert.Equal(t, "Ellipse 1 (3)", first.Name)
}

func TestEarlierAppearanceShowsOnce(t *testing.T) {
	c := newScene(t)
	e := newEllipse(t, c)
	mustRun(t, c, ops.New(ops.NewAppearanceTime, e, 3.0), ops.Time(2))
	require.Empty(t, displayed(c))

	rec := &recorder{}
	c.Subscribe(DisplayShapes, rec)
	rec.take()

	rets := mustRun(t, c, ops.New(ops.NewAppearanceTime, e, 1.0))
	assert.Equal(t, 3.0, rets[0])

	got := rec.take()
	require.Len(t, got, 1)
	assert.Equal(t, []any{e}, got[0].Added)
	assert.Empty(t, got[0].Removed)
	assert.Empty(t, got[0].Updated)
	assert.Equal(t, []shape.Shape{e}, displayed(c))
}

func TestAppearanceBoundsAreChecked(t *testing.T) {
	c := newScene(t)
	e := newEllipse(t, c)
	mustRun(t, c, ops.New(ops.NewDisappearanceTime, e, 2.0))

	_, err := c.ExecuteSteps(context.Background(), []ops.Step{ops.New(ops.NewAppearanceTime, e, 3.0)})
	assert.ErrorIs(t, err, ErrTimeOutOfRange)
	_, err = c.ExecuteSteps(context.Background(), []ops.Step{ops.New(ops.NewDisappearanceTime, e, 6.0)})
	assert.ErrorIs(t, err, ErrTimeOutOfRange)
	_, err = c.ExecuteSteps(context.Background(), []ops.Step{ops.Time(-1)})
	assert.ErrorIs(t, err, ErrTimeOutOfRange)
	assert.Equal(t, 0.0, e.AppearanceTime)
	assert.Equal(t, 2.0, e.DisappearanceTime)
}

func TestGoToTimeTwiceChangesNothing(t *testing.T) {
	c := newScene(t)
	e := newEllipse(t, c)
	tw, err := tween.NewTranslation(e, 1, 2, geom.V(10, 0))
	require.NoError(t, err)
	mustRun(t, c, ops.New(ops.AddTween, tw), ops.Time(2))
	require.Equal(t, geom.V(5, 0), e.Centre)

	rec := &recorder{}
	for _, m := range Models {
		c.Subscribe(m, rec)
	}
	rec.take()

	mustRun(t, c, ops.Time(2))
	assert.Empty(t, rec.take())
	assert.Equal(t, geom.V(5, 0), e.Centre)
}

type state struct {
	centres map[*shape.Ellipse]geom.Vec
	shown   []shape.Shape
}

func capture(c *Controller, shapes ...*shape.Ellipse) state {
	s := state{centres: map[*shape.Ellipse]geom.Vec{}, shown: c.DisplayShapes()}
	for _, e := range shapes {
		s.centres[e] = e.Centre
	}
	return s
}

func assertSameState(t *testing.T, want, got state) {
	t.Helper()
	assert.Equal(t, want.shown, got.shown)
	for e, c := range want.centres {
		assert.InDelta(t, c.X, got.centres[e].X, 1e-9)
		assert.InDelta(t, c.Y, got.centres[e].Y, 1e-9)
	}
}

// busyScene has a keyframe, a tween and a shape with a short lifetime.
func busyScene(t *testing.T) (*Controller, *shape.Ellipse, *shape.Ellipse) {
	c := newScene(t)
	a := newEllipse(t, c)
	b := newEllipse(t, c)
	key := timeline.NewAttributeChange(a, 1,
		[]ops.Step{ops.MoveBy(a, geom.V(3, 0))},
		[]ops.Step{ops.MoveBy(a, geom.V(-3, 0))})
	tw, err := tween.NewTranslation(b, 0.5, 2, geom.V(0, 4))
	require.NoError(t, err)
	mustRun(t, c,
		ops.New(ops.AddTimelineEvent, key),
		ops.New(ops.AddTween, tw),
		ops.New(ops.NewDisappearanceTime, b, 2.5),
		ops.New(ops.NewAppearanceTime, a, 0.2),
	)
	return c, a, b
}

func TestScrubRoundTrip(t *testing.T) {
	for _, pair := range [][2]float64{{0.25, 4.5}, {1.7, 0.2}, {0, 5}, {2.5, 1}, {1, 1.5}} {
		c, a, b := busyScene(t)
		mustRun(t, c, ops.Time(pair[0]))
		before := capture(c, a, b)

		mustRun(t, c, ops.Time(pair[1]))
		mustRun(t, c, ops.Time(pair[0]))
		assertSameState(t, before, capture(c, a, b))
	}
}

func TestInvariantsUnderRandomScrubs(t *testing.T) {
	c, a, b := busyScene(t)
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		mustRun(t, c, ops.Time(rng.Float64()*5))
	}
	mustRun(t, c, ops.Time(0))
	assert.Equal(t, geom.V(0, 0), a.Centre)
	assert.InDelta(t, 0.0, b.Centre.Y, 1e-9)
	assert.Equal(t, []shape.Shape{b}, displayed(c))
}

func TestNotificationsNetOutWithinABatch(t *testing.T) {
	c := newScene(t)
	e := newEllipse(t, c)
	mustRun(t, c, ops.New(ops.NewAppearanceTime, e, 1.0))

	rec := &recorder{}
	c.Subscribe(DisplayShapes, rec)
	c.Subscribe(Clock, rec)
	rec.take()

	mustRun(t, c, ops.Time(2), ops.Time(0))
	assert.Empty(t, rec.take())

	mustRun(t, c, ops.Time(2))
	got := rec.take()
	require.Len(t, got, 2)
	assert.Equal(t, DisplayShapes, got[0].Model)
	assert.Equal(t, []any{e}, got[0].Added)
	assert.Equal(t, Clock, got[1].Model)
	assert.Equal(t, 2.0, got[1].Clock)
}

func TestSubscribeSendsReset(t *testing.T) {
	c := newScene(t)
	e := newEllipse(t, c)

	rec := &recorder{}
	sub := c.Subscribe(AllShapes, rec)
	got := rec.take()
	require.Len(t, got, 1)
	assert.True(t, got[0].Reset)
	assert.Equal(t, []any{e}, got[0].Added)

	c.Unsubscribe(sub)
	newEllipse(t, c)
	assert.Empty(t, rec.take())
}

func TestFailingSubscriberDoesNotStopOthers(t *testing.T) {
	c := newScene(t)
	c.Subscribe(AllShapes, SubscriberFunc(func(Notification) { panic("boom") }))
	rec := &recorder{}
	c.Subscribe(AllShapes, rec)
	rec.take()

	e := newEllipse(t, c)
	got := rec.take()
	require.Len(t, got, 1)
	assert.Equal(t, []any{e}, got[0].Added)
}

func TestInvisibleStepsFlushWithNextBatch(t *testing.T) {
	c := newScene(t)
	rec := &recorder{}
	c.Subscribe(AllShapes, rec)
	rec.take()

	rets, err := c.ExecuteInvisibleSteps(context.Background(), []ops.Step{ops.New(ops.CreateEllipse, geom.V(0, 0), geom.V(1, 1))})
	require.NoError(t, err)
	assert.Empty(t, rec.take())

	mustRun(t, c, ops.Time(0))
	got := rec.take()
	require.Len(t, got, 1)
	assert.Equal(t, []any{rets[0]}, got[0].Added)
}

func TestHardErrorRollsBackTheBatch(t *testing.T) {
	c := newScene(t)
	e := newEllipse(t, c)
	stranger := shape.NewEllipse(geom.V(0, 0), geom.V(1, 1))

	_, err := c.ExecuteSteps(context.Background(), []ops.Step{
		ops.MoveBy(e, geom.V(1, 0)),
		ops.New(ops.CreateEllipse, geom.V(5, 5), geom.V(1, 1)),
		ops.New(ops.MoveToFront, e),
		ops.New(ops.DeleteShape, stranger),
	})
	require.ErrorIs(t, err, ErrUnknownShape)
	assert.Equal(t, geom.V(0, 0), e.Centre)
	assert.Equal(t, 1.0, e.ZIndex)
	assert.Equal(t, []shape.Shape{e}, c.AllShapes())
	assert.NoError(t, c.Check())
}

func TestUnknownOperationIsIdentity(t *testing.T) {
	c := newScene(t)
	e := newEllipse(t, c)

	rets := mustRun(t, c, ops.New(ops.OpNone, e), ops.MoveBy(e, geom.V(2, 0)))
	require.Len(t, rets, 2)
	assert.Nil(t, rets[0])
	assert.IsType(t, ops.Pin{}, rets[1])
	assert.Equal(t, geom.V(2, 0), e.Centre)
}

func TestZOrder(t *testing.T) {
	c := newScene(t)
	a, b, d := newEllipse(t, c), newEllipse(t, c), newEllipse(t, c)
	assert.Equal(t, []float64{1, 2, 3}, []float64{a.ZIndex, b.ZIndex, d.ZIndex})

	rets := mustRun(t, c, ops.New(ops.MoveToBack, d))
	assert.Equal(t, ops.ZMove{Prev: 3, New: -1}, rets[0])
	assert.Equal(t, -1.0, d.ZIndex)

	rets = mustRun(t, c, ops.New(ops.MoveToFront, a))
	assert.Equal(t, ops.ZMove{Prev: 1, New: 4}, rets[0])
	assert.Equal(t, 4.0, a.ZIndex)

	mustRun(t, c, ops.New(ops.SwapZIndices, a, b))
	assert.Equal(t, []shape.Shape{d, a, b}, c.AllShapes())

	rets = mustRun(t, c, ops.New(ops.SetZIndex, a, 10.0))
	assert.Equal(t, 2.0, rets[0])
	high, low := c.ZRange()
	assert.Equal(t, 10.0, high)
	assert.Equal(t, -1.0, low)
}

func TestTweenFollowsClockAndRetiming(t *testing.T) {
	c := newScene(t)
	e := newEllipse(t, c)
	tw, err := tween.NewTranslation(e, 1, 2, geom.V(10, 0))
	require.NoError(t, err)
	mustRun(t, c, ops.New(ops.AddTween, tw))

	mustRun(t, c, ops.Time(2))
	assert.Equal(t, geom.V(5, 0), e.Centre)
	mustRun(t, c, ops.Time(4))
	assert.Equal(t, geom.V(10, 0), e.Centre)
	mustRun(t, c, ops.Time(0))
	assert.Equal(t, geom.V(0, 0), e.Centre)

	mustRun(t, c, ops.Time(2))
	rets := mustRun(t, c, ops.New(ops.NewTweenStart, tw, 0.0))
	assert.Equal(t, 1.0, rets[0])
	assert.InDelta(t, 20.0/3, e.Centre.X, 1e-9)

	rets = mustRun(t, c, ops.New(ops.NewTweenEnd, tw, 2.0))
	assert.Equal(t, 3.0, rets[0])
	assert.InDelta(t, 10.0, e.Centre.X, 1e-9)

	_, err = c.ExecuteSteps(context.Background(), []ops.Step{ops.New(ops.NewTweenEnd, tw, 6.0)})
	assert.ErrorIs(t, err, ErrTimeOutOfRange)
	assert.NoError(t, c.Check())

	mustRun(t, c, ops.New(ops.RemoveTween, tw))
	assert.InDelta(t, 0.0, e.Centre.X, 1e-9)
	assert.Empty(t, c.Tweens())
}

func TestDeleteAndRestoreKeepEvents(t *testing.T) {
	c := newScene(t)
	e := newEllipse(t, c)
	tw, err := tween.NewTranslation(e, 1, 2, geom.V(10, 0))
	require.NoError(t, err)
	key := timeline.NewAttributeChange(e, 0.5,
		[]ops.Step{ops.MoveBy(e, geom.V(0, 3))},
		[]ops.Step{ops.MoveBy(e, geom.V(0, -3))})
	mustRun(t, c, ops.New(ops.AddTween, tw), ops.New(ops.AddTimelineEvent, key), ops.Time(2))
	require.Equal(t, geom.V(5, 3), e.Centre)

	mustRun(t, c, ops.New(ops.DeleteShape, e))
	assert.Empty(t, c.AllShapes())
	assert.Empty(t, c.Timeline())
	assert.Empty(t, c.Tweens())
	assert.Empty(t, displayed(c))
	assert.Equal(t, geom.V(0, 0), e.Centre)

	_, err = c.ExecuteSteps(context.Background(), []ops.Step{ops.New(ops.DeleteShape, e)})
	assert.ErrorIs(t, err, ErrUnknownShape)

	mustRun(t, c, ops.New(ops.RestoreShape, e))
	assert.Equal(t, geom.V(5, 3), e.Centre)
	assert.Equal(t, []shape.Shape{e}, displayed(c))
	assert.Len(t, c.TimelineOf(e), 5)
	assert.Equal(t, []*tween.Tween{tw}, c.Tweens())

	_, err = c.ExecuteSteps(context.Background(), []ops.Step{ops.New(ops.RestoreShape, e)})
	assert.ErrorIs(t, err, ErrShapeExists)
}

func TestRemovingAMissingEventFails(t *testing.T) {
	c := newScene(t)
	e := newEllipse(t, c)
	key := timeline.NewAttributeChange(e, 1, nil, nil)

	_, err := c.ExecuteSteps(context.Background(), []ops.Step{ops.New(ops.RemoveTimelineEvent, key)})
	assert.ErrorIs(t, err, ErrEventNotFound)

	mustRun(t, c, ops.New(ops.AddTimelineEvent, key))
	_, err = c.ExecuteSteps(context.Background(), []ops.Step{ops.New(ops.AddTimelineEvent, key)})
	assert.ErrorIs(t, err, ErrEventExists)
	assert.Len(t, c.TimelineOf(e), 3)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestCreateGraphicWaitsForDecode(t *testing.T) {
	c := newScene(t)
	rets := mustRun(t, c, ops.New(ops.CreateGraphic, pngBytes(t, 4, 3), geom.V(1, 1)))
	g := rets[0].(*shape.Graphic)
	require.NotNil(t, g.Image())
	assert.Equal(t, 4.0, g.Width)
	assert.Equal(t, "Graphic 1", g.Name)

	_, err := c.ExecuteSteps(context.Background(), []ops.Step{ops.New(ops.CreateGraphic, []byte("not an image"), geom.V(0, 0))})
	assert.ErrorIs(t, err, shape.ErrUnsupportedImage)
	assert.Equal(t, []shape.Shape{g}, c.AllShapes())
}

func TestBaseStateSnapshot(t *testing.T) {
	c := newScene(t)
	e := newEllipse(t, c)
	key := timeline.NewAttributeChange(e, 1,
		[]ops.Step{ops.MoveBy(e, geom.V(3, 0))},
		[]ops.Step{ops.MoveBy(e, geom.V(-3, 0))})
	mustRun(t, c, ops.New(ops.AddTimelineEvent, key), ops.Time(2))

	rec := &recorder{}
	c.Subscribe(AllShapes, rec)
	rec.take()

	err := c.WithBaseState(func(s Snapshot) error {
		assert.Equal(t, geom.V(0, 0), e.Centre)
		assert.Equal(t, 2.0, s.Clock)
		assert.Equal(t, []shape.Shape{e}, s.Shapes)
		require.Len(t, s.Events[e], 3)
		assert.Same(t, key, s.Events[e][1])
		assert.Equal(t, 1, s.Counts[shape.KindEllipse])
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, geom.V(3, 0), e.Centre)
	assert.Equal(t, 2.0, c.Clock())
	assert.NoError(t, c.Check())

	mustRun(t, c, ops.Time(2))
	assert.Empty(t, rec.take())
}

func TestInstall(t *testing.T) {
	a := shape.NewEllipse(geom.V(0, 0), geom.V(1, 1))
	a.Name, a.ZIndex, a.AppearanceTime, a.DisappearanceTime = "A", 1, 1, 4
	b := shape.NewText("hi", geom.V(5, 5))
	b.Name, b.ZIndex, b.AppearanceTime, b.DisappearanceTime = "A", 2, 0, 5
	key := timeline.NewAttributeChange(a, 2,
		[]ops.Step{ops.MoveBy(a, geom.V(1, 0))},
		[]ops.Step{ops.MoveBy(a, geom.V(-1, 0))})
	tw, err := tween.NewTranslation(b, 0, 4, geom.V(4, 0))
	require.NoError(t, err)

	c := newScene(t)
	old := newEllipse(t, c)
	rec := &recorder{}
	c.Subscribe(DisplayShapes, rec)
	rec.take()

	bad := Snapshot{Clock: 9, Shapes: []shape.Shape{a}}
	assert.ErrorIs(t, c.Install(bad), ErrTimeOutOfRange)
	assert.Equal(t, []shape.Shape{old}, c.AllShapes())

	err = c.Install(Snapshot{
		Clock:                3,
		ZIndexOfHighestShape: 2,
		Counts:               map[shape.Kind]int{shape.KindEllipse: 1, shape.KindText: 1},
		Shapes:               []shape.Shape{a, b},
		Events:               map[shape.Shape][]*timeline.Event{a: {key}},
		Tweens:               []*tween.Tween{tw},
	})
	require.NoError(t, err)
	require.NoError(t, c.Check())

	assert.Equal(t, 3.0, c.Clock())
	assert.Equal(t, []shape.Shape{a, b}, c.DisplayShapes())
	assert.Equal(t, geom.V(1, 0), a.Centre)
	assert.Equal(t, geom.V(8, 5), b.Position)
	assert.Equal(t, "A (1)", b.Name)
	assert.Len(t, c.Timeline(), 7)

	got := rec.take()
	require.Len(t, got, 1)
	assert.True(t, got[0].Reset)
	assert.Equal(t, []any{a, b}, got[0].Added)

	mustRun(t, c, ops.Time(0))
	assert.Equal(t, geom.V(0, 0), a.Centre)
	assert.Equal(t, geom.V(5, 5), b.Position)
	assert.Equal(t, []shape.Shape{b}, c.DisplayShapes())
}

func TestEveryOperationHasAHandler(t *testing.T) {
	for _, op := range ops.All() {
		_, ok := handlers[op]
		assert.True(t, ok, op.String())
	}
}

func TestPinnedGeometryStep(t *testing.T) {
	c := newScene(t)
	e := newEllipse(t, c)
	mustRun(t, c, ops.MoveBy(e, geom.V(0.1, 0.7)))

	rets := mustRun(t, c, ops.MoveBy(e, geom.V(10, 0)))
	pin := rets[0].(ops.Pin)
	assert.Equal(t, []geom.Vec{geom.V(0.1, 0.7)}, pin.From.Points)
	assert.Equal(t, e.Geometry(), pin.To)

	// At the pinned geometry the step lands exactly on the other side.
	mustRun(t, c, ops.New(ops.Translate, e, geom.V(-10, 0), pin.Reversed()))
	assert.Equal(t, geom.V(0.1, 0.7), e.Centre)

	// Anywhere else it moves relatively.
	mustRun(t, c, ops.New(ops.Translate, e, geom.V(1, 0), pin.Reversed()))
	assert.Equal(t, geom.V(1.1, 0.7), e.Centre)

	_, err := c.ExecuteSteps(context.Background(), []ops.Step{ops.New(ops.Translate, e, geom.V(1, 0), "nowhere")})
	assert.ErrorIs(t, err, ops.ErrBadOperand)
	assert.Equal(t, geom.V(1.1, 0.7), e.Centre)
}
