package scene

import (
	"context"
	"fmt"
	"math"

	"animterm/internal/geom"
	"animterm/internal/ops"
	"animterm/internal/shape"
	"animterm/internal/timeline"
	"animterm/internal/tween"
)

// handler applies one step and returns the value an inverse needs, or nil.
type handler func(c *Controller, s ops.Step) (any, error)

var handlers map[ops.Op]handler

func init() {
	handlers = map[ops.Op]handler{
		ops.CreateDrawing: createDrawing,
		ops.CreateEllipse: createEllipse,
		ops.CreateGraphic: createGraphic,
		ops.CreatePolygon: createPolygon,
		ops.CreateText:    createText,
		ops.DeleteShape:   onShape((*Controller).deleteShape),
		ops.RestoreShape:  restoreShape,
		ops.Duplicate:     onLiveShape((*Controller).duplicate),

		ops.Translate: translate,
		ops.Rotate:    rotateOrScale,
		ops.Scale:     rotateOrScale,

		ops.SwapZIndices: swapZIndices,
		ops.MoveToFront:  onLiveShape((*Controller).moveToFront),
		ops.MoveToBack:   onLiveShape((*Controller).moveToBack),
		ops.SetZIndex:    setZIndex,

		ops.ShapeAttributeUpdate: shapeAttributeUpdate,
		ops.NewAppearanceTime:    newAppearanceTime,
		ops.NewDisappearanceTime: newDisappearanceTime,

		ops.AddTween:      onTween((*Controller).addTween),
		ops.RemoveTween:   onTween((*Controller).removeTween),
		ops.NewTweenStart: newTweenStart,
		ops.NewTweenEnd:   newTweenEnd,

		ops.GoToTime: goToTime,

		ops.AddTimelineEvent:    onEvent((*Controller).addTimelineEvent),
		ops.RemoveTimelineEvent: onEvent((*Controller).removeTimelineEvent),

		ops.ShowShape:     showShape,
		ops.HideShape:     hideShape,
		ops.TweenActivate: onTween((*Controller).tweenActivate),
		ops.TweenReset:    onTween((*Controller).tweenReset),
		ops.TweenFinish:   onTween((*Controller).tweenFinish),
	}
}

// apply dispatches s. An operation with no handler is logged and does
// nothing.
func (c *Controller) apply(s ops.Step) (any, error) {
	h, ok := handlers[s.Op]
	if !ok {
		c.log.Error("unknown operation", "op", s.Op.String(), "args", len(s.Args))
		return nil, nil
	}
	return h(c, s)
}

func onShape(fn func(*Controller, shape.Shape) (any, error)) handler {
	return func(c *Controller, s ops.Step) (any, error) {
		sh, err := ops.Arg[shape.Shape](s, 0)
		if err != nil {
			return nil, err
		}
		return fn(c, sh)
	}
}

func onLiveShape(fn func(*Controller, shape.Shape) (any, error)) handler {
	return onShape(func(c *Controller, sh shape.Shape) (any, error) {
		if err := c.requireLive(sh); err != nil {
			return nil, err
		}
		return fn(c, sh)
	})
}

func onTween(fn func(*Controller, *tween.Tween) (any, error)) handler {
	return func(c *Controller, s ops.Step) (any, error) {
		tw, err := ops.Arg[*tween.Tween](s, 0)
		if err != nil {
			return nil, err
		}
		return fn(c, tw)
	}
}

func onEvent(fn func(*Controller, *timeline.Event) (any, error)) handler {
	return func(c *Controller, s ops.Step) (any, error) {
		e, err := ops.Arg[*timeline.Event](s, 0)
		if err != nil {
			return nil, err
		}
		return fn(c, e)
	}
}

func (c *Controller) requireLive(s shape.Shape) error {
	if s == nil || !c.live[s] {
		return fmt.Errorf("%w: %v", ErrUnknownShape, describe(s))
	}
	return nil
}

func describe(s shape.Shape) string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %q", s.Kind(), s.Common().Name)
}

func (c *Controller) recordOf(s shape.Shape) *record {
	r, ok := c.records[s]
	if !ok {
		r = &record{}
		c.records[s] = r
	}
	return r
}

// Creation

func createEllipse(c *Controller, s ops.Step) (any, error) {
	centre, err := ops.Arg[geom.Vec](s, 0)
	if err != nil {
		return nil, err
	}
	radii, err := ops.Arg[geom.Vec](s, 1)
	if err != nil {
		return nil, err
	}
	return c.create(shape.NewEllipse(centre, radii))
}

func createPolygon(c *Controller, s ops.Step) (any, error) {
	points, err := ops.Arg[[]geom.Vec](s, 0)
	if err != nil {
		return nil, err
	}
	return c.create(shape.NewPolygon(append([]geom.Vec(nil), points...)))
}

func createDrawing(c *Controller, s ops.Step) (any, error) {
	points, err := ops.Arg[[]geom.Vec](s, 0)
	if err != nil {
		return nil, err
	}
	return c.create(shape.NewDrawing(append([]geom.Vec(nil), points...)))
}

func createText(c *Controller, s ops.Step) (any, error) {
	content, err := ops.Arg[string](s, 0)
	if err != nil {
		return nil, err
	}
	pos, err := ops.Arg[geom.Vec](s, 1)
	if err != nil {
		return nil, err
	}
	return c.create(shape.NewText(content, pos))
}

// createGraphic inserts the shape at once and decodes its image off the
// mutex; the image is attached once the batch joins its async work.
func createGraphic(c *Controller, s ops.Step) (any, error) {
	source, err := ops.Arg[[]byte](s, 0)
	if err != nil {
		return nil, err
	}
	pos, err := ops.Arg[geom.Vec](s, 1)
	if err != nil {
		return nil, err
	}
	g := shape.NewGraphic(source, pos)
	if _, err := c.create(g); err != nil {
		return nil, err
	}
	c.async(func(ctx context.Context) (func() error, error) {
		img, err := shape.DecodeImage(source)
		if err != nil {
			return nil, err
		}
		return func() error {
			c.touchShape(g)
			g.SetImage(img)
			return nil
		}, nil
	})
	return g, nil
}

// create names and stacks a new shape on top, visible from the clock to the
// end of the scene.
func (c *Controller) create(s shape.Shape) (shape.Shape, error) {
	b := s.Common()
	b.Name = c.uniqueName(c.defaultName(s.Kind()), s)
	c.zHigh++
	b.ZIndex = c.zHigh
	b.AppearanceTime = math.Max(0, math.Min(c.clock, c.cfg.SceneEndTime))
	b.DisappearanceTime = c.cfg.SceneEndTime
	if err := c.insertShape(s); err != nil {
		return nil, err
	}
	return s, nil
}

// insertShape puts s and everything recorded for it back into the scene.
// The appearance and disappearance events are regenerated from the shape's
// current times.
func (c *Controller) insertShape(s shape.Shape) error {
	b := s.Common()
	if b.AppearanceTime < 0 || b.AppearanceTime > b.DisappearanceTime || b.DisappearanceTime > c.cfg.SceneEndTime {
		return fmt.Errorf("%w: %s lives [%v, %v]", ErrTimeOutOfRange, describe(s), b.AppearanceTime, b.DisappearanceTime)
	}
	r := c.recordOf(s)
	r.appearance = timeline.NewAppearance(s)
	r.disappearance = timeline.NewDisappearance(s)

	c.touchShape(s)
	c.live[s] = true
	c.names[b.Name] = s
	c.noteZ(b.ZIndex)
	for _, tw := range r.tweens {
		c.touchTween(tw)
		c.tweens[tw] = true
	}
	if err := c.insertEvents(r.events()); err != nil {
		c.dropShape(s)
		return err
	}
	return nil
}

func (c *Controller) dropShape(s shape.Shape) {
	c.touchShape(s)
	delete(c.live, s)
	delete(c.display, s)
	if c.names[s.Common().Name] == s {
		delete(c.names, s.Common().Name)
	}
	for _, tw := range c.records[s].tweens {
		c.touchTween(tw)
		delete(c.tweens, tw)
		c.deactivate(tw)
	}
}

func (c *Controller) deleteShape(s shape.Shape) (any, error) {
	if err := c.requireLive(s); err != nil {
		return nil, err
	}
	if err := c.removeEvents(c.records[s].events()); err != nil {
		return nil, err
	}
	c.dropShape(s)
	return nil, nil
}

// restoreShape reinserts a shape object, keeping its z-index and renaming it
// if its name has been taken meanwhile.
func restoreShape(c *Controller, s ops.Step) (any, error) {
	sh, err := ops.Arg[shape.Shape](s, 0)
	if err != nil {
		return nil, err
	}
	if c.live[sh] {
		return nil, fmt.Errorf("%w: %s", ErrShapeExists, describe(sh))
	}
	b := sh.Common()
	b.Name = c.uniqueName(b.Name, sh)
	b.DisappearanceTime = math.Min(b.DisappearanceTime, c.cfg.SceneEndTime)
	b.AppearanceTime = math.Min(b.AppearanceTime, b.DisappearanceTime)
	return nil, c.insertShape(sh)
}

// duplicate copies s onto the top of the stack with the same lifetime. The
// copy has no events or tweens of its own.
func (c *Controller) duplicate(s shape.Shape) (any, error) {
	cp, err := s.Copy()
	if err != nil {
		return nil, err
	}
	b := cp.Common()
	b.Name = c.uniqueName(s.Common().Name, cp)
	c.zHigh++
	b.ZIndex = c.zHigh
	if err := c.insertShape(cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// Geometry

func translate(c *Controller, s ops.Step) (any, error) {
	sh, err := ops.Arg[shape.Shape](s, 0)
	if err != nil {
		return nil, err
	}
	d, err := ops.Arg[geom.Vec](s, 1)
	if err != nil {
		return nil, err
	}
	if err := c.requireLive(sh); err != nil {
		return nil, err
	}
	c.touchShape(sh)
	return c.moveGeometry(sh, s, 2, func() { sh.Translate(d) })
}

func rotateOrScale(c *Controller, s ops.Step) (any, error) {
	sh, err := ops.Arg[shape.Shape](s, 0)
	if err != nil {
		return nil, err
	}
	amount, err := ops.Float(s, 1)
	if err != nil {
		return nil, err
	}
	about, err := ops.Arg[geom.Vec](s, 2)
	if err != nil {
		return nil, err
	}
	if err := c.requireLive(sh); err != nil {
		return nil, err
	}
	if s.Op == ops.Scale && amount == 0 {
		return nil, fmt.Errorf("%w: scale by zero", ops.ErrNotInvertible)
	}
	c.touchShape(sh)
	return c.moveGeometry(sh, s, 3, func() {
		if s.Op == ops.Rotate {
			sh.Rotate(amount, about)
		} else {
			sh.Scale(amount, about)
		}
	})
}

// moveGeometry runs a translate, rotate or scale. A pin at operand n whose
// From matches the shape exactly sets its To instead of moving, so undo and
// redo land on the same bits. The returned pin records the change.
func (c *Controller) moveGeometry(sh shape.Shape, s ops.Step, n int, move func()) (any, error) {
	before := sh.Geometry()
	pinned := false
	if n < len(s.Args) {
		p, ok := s.Args[n].(ops.Pin)
		if !ok {
			return nil, fmt.Errorf("%w: %s operand %d is %T, want a pin", ops.ErrBadOperand, s.Op, n, s.Args[n])
		}
		if before.Equal(p.From) {
			if err := sh.SetGeometry(p.To); err != nil {
				return nil, err
			}
			pinned = true
		}
	}
	if !pinned {
		move()
	}
	sh.UpdateGeometry()
	return ops.Pin{From: before, To: sh.Geometry()}, nil
}

// Z-order

func swapZIndices(c *Controller, s ops.Step) (any, error) {
	a, err := ops.Arg[shape.Shape](s, 0)
	if err != nil {
		return nil, err
	}
	b, err := ops.Arg[shape.Shape](s, 1)
	if err != nil {
		return nil, err
	}
	if err := c.requireLive(a); err != nil {
		return nil, err
	}
	if err := c.requireLive(b); err != nil {
		return nil, err
	}
	c.touchShape(a)
	c.touchShape(b)
	a.Common().ZIndex, b.Common().ZIndex = b.Common().ZIndex, a.Common().ZIndex
	return nil, nil
}

func (c *Controller) moveToFront(s shape.Shape) (any, error) {
	prev := s.Common().ZIndex
	c.touchShape(s)
	c.zHigh++
	s.Common().ZIndex = c.zHigh
	return ops.ZMove{Prev: prev, New: c.zHigh}, nil
}

func (c *Controller) moveToBack(s shape.Shape) (any, error) {
	prev := s.Common().ZIndex
	c.touchShape(s)
	c.zLow--
	s.Common().ZIndex = c.zLow
	return ops.ZMove{Prev: prev, New: c.zLow}, nil
}

func setZIndex(c *Controller, s ops.Step) (any, error) {
	sh, err := ops.Arg[shape.Shape](s, 0)
	if err != nil {
		return nil, err
	}
	z, err := ops.Float(s, 1)
	if err != nil {
		return nil, err
	}
	if err := c.requireLive(sh); err != nil {
		return nil, err
	}
	prev := sh.Common().ZIndex
	c.touchShape(sh)
	sh.Common().ZIndex = z
	c.noteZ(z)
	return prev, nil
}

// Attributes

// shapeAttributeUpdate sets a named attribute and returns its previous value.
// Renaming keeps names unique.
func shapeAttributeUpdate(c *Controller, s ops.Step) (any, error) {
	sh, err := ops.Arg[shape.Shape](s, 0)
	if err != nil {
		return nil, err
	}
	name, err := ops.Arg[string](s, 1)
	if err != nil {
		return nil, err
	}
	if len(s.Args) < 3 {
		return nil, fmt.Errorf("%w: %s wants (shape, name, value)", ops.ErrBadOperand, s.Op)
	}
	if err := c.requireLive(sh); err != nil {
		return nil, err
	}
	value := s.Args[2]
	b := sh.Common()
	oldName := b.Name
	if name == shape.AttrName {
		if v, ok := value.(string); ok && v != "" {
			value = c.uniqueName(v, sh)
		}
	}
	c.touchShape(sh)
	prev, err := sh.SetAttribute(name, value)
	if err != nil {
		return nil, err
	}
	if b.Name != oldName {
		delete(c.names, oldName)
		c.names[b.Name] = sh
	}
	sh.UpdateGeometry()
	c.followClock(sh)
	return prev, nil
}

func newAppearanceTime(c *Controller, s ops.Step) (any, error) {
	sh, t, err := shapeAndTime(c, s)
	if err != nil {
		return nil, err
	}
	b := sh.Common()
	if t > b.DisappearanceTime {
		return nil, fmt.Errorf("%w: appearance %v after disappearance %v", ErrTimeOutOfRange, t, b.DisappearanceTime)
	}
	prev := b.AppearanceTime
	r := c.records[sh]
	err = c.retime([]*timeline.Event{r.appearance}, t, func() error {
		c.touchShape(sh)
		b.AppearanceTime = t
		r.appearance.Time = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prev, nil
}

func newDisappearanceTime(c *Controller, s ops.Step) (any, error) {
	sh, t, err := shapeAndTime(c, s)
	if err != nil {
		return nil, err
	}
	b := sh.Common()
	if t < b.AppearanceTime {
		return nil, fmt.Errorf("%w: disappearance %v before appearance %v", ErrTimeOutOfRange, t, b.AppearanceTime)
	}
	prev := b.DisappearanceTime
	r := c.records[sh]
	err = c.retime([]*timeline.Event{r.disappearance}, t, func() error {
		c.touchShape(sh)
		b.DisappearanceTime = t
		r.disappearance.Time = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prev, nil
}

func shapeAndTime(c *Controller, s ops.Step) (shape.Shape, float64, error) {
	sh, err := ops.Arg[shape.Shape](s, 0)
	if err != nil {
		return nil, 0, err
	}
	t, err := ops.Float(s, 1)
	if err != nil {
		return nil, 0, err
	}
	if err := c.requireLive(sh); err != nil {
		return nil, 0, err
	}
	if err := c.checkTime(t); err != nil {
		return nil, 0, err
	}
	return sh, t, nil
}

// Tweens

func (c *Controller) addTween(tw *tween.Tween) (any, error) {
	if c.tweens[tw] {
		return nil, fmt.Errorf("%w: %s", ErrTweenExists, tw)
	}
	if err := c.requireLive(tw.Shape); err != nil {
		return nil, err
	}
	if tw.End() > c.cfg.SceneEndTime {
		return nil, fmt.Errorf("%w: %s ends after the scene", ErrTimeOutOfRange, tw)
	}
	if err := c.insertEvents(tw.Events()); err != nil {
		return nil, err
	}
	r := c.recordOf(tw.Shape)
	r.tweens = append(r.tweens, tw)
	c.touchTween(tw)
	c.tweens[tw] = true
	return nil, nil
}

func (c *Controller) removeTween(tw *tween.Tween) (any, error) {
	if !c.tweens[tw] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTween, tw)
	}
	if err := c.removeEvents(tw.Events()); err != nil {
		return nil, err
	}
	r := c.records[tw.Shape]
	for i, x := range r.tweens {
		if x == tw {
			r.tweens = append(r.tweens[:i], r.tweens[i+1:]...)
			break
		}
	}
	c.touchTween(tw)
	delete(c.tweens, tw)
	c.deactivate(tw)
	return nil, nil
}

func newTweenStart(c *Controller, s ops.Step) (any, error) {
	return retimeTween(c, s, (*tween.Tween).NewStartTime)
}

func newTweenEnd(c *Controller, s ops.Step) (any, error) {
	return retimeTween(c, s, (*tween.Tween).NewEndTime)
}

func retimeTween(c *Controller, s ops.Step, change func(*tween.Tween, float64) (float64, error)) (any, error) {
	tw, err := ops.Arg[*tween.Tween](s, 0)
	if err != nil {
		return nil, err
	}
	t, err := ops.Float(s, 1)
	if err != nil {
		return nil, err
	}
	if !c.tweens[tw] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTween, tw)
	}
	if err := c.checkTime(t); err != nil {
		return nil, err
	}
	var prev float64
	err = c.retime(tw.Events(), t, func() error {
		var err error
		prev, err = change(tw, t)
		if err == nil {
			c.touchTween(tw)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return prev, nil
}

func (c *Controller) tweenActivate(tw *tween.Tween) (any, error) {
	c.activate(tw)
	return nil, nil
}

func (c *Controller) tweenReset(tw *tween.Tween) (any, error) {
	c.deactivate(tw)
	if tw.Applied() {
		c.touchShape(tw.Shape)
	}
	tw.Rewind()
	return nil, nil
}

func (c *Controller) tweenFinish(tw *tween.Tween) (any, error) {
	c.deactivate(tw)
	c.touchShape(tw.Shape)
	tw.Complete()
	return nil, nil
}

// Clock

func goToTime(c *Controller, s ops.Step) (any, error) {
	t, err := ops.Float(s, 0)
	if err != nil {
		return nil, err
	}
	if err := c.checkTime(t); err != nil {
		return nil, err
	}
	prev := c.clock
	c.scrub(t)
	return prev, nil
}

// Timeline events

// addTimelineEvent adds a keyframe of a live shape.
func (c *Controller) addTimelineEvent(e *timeline.Event) (any, error) {
	if err := c.requireLive(e.Shape); err != nil {
		return nil, err
	}
	if err := c.checkTime(e.Time); err != nil {
		return nil, err
	}
	if err := c.insertEvents([]*timeline.Event{e}); err != nil {
		return nil, err
	}
	r := c.recordOf(e.Shape)
	r.keyframes = append(r.keyframes, e)
	return nil, nil
}

func (c *Controller) removeTimelineEvent(e *timeline.Event) (any, error) {
	if err := c.removeEvents([]*timeline.Event{e}); err != nil {
		return nil, err
	}
	if r, ok := c.records[e.Shape]; ok {
		for i, k := range r.keyframes {
			if k == e {
				r.keyframes = append(r.keyframes[:i], r.keyframes[i+1:]...)
				break
			}
		}
	}
	return nil, nil
}

// Display

func showShape(c *Controller, s ops.Step) (any, error) {
	sh, err := ops.Arg[shape.Shape](s, 0)
	if err != nil {
		return nil, err
	}
	c.batch.display.touch(sh, c.display[sh])
	c.display[sh] = true
	return nil, nil
}

func hideShape(c *Controller, s ops.Step) (any, error) {
	sh, err := ops.Arg[shape.Shape](s, 0)
	if err != nil {
		return nil, err
	}
	c.batch.display.touch(sh, c.display[sh])
	delete(c.display, sh)
	return nil, nil
}
