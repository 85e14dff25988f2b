package shape

import (
	"fmt"
	"math"

	"animterm/internal/geom"
)

const (
	AttrRadiusX = "radiusX"
	AttrRadiusY = "radiusY"
)

type Ellipse struct {
	Base  `json:"-"`
	Style `json:"style"`

	Centre   geom.Vec `json:"centre"`
	Radii    geom.Vec `json:"radii"`
	Rotation float64  `json:"rotation"`

	bounds geom.Rect
}

func NewEllipse(centre, radii geom.Vec) *Ellipse {
	e := &Ellipse{Style: DefaultStyle(), Centre: centre, Radii: radii}
	e.UpdateGeometry()
	return e
}

func (e *Ellipse) Kind() Kind { return KindEllipse }

func (e *Ellipse) Translate(d geom.Vec) {
	e.Centre = e.Centre.Add(d)
}

func (e *Ellipse) Rotate(degrees float64, about geom.Vec) {
	e.Centre = geom.RotateAbout(e.Centre, degrees, about)
	e.Rotation += degrees
}

func (e *Ellipse) Scale(factor float64, about geom.Vec) {
	e.Centre = geom.ScaleAbout(e.Centre, factor, about)
	e.Radii = e.Radii.Mul(math.Abs(factor))
}

func (e *Ellipse) UpdateGeometry() {
	sin, cos := math.Sincos(e.Rotation * math.Pi / 180)
	hx := math.Hypot(e.Radii.X*cos, e.Radii.Y*sin)
	hy := math.Hypot(e.Radii.X*sin, e.Radii.Y*cos)
	e.bounds = geom.Rect{
		Min: geom.V(e.Centre.X-hx, e.Centre.Y-hy),
		Max: geom.V(e.Centre.X+hx, e.Centre.Y+hy),
	}
}

func (e *Ellipse) Bounds() geom.Rect { return e.bounds }

func (e *Ellipse) Copy() (Shape, error) {
	c, err := deepCopy(e)
	if err != nil {
		return nil, err
	}
	c.UpdateGeometry()
	return c, nil
}

func (e *Ellipse) Attribute(name string) (any, error) {
	switch name {
	case AttrRadiusX:
		return e.Radii.X, nil
	case AttrRadiusY:
		return e.Radii.Y, nil
	}
	if v, ok := e.Style.attribute(name); ok {
		return v, nil
	}
	return e.Base.attribute(name)
}

func (e *Ellipse) SetAttribute(name string, value any) (any, error) {
	switch name {
	case AttrRadiusX, AttrRadiusY:
		f, err := toFloat(value)
		if err != nil {
			return nil, err
		}
		if f < 0 {
			return nil, fmt.Errorf("%w: radius %v is negative", ErrInvalidValue, f)
		}
		prev, _ := e.Attribute(name)
		if name == AttrRadiusX {
			e.Radii.X = f
		} else {
			e.Radii.Y = f
		}
		return prev, nil
	}
	if prev, ok, err := e.Style.setAttribute(name, value); ok {
		return prev, err
	}
	return e.Base.setAttribute(name, value)
}

func (e *Ellipse) Save() (Save, error) {
	return saveWith(KindEllipse, &e.Base, e)
}
