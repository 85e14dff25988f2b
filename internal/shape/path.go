package shape

import "animterm/internal/geom"

// Polygon is a closed path.
type Polygon struct {
	Base  `json:"-"`
	Style `json:"style"`

	Points []geom.Vec `json:"points"`

	bounds geom.Rect
}

// Drawing is an open freehand path.
type Drawing struct {
	Base  `json:"-"`
	Style `json:"style"`

	Points []geom.Vec `json:"points"`

	bounds geom.Rect
}

func NewPolygon(points []geom.Vec) *Polygon {
	p := &Polygon{Style: DefaultStyle(), Points: append([]geom.Vec(nil), points...)}
	p.UpdateGeometry()
	return p
}

func NewDrawing(points []geom.Vec) *Drawing {
	style := DefaultStyle()
	style.Fill = ""
	d := &Drawing{Style: style, Points: append([]geom.Vec(nil), points...)}
	d.UpdateGeometry()
	return d
}

func translatePoints(points []geom.Vec, d geom.Vec) {
	for i := range points {
		points[i] = points[i].Add(d)
	}
}

func rotatePoints(points []geom.Vec, degrees float64, about geom.Vec) {
	for i := range points {
		points[i] = geom.RotateAbout(points[i], degrees, about)
	}
}

func scalePoints(points []geom.Vec, factor float64, about geom.Vec) {
	for i := range points {
		points[i] = geom.ScaleAbout(points[i], factor, about)
	}
}

func (p *Polygon) Kind() Kind                             { return KindPolygon }
func (p *Polygon) Translate(d geom.Vec)                   { translatePoints(p.Points, d) }
func (p *Polygon) Rotate(degrees float64, about geom.Vec) { rotatePoints(p.Points, degrees, about) }
func (p *Polygon) Scale(factor float64, about geom.Vec)   { scalePoints(p.Points, factor, about) }
func (p *Polygon) UpdateGeometry()                        { p.bounds = geom.Bounds(p.Points...) }
func (p *Polygon) Bounds() geom.Rect                      { return p.bounds }

func (p *Polygon) Copy() (Shape, error) {
	c, err := deepCopy(p)
	if err != nil {
		return nil, err
	}
	c.UpdateGeometry()
	return c, nil
}

func (p *Polygon) Attribute(name string) (any, error) {
	if v, ok := p.Style.attribute(name); ok {
		return v, nil
	}
	return p.Base.attribute(name)
}

func (p *Polygon) SetAttribute(name string, value any) (any, error) {
	if prev, ok, err := p.Style.setAttribute(name, value); ok {
		return prev, err
	}
	return p.Base.setAttribute(name, value)
}

func (p *Polygon) Save() (Save, error) {
	return saveWith(KindPolygon, &p.Base, p)
}

func (d *Drawing) Kind() Kind                             { return KindDrawing }
func (d *Drawing) Translate(v geom.Vec)                   { translatePoints(d.Points, v) }
func (d *Drawing) Rotate(degrees float64, about geom.Vec) { rotatePoints(d.Points, degrees, about) }
func (d *Drawing) Scale(factor float64, about geom.Vec)   { scalePoints(d.Points, factor, about) }
func (d *Drawing) UpdateGeometry()                        { d.bounds = geom.Bounds(d.Points...) }
func (d *Drawing) Bounds() geom.Rect                      { return d.bounds }

func (d *Drawing) Copy() (Shape, error) {
	c, err := deepCopy(d)
	if err != nil {
		return nil, err
	}
	c.UpdateGeometry()
	return c, nil
}

func (d *Drawing) Attribute(name string) (any, error) {
	if v, ok := d.Style.attribute(name); ok {
		return v, nil
	}
	return d.Base.attribute(name)
}

func (d *Drawing) SetAttribute(name string, value any) (any, error) {
	if prev, ok, err := d.Style.setAttribute(name, value); ok {
		return prev, err
	}
	return d.Base.setAttribute(name, value)
}

func (d *Drawing) Save() (Save, error) {
	return saveWith(KindDrawing, &d.Base, d)
}
