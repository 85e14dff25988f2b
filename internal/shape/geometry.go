package shape

import (
	"fmt"
	"slices"

	"animterm/internal/geom"
)

// Geometry is the part of a shape that Translate, Rotate and Scale change.
// Points holds the anchor (centre or position) for single-point kinds and
// every vertex for paths. Size is the radii of an ellipse, the width and
// height of a graphic and the font size of text in X.
type Geometry struct {
	Points   []geom.Vec `json:"points"`
	Size     geom.Vec   `json:"size"`
	Rotation float64    `json:"rotation"`
}

// Equal reports whether g and o are the same to the bit.
func (g Geometry) Equal(o Geometry) bool {
	return g.Size == o.Size && g.Rotation == o.Rotation && slices.Equal(g.Points, o.Points)
}

func anchorGeometry(at, size geom.Vec, rotation float64) Geometry {
	return Geometry{Points: []geom.Vec{at}, Size: size, Rotation: rotation}
}

func anchorOf(k Kind, g Geometry) (geom.Vec, error) {
	if len(g.Points) != 1 {
		return geom.Vec{}, fmt.Errorf("%w: %s geometry wants 1 point, has %d", ErrInvalidValue, k, len(g.Points))
	}
	return g.Points[0], nil
}

func pointsOf(k Kind, have []geom.Vec, g Geometry) ([]geom.Vec, error) {
	if len(g.Points) != len(have) {
		return nil, fmt.Errorf("%w: %s geometry wants %d points, has %d", ErrInvalidValue, k, len(have), len(g.Points))
	}
	return slices.Clone(g.Points), nil
}

func (e *Ellipse) Geometry() Geometry { return anchorGeometry(e.Centre, e.Radii, e.Rotation) }

func (e *Ellipse) SetGeometry(g Geometry) error {
	at, err := anchorOf(KindEllipse, g)
	if err != nil {
		return err
	}
	e.Centre, e.Radii, e.Rotation = at, g.Size, g.Rotation
	return nil
}

func (g *Graphic) Geometry() Geometry {
	return anchorGeometry(g.Position, geom.V(g.Width, g.Height), g.Rotation)
}

func (g *Graphic) SetGeometry(geo Geometry) error {
	at, err := anchorOf(KindGraphic, geo)
	if err != nil {
		return err
	}
	g.Position, g.Width, g.Height, g.Rotation = at, geo.Size.X, geo.Size.Y, geo.Rotation
	return nil
}

func (t *Text) Geometry() Geometry {
	return anchorGeometry(t.Position, geom.V(t.FontSize, 0), t.Rotation)
}

func (t *Text) SetGeometry(g Geometry) error {
	at, err := anchorOf(KindText, g)
	if err != nil {
		return err
	}
	t.Position, t.FontSize, t.Rotation = at, g.Size.X, g.Rotation
	return nil
}

func (p *Polygon) Geometry() Geometry { return Geometry{Points: slices.Clone(p.Points)} }

func (p *Polygon) SetGeometry(g Geometry) error {
	pts, err := pointsOf(KindPolygon, p.Points, g)
	if err != nil {
		return err
	}
	p.Points = pts
	return nil
}

func (d *Drawing) Geometry() Geometry { return Geometry{Points: slices.Clone(d.Points)} }

func (d *Drawing) SetGeometry(g Geometry) error {
	pts, err := pointsOf(KindDrawing, d.Points, g)
	if err != nil {
		return err
	}
	d.Points = pts
	return nil
}
