package geom

import (
	"math"

	"github.com/fogleman/gg"
)

// Vec is a point or displacement in canvas coordinates.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func V(x, y float64) Vec {
	return Vec{X: x, Y: y}
}

func (v Vec) Add(o Vec) Vec {
	return Vec{v.X + o.X, v.Y + o.Y}
}

func (v Vec) Sub(o Vec) Vec {
	return Vec{v.X - o.X, v.Y - o.Y}
}

func (v Vec) Mul(f float64) Vec {
	return Vec{v.X * f, v.Y * f}
}

func (v Vec) Neg() Vec {
	return Vec{-v.X, -v.Y}
}

func (v Vec) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// RotateAbout rotates p by degrees around about.
func RotateAbout(p Vec, degrees float64, about Vec) Vec {
	m := gg.Translate(-about.X, -about.Y).
		Multiply(gg.Rotate(gg.Radians(degrees))).
		Multiply(gg.Translate(about.X, about.Y))
	x, y := m.TransformPoint(p.X, p.Y)
	return Vec{x, y}
}

// ScaleAbout scales p by factor with about as the fixed point.
func ScaleAbout(p Vec, factor float64, about Vec) Vec {
	m := gg.Translate(-about.X, -about.Y).
		Multiply(gg.Scale(factor, factor)).
		Multiply(gg.Translate(about.X, about.Y))
	x, y := m.TransformPoint(p.X, p.Y)
	return Vec{x, y}
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	Min Vec `json:"min"`
	Max Vec `json:"max"`
}

// Bounds returns the smallest Rect containing every point.
func Bounds(points ...Vec) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	r := Rect{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		r.Min.X = math.Min(r.Min.X, p.X)
		r.Min.Y = math.Min(r.Min.Y, p.Y)
		r.Max.X = math.Max(r.Max.X, p.X)
		r.Max.Y = math.Max(r.Max.Y, p.Y)
	}
	return r
}

func (r Rect) Centre() Vec {
	return Vec{(r.Min.X + r.Max.X) / 2, (r.Min.Y + r.Max.Y) / 2}
}

func (r Rect) Width() float64 {
	return r.Max.X - r.Min.X
}

func (r Rect) Height() float64 {
	return r.Max.Y - r.Min.Y
}

func (r Rect) Contains(p Vec) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Corners returns the four corners of r in clockwise order from Min.
func (r Rect) Corners() []Vec {
	return []Vec{r.Min, {r.Max.X, r.Min.Y}, r.Max, {r.Min.X, r.Max.Y}}
}
