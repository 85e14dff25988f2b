// Package render draws scene shapes to images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"animterm/internal/shape"
)

// Renderer draws shapes onto a white canvas of a fixed size. Text uses the
// Go mono font. Font faces are cached, so a Renderer draws one frame at a
// time.
type Renderer struct {
	Width, Height int
	Background    color.Color

	font  *truetype.Font
	faces map[float64]font.Face
}

func New(width, height int) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render: canvas %dx%d", width, height)
	}
	f, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &Renderer{
		Width:      width,
		Height:     height,
		Background: color.White,
		font:       f,
		faces:      map[float64]font.Face{},
	}, nil
}

// Frame draws shapes back to front. The caller passes them in z-order, as
// scene.Controller.DisplayShapes returns them.
func (r *Renderer) Frame(shapes []shape.Shape) (image.Image, error) {
	dc := gg.NewContext(r.Width, r.Height)
	dc.SetColor(r.Background)
	dc.Clear()
	for _, s := range shapes {
		if err := r.Draw(dc, s); err != nil {
			return nil, err
		}
	}
	return dc.Image(), nil
}

// Draw paints one shape onto dc.
func (r *Renderer) Draw(dc *gg.Context, s shape.Shape) error {
	dc.Push()
	defer dc.Pop()

	switch v := s.(type) {
	case *shape.Ellipse:
		dc.RotateAbout(gg.Radians(v.Rotation), v.Centre.X, v.Centre.Y)
		dc.DrawEllipse(v.Centre.X, v.Centre.Y, v.Radii.X, v.Radii.Y)
		return paint(dc, v.Style, true)
	case *shape.Polygon:
		if len(v.Points) == 0 {
			return nil
		}
		for _, p := range v.Points {
			dc.LineTo(p.X, p.Y)
		}
		dc.ClosePath()
		return paint(dc, v.Style, true)
	case *shape.Drawing:
		if len(v.Points) == 0 {
			return nil
		}
		for _, p := range v.Points {
			dc.LineTo(p.X, p.Y)
		}
		return paint(dc, v.Style, false)
	case *shape.Text:
		return r.drawText(dc, v)
	case *shape.Graphic:
		return drawGraphic(dc, v)
	}
	return fmt.Errorf("%w: cannot draw %T", shape.ErrUnknownKind, s)
}

// paint fills then strokes the current path.
func paint(dc *gg.Context, st shape.Style, closed bool) error {
	fill, err := shape.ParseColour(st.Fill)
	if err != nil {
		return err
	}
	stroke, err := shape.ParseColour(st.Stroke)
	if err != nil {
		return err
	}
	if closed && fill.A > 0 {
		dc.SetColor(withOpacity(fill, st.Opacity))
		dc.FillPreserve()
	}
	if stroke.A > 0 && st.StrokeWidth > 0 {
		dc.SetColor(withOpacity(stroke, st.Opacity))
		dc.SetLineWidth(st.StrokeWidth)
		dc.StrokePreserve()
	}
	dc.ClearPath()
	return nil
}

func withOpacity(c color.NRGBA, opacity float64) color.NRGBA {
	c.A = uint8(float64(c.A) * clamp01(opacity))
	return c
}

func clamp01(f float64) float64 {
	return max(0, min(1, f))
}

func (r *Renderer) face(size float64) font.Face {
	if f, ok := r.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(r.font, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	r.faces[size] = f
	return f
}

func (r *Renderer) drawText(dc *gg.Context, t *shape.Text) error {
	if t.FontSize <= 0 {
		return nil
	}
	fill, err := shape.ParseColour(t.Fill)
	if err != nil {
		return err
	}
	dc.RotateAbout(gg.Radians(t.Rotation), t.Position.X, t.Position.Y)
	dc.SetFontFace(r.face(t.FontSize))
	dc.SetColor(withOpacity(fill, t.Opacity))
	lineHeight := dc.FontHeight() * 1.2
	for i, line := range t.Lines() {
		dc.DrawStringAnchored(line, t.Position.X, t.Position.Y+float64(i)*lineHeight, 0, 1)
	}
	return nil
}

func drawGraphic(dc *gg.Context, g *shape.Graphic) error {
	img := g.Image()
	if img == nil {
		return fmt.Errorf("graphic %q is not decoded", g.Name)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || g.Width == 0 || g.Height == 0 {
		return nil
	}
	dc.RotateAbout(gg.Radians(g.Rotation), g.Position.X, g.Position.Y)
	dc.Translate(g.Position.X, g.Position.Y)
	dc.Scale(g.Width/float64(b.Dx()), g.Height/float64(b.Dy()))
	if o := clamp01(g.Opacity); o < 1 {
		mask := image.NewUniform(color.Alpha{A: uint8(o * 255)})
		layer := image.NewNRGBA(b)
		draw.DrawMask(layer, b, img, b.Min, mask, image.Point{}, draw.Over)
		img = layer
	}
	dc.DrawImage(img, 0, 0)
	return nil
}
