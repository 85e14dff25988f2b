package shape

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"animterm/internal/geom"
)

const (
	AttrWidth  = "width"
	AttrHeight = "height"
)

var ErrUnsupportedImage = errors.New("unsupported image")

var decodable = map[string]bool{"png": true, "jpg": true, "gif": true, "bmp": true, "webp": true}

// Graphic is a raster image placed on the canvas. Source keeps the encoded
// file so it survives save and load untouched.
type Graphic struct {
	Base `json:"-"`

	Position geom.Vec `json:"position"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Rotation float64  `json:"rotation"`
	Opacity  float64  `json:"opacity"`
	Source   []byte   `json:"source"`

	img    image.Image
	bounds geom.Rect
}

// NewGraphic returns a graphic with no geometry until its image is decoded.
func NewGraphic(source []byte, position geom.Vec) *Graphic {
	g := &Graphic{Position: position, Opacity: 1, Source: source}
	g.UpdateGeometry()
	return g
}

// DecodeImage sniffs and decodes an encoded image. It touches no shape
// state, so it can run off the scene's goroutine.
func DecodeImage(source []byte) (image.Image, error) {
	kind, err := filetype.Match(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if !filetype.IsImage(source) || !decodable[kind.Extension] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, kind.MIME.Value)
	}
	img, _, err := image.Decode(bytes.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", kind.Extension, err)
	}
	return img, nil
}

// Decode decodes Source and installs the result.
func (g *Graphic) Decode() error {
	img, err := DecodeImage(g.Source)
	if err != nil {
		return err
	}
	g.SetImage(img)
	return nil
}

// SetImage installs a decoded image. A graphic without a size takes the
// image's pixel size.
func (g *Graphic) SetImage(img image.Image) {
	g.img = img
	if g.Width == 0 && g.Height == 0 {
		b := img.Bounds()
		g.Width, g.Height = float64(b.Dx()), float64(b.Dy())
	}
	g.UpdateGeometry()
}

func (g *Graphic) Image() image.Image { return g.img }

func (g *Graphic) Kind() Kind { return KindGraphic }

func (g *Graphic) Translate(d geom.Vec) {
	g.Position = g.Position.Add(d)
}

func (g *Graphic) Rotate(degrees float64, about geom.Vec) {
	g.Position = geom.RotateAbout(g.Position, degrees, about)
	g.Rotation += degrees
}

func (g *Graphic) Scale(factor float64, about geom.Vec) {
	g.Position = geom.ScaleAbout(g.Position, factor, about)
	g.Width *= math.Abs(factor)
	g.Height *= math.Abs(factor)
}

func (g *Graphic) UpdateGeometry() {
	box := geom.Rect{Min: g.Position, Max: g.Position.Add(geom.V(g.Width, g.Height))}
	corners := box.Corners()
	for i := range corners {
		corners[i] = geom.RotateAbout(corners[i], g.Rotation, g.Position)
	}
	g.bounds = geom.Bounds(corners...)
}

func (g *Graphic) Bounds() geom.Rect { return g.bounds }

func (g *Graphic) Copy() (Shape, error) {
	c, err := deepCopy(g)
	if err != nil {
		return nil, err
	}
	c.img = g.img
	c.UpdateGeometry()
	return c, nil
}

func (g *Graphic) Attribute(name string) (any, error) {
	switch name {
	case AttrWidth:
		return g.Width, nil
	case AttrHeight:
		return g.Height, nil
	case AttrOpacity:
		return g.Opacity, nil
	}
	return g.Base.attribute(name)
}

func (g *Graphic) SetAttribute(name string, value any) (any, error) {
	switch name {
	case AttrWidth, AttrHeight, AttrOpacity:
		f, err := toFloat(value)
		if err != nil {
			return nil, err
		}
		if f < 0 || (name == AttrOpacity && f > 1) {
			return nil, fmt.Errorf("%w: %s %v out of range", ErrInvalidValue, name, f)
		}
		prev, _ := g.Attribute(name)
		switch name {
		case AttrWidth:
			g.Width = f
		case AttrHeight:
			g.Height = f
		default:
			g.Opacity = f
		}
		return prev, nil
	}
	return g.Base.setAttribute(name, value)
}

func (g *Graphic) Save() (Save, error) {
	return saveWith(KindGraphic, &g.Base, g)
}
