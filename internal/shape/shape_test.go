package shape

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animterm/internal/geom"
)

func TestTranslateOnWholeNumbersIsReversible(t *testing.T) {
	p := NewPolygon([]geom.Vec{geom.V(0, 0), geom.V(10, 0), geom.V(5, 8)})
	before := append([]geom.Vec(nil), p.Points...)

	p.Translate(geom.V(10, 0))
	p.Translate(geom.V(-10, 0))

	assert.Equal(t, before, p.Points)
}

func TestEllipseScaleAndRotate(t *testing.T) {
	e := NewEllipse(geom.V(10, 10), geom.V(4, 2))
	e.Scale(2, geom.V(0, 0))
	assert.Equal(t, geom.V(20, 20), e.Centre)
	assert.Equal(t, geom.V(8, 4), e.Radii)

	e.Rotate(90, e.Centre)
	e.UpdateGeometry()
	b := e.Bounds()
	assert.InDelta(t, 4.0, b.Width()/2, 1e-9)
	assert.InDelta(t, 8.0, b.Height()/2, 1e-9)
}

func TestSetAttributeReturnsPrevious(t *testing.T) {
	e := NewEllipse(geom.V(0, 0), geom.V(1, 1))

	prev, err := e.SetAttribute(AttrFill, "#ff0000")
	require.NoError(t, err)
	assert.Equal(t, "#4a90d9", prev)

	prev, err = e.SetAttribute(AttrRadiusX, 3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, prev)
	assert.Equal(t, 3.0, e.Radii.X)

	_, err = e.SetAttribute(AttrFill, "red")
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = e.SetAttribute("wobble", 1)
	assert.ErrorIs(t, err, ErrUnknownAttribute)

	prev, err = e.SetAttribute(AttrDirectory, "props")
	require.NoError(t, err)
	assert.Nil(t, prev)
	v, err := e.Attribute(AttrDirectory)
	require.NoError(t, err)
	assert.Equal(t, "props", v)
}

func TestCopyIsDeep(t *testing.T) {
	dir := "group"
	d := NewDrawing([]geom.Vec{geom.V(1, 1), geom.V(2, 3)})
	d.Name = "Drawing 1"
	d.Directory = &dir

	c, err := d.Copy()
	require.NoError(t, err)
	cp := c.(*Drawing)
	cp.Translate(geom.V(5, 5))
	*cp.Directory = "other"

	assert.Equal(t, "Drawing 1", cp.Name)
	assert.Equal(t, geom.V(1, 1), d.Points[0])
	assert.Equal(t, "group", *d.Directory)
}

func TestSaveLoadKeepsBaseAndGeometry(t *testing.T) {
	txt := NewText("hello\nworld", geom.V(3, 4))
	txt.Name = "Text 1"
	txt.ZIndex = 2.5
	txt.AppearanceTime, txt.DisappearanceTime = 1, 4

	s, err := txt.Save()
	require.NoError(t, err)
	assert.Equal(t, KindText, s.ShapeType)

	loaded, err := Load(s)
	require.NoError(t, err)
	lt := loaded.(*Text)
	assert.Equal(t, txt.Base, lt.Base)
	assert.Equal(t, txt.Content, lt.Content)
	assert.Equal(t, txt.Position, lt.Position)
	assert.Equal(t, txt.Bounds(), lt.Bounds())

	_, err = Load(Save{ShapeType: "blob"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestGraphicDecode(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 6, 3))
	img.Set(1, 1, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	g := NewGraphic(buf.Bytes(), geom.V(1, 1))
	assert.Zero(t, g.Width)
	require.NoError(t, g.Decode())
	assert.Equal(t, 6.0, g.Width)
	assert.Equal(t, 3.0, g.Height)
	assert.Equal(t, geom.Rect{Min: geom.V(1, 1), Max: geom.V(7, 4)}, g.Bounds())

	_, err := DecodeImage([]byte("plain text, not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestParseColour(t *testing.T) {
	c, err := ParseColour("#0f0")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{G: 0xff, A: 0xff}, c)

	c, err = ParseColour("#11223380")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x80}, c)

	_, err = ParseColour("123456")
	assert.Error(t, err)
}

func TestGeometrySnapshot(t *testing.T) {
	shapes := []Shape{
		NewEllipse(geom.V(1, 2), geom.V(3, 4)),
		NewPolygon([]geom.Vec{geom.V(0, 0), geom.V(4, 0), geom.V(2, 3)}),
		NewDrawing([]geom.Vec{geom.V(0, 0), geom.V(1, 1)}),
		NewText("hi", geom.V(5, 5)),
		&Graphic{Position: geom.V(2, 2), Width: 8, Height: 6},
	}
	for _, s := range shapes {
		t.Run(string(s.Kind()), func(t *testing.T) {
			before := s.Geometry()
			s.Rotate(33, geom.V(1.3, 2.9))
			s.Scale(1.7, geom.V(0.3, 0.1))
			s.Translate(geom.V(0.1, 0.7))
			require.False(t, before.Equal(s.Geometry()))

			require.NoError(t, s.SetGeometry(before))
			s.UpdateGeometry()
			assert.True(t, before.Equal(s.Geometry()))

			assert.ErrorIs(t, s.SetGeometry(Geometry{}), ErrInvalidValue)
		})
	}
}

func TestGeometryIsACopy(t *testing.T) {
	p := NewPolygon([]geom.Vec{geom.V(0, 0), geom.V(4, 0), geom.V(2, 3)})
	g := p.Geometry()
	p.Translate(geom.V(1, 0))
	assert.Equal(t, geom.V(0, 0), g.Points[0])
}
