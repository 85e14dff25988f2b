package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animterm/internal/config"
	"animterm/internal/geom"
	"animterm/internal/ops"
	"animterm/internal/scene"
	"animterm/internal/shape"
)

var ctx = context.Background()

func rgba(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func TestFrameDrawsInZOrder(t *testing.T) {
	r, err := New(40, 40)
	require.NoError(t, err)

	back := shape.NewEllipse(geom.V(20, 20), geom.V(15, 15))
	back.Fill, back.Stroke = "#ff0000", ""
	front := shape.NewPolygon([]geom.Vec{geom.V(15, 15), geom.V(25, 15), geom.V(25, 25), geom.V(15, 25)})
	front.Fill, front.Stroke = "#0000ff", ""

	img, err := r.Frame([]shape.Shape{back, front})
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, rgba(img, 20, 20))
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, rgba(img, 10, 20))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, rgba(img, 1, 1))

	img, err = r.Frame([]shape.Shape{front, back})
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, rgba(img, 20, 20))
}

func TestDrawEveryKind(t *testing.T) {
	r, err := New(64, 64)
	require.NoError(t, err)

	var buf bytes.Buffer
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+1], src.Pix[i+3] = 255, 255
	}
	require.NoError(t, png.Encode(&buf, src))
	g := shape.NewGraphic(buf.Bytes(), geom.V(40, 40))
	require.NoError(t, g.Decode())
	g.Width, g.Height = 10, 10

	text := shape.NewText("hi\nthere", geom.V(2, 2))
	drawing := shape.NewDrawing([]geom.Vec{geom.V(0, 60), geom.V(60, 60)})

	img, err := r.Frame([]shape.Shape{text, drawing, g})
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, rgba(img, 45, 45))

	var dark bool
	for y := 2; y < 20 && !dark; y++ {
		for x := 2; x < 30; x++ {
			if rgba(img, x, y).R < 128 {
				dark = true
				break
			}
		}
	}
	assert.True(t, dark, "text leaves ink")

	undecoded := shape.NewGraphic(buf.Bytes(), geom.V(0, 0))
	_, err = r.Frame([]shape.Shape{undecoded})
	assert.Error(t, err)

	bad := shape.NewEllipse(geom.V(0, 0), geom.V(1, 1))
	bad.Fill = "red"
	_, err = r.Frame([]shape.Shape{bad})
	assert.ErrorIs(t, err, shape.ErrInvalidValue)
}

func TestFrameNames(t *testing.T) {
	assert.Equal(t, 25, FrameCount(1, 24))
	assert.Equal(t, 1, FrameCount(0, 24))
	assert.Equal(t, 0, FrameCount(1, 0))
	assert.Equal(t, "frame_07.png", FrameName(7, 25))
	assert.Equal(t, "frame_0.png", FrameName(0, 1))
}

func TestExportFramesRestoresTheClock(t *testing.T) {
	c := scene.New(config.Default().WithSceneEndTime(1))
	_, err := c.ExecuteSteps(ctx, []ops.Step{ops.New(ops.CreateEllipse, geom.V(10, 10), geom.V(5, 5))})
	require.NoError(t, err)
	require.NoError(t, c.GoToTime(ctx, 0.5))

	r, err := New(32, 32)
	require.NoError(t, err)
	dir := filepath.Join(t.TempDir(), "frames")
	n, err := r.ExportFrames(ctx, c, dir, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 0.5, c.Clock())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, "frame_0.png", entries[0].Name())

	f, err := os.Open(filepath.Join(dir, "frame_4.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())

	_, err = r.ExportFrames(ctx, c, dir, 0)
	assert.Error(t, err)
}

func TestSaveFrame(t *testing.T) {
	c := scene.New(config.Default())
	r, err := New(8, 8)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "now.png")
	require.NoError(t, r.SaveFrame(path, c))
	_, err = os.Stat(path)
	assert.NoError(t, err)

	_, err = New(0, 8)
	assert.Error(t, err)
}
