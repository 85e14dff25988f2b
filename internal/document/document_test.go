package document

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animterm/internal/config"
	"animterm/internal/geom"
	"animterm/internal/history"
	"animterm/internal/ops"
	"animterm/internal/scene"
	"animterm/internal/shape"
	"animterm/internal/timeline"
)

var ctx = context.Background()

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))))
	return buf.Bytes()
}

func perform(t *testing.T, h *history.Manager, steps ...ops.Step) []any {
	t.Helper()
	rets, err := h.PerformAction(ctx, steps)
	require.NoError(t, err)
	return rets
}

// busyScene has an ellipse with a keyframe and a tween, a graphic, and the
// clock inside the tween.
func busyScene(t *testing.T) (*scene.Controller, *shape.Ellipse) {
	t.Helper()
	cfg := config.Default().WithSceneEndTime(5).WithFPS(12)
	c := scene.New(cfg)
	h := history.New(c, cfg)

	e := perform(t, h, ops.New(ops.CreateEllipse, geom.V(0, 0), geom.V(2, 1)))[0].(*shape.Ellipse)
	perform(t, h, ops.New(ops.CreateGraphic, pngBytes(t), geom.V(5, 5)))

	require.NoError(t, c.GoToTime(ctx, 2))
	perform(t, h, ops.SetAttribute(e, "fill", "#ff0000"))
	require.NoError(t, h.AddToTimeline(ctx))

	require.NoError(t, c.GoToTime(ctx, 1))
	perform(t, h, ops.MoveBy(e, geom.V(4, 0)))
	require.NoError(t, h.AddAsTween(ctx, 2))

	require.NoError(t, c.GoToTime(ctx, 2.5))
	return c, e
}

func names(shapes []shape.Shape) []string {
	out := make([]string, len(shapes))
	for i, s := range shapes {
		out[i] = s.Common().Name
	}
	return out
}

func load(t *testing.T, data []byte) (*scene.Controller, *Document) {
	t.Helper()
	doc, err := Unmarshal(ctx, data)
	require.NoError(t, err)
	c := scene.New(doc.Settings.Apply(config.Default()))
	require.NoError(t, c.Install(doc.Snapshot))
	return c, doc
}

func TestRoundTrip(t *testing.T) {
	c, e := busyScene(t)
	require.Equal(t, geom.V(3, 0), e.Centre)

	data, err := Marshal(c, json.RawMessage(`{"selected":"Ellipse 1"}`))
	require.NoError(t, err)
	assert.Equal(t, 2.5, c.Clock(), "saving leaves the clock")
	assert.Equal(t, geom.V(3, 0), e.Centre, "saving leaves the shapes")

	loaded, doc := load(t, data)
	assert.JSONEq(t, `{"selected":"Ellipse 1"}`, string(doc.RootWindow))
	assert.Equal(t, 12, loaded.Config().FPS)
	assert.Equal(t, 2.5, loaded.Clock())
	assert.Equal(t, names(c.AllShapes()), names(loaded.AllShapes()))
	assert.Equal(t, names(c.DisplayShapes()), names(loaded.DisplayShapes()))
	assert.Len(t, loaded.Timeline(), len(c.Timeline()))
	require.Len(t, loaded.Tweens(), 1)
	require.NoError(t, loaded.Check())

	got, ok := loaded.ShapeByName("Ellipse 1")
	require.True(t, ok)
	e2 := got.(*shape.Ellipse)
	assert.NotSame(t, e, e2)
	assert.InDelta(t, 3.0, e2.Centre.X, 1e-9)
	assert.Equal(t, "#ff0000", e2.Fill)

	require.NoError(t, loaded.GoToTime(ctx, 0))
	assert.Equal(t, geom.V(0, 0), e2.Centre)
	assert.Equal(t, shape.DefaultStyle().Fill, e2.Fill)
	require.NoError(t, loaded.GoToTime(ctx, 5))
	assert.Equal(t, geom.V(4, 0), e2.Centre)

	g, ok := loaded.ShapeByName("Graphic 1")
	require.True(t, ok)
	assert.NotNil(t, g.(*shape.Graphic).Image())
}

func TestSavedFileShape(t *testing.T) {
	c, _ := busyScene(t)
	data, err := Marshal(c, nil)
	require.NoError(t, err)

	var f File
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, Version, f.FileVersion)
	assert.Equal(t, 5.0, f.Settings.SceneEndTime)
	assert.Equal(t, 1, f.CurrentScene.NumberOfEachTypeOfShape[shape.KindEllipse])

	agg := f.CurrentScene.AggregateModels
	require.Len(t, agg.AllShapes, 2)
	require.Len(t, agg.AllTweens, 1)
	assert.Equal(t, 0, agg.AllTweens[0].Shape)

	ellipse := agg.AllShapes[0]
	assert.Equal(t, shape.KindEllipse, ellipse.ShapeType)
	types := map[string]int{}
	for _, es := range ellipse.TimelineEvents {
		types[es.Type]++
		if es.Type == timeline.TweenStart.String() {
			require.NotNil(t, es.Tween)
			assert.Equal(t, 0, *es.Tween)
		}
		if es.Type == timeline.AttributeChange.String() {
			require.Len(t, es.Forward, 1)
			assert.Equal(t, ops.ShapeAttributeUpdate.String(), es.Forward[0].Op)
			require.NotNil(t, es.Forward[0].Args[0].Shape)
			assert.Equal(t, "#ff0000", es.Forward[0].Args[2].Value)
		}
	}
	assert.Equal(t, map[string]int{
		"appearance": 1, "disappearance": 1, "attributeChange": 1, "tweenStart": 1, "tweenEnd": 1,
	}, types)
}

const versionOne = `{
  "currentScene": {
    "ZIndexOfHighestShape": 1,
    "numberOfEachTypeOfShape": {"ellipse": 1},
    "aggregateModels": {
      "clock": 0,
      "allShapes": [{
        "type": "ellipse",
        "name": "Ellipse 1",
        "directory": null,
        "ZIndex": 1,
        "appearanceTime": 0,
        "disappearanceTime": 10,
        "data": {"centre": {"x": 1, "y": 2}, "radii": {"x": 3, "y": 3}, "style": {"fill": "#00ff00", "opacity": 1}},
        "timelineEvents": [
          {"type": "appearance", "time": 0},
          {"type": "disappearance", "time": 10}
        ]
      }],
      "allTweens": []
    }
  }
}`

func TestOldFilesMigrate(t *testing.T) {
	c, doc := load(t, []byte(versionOne))
	assert.Equal(t, 0.0, doc.Snapshot.ZIndexOfLowestShape)
	assert.Equal(t, config.Default().SceneEndTime, c.EndTime())

	got, ok := c.ShapeByName("Ellipse 1")
	require.True(t, ok)
	e := got.(*shape.Ellipse)
	assert.Equal(t, geom.V(1, 2), e.Centre)
	assert.Equal(t, "#00ff00", e.Fill)
	assert.Equal(t, []shape.Shape{e}, c.DisplayShapes())
}

func TestMigrationSteps(t *testing.T) {
	file := map[string]any{
		"currentScene": map[string]any{
			"aggregateModels": map[string]any{
				"allShapes": []any{map[string]any{"type": "text"}},
			},
		},
	}
	require.NoError(t, migrate(file))
	s := file["currentScene"].(map[string]any)
	sh := s["aggregateModels"].(map[string]any)["allShapes"].([]any)[0].(map[string]any)
	assert.Equal(t, "text", sh["shapeType"])
	assert.NotContains(t, sh, "type")
	assert.Equal(t, 0.0, s["ZIndexOfLowestShape"])
	assert.Equal(t, float64(Version), file["fileVersion"])

	assert.ErrorIs(t, migrate(map[string]any{"fileVersion": 99.0}), ErrFormat)
	assert.ErrorIs(t, migrate(map[string]any{"fileVersion": 1.0}), ErrFormat, "no currentScene")
}

func TestBadFilesInstallNothing(t *testing.T) {
	c, _ := busyScene(t)
	data, err := Marshal(c, nil)
	require.NoError(t, err)

	var f File
	require.NoError(t, json.Unmarshal(data, &f))
	f.CurrentScene.AggregateModels.AllShapes[1].Data = json.RawMessage(`{"source":"bm90IGFuIGltYWdl"}`)
	broken, err := json.Marshal(f)
	require.NoError(t, err)
	_, err = Unmarshal(ctx, broken)
	assert.ErrorIs(t, err, shape.ErrUnsupportedImage)

	var g File
	require.NoError(t, json.Unmarshal(data, &g))
	g.CurrentScene.AggregateModels.AllTweens[0].Shape = 7
	broken, err = json.Marshal(g)
	require.NoError(t, err)
	_, err = Unmarshal(ctx, broken)
	assert.ErrorIs(t, err, ErrFormat)

	_, err = Unmarshal(ctx, []byte("{"))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestSaveAndOpen(t *testing.T) {
	c, _ := busyScene(t)
	path := filepath.Join(t.TempDir(), "scene.anim")
	require.NoError(t, Save(path, c, nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	doc, err := Open(ctx, path)
	require.NoError(t, err)
	assert.Len(t, doc.Snapshot.Shapes, 2)

	_, err = Open(ctx, filepath.Join(t.TempDir(), "missing.anim"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPinnedStepsSurviveTheFile(t *testing.T) {
	e := shape.NewEllipse(geom.V(0.1, 0.7), geom.V(2, 1))
	pin := ops.Pin{
		From: e.Geometry(),
		To:   shape.Geometry{Points: []geom.Vec{geom.V(10.1, 0.7)}, Size: geom.V(2, 1)},
	}
	steps := []ops.Step{ops.New(ops.Translate, e, geom.V(10, 0), pin)}

	idx := newIndex([]shape.Shape{e}, nil)
	saved, err := idx.encodeSteps(steps)
	require.NoError(t, err)
	data, err := json.Marshal(saved)
	require.NoError(t, err)

	var back []StepSave
	require.NoError(t, json.Unmarshal(data, &back))
	got, err := idx.decodeSteps(back)
	require.NoError(t, err)
	assert.Equal(t, steps, got)
}
