// Package document reads and writes scene files.
//
// A file holds the scene in its base state: every shape as it is before any
// timeline event runs, its keyframes, and the tweens. Appearance,
// disappearance and tween events are not stored; they follow from the
// shapes and tweens on load.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"animterm/internal/config"
	"animterm/internal/scene"
	"animterm/internal/shape"
	"animterm/internal/timeline"
	"animterm/internal/tween"
)

// Version is the file version written by Marshal.
const Version = 3

var ErrFormat = errors.New("invalid scene file")

type File struct {
	FileVersion  int             `json:"fileVersion"`
	Settings     Settings        `json:"settings"`
	CurrentScene SceneSave       `json:"currentScene"`
	RootWindow   json.RawMessage `json:"rootWindow,omitempty"`
}

// Settings are the parts of the configuration that belong to a scene
// rather than to the user.
type Settings struct {
	SceneEndTime float64 `json:"sceneEndTime"`
	FPS          int     `json:"fps"`
	Loop         bool    `json:"loop"`
	CanvasWidth  int     `json:"canvasWidth"`
	CanvasHeight int     `json:"canvasHeight"`
}

func SettingsOf(cfg config.Config) Settings {
	return Settings{
		SceneEndTime: cfg.SceneEndTime,
		FPS:          cfg.FPS,
		Loop:         cfg.Loop,
		CanvasWidth:  cfg.CanvasWidth,
		CanvasHeight: cfg.CanvasHeight,
	}
}

// Apply copies s onto cfg. Zero values, as in files older than the
// settings block, leave cfg alone.
func (s Settings) Apply(cfg config.Config) config.Config {
	if s.SceneEndTime > 0 {
		cfg = cfg.WithSceneEndTime(s.SceneEndTime)
	}
	if s.FPS > 0 {
		cfg = cfg.WithFPS(s.FPS)
	}
	if s.CanvasWidth > 0 && s.CanvasHeight > 0 {
		cfg = cfg.WithCanvasSize(s.CanvasWidth, s.CanvasHeight)
	}
	return cfg.WithLoop(s.Loop)
}

type SceneSave struct {
	ZIndexOfHighestShape    float64            `json:"ZIndexOfHighestShape"`
	ZIndexOfLowestShape     float64            `json:"ZIndexOfLowestShape"`
	NumberOfEachTypeOfShape map[shape.Kind]int `json:"numberOfEachTypeOfShape"`
	AggregateModels         Aggregate          `json:"aggregateModels"`
}

type Aggregate struct {
	Clock     float64      `json:"clock"`
	AllShapes []ShapeSave  `json:"allShapes"`
	AllTweens []tween.Save `json:"allTweens"`
}

// ShapeSave is a shape with its timeline events.
type ShapeSave struct {
	shape.Save
	TimelineEvents []EventSave `json:"timelineEvents"`
}

// EventSave is one timeline event. Tween is an index into allTweens for
// tween events.
type EventSave struct {
	Type     string     `json:"type"`
	Time     float64    `json:"time"`
	Colour   string     `json:"colour"`
	Forward  []StepSave `json:"forward,omitempty"`
	Backward []StepSave `json:"backward,omitempty"`
	Tween    *int       `json:"tween,omitempty"`
}

// Document is a decoded file, ready to install.
type Document struct {
	Settings   Settings
	Snapshot   scene.Snapshot
	RootWindow json.RawMessage
}

// Marshal writes c in its base state. rootWindow is stored as given.
func Marshal(c *scene.Controller, rootWindow json.RawMessage) ([]byte, error) {
	f := File{
		FileVersion: Version,
		Settings:    SettingsOf(c.Config()),
		RootWindow:  rootWindow,
	}
	err := c.WithBaseState(func(snap scene.Snapshot) error {
		s, err := encodeScene(snap)
		f.CurrentScene = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(f, "", "  ")
}

// Save writes c to path.
func Save(path string, c *scene.Controller, rootWindow json.RawMessage) error {
	data, err := Marshal(c, rootWindow)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	c.Logger().Info("scene saved", "path", path, "bytes", len(data))
	return nil
}

func encodeScene(snap scene.Snapshot) (SceneSave, error) {
	idx := newIndex(snap.Shapes, snap.Tweens)
	out := SceneSave{
		ZIndexOfHighestShape:    snap.ZIndexOfHighestShape,
		ZIndexOfLowestShape:     snap.ZIndexOfLowestShape,
		NumberOfEachTypeOfShape: snap.Counts,
		AggregateModels: Aggregate{
			Clock:     snap.Clock,
			AllShapes: make([]ShapeSave, 0, len(snap.Shapes)),
			AllTweens: make([]tween.Save, 0, len(snap.Tweens)),
		},
	}
	for _, s := range snap.Shapes {
		saved, err := s.Save()
		if err != nil {
			return out, err
		}
		ss := ShapeSave{Save: saved, TimelineEvents: []EventSave{}}
		for _, e := range snap.Events[s] {
			es, err := idx.encodeEvent(e)
			if err != nil {
				return out, fmt.Errorf("%s: %w", e, err)
			}
			ss.TimelineEvents = append(ss.TimelineEvents, es)
		}
		out.AggregateModels.AllShapes = append(out.AggregateModels.AllShapes, ss)
	}
	for _, tw := range snap.Tweens {
		out.AggregateModels.AllTweens = append(out.AggregateModels.AllTweens, tw.Save(idx.shapes[tw.Shape]))
	}
	return out, nil
}

// Unmarshal decodes a file of any known version. Graphics are decoded
// before it returns, so a Document that comes back is complete.
func Unmarshal(ctx context.Context, data []byte) (*Document, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if err := migrate(raw); err != nil {
		return nil, err
	}
	current, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(current, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	snap, err := decodeScene(f.CurrentScene)
	if err != nil {
		return nil, err
	}
	if err := decodeGraphics(ctx, snap.Shapes); err != nil {
		return nil, err
	}
	return &Document{Settings: f.Settings, Snapshot: snap, RootWindow: f.RootWindow}, nil
}

// Open reads path.
func Open(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Unmarshal(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func decodeScene(s SceneSave) (scene.Snapshot, error) {
	agg := s.AggregateModels
	snap := scene.Snapshot{
		Clock:                agg.Clock,
		ZIndexOfHighestShape: s.ZIndexOfHighestShape,
		ZIndexOfLowestShape:  s.ZIndexOfLowestShape,
		Counts:               s.NumberOfEachTypeOfShape,
		Shapes:               make([]shape.Shape, 0, len(agg.AllShapes)),
		Events:               make(map[shape.Shape][]*timeline.Event, len(agg.AllShapes)),
		Tweens:               make([]*tween.Tween, 0, len(agg.AllTweens)),
	}
	if snap.Counts == nil {
		snap.Counts = map[shape.Kind]int{}
	}
	for i, ss := range agg.AllShapes {
		sh, err := shape.Load(ss.Save)
		if err != nil {
			return snap, fmt.Errorf("%w: shape %d: %w", ErrFormat, i, err)
		}
		snap.Shapes = append(snap.Shapes, sh)
	}
	for i, ts := range agg.AllTweens {
		if ts.Shape < 0 || ts.Shape >= len(snap.Shapes) {
			return snap, fmt.Errorf("%w: tween %d names shape %d of %d", ErrFormat, i, ts.Shape, len(snap.Shapes))
		}
		tw, err := tween.Load(ts, snap.Shapes[ts.Shape])
		if err != nil {
			return snap, fmt.Errorf("%w: tween %d: %w", ErrFormat, i, err)
		}
		snap.Tweens = append(snap.Tweens, tw)
	}

	idx := newIndex(snap.Shapes, snap.Tweens)
	for i, ss := range agg.AllShapes {
		sh := snap.Shapes[i]
		for _, es := range ss.TimelineEvents {
			e, err := idx.decodeEvent(sh, es)
			if err != nil {
				return snap, fmt.Errorf("%w: %q: %w", ErrFormat, ss.Name, err)
			}
			if e != nil {
				snap.Events[sh] = append(snap.Events[sh], e)
			}
		}
	}
	return snap, nil
}

func decodeGraphics(ctx context.Context, shapes []shape.Shape) error {
	g, _ := errgroup.WithContext(ctx)
	for _, s := range shapes {
		gr, ok := s.(*shape.Graphic)
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := gr.Decode(); err != nil {
				return fmt.Errorf("graphic %q: %w", gr.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// index maps shapes and tweens to their positions in the file.
type index struct {
	shapes    map[shape.Shape]int
	tweens    map[*tween.Tween]int
	shapeList []shape.Shape
	tweenList []*tween.Tween
}

func newIndex(shapes []shape.Shape, tweens []*tween.Tween) *index {
	idx := &index{
		shapes:    make(map[shape.Shape]int, len(shapes)),
		tweens:    make(map[*tween.Tween]int, len(tweens)),
		shapeList: shapes,
		tweenList: tweens,
	}
	for i, s := range shapes {
		idx.shapes[s] = i
	}
	for i, tw := range tweens {
		idx.tweens[tw] = i
	}
	return idx
}

func (idx *index) encodeEvent(e *timeline.Event) (EventSave, error) {
	es := EventSave{Type: e.Type.String(), Time: e.Time, Colour: e.Colour}
	switch e.Type {
	case timeline.AttributeChange:
		var err error
		if es.Forward, err = idx.encodeSteps(e.Forward); err != nil {
			return es, err
		}
		if es.Backward, err = idx.encodeSteps(e.Backward); err != nil {
			return es, err
		}
	case timeline.TweenStart, timeline.TweenEnd:
		tw, ok := e.Tween.(*tween.Tween)
		if !ok {
			return es, fmt.Errorf("tween event without a tween")
		}
		i, ok := idx.tweens[tw]
		if !ok {
			return es, fmt.Errorf("tween %s is not in the scene", tw)
		}
		es.Tween = &i
	}
	return es, nil
}

// decodeEvent returns the keyframe es describes, or nil for the events
// the scene derives itself.
func (idx *index) decodeEvent(sh shape.Shape, es EventSave) (*timeline.Event, error) {
	t, err := timeline.ParseEventType(es.Type)
	if err != nil {
		return nil, err
	}
	switch t {
	case timeline.AttributeChange:
	case timeline.TweenStart, timeline.TweenEnd:
		if es.Tween == nil || *es.Tween < 0 || *es.Tween >= len(idx.tweenList) {
			return nil, fmt.Errorf("%s event at %v names no tween", t, es.Time)
		}
		if idx.tweenList[*es.Tween].Shape != sh {
			return nil, fmt.Errorf("%s event at %v names a tween of another shape", t, es.Time)
		}
		return nil, nil
	default:
		return nil, nil
	}

	forward, err := idx.decodeSteps(es.Forward)
	if err != nil {
		return nil, err
	}
	backward, err := idx.decodeSteps(es.Backward)
	if err != nil {
		return nil, err
	}
	e := timeline.NewAttributeChange(sh, es.Time, forward, backward)
	if es.Colour != "" {
		e.Colour = es.Colour
	}
	return e, nil
}
