// Package shape holds the drawable entities of a scene. The scene engine only
// relies on the Shape capability set; geometry stays private to each kind.
package shape

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jinzhu/copier"

	"animterm/internal/geom"
)

var (
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrInvalidValue     = errors.New("invalid attribute value")
	ErrUnknownKind      = errors.New("unknown shape type")
)

type Kind string

const (
	KindDrawing Kind = "drawing"
	KindEllipse Kind = "ellipse"
	KindGraphic Kind = "graphic"
	KindPolygon Kind = "polygon"
	KindText    Kind = "text"
)

// Kinds lists every shape kind in a stable order.
var Kinds = []Kind{KindDrawing, KindEllipse, KindGraphic, KindPolygon, KindText}

// Title is the prefix used for default shape names, e.g. "Ellipse 3".
func (k Kind) Title() string {
	switch k {
	case KindDrawing:
		return "Drawing"
	case KindEllipse:
		return "Ellipse"
	case KindGraphic:
		return "Graphic"
	case KindPolygon:
		return "Polygon"
	case KindText:
		return "Text"
	}
	return string(k)
}

// Shape is the capability contract the scene engine needs. Mutations are
// relative: Translate, Rotate and Scale move the shape from wherever it is.
type Shape interface {
	Kind() Kind
	Common() *Base
	Translate(d geom.Vec)
	// Rotate turns the shape by degrees around about.
	Rotate(degrees float64, about geom.Vec)
	// Scale resizes the shape by factor with about as the fixed point.
	Scale(factor float64, about geom.Vec)
	// UpdateGeometry recomputes derived data such as Bounds after a mutation.
	UpdateGeometry()
	// Geometry snapshots what Translate, Rotate and Scale change, and
	// SetGeometry puts a snapshot back.
	Geometry() Geometry
	SetGeometry(g Geometry) error
	Bounds() geom.Rect
	Copy() (Shape, error)
	Attribute(name string) (any, error)
	// SetAttribute sets a named attribute and returns its previous value.
	SetAttribute(name string, value any) (any, error)
	Save() (Save, error)
}

// Base carries the attributes the scene engine owns for every shape.
type Base struct {
	Name              string
	Directory         *string
	ZIndex            float64
	AppearanceTime    float64
	DisappearanceTime float64
}

func (b *Base) Common() *Base {
	return b
}

// Attribute names understood by Base.
const (
	AttrName      = "name"
	AttrDirectory = "directory"
)

func (b *Base) attribute(name string) (any, error) {
	switch name {
	case AttrName:
		return b.Name, nil
	case AttrDirectory:
		if b.Directory == nil {
			return nil, nil
		}
		return *b.Directory, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
}

func (b *Base) setAttribute(name string, value any) (any, error) {
	prev, err := b.attribute(name)
	if err != nil {
		return nil, err
	}
	switch name {
	case AttrName:
		s, ok := value.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("%w: name must be a non-empty string", ErrInvalidValue)
		}
		b.Name = s
	case AttrDirectory:
		if value == nil {
			b.Directory = nil
			break
		}
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: directory must be a string or null", ErrInvalidValue)
		}
		b.Directory = &s
	}
	return prev, nil
}

// Save is the serialized form of a shape. Data holds the kind-specific
// geometry and style.
type Save struct {
	ShapeType         Kind            `json:"shapeType"`
	Name              string          `json:"name"`
	Directory         *string         `json:"directory"`
	ZIndex            float64         `json:"ZIndex"`
	AppearanceTime    float64         `json:"appearanceTime"`
	DisappearanceTime float64         `json:"disappearanceTime"`
	Data              json.RawMessage `json:"data"`
}

func saveWith(kind Kind, b *Base, data any) (Save, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Save{}, fmt.Errorf("encoding %s %q: %w", kind, b.Name, err)
	}
	return Save{
		ShapeType:         kind,
		Name:              b.Name,
		Directory:         b.Directory,
		ZIndex:            b.ZIndex,
		AppearanceTime:    b.AppearanceTime,
		DisappearanceTime: b.DisappearanceTime,
		Data:              raw,
	}, nil
}

var loaders = map[Kind]func(data json.RawMessage) (Shape, error){
	KindDrawing: func(data json.RawMessage) (Shape, error) { return loadInto(data, &Drawing{}) },
	KindEllipse: func(data json.RawMessage) (Shape, error) { return loadInto(data, &Ellipse{}) },
	KindGraphic: func(data json.RawMessage) (Shape, error) { return loadInto(data, &Graphic{}) },
	KindPolygon: func(data json.RawMessage) (Shape, error) { return loadInto(data, &Polygon{}) },
	KindText:    func(data json.RawMessage) (Shape, error) { return loadInto(data, &Text{}) },
}

func loadInto(data json.RawMessage, s Shape) (Shape, error) {
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Load rebuilds a shape from its Save. Graphics come back undecoded; call
// (*Graphic).Decode before drawing them.
func Load(s Save) (Shape, error) {
	load, ok := loaders[s.ShapeType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, s.ShapeType)
	}
	sh, err := load(s.Data)
	if err != nil {
		return nil, fmt.Errorf("loading %s %q: %w", s.ShapeType, s.Name, err)
	}
	b := sh.Common()
	b.Name = s.Name
	b.Directory = s.Directory
	b.ZIndex = s.ZIndex
	b.AppearanceTime = s.AppearanceTime
	b.DisappearanceTime = s.DisappearanceTime
	sh.UpdateGeometry()
	return sh, nil
}

func deepCopy[T any](src *T) (*T, error) {
	dst := new(T)
	if err := copier.CopyWithOption(dst, src, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}
	return dst, nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	}
	return 0, fmt.Errorf("%w: %v is not a number", ErrInvalidValue, value)
}
