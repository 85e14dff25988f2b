package shape

import (
	"fmt"
	"math"
	"strings"

	"animterm/internal/geom"
)

const (
	AttrText     = "text"
	AttrFontSize = "fontSize"
)

// Approximate advance and line height of the monospace face, in ems.
const (
	glyphAdvance = 0.6
	lineHeight   = 1.2
)

type Text struct {
	Base  `json:"-"`
	Style `json:"style"`

	// Position is the top-left corner of the first line.
	Position geom.Vec `json:"position"`
	Content  string   `json:"content"`
	FontSize float64  `json:"fontSize"`
	Rotation float64  `json:"rotation"`

	bounds geom.Rect
}

func NewText(content string, position geom.Vec) *Text {
	style := DefaultStyle()
	style.Fill = "#000000"
	style.Stroke = ""
	t := &Text{Style: style, Position: position, Content: content, FontSize: 16}
	t.UpdateGeometry()
	return t
}

func (t *Text) Kind() Kind { return KindText }

func (t *Text) Lines() []string {
	return strings.Split(t.Content, "\n")
}

func (t *Text) Translate(d geom.Vec) {
	t.Position = t.Position.Add(d)
}

func (t *Text) Rotate(degrees float64, about geom.Vec) {
	t.Position = geom.RotateAbout(t.Position, degrees, about)
	t.Rotation += degrees
}

func (t *Text) Scale(factor float64, about geom.Vec) {
	t.Position = geom.ScaleAbout(t.Position, factor, about)
	t.FontSize *= math.Abs(factor)
}

func (t *Text) UpdateGeometry() {
	lines := t.Lines()
	longest := 0
	for _, l := range lines {
		longest = max(longest, len([]rune(l)))
	}
	box := geom.Rect{
		Min: t.Position,
		Max: t.Position.Add(geom.V(
			float64(longest)*t.FontSize*glyphAdvance,
			float64(len(lines))*t.FontSize*lineHeight,
		)),
	}
	corners := box.Corners()
	for i := range corners {
		corners[i] = geom.RotateAbout(corners[i], t.Rotation, t.Position)
	}
	t.bounds = geom.Bounds(corners...)
}

func (t *Text) Bounds() geom.Rect { return t.bounds }

func (t *Text) Copy() (Shape, error) {
	c, err := deepCopy(t)
	if err != nil {
		return nil, err
	}
	c.UpdateGeometry()
	return c, nil
}

func (t *Text) Attribute(name string) (any, error) {
	switch name {
	case AttrText:
		return t.Content, nil
	case AttrFontSize:
		return t.FontSize, nil
	}
	if v, ok := t.Style.attribute(name); ok {
		return v, nil
	}
	return t.Base.attribute(name)
}

func (t *Text) SetAttribute(name string, value any) (any, error) {
	switch name {
	case AttrText:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: text must be a string", ErrInvalidValue)
		}
		prev := t.Content
		t.Content = s
		return prev, nil
	case AttrFontSize:
		f, err := toFloat(value)
		if err != nil {
			return nil, err
		}
		if f <= 0 {
			return nil, fmt.Errorf("%w: font size %v must be positive", ErrInvalidValue, f)
		}
		prev := t.FontSize
		t.FontSize = f
		return prev, nil
	}
	if prev, ok, err := t.Style.setAttribute(name, value); ok {
		return prev, err
	}
	return t.Base.setAttribute(name, value)
}

func (t *Text) Save() (Save, error) {
	return saveWith(KindText, &t.Base, t)
}
