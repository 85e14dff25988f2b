package shape

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

const (
	AttrFill        = "fill"
	AttrStroke      = "stroke"
	AttrStrokeWidth = "strokeWidth"
	AttrOpacity     = "opacity"
)

// Style is the paint shared by the vector kinds. An empty colour means
// no paint.
type Style struct {
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Opacity     float64 `json:"opacity"`
}

func DefaultStyle() Style {
	return Style{Fill: "#4a90d9", Stroke: "#000000", StrokeWidth: 1, Opacity: 1}
}

func (s *Style) attribute(name string) (any, bool) {
	switch name {
	case AttrFill:
		return s.Fill, true
	case AttrStroke:
		return s.Stroke, true
	case AttrStrokeWidth:
		return s.StrokeWidth, true
	case AttrOpacity:
		return s.Opacity, true
	}
	return nil, false
}

func (s *Style) setAttribute(name string, value any) (any, bool, error) {
	prev, ok := s.attribute(name)
	if !ok {
		return nil, false, nil
	}
	switch name {
	case AttrFill, AttrStroke:
		c, ok := value.(string)
		if !ok {
			return nil, true, fmt.Errorf("%w: %s must be a colour string", ErrInvalidValue, name)
		}
		if _, err := ParseColour(c); err != nil {
			return nil, true, err
		}
		if name == AttrFill {
			s.Fill = c
		} else {
			s.Stroke = c
		}
	case AttrStrokeWidth:
		f, err := toFloat(value)
		if err != nil {
			return nil, true, err
		}
		if f < 0 {
			return nil, true, fmt.Errorf("%w: stroke width %v is negative", ErrInvalidValue, f)
		}
		s.StrokeWidth = f
	case AttrOpacity:
		f, err := toFloat(value)
		if err != nil {
			return nil, true, err
		}
		if f < 0 || f > 1 {
			return nil, true, fmt.Errorf("%w: opacity %v outside [0, 1]", ErrInvalidValue, f)
		}
		s.Opacity = f
	}
	return prev, true, nil
}

// ParseColour parses "#rgb", "#rrggbb" or "#rrggbbaa". The empty string and
// "none" parse to a fully transparent colour.
func ParseColour(s string) (color.NRGBA, error) {
	if s == "" || s == "none" {
		return color.NRGBA{}, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 || !strings.HasPrefix(s, "#") {
		return color.NRGBA{}, fmt.Errorf("%w: colour %q", ErrInvalidValue, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: colour %q", ErrInvalidValue, s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
