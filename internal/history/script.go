package history

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"animterm/internal/geom"
	"animterm/internal/ops"
	"animterm/internal/shape"
)

var ErrScript = errors.New("script error")

// Shapes resolves the shape names a script refers to.
type Shapes interface {
	ShapeByName(name string) (shape.Shape, bool)
}

// ParseScript reads one action per line, steps separated by ";". A step is
// an operation name followed by operands:
//
//	@Name or @"Two words"   a shape
//	3,4                     a vector
//	0,0|4,0|2,3             a list of points
//	2.5                     a number
//	"text"                  a string
//	true, false             a boolean
//
// Blank lines and lines starting with # are skipped. Attribute aliases such
// as fill or strokeWidth become shapeAttributeUpdate.
func ParseScript(text string, shapes Shapes) ([][]ops.Step, error) {
	var script [][]ops.Step
	sc := bufio.NewScanner(strings.NewReader(text))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var action []ops.Step
		for _, part := range splitOutsideQuotes(line, ';') {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			step, err := parseStep(part, shapes)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrScript, n, err)
			}
			action = append(action, step)
		}
		if len(action) > 0 {
			script = append(script, action)
		}
	}
	return script, sc.Err()
}

func parseStep(text string, shapes Shapes) (ops.Step, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return ops.Step{}, err
	}
	args := make([]any, 0, len(tokens)-1)
	for _, tok := range tokens[1:] {
		v, err := operand(tok, shapes)
		if err != nil {
			return ops.Step{}, err
		}
		args = append(args, v)
	}
	return ops.ParseStep(tokens[0], args...)
}

func operand(tok string, shapes Shapes) (any, error) {
	switch {
	case strings.HasPrefix(tok, "@"):
		name := tok[1:]
		if strings.HasPrefix(name, `"`) {
			unquoted, err := strconv.Unquote(name)
			if err != nil {
				return nil, fmt.Errorf("shape name %s: %w", name, err)
			}
			name = unquoted
		}
		s, ok := shapes.ShapeByName(name)
		if !ok {
			return nil, fmt.Errorf("no shape named %q", name)
		}
		return s, nil
	case strings.HasPrefix(tok, `"`):
		return strconv.Unquote(tok)
	case tok == "true" || tok == "false":
		return tok == "true", nil
	case strings.Contains(tok, "|"):
		var points []geom.Vec
		for _, p := range strings.Split(tok, "|") {
			v, err := vector(p)
			if err != nil {
				return nil, err
			}
			points = append(points, v)
		}
		return points, nil
	case strings.Contains(tok, ","):
		return vector(tok)
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return f, nil
	}
	return tok, nil
}

func vector(tok string) (geom.Vec, error) {
	x, y, _ := strings.Cut(tok, ",")
	fx, errX := strconv.ParseFloat(x, 64)
	fy, errY := strconv.ParseFloat(y, 64)
	if errX != nil || errY != nil {
		return geom.Vec{}, fmt.Errorf("bad vector %q", tok)
	}
	return geom.V(fx, fy), nil
}

// tokenize splits on spaces, keeping double-quoted runs together.
func tokenize(text string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		quoted  bool
		escaped bool
	)
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for _, r := range text {
		switch {
		case escaped:
			escaped = false
			current.WriteRune(r)
		case quoted && r == '\\':
			escaped = true
			current.WriteRune(r)
		case r == '"':
			quoted = !quoted
			current.WriteRune(r)
		case !quoted && (r == ' ' || r == '\t'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	if quoted {
		return nil, errors.New("unterminated string")
	}
	flush()
	if len(tokens) == 0 {
		return nil, errors.New("empty step")
	}
	return tokens, nil
}

func splitOutsideQuotes(s string, sep rune) []string {
	var (
		parts  []string
		start  int
		quoted bool
		prev   rune
	)
	for i, r := range s {
		switch {
		case r == '"' && prev != '\\':
			quoted = !quoted
		case r == sep && !quoted:
			parts = append(parts, s[start:i])
			start = i + len(string(sep))
		}
		prev = r
	}
	return append(parts, s[start:])
}
