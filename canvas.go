package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"animterm/internal/geom"
	"animterm/internal/shape"
	"animterm/internal/timeline"
)

var (
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	playheadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	trackStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Canvas maps the scene's coordinate space onto a grid of terminal cells.
type Canvas struct {
	width, height int
	scaleX        float64
	scaleY        float64
	cells         [][]rune
}

func NewCanvas(width, height int, sceneW, sceneH float64) *Canvas {
	c := &Canvas{
		width:  max(width, 1),
		height: max(height, 1),
	}
	c.scaleX = float64(c.width) / math.Max(sceneW, 1)
	c.scaleY = float64(c.height) / math.Max(sceneH, 1)
	c.cells = make([][]rune, c.height)
	for y := range c.cells {
		c.cells[y] = []rune(strings.Repeat(" ", c.width))
	}
	return c
}

func (c *Canvas) cell(p geom.Vec) (int, int) {
	return int(math.Floor(p.X * c.scaleX)), int(math.Floor(p.Y * c.scaleY))
}

func (c *Canvas) isValidPos(x, y int) bool {
	return y >= 0 && y < len(c.cells) && x >= 0 && x < len(c.cells[y])
}

func (c *Canvas) set(x, y int, r rune) {
	if c.isValidPos(x, y) {
		c.cells[y][x] = r
	}
}

// drawLine plots a segment with Bresenham's algorithm.
func (c *Canvas) drawLine(from, to geom.Vec, r rune) {
	x0, y0 := c.cell(from)
	x1, y1 := c.cell(to)
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.set(x0, y0, r)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *Canvas) drawPath(points []geom.Vec, closed bool, r rune) {
	for i := 1; i < len(points); i++ {
		c.drawLine(points[i-1], points[i], r)
	}
	if closed && len(points) > 2 {
		c.drawLine(points[len(points)-1], points[0], r)
	}
	if len(points) == 1 {
		x, y := c.cell(points[0])
		c.set(x, y, r)
	}
}

func (c *Canvas) drawShape(s shape.Shape, selected bool) {
	r := '*'
	if selected {
		r = '#'
	}
	switch v := s.(type) {
	case *shape.Ellipse:
		steps := 48
		points := make([]geom.Vec, steps)
		for i := range points {
			a := 2 * math.Pi * float64(i) / float64(steps)
			p := v.Centre.Add(geom.V(v.Radii.X*math.Cos(a), v.Radii.Y*math.Sin(a)))
			points[i] = geom.RotateAbout(p, v.Rotation, v.Centre)
		}
		c.drawPath(points, true, r)
	case *shape.Polygon:
		c.drawPath(v.Points, true, r)
	case *shape.Drawing:
		c.drawPath(v.Points, false, r)
	case *shape.Text:
		x, y := c.cell(v.Position)
		for i, line := range v.Lines() {
			for j, ch := range []rune(line) {
				c.set(x+j, y+i, ch)
			}
		}
		if selected {
			c.set(x-1, y, '>')
		}
	case *shape.Graphic:
		b := v.Bounds()
		corners := []geom.Vec{b.Min, geom.V(b.Max.X, b.Min.Y), b.Max, geom.V(b.Min.X, b.Max.Y)}
		c.drawPath(corners, true, '▒')
		if selected {
			c.drawPath(corners, true, r)
		}
	}
}

// Render draws shapes back to front and returns one string per row.
func (c *Canvas) Render(shapes []shape.Shape, selected shape.Shape) []string {
	for _, s := range shapes {
		c.drawShape(s, s == selected)
	}
	lines := make([]string, len(c.cells))
	for i, row := range c.cells {
		lines[i] = string(row)
	}
	return lines
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// renderTimeline draws the scene's span with a mark for every event and the
// playhead at the clock.
func renderTimeline(width int, clock, end float64, events []*timeline.Event) string {
	label := fmt.Sprintf(" %6.2fs / %.2fs ", clock, end)
	track := width - len(label) - 2
	if track < timelineTicks || end <= 0 {
		return statusStyle.Render(padRight(label, width))
	}
	cells := []rune(strings.Repeat("─", track))
	for i := 0; i <= timelineTicks; i++ {
		cells[min(track-1, i*(track-1)/timelineTicks)] = '┼'
	}
	for _, e := range events {
		x := int(math.Round(e.Time / end * float64(track-1)))
		if x >= 0 && x < track {
			cells[x] = eventGlyph(e.Type)
		}
	}
	head := int(math.Round(math.Max(clock, 0) / end * float64(track-1)))
	head = max(0, min(track-1, head))

	var b strings.Builder
	b.WriteString(trackStyle.Render("[" + string(cells[:head])))
	b.WriteString(playheadStyle.Render("▼"))
	b.WriteString(trackStyle.Render(string(cells[head+1:]) + "]"))
	b.WriteString(statusStyle.Render(label))
	return b.String()
}

func eventGlyph(t timeline.EventType) rune {
	switch t {
	case timeline.Appearance:
		return '['
	case timeline.Disappearance:
		return ']'
	case timeline.AttributeChange:
		return '◆'
	case timeline.TweenStart:
		return '<'
	case timeline.TweenEnd:
		return '>'
	}
	return '?'
}

func padRight(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
