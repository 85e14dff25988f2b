package scene

import (
	"fmt"

	"animterm/internal/shape"
)

// uniqueName returns want if no other shape has it, otherwise the first free
// "want (n)" for n = 1, 2, ...
func (c *Controller) uniqueName(want string, self shape.Shape) string {
	if owner, taken := c.names[want]; !taken || owner == self {
		return want
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", want, n)
		if owner, taken := c.names[candidate]; !taken || owner == self {
			return candidate
		}
	}
}

// defaultName numbers shapes per kind: "Ellipse 1", "Ellipse 2", ...
func (c *Controller) defaultName(k shape.Kind) string {
	c.counts[k]++
	return fmt.Sprintf("%s %d", k.Title(), c.counts[k])
}

// Counts returns how many shapes of each kind have been created. The numbers
// never go down, so default names are not reused.
func (c *Controller) Counts() map[shape.Kind]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[shape.Kind]int, len(c.counts))
	for k, n := range c.counts {
		out[k] = n
	}
	return out
}

// ZRange returns the highest and lowest z-index handed out so far.
func (c *Controller) ZRange() (high, low float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zHigh, c.zLow
}

func (c *Controller) noteZ(z float64) {
	if z > c.zHigh {
		c.zHigh = z
	}
	if z < c.zLow {
		c.zLow = z
	}
}
