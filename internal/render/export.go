package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fogleman/gg"
	"golang.org/x/sync/errgroup"

	"animterm/internal/shape"
)

// Scene is what an export drives. scene.Controller implements it.
type Scene interface {
	GoToTime(ctx context.Context, t float64) error
	Clock() float64
	EndTime() float64
	DisplayShapes() []shape.Shape
}

// FrameName is the file name of frame i out of n.
func FrameName(i, n int) string {
	width := len(fmt.Sprint(max(n-1, 0)))
	return fmt.Sprintf("frame_%0*d.png", width, i)
}

// FrameCount is the number of frames covering [0, end] at fps.
func FrameCount(end float64, fps int) int {
	if fps <= 0 || end < 0 {
		return 0
	}
	return int(math.Floor(end*float64(fps)+1e-9)) + 1
}

// SaveFrame renders the shapes sc displays now to path.
func (r *Renderer) SaveFrame(path string, sc Scene) error {
	img, err := r.Frame(sc.DisplayShapes())
	if err != nil {
		return err
	}
	return gg.SavePNG(path, img)
}

// ExportFrames writes one PNG per frame into dir and returns how many it
// wrote. Frames are drawn in order, since drawing moves the clock, and
// encoded concurrently. The clock is put back afterwards.
func (r *Renderer) ExportFrames(ctx context.Context, sc Scene, dir string, fps int) (n int, err error) {
	n = FrameCount(sc.EndTime(), fps)
	if n == 0 {
		return 0, fmt.Errorf("export: %d fps", fps)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	saved := sc.Clock()
	defer func() {
		err = errors.Join(err, sc.GoToTime(context.WithoutCancel(ctx), saved))
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0) + 1)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		t := min(float64(i)/float64(fps), sc.EndTime())
		if err := sc.GoToTime(gctx, t); err != nil {
			g.Go(func() error { return err })
			break
		}
		img, err := r.Frame(sc.DisplayShapes())
		if err != nil {
			g.Go(func() error { return fmt.Errorf("frame %d: %w", i, err) })
			break
		}
		path := filepath.Join(dir, FrameName(i, n))
		g.Go(func() error {
			if err := gg.SavePNG(path, img); err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return n, nil
}
