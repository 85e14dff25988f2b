// Package playback advances a scene's clock in real time.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"animterm/internal/config"
)

// Scene is the clock the player drives.
type Scene interface {
	GoToTime(ctx context.Context, t float64) error
	Clock() float64
	EndTime() float64
}

// Guard is told when playback starts and stops, so edits can be refused
// meanwhile. history.Manager implements it.
type Guard interface {
	Play() error
	Pause() error
}

// Scheduler runs fn once after d. The returned function cancels it.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
}

// TimerScheduler schedules frames with time.AfterFunc.
type TimerScheduler struct{}

func (TimerScheduler) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

type Player struct {
	mu    sync.Mutex
	scene Scene
	guard Guard
	cfg   config.Config
	log   *slog.Logger
	sched Scheduler
	now   func() time.Time

	playing bool
	last    time.Time
	cancel  func()
	// gen changes on every start and stop so a frame scheduled before
	// either is ignored.
	gen int
}

type Option func(*Player)

// WithScheduler makes the player schedule its own frames. Without one the
// caller drives playback by calling Tick.
func WithScheduler(s Scheduler) Option {
	return func(p *Player) { p.sched = s }
}

func WithNow(now func() time.Time) Option {
	return func(p *Player) { p.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Player) { p.log = l }
}

func New(scene Scene, guard Guard, cfg config.Config, opts ...Option) *Player {
	p := &Player{
		scene: scene,
		guard: guard,
		cfg:   cfg,
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// FrameInterval is the time between frames at the configured rate.
func (p *Player) FrameInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Second / time.Duration(max(p.cfg.FPS, 1))
}

func (p *Player) SetConfig(cfg config.Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Start begins playback from the current clock. Starting while playing does
// nothing.
func (p *Player) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return nil
	}
	if p.guard != nil {
		if err := p.guard.Play(); err != nil {
			return err
		}
	}
	p.playing = true
	p.last = p.now()
	p.gen++
	p.schedule(ctx)
	p.log.Debug("playback started", "clock", p.scene.Clock())
	return nil
}

// Stop ends playback and cancels the pending frame. Stopping a stopped
// player does nothing.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return nil
	}
	p.playing = false
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.log.Debug("playback stopped")
	if p.guard != nil {
		return p.guard.Pause()
	}
	return nil
}

func (p *Player) Toggle(ctx context.Context) error {
	if p.Playing() {
		return p.Stop()
	}
	return p.Start(ctx)
}

// Tick advances the clock by the wall time since the previous frame. Past
// the end it wraps to the start when looping, going back through 0 so every
// event is undone, or stops at the end otherwise.
func (p *Player) Tick(ctx context.Context) error {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return nil
	}
	now := p.now()
	elapsed := now.Sub(p.last)
	p.last = now
	gen := p.gen
	loop := p.cfg.Loop
	p.mu.Unlock()

	end := p.scene.EndTime()
	t := p.scene.Clock() + elapsed.Seconds()
	var (
		err  error
		stop bool
	)
	switch {
	case t <= end:
		err = p.scene.GoToTime(ctx, t)
	case loop:
		if err = p.scene.GoToTime(ctx, 0); err == nil {
			err = p.scene.GoToTime(ctx, math.Mod(t, end))
		}
	default:
		err = p.scene.GoToTime(ctx, end)
		stop = true
	}
	if err != nil {
		p.log.Error("playback frame failed", "err", err)
		stop = true
	}
	if stop {
		return errors.Join(err, p.stopIf(gen))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing && p.gen == gen {
		p.schedule(ctx)
	}
	return nil
}

// stopIf stops playback unless it was restarted since gen.
func (p *Player) stopIf(gen int) error {
	p.mu.Lock()
	current := p.gen == gen
	p.mu.Unlock()
	if !current {
		return nil
	}
	return p.Stop()
}

func (p *Player) schedule(ctx context.Context) {
	if p.sched == nil {
		return
	}
	interval := time.Second / time.Duration(max(p.cfg.FPS, 1))
	p.cancel = p.sched.After(interval, func() {
		if err := p.Tick(ctx); err != nil {
			p.log.Error("playback stopped on error", "err", err)
		}
	})
}
