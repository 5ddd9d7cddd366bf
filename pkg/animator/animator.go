// Package animator drives named sprite-strip animations by stepping an
// integer frame counter at a fixed rate. Each instance owns at most one
// advancing timer at any time; starting a new play cancels the previous one
// but keeps whatever frame it was showing unless a reset is requested, which
// is what makes interrupt-and-reverse work.
package animator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/payfone/pkg/logging"
)

// FrameLoader fetches and decodes a single frame image ahead of first use.
type FrameLoader func(name string, frame int) error

type Animator struct {
	mu      sync.Mutex
	name    string
	total   int
	fps     int
	frame   int
	playing bool
	gen     uint64
	onFrame func(int)
	logger  *slog.Logger
}

func New(name string, total, fps int, logger *slog.Logger) *Animator {
	if total < 1 {
		total = 1
	}
	if fps <= 0 {
		fps = 15
	}
	return &Animator{
		name:   name,
		total:  total,
		fps:    fps,
		frame:  1,
		logger: logging.NewComponentLogger(logger, "animator"),
	}
}

func (a *Animator) Name() string { return a.name }
func (a *Animator) Total() int   { return a.total }

// OnFrame registers a callback invoked after every frame step. Used by the
// presentation layer to redraw; may be nil.
func (a *Animator) OnFrame(fn func(int)) {
	a.mu.Lock()
	a.onFrame = fn
	a.mu.Unlock()
}

// Frame reports the currently displayed frame.
func (a *Animator) Frame() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frame
}

// Playing reports whether an advancing timer is live.
func (a *Animator) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing
}

// Done reports whether a completed forward play is holding its last frame.
// Whether to keep holding or reset is the caller's decision.
func (a *Animator) Done() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.playing && a.frame == a.total
}

// PlayOnce resets to frame 1 and advances to the last frame, then stops and
// fires onDone. The last frame stays displayed.
func (a *Animator) PlayOnce(onDone func()) {
	a.play(1, a.total, true, onDone)
}

// PlayRange advances (or decrements, when to < from) frame-by-frame from
// `from` toward `to` inclusive, clamping to exactly `to` on completion.
// Restarting while already running cancels the previous timer first.
func (a *Animator) PlayRange(from, to int, onDone func()) {
	a.play(from, to, true, onDone)
}

// Stop cancels any running timer; reset parks the counter back at frame 1,
// otherwise the current frame stays displayed (a mid-range park is a valid
// terminal state).
func (a *Animator) Stop(reset bool) {
	a.mu.Lock()
	a.gen++
	a.playing = false
	if reset {
		a.frame = 1
	}
	a.mu.Unlock()
}

// Preload walks every frame through the loader once, so first playback does
// not stall on decode. Load failures are logged and skipped: a missing frame
// flashes, it does not break the animation.
func (a *Animator) Preload(loader FrameLoader) {
	if loader == nil {
		return
	}
	started := time.Now()
	for i := 1; i <= a.total; i++ {
		if err := loader(a.name, i); err != nil {
			a.logger.Warn("frame preload failed",
				slog.String("animation", a.name),
				slog.Int("frame", i),
				slog.String("error", err.Error()))
		}
	}
	a.logger.Debug("frames preloaded",
		slog.String("animation", a.name),
		slog.Int("total", a.total),
		slog.Duration("took", time.Since(started)))
}

func (a *Animator) play(from, to int, reset bool, onDone func()) {
	from = a.clamp(from)
	to = a.clamp(to)

	a.mu.Lock()
	a.gen++
	gen := a.gen
	if reset {
		a.frame = from
	}
	step := 1
	if to < from {
		step = -1
	}
	if from == to {
		a.frame = to
		a.playing = false
		cb := a.onFrame
		a.mu.Unlock()
		if cb != nil {
			cb(to)
		}
		if onDone != nil {
			onDone()
		}
		return
	}
	a.playing = true
	a.mu.Unlock()

	interval := time.Second / time.Duration(a.fps)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			a.mu.Lock()
			if gen != a.gen {
				a.mu.Unlock()
				return
			}
			a.frame += step
			finished := (step > 0 && a.frame >= to) || (step < 0 && a.frame <= to)
			if finished {
				a.frame = to
				a.playing = false
			}
			frame := a.frame
			cb := a.onFrame
			a.mu.Unlock()

			if cb != nil {
				cb(frame)
			}
			if finished {
				if onDone != nil {
					onDone()
				}
				return
			}
		}
	}()
}

func (a *Animator) clamp(f int) int {
	if f < 1 {
		return 1
	}
	if f > a.total {
		return a.total
	}
	return f
}
