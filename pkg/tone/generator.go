package tone

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/payfone/pkg/audio"
	"github.com/harunnryd/payfone/pkg/logging"
)

// Ringback cadence: 440Hz+480Hz mixed, audible and silent phases alternating
// at a fixed period.
const (
	ringLow     = 440.0
	ringHigh    = 480.0
	ringCadence = 2 * time.Second
)

// Generator synthesizes short key-feedback tones and the sustained ringback
// pattern into its own sink. Tone playback is cosmetic: every failure is
// logged and swallowed, never surfaced to the caller.
type Generator struct {
	mu     sync.Mutex
	sink   audio.Sink
	rate   int
	logger *slog.Logger

	ringCancel context.CancelFunc
}

func NewGenerator(sink audio.Sink, rate int, logger *slog.Logger) *Generator {
	if sink == nil {
		sink = audio.NullSink{}
	}
	if rate <= 0 {
		rate = audio.DefaultRate
	}
	return &Generator{
		sink:   sink,
		rate:   rate,
		logger: logging.NewComponentLogger(logger, "tone"),
	}
}

// PlayTone synthesizes one or two simultaneous tones for dur and plays them,
// fire-and-forget. Each invocation renders into a pooled buffer released as
// soon as the sink has taken the frame, so rapid key presses do not leak.
func (g *Generator) PlayTone(freqs []float64, dur time.Duration) {
	if len(freqs) == 0 || dur <= 0 {
		return
	}
	go func() {
		pcm := audio.Render(freqs, dur, g.rate)
		f := audio.NewAudioFrameFromPool(time.Now().UnixNano(), pcm, g.rate, map[string]string{
			audio.MetaSource: "tone",
			audio.MetaTone:   "dtmf",
		})
		if err := g.sink.Write(f); err != nil {
			g.logger.Warn("tone playback failed", slog.String("error", err.Error()))
		}
		audio.ReleaseAudioFrame(f)
	}()
}

// PlayDTMF plays the feedback tone pair for a keypad rune, if it has one.
func (g *Generator) PlayDTMF(key rune, dur time.Duration) {
	if pair, ok := DTMF(key); ok {
		g.PlayTone([]float64{pair[0], pair[1]}, dur)
	}
}

// StartRing begins the indefinite ringback pattern. Calling it while already
// ringing is a no-op.
func (g *Generator) StartRing() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ringCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.ringCancel = cancel

	start := audio.NewControlFrame(time.Now().UnixNano(), audio.ControlRingStart, map[string]string{
		audio.MetaSource:  "ring",
		audio.MetaCadence: ringCadence.String(),
	})
	if err := g.sink.Write(start); err != nil {
		g.logger.Warn("ring start signal failed", slog.String("error", err.Error()))
	}
	go g.ringLoop(ctx)
	g.logger.Debug("ringback started")
}

// StopRing cancels the cadence timer and silences the ring immediately. The
// sink handle persists for the next call. Safe to call when not ringing.
func (g *Generator) StopRing() {
	g.mu.Lock()
	cancel := g.ringCancel
	g.ringCancel = nil
	g.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	stop := audio.NewControlFrame(time.Now().UnixNano(), audio.ControlRingStop, map[string]string{
		audio.MetaSource: "ring",
	})
	if err := g.sink.Write(stop); err != nil {
		g.logger.Warn("ring stop signal failed", slog.String("error", err.Error()))
	}
	g.logger.Debug("ringback stopped")
}

// Ringing reports whether the ringback pattern is active.
func (g *Generator) Ringing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ringCancel != nil
}

func (g *Generator) ringLoop(ctx context.Context) {
	audible := true
	ticker := time.NewTicker(ringCadence)
	defer ticker.Stop()
	for {
		if audible {
			pcm := audio.Render([]float64{ringLow, ringHigh}, ringCadence, g.rate)
			f := audio.NewAudioFrameFromPool(time.Now().UnixNano(), pcm, g.rate, map[string]string{
				audio.MetaSource: "ring",
			})
			if err := g.sink.Write(f); err != nil {
				g.logger.Warn("ring playback failed", slog.String("error", err.Error()))
			}
			audio.ReleaseAudioFrame(f)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			audible = !audible
		}
	}
}
