// Package playback turns reply text into audible speech through the single
// shared audio output slot. At most one stream is ever audible: starting a
// new one stops whatever was playing first.
package playback

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/payfone/pkg/adapters/tts"
	"github.com/harunnryd/payfone/pkg/audio"
	"github.com/harunnryd/payfone/pkg/logging"
)

// Config tunes the driver. Zero values pick the defaults.
type Config struct {
	// ChunkDuration is the size of PCM slices written to the sink. Playback
	// is paced in real time by chunk length.
	ChunkDuration time.Duration
	// Unpaced disables real-time pacing; used by tests.
	Unpaced bool
}

func (c Config) withDefaults() Config {
	if c.ChunkDuration <= 0 {
		c.ChunkDuration = 100 * time.Millisecond
	}
	return c
}

type Driver struct {
	cfg    Config
	synth  tts.Synthesizer
	sink   audio.Sink
	logger *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	playing bool
	gen     uint64
}

func NewDriver(cfg Config, synth tts.Synthesizer, sink audio.Sink, logger *slog.Logger) *Driver {
	if sink == nil {
		sink = audio.NullSink{}
	}
	return &Driver{
		cfg:    cfg.withDefaults(),
		synth:  synth,
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "playback"),
	}
}

// Speak requests synthesized audio for text scoped to contextKey the voice
// belongs to, then plays it. Any current audio stops first. onAudioStart
// fires exactly once, at the moment playback audibly begins, never at
// request-issue time. onDone fires once the clip has fully drained, failed,
// or been stopped; a clip superseded by a newer Speak fires neither. Empty
// text is a no-op; a synthesis failure is a silent no-op.
func (d *Driver) Speak(text, contextKey string, onAudioStart, onDone func()) {
	if strings.TrimSpace(text) == "" {
		return
	}
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.gen++
	gen := d.gen
	d.playing = false
	d.mu.Unlock()

	go d.run(ctx, gen, text, contextKey, onAudioStart, onDone)
}

// Stop pauses and rewinds the current audio. Idempotent, safe to call when
// nothing is playing.
func (d *Driver) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	wasPlaying := d.playing
	d.playing = false
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wasPlaying {
		d.signal(audio.ControlAudioStop, "stopped")
	}
}

// Playing reports whether audio is currently audible.
func (d *Driver) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

func (d *Driver) run(ctx context.Context, gen uint64, text, contextKey string, onAudioStart, onDone func()) {
	// The speaking flag is reset on every exit path, success or failure.
	// A superseded clip stays silent; its replacement owns the flag.
	defer func() {
		d.mu.Lock()
		current := gen == d.gen
		if current {
			d.playing = false
		}
		d.mu.Unlock()
		if current && onDone != nil {
			onDone()
		}
	}()

	clip, err := d.synth.Synthesize(ctx, text, contextKey)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Warn("synthesis failed",
				slog.String("context", contextKey),
				slog.String("error", err.Error()))
		}
		return
	}
	if len(clip) == 0 || ctx.Err() != nil {
		return
	}

	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.playing = true
	d.mu.Unlock()

	if onAudioStart != nil {
		onAudioStart()
	}
	d.signal(audio.ControlAudioStart, contextKey)

	// Caption frame, so a capturing sink can line speech up with its text.
	tf := audio.NewTextFrame(time.Now().UnixNano(), text, map[string]string{
		audio.MetaSource: "speech",
		audio.MetaNumber: contextKey,
	})
	if err := d.sink.Write(tf); err != nil {
		d.logger.Warn("caption frame failed", slog.String("error", err.Error()))
	}

	rate := d.synth.SampleRate()
	if rate <= 0 {
		rate = audio.DefaultRate
	}
	chunkBytes := int(float64(rate)*d.cfg.ChunkDuration.Seconds()) * 2
	if chunkBytes <= 0 {
		chunkBytes = len(clip)
	}
	for off := 0; off < len(clip); off += chunkBytes {
		if ctx.Err() != nil {
			return
		}
		end := off + chunkBytes
		if end > len(clip) {
			end = len(clip)
		}
		f := audio.NewAudioFrame(time.Now().UnixNano(), clip[off:end], rate, map[string]string{
			audio.MetaSource: "speech",
			audio.MetaNumber: contextKey,
		})
		if err := d.sink.Write(f); err != nil {
			d.logger.Warn("speech playback failed", slog.String("error", err.Error()))
			return
		}
		if !d.cfg.Unpaced {
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.Duration()):
			}
		}
	}
	d.signal(audio.ControlAudioStop, "complete")
}

func (d *Driver) signal(code audio.ControlCode, reason string) {
	f := audio.NewControlFrame(time.Now().UnixNano(), code, map[string]string{
		audio.MetaSource: "speech",
		audio.MetaReason: reason,
	})
	if err := d.sink.Write(f); err != nil {
		d.logger.Warn("playback signal failed", slog.String("error", err.Error()))
	}
}
