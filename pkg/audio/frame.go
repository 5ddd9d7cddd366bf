package audio

import (
	"sync"
	"time"
)

type Kind string

const (
	KindAudio   Kind = "audio"
	KindText    Kind = "text"
	KindControl Kind = "control"
)

type ControlCode string

const (
	ControlRingStart  ControlCode = "ring_start"
	ControlRingStop   ControlCode = "ring_stop"
	ControlAudioStart ControlCode = "audio_start"
	ControlAudioStop  ControlCode = "audio_stop"
	ControlHangup     ControlCode = "hangup"
)

// Meta keys shared by all frame producers.
const (
	MetaSource  = "source"
	MetaNumber  = "number"
	MetaReason  = "reason"
	MetaTone    = "tone"
	MetaCadence = "cadence"
)

// Frame is the unit exchanged between the tone generator, the playback
// driver, and whatever sink renders audio for the user.
type Frame interface {
	Kind() Kind
	PTS() int64
	Meta() map[string]string
}

// AudioFrame carries PCM16 little-endian mono samples.
type AudioFrame struct {
	pts    int64
	data   []byte
	rate   int
	meta   map[string]string
	pooled bool
}

func NewAudioFrame(pts int64, data []byte, rate int, meta map[string]string) AudioFrame {
	return AudioFrame{pts: pts, data: data, rate: rate, meta: cloneMeta(meta)}
}

// NewAudioFrameFromPool copies data into a pooled buffer; pass the frame to
// ReleaseAudioFrame once the sink has consumed it.
func NewAudioFrameFromPool(pts int64, data []byte, rate int, meta map[string]string) AudioFrame {
	buf := acquireBuf(len(data))
	copy(buf, data)
	return AudioFrame{pts: pts, data: buf, rate: rate, meta: cloneMeta(meta), pooled: true}
}

func (a AudioFrame) Kind() Kind              { return KindAudio }
func (a AudioFrame) PTS() int64              { return a.pts }
func (a AudioFrame) Meta() map[string]string { return cloneMeta(a.meta) }
func (a AudioFrame) Data() []byte            { return append([]byte(nil), a.data...) }
func (a AudioFrame) RawPayload() []byte      { return a.data }
func (a AudioFrame) Rate() int               { return a.rate }

// Duration reports the playback length of the frame at its sample rate.
func (a AudioFrame) Duration() time.Duration {
	if a.rate <= 0 {
		return 0
	}
	samples := len(a.data) / 2
	return time.Duration(samples) * time.Second / time.Duration(a.rate)
}

func ReleaseAudioFrame(f Frame) bool {
	af, ok := f.(AudioFrame)
	if !ok {
		ap, ok := f.(*AudioFrame)
		if !ok {
			return false
		}
		af = *ap
	}
	if af.pooled {
		releaseBuf(af.data)
		return true
	}
	return false
}

// TextFrame carries display text alongside the audio stream.
type TextFrame struct {
	pts  int64
	text string
	meta map[string]string
}

func NewTextFrame(pts int64, text string, meta map[string]string) TextFrame {
	return TextFrame{pts: pts, text: text, meta: cloneMeta(meta)}
}

func (t TextFrame) Kind() Kind              { return KindText }
func (t TextFrame) PTS() int64              { return t.pts }
func (t TextFrame) Meta() map[string]string { return cloneMeta(t.meta) }
func (t TextFrame) Text() string            { return t.text }

// ControlFrame signals state changes to the sink (ring start/stop, audio
// start/stop, hangup).
type ControlFrame struct {
	pts  int64
	code ControlCode
	meta map[string]string
}

func NewControlFrame(pts int64, code ControlCode, meta map[string]string) ControlFrame {
	return ControlFrame{pts: pts, code: code, meta: cloneMeta(meta)}
}

func (c ControlFrame) Kind() Kind              { return KindControl }
func (c ControlFrame) PTS() int64              { return c.pts }
func (c ControlFrame) Meta() map[string]string { return cloneMeta(c.meta) }
func (c ControlFrame) Code() ControlCode       { return c.code }

var bufPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 4096)
	},
}

func acquireBuf(size int) []byte {
	b := bufPool.Get().([]byte)
	if cap(b) < size {
		return make([]byte, size)
	}
	return b[:size]
}

func releaseBuf(b []byte) {
	bufPool.Put(b[:0])
}

func cloneMeta(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
