package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// DefaultRate is the sample rate used for locally synthesized tones.
const DefaultRate = 8000

// Render synthesizes the given frequencies mixed together for dur at rate,
// as PCM16 little-endian mono. A short linear ramp is applied at both ends
// so tones do not click when they start and stop.
func Render(freqs []float64, dur time.Duration, rate int) []byte {
	if rate <= 0 {
		rate = DefaultRate
	}
	n := int(float64(rate) * dur.Seconds())
	if n <= 0 || len(freqs) == 0 {
		return nil
	}
	ramp := rate / 100 // 10ms
	if ramp*2 > n {
		ramp = n / 2
	}
	amp := 0.8 / float64(len(freqs))
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(rate)
		var v float64
		for _, f := range freqs {
			v += math.Sin(2 * math.Pi * f * t)
		}
		v *= amp
		if ramp > 0 {
			if i < ramp {
				v *= float64(i) / float64(ramp)
			} else if n-i <= ramp {
				v *= float64(n-i) / float64(ramp)
			}
		}
		sample := int16(v * math.MaxInt16)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}

// Silence produces a zeroed PCM16 buffer of the given duration.
func Silence(dur time.Duration, rate int) []byte {
	if rate <= 0 {
		rate = DefaultRate
	}
	n := int(float64(rate) * dur.Seconds())
	if n <= 0 {
		return nil
	}
	return make([]byte, n*2)
}
