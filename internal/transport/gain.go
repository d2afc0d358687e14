package transport

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

// Gain is a concurrency-safe [GainControl] backed by an atomic float.
type Gain struct {
	bits atomic.Uint64
}

// NewGain creates a gain set to g.
func NewGain(g float64) *Gain {
	gain := &Gain{}
	gain.SetGain(g)
	return gain
}

func (g *Gain) Gain() float64 {
	return math.Float64frombits(g.bits.Load())
}

func (g *Gain) SetGain(v float64) {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	g.bits.Store(math.Float64bits(v))
}

// ApplyGain scales signed 16-bit little-endian PCM samples in place, clipping at the sample range.
// A trailing odd byte is left untouched.
func ApplyGain(pcm []byte, gain float64) {
	if gain == 1 {
		return
	}

	for i := 0; i+1 < len(pcm); i += 2 {
		sample := float64(int16(binary.LittleEndian.Uint16(pcm[i:])))
		scaled := math.Round(sample * gain)
		switch {
		case scaled > math.MaxInt16:
			scaled = math.MaxInt16
		case scaled < math.MinInt16:
			scaled = math.MinInt16
		}
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(scaled)))
	}
}
