package stt

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/OmarNassar1127/ai-transcriber/internal/core"
)

// DecodeSamples turns a payload into mono samples in [-1, 1].
// pcm16 is divided by 32768; float32 is rescaled by its peak when the peak exceeds 1.
func DecodeSamples(p core.AudioPayload) ([]float32, error) {
	width := p.Encoding.SampleWidth()
	if width == 0 {
		return nil, fmt.Errorf("%w: unknown encoding %q", core.ErrInvalidPayload, p.Encoding)
	}
	if len(p.Data) == 0 {
		return nil, core.ErrEmptyAudio
	}
	if len(p.Data)%width != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", core.ErrInvalidPayload, len(p.Data), width)
	}

	n := len(p.Data) / width
	out := make([]float32, n)
	switch p.Encoding {
	case core.EncodingPCM16LE:
		for i := 0; i < n; i++ {
			s := int16(binary.LittleEndian.Uint16(p.Data[i*2:]))
			out[i] = float32(s) / 32768
		}
	case core.EncodingFloat32:
		var peak float64
		for i := 0; i < n; i++ {
			v := math.Float32frombits(binary.LittleEndian.Uint32(p.Data[i*4:]))
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return nil, fmt.Errorf("%w: non-finite sample at %d", core.ErrInvalidPayload, i)
			}
			out[i] = v
			if a := math.Abs(float64(v)); a > peak {
				peak = a
			}
		}
		if peak > 1 {
			for i := range out {
				out[i] = float32(float64(out[i]) / peak)
			}
		}
	}
	return out, nil
}
