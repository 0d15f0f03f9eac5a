package stt

import (
	"bytes"
	"encoding/binary"
	"math"
)

// encodeWAV renders mono float samples as a 16-bit PCM RIFF/WAVE file.
func encodeWAV(samples []float32, sampleRate int) []byte {
	const bitsPerSample = 16
	dataLen := len(samples) * 2
	buf := bytes.NewBuffer(make([]byte, 0, 44+dataLen))

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate*bitsPerSample/8))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample/8))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))

	for _, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		_ = binary.Write(buf, binary.LittleEndian, int16(math.Round(v*32767)))
	}
	return buf.Bytes()
}
