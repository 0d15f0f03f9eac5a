package core

//go:generate mockgen -source=transcriber.go -destination=mocks/mock_transcriber.go -package=mocks

import (
	"context"
	"errors"
)

var (
	ErrInvalidPayload = errors.New("invalid audio payload")
	ErrEmptyAudio     = errors.New("empty audio")
	ErrModelFailure   = errors.New("model failure")
)

// Encoding declares the sample layout of an audio payload.
type Encoding string

const (
	EncodingFloat32 Encoding = "float32"
	EncodingPCM16LE Encoding = "pcm16"
)

// SampleWidth returns bytes per sample, or 0 for an unknown encoding.
func (e Encoding) SampleWidth() int {
	switch e {
	case EncodingFloat32:
		return 4
	case EncodingPCM16LE:
		return 2
	}
	return 0
}

type AudioPayload struct {
	Data     []byte
	Encoding Encoding
}

type TranscriptSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type Transcription struct {
	Text     string              `json:"text"`
	Segments []TranscriptSegment `json:"segments,omitempty"`
	Language string              `json:"language,omitempty"`
}

// Transcriber is the speech-to-text gateway.
// Failures wrap ErrInvalidPayload, ErrEmptyAudio or ErrModelFailure.
type Transcriber interface {
	Transcribe(ctx context.Context, payload AudioPayload) (Transcription, error)
}
