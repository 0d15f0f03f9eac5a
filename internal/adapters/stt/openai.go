package stt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/OmarNassar1127/ai-transcriber/internal/core"
	"github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Language   string
	SampleRate int
}

// OpenAIModel calls an OpenAI-compatible /audio/transcriptions endpoint.
// BaseURL can point at a self-hosted Whisper server.
type OpenAIModel struct {
	client *openai.Client
	cfg    OpenAIConfig
}

func NewOpenAIModel(cfg OpenAIConfig) *OpenAIModel {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(oc), cfg: cfg}
}

func (m *OpenAIModel) Name() string { return "openai:" + m.cfg.Model }

func (m *OpenAIModel) Transcribe(ctx context.Context, samples []float32) (core.Transcription, error) {
	resp, err := m.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    m.cfg.Model,
		FilePath: "chunk.wav",
		Reader:   bytes.NewReader(encodeWAV(samples, m.cfg.SampleRate)),
		Language: m.cfg.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return core.Transcription{}, fmt.Errorf("create transcription: %w", err)
	}

	out := core.Transcription{Text: resp.Text, Language: resp.Language}
	for _, s := range resp.Segments {
		out.Segments = append(out.Segments, core.TranscriptSegment{Text: s.Text, Start: s.Start, End: s.End})
	}
	return out, nil
}
