// Package stt implements the speech-to-text gateway behind core.Transcriber.
package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OmarNassar1127/ai-transcriber/internal/core"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Model is the opaque inference function: samples in, text out.
type Model interface {
	Name() string
	Transcribe(ctx context.Context, samples []float32) (core.Transcription, error)
}

// Gateway validates and normalises payloads, caps concurrent inference
// and maps model faults to core.ErrModelFailure.
type Gateway struct {
	model   Model
	sem     *semaphore.Weighted
	timeout time.Duration
}

type GatewayOptions struct {
	MaxConcurrent int
	Timeout       time.Duration
}

func NewGateway(model Model, opts GatewayOptions) *Gateway {
	n := opts.MaxConcurrent
	if n <= 0 {
		n = 1
	}
	return &Gateway{model: model, sem: semaphore.NewWeighted(int64(n)), timeout: opts.Timeout}
}

func (g *Gateway) Transcribe(ctx context.Context, p core.AudioPayload) (core.Transcription, error) {
	samples, err := DecodeSamples(p)
	if err != nil {
		return core.Transcription{}, err
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return core.Transcription{}, err
	}
	defer g.sem.Release(1)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := g.model.Transcribe(ctx, samples)
	logger := log.With().Str("module", "stt").Str("model", g.model.Name()).Int("samples", len(samples)).Dur("took", time.Since(start)).Logger()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return core.Transcription{}, err
		}
		logger.Error().Err(err).Msg("inference failed")
		if errors.Is(err, core.ErrModelFailure) {
			return core.Transcription{}, err
		}
		return core.Transcription{}, fmt.Errorf("%w: %v", core.ErrModelFailure, err)
	}
	res.Text = strings.TrimSpace(res.Text)
	if res.Language == "" {
		res.Language = "en"
	}
	logger.Debug().Int("chars", len(res.Text)).Msg("inference done")
	return res, nil
}

// Disabled is used when no backend is configured; every call fails.
type Disabled struct{}

func (Disabled) Name() string { return "disabled" }

func (Disabled) Transcribe(context.Context, []float32) (core.Transcription, error) {
	return core.Transcription{}, fmt.Errorf("%w: no transcription backend configured", core.ErrModelFailure)
}
