package orch

import (
	"context"
	"fmt"

	"github.com/OmarNassar1127/ai-transcriber/internal/core"
	"github.com/OmarNassar1127/ai-transcriber/internal/domain"
	"github.com/rs/zerolog/log"
)

// Transcribe runs the gateway for the speaker bound to cid.
// The caller decides whether to publish; nothing is broadcast here.
func (o *Orchestrator) Transcribe(ctx context.Context, cid domain.ConnectionID, p core.AudioPayload) (domain.Speaker, core.Transcription, error) {
	speaker, ok := o.Speakers.Resolve(cid)
	if !ok {
		return domain.Speaker{}, core.Transcription{}, fmt.Errorf("no speaker bound to connection %s", cid)
	}
	if o.Gateway == nil {
		return speaker, core.Transcription{}, fmt.Errorf("%w: no transcription gateway", core.ErrModelFailure)
	}
	res, err := o.Gateway.Transcribe(ctx, p)
	if err != nil {
		return speaker, core.Transcription{}, err
	}
	log.Debug().
		Str("module", "orch").
		Str("conn", string(cid)).
		Str("language", res.Language).
		Int("segments", len(res.Segments)).
		Msg("transcribed chunk")
	return speaker, res, nil
}
