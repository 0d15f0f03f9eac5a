package orch

import (
	"github.com/OmarNassar1127/ai-transcriber/internal/app"
	"github.com/OmarNassar1127/ai-transcriber/internal/core"
	"github.com/OmarNassar1127/ai-transcriber/internal/domain"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Orchestrator wires the speaker table, the live hub and the gateway.
// All services are owned by the caller and injected here.
type Orchestrator struct {
	Speakers *app.SpeakerRegistry
	Hub      *app.Hub
	Gateway  core.Transcriber
	History  *app.TranscriptLog
}

// Publish broadcasts one transcription from speaker to every live connection.
func (o *Orchestrator) Publish(speaker domain.Speaker, text string, ts json.RawMessage) app.PublishResult {
	ev := core.NewTranscriptionEvent(speaker, text, ts)
	frame, err := core.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode transcription")
		return app.PublishResult{}
	}
	res := o.Hub.Broadcast(frame)
	if o.History != nil {
		o.History.Append(domain.Segment{Speaker: speaker.Name, Text: text, Timestamp: ev.Timestamp})
	}
	log.Info().
		Str("module", "orch").
		Str("speaker", string(speaker.ID)).
		Int("sent_to", res.SendTo).
		Int("dropped", len(res.Dropped)).
		Msg("transcription broadcast")
	return res
}

// SendTo delivers a connection-scoped event; a closed connection is a no-op.
func (o *Orchestrator) SendTo(cid domain.ConnectionID, v any) bool {
	frame, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("conn", string(cid)).Msg("encode event")
		return false
	}
	return o.Hub.SendTo(cid, frame)
}

func (o *Orchestrator) SendError(cid domain.ConnectionID, msg string) bool {
	return o.SendTo(cid, core.NewErrorEvent(msg))
}
