package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/OmarNassar1127/ai-transcriber/internal/core"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

func (s *session) handleFrame(ctx context.Context, data []byte) {
	var in inboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		log.Debug().Err(err).Str("module", "session").Str("conn", string(s.cid)).Msg("bad json")
		s.sendError(msgInvalidJSON)
		return
	}

	switch in.Type {
	case typeHeartbeat:
		s.handleHeartbeat()
	case typeAudio:
		s.handleAudio(ctx, in)
	case "":
		s.sendError(msgMissingType)
	default:
		log.Warn().Str("module", "session").Str("conn", string(s.cid)).Str("type", in.Type).Msg("unsupported message type")
		s.sendError(fmt.Sprintf(msgUnsupportedType, in.Type))
	}
}

func (s *session) handleHeartbeat() {
	s.ctl.Orch.SendTo(s.cid, core.NewHeartbeatEvent())
}

func (s *session) handleAudio(ctx context.Context, in inboundFrame) {
	if !s.ctl.limiter.Allow(s.cid) {
		s.sendError(msgRateLimited)
		return
	}

	// a literal phrase wins over audio
	if text, ok := in.phrase(); ok {
		speaker, bound := s.ctl.Orch.Speakers.Resolve(s.cid)
		if !bound {
			return
		}
		s.ctl.Orch.Publish(speaker, text, in.Timestamp)
		return
	}

	if !in.hasAudio() {
		s.sendError(msgMissingPayload)
		return
	}
	data, err := decodeAudio(in.Audio)
	if err != nil {
		s.sendError(fmt.Sprintf(msgAudioError, err))
		return
	}
	enc, err := parseEncoding(in.Encoding)
	if err != nil {
		s.sendError(fmt.Sprintf(msgAudioError, err))
		return
	}

	speaker, res, err := s.ctl.Orch.Transcribe(ctx, s.cid, core.AudioPayload{Data: data, Encoding: enc})
	if ctx.Err() != nil {
		// closed while the gateway was busy
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "session").Str("conn", string(s.cid)).Msg("transcription failed")
		s.sendError(fmt.Sprintf(msgAudioError, err))
		return
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		log.Debug().Str("module", "session").Str("conn", string(s.cid)).Msg("no speech in chunk")
		return
	}
	s.ctl.Orch.Publish(speaker, text, in.Timestamp)
}

func (s *session) sendError(msg string) {
	s.ctl.Orch.SendError(s.cid, msg)
}
