package orch

import (
	"fmt"

	"github.com/OmarNassar1127/ai-transcriber/internal/core"
	"github.com/OmarNassar1127/ai-transcriber/internal/domain"
	"github.com/rs/zerolog/log"
)

// Connect registers a speaker, binds a fresh connection id to it and adds
// the transport to the hub. On failure nothing stays bound or live.
func (o *Orchestrator) Connect(name string, t core.Transport) (domain.ConnectionID, domain.Speaker, error) {
	speaker := o.Speakers.Register(name)
	cid := domain.NewConnectionID()
	o.Speakers.Bind(cid, speaker.ID)
	if err := o.Hub.Register(cid, t); err != nil {
		o.Speakers.Unbind(cid)
		return "", domain.Speaker{}, fmt.Errorf("register connection: %w", err)
	}
	log.Info().Str("module", "orch").Str("conn", string(cid)).Str("speaker", string(speaker.ID)).Str("name", name).Msg("connected")
	return cid, speaker, nil
}

// Disconnect is safe to call more than once.
func (o *Orchestrator) Disconnect(cid domain.ConnectionID) {
	live := o.Hub.Deregister(cid)
	o.Speakers.Unbind(cid)
	if live {
		log.Info().Str("module", "orch").Str("conn", string(cid)).Msg("disconnected")
	}
}
