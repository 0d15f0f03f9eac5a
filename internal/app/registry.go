package app

import (
	"sort"
	"sync"

	"github.com/OmarNassar1127/ai-transcriber/internal/domain"
	"github.com/rs/zerolog/log"
)

// SpeakerRegistry maps connections to speaker identities.
// Speakers are append-only for the process lifetime; bindings churn.
type SpeakerRegistry struct {
	mu       sync.RWMutex
	speakers map[domain.SpeakerID]domain.Speaker
	order    []domain.SpeakerID
	bindings map[domain.ConnectionID]domain.SpeakerID
}

func NewSpeakerRegistry() *SpeakerRegistry {
	return &SpeakerRegistry{
		speakers: make(map[domain.SpeakerID]domain.Speaker),
		bindings: make(map[domain.ConnectionID]domain.SpeakerID),
	}
}

func (r *SpeakerRegistry) Register(name string) domain.Speaker {
	s := domain.NewSpeaker(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speakers[s.ID] = s
	r.order = append(r.order, s.ID)
	log.Info().Str("module", "app.registry").Str("speaker", string(s.ID)).Str("name", name).Msg("registered speaker")
	return s
}

func (r *SpeakerRegistry) Lookup(id domain.SpeakerID) (domain.Speaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.speakers[id]
	return s, ok
}

// Bind overwrites any prior binding for cid.
func (r *SpeakerRegistry) Bind(cid domain.ConnectionID, id domain.SpeakerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[cid] = id
	log.Debug().Str("module", "app.registry").Str("conn", string(cid)).Str("speaker", string(id)).Msg("bound connection")
}

func (r *SpeakerRegistry) Unbind(cid domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, cid)
	log.Debug().Str("module", "app.registry").Str("conn", string(cid)).Msg("unbound connection")
}

func (r *SpeakerRegistry) Resolve(cid domain.ConnectionID) (domain.Speaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bindings[cid]
	if !ok {
		return domain.Speaker{}, false
	}
	s, ok := r.speakers[id]
	return s, ok
}

// Speakers returns every registered speaker in registration order.
func (r *SpeakerRegistry) Speakers() []domain.Speaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Speaker, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.speakers[id])
	}
	return out
}

func (r *SpeakerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.speakers)
}

// ActiveSpeakers lists speakers that currently have at least one bound connection.
func (r *SpeakerRegistry) ActiveSpeakers() []domain.Speaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[domain.SpeakerID]struct{}, len(r.bindings))
	out := make([]domain.Speaker, 0, len(r.bindings))
	for _, id := range r.bindings {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r.speakers[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
