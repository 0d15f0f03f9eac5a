package app

import (
	"errors"
	"maps"
	"sync"

	"github.com/OmarNassar1127/ai-transcriber/internal/core"
	"github.com/OmarNassar1127/ai-transcriber/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrConnectionExists = errors.New("connection already registered")

// PublishResult reports delivery stats for one broadcast.
type PublishResult struct {
	SendTo  int
	Dropped []domain.ConnectionID
}

// Hub owns the set of live transports.
// It never closes a transport it did not demote.
type Hub struct {
	mu    sync.RWMutex
	conns map[domain.ConnectionID]core.Transport
}

func NewHub() *Hub {
	return &Hub{conns: make(map[domain.ConnectionID]core.Transport)}
}

func (h *Hub) Register(cid domain.ConnectionID, t core.Transport) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[cid]; ok {
		return ErrConnectionExists
	}
	h.conns[cid] = t
	log.Info().Str("module", "app.hub").Str("conn", string(cid)).Int("live", len(h.conns)).Msg("connection registered")
	return nil
}

// Deregister is idempotent. It reports whether cid was live.
func (h *Hub) Deregister(cid domain.ConnectionID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[cid]; !ok {
		return false
	}
	delete(h.conns, cid)
	log.Info().Str("module", "app.hub").Str("conn", string(cid)).Int("live", len(h.conns)).Msg("connection deregistered")
	return true
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) IsLive(cid domain.ConnectionID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[cid]
	return ok
}

// Broadcast delivers f to every transport live at call time.
// A failed transport is deregistered and closed; the rest still receive f.
func (h *Hub) Broadcast(f core.Frame) PublishResult {
	h.mu.RLock()
	snapshot := make(map[domain.ConnectionID]core.Transport, len(h.conns))
	maps.Copy(snapshot, h.conns)
	h.mu.RUnlock()

	res := PublishResult{}
	for cid, t := range snapshot {
		if err := t.TrySend(f); err != nil {
			log.Warn().Err(err).Str("module", "app.hub").Str("conn", string(cid)).Msg("broadcast send failed, dropping connection")
			res.Dropped = append(res.Dropped, cid)
			continue
		}
		res.SendTo++
	}

	// Demotion happens outside the read lock.
	for _, cid := range res.Dropped {
		h.drop(cid, snapshot[cid])
	}
	log.Debug().Str("module", "app.hub").Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// SendTo is a unicast. Absence of cid is not an error.
func (h *Hub) SendTo(cid domain.ConnectionID, f core.Frame) bool {
	h.mu.RLock()
	t, ok := h.conns[cid]
	h.mu.RUnlock()
	if !ok {
		log.Debug().Str("module", "app.hub").Str("conn", string(cid)).Msg("sendTo: connection not live")
		return false
	}
	if err := t.TrySend(f); err != nil {
		log.Warn().Err(err).Str("module", "app.hub").Str("conn", string(cid)).Msg("sendTo failed, dropping connection")
		h.drop(cid, t)
		return false
	}
	return true
}

// CloseAll closes every live transport; used at shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	snapshot := h.conns
	h.conns = make(map[domain.ConnectionID]core.Transport)
	h.mu.Unlock()
	for _, t := range snapshot {
		t.Close()
	}
	log.Info().Str("module", "app.hub").Int("closed", len(snapshot)).Msg("closed all connections")
}

// drop removes cid only if it still maps to t, so a re-registered id is left alone.
func (h *Hub) drop(cid domain.ConnectionID, t core.Transport) {
	h.mu.Lock()
	cur, ok := h.conns[cid]
	if ok && cur == t {
		delete(h.conns, cid)
	}
	h.mu.Unlock()
	t.Close()
}
