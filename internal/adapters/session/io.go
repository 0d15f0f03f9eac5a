package session

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (s *session) writePump(ctx context.Context) {
	ticker := time.NewTicker(s.ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "session").Str("conn", string(s.cid)).Msg("writePump ctx done")
			return
		case data, ok := <-s.out.send:
			if !ok {
				log.Debug().Str("module", "session").Str("conn", string(s.cid)).Msg("writePump channel closed")
				return
			}
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "session").Str("conn", string(s.cid)).Msg("writePump set deadline")
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "session").Str("conn", string(s.cid)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(s.ctl.opts.WriteWait)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Warn().Err(err).Str("module", "session").Str("conn", string(s.cid)).Msg("ping failed")
				return
			}
		}
	}
}

// readPump only reads; frames are handed to processLoop so that one slow
// transcription never stops pong handling.
func (s *session) readPump(ctx context.Context) {
	defer func() {
		log.Debug().Str("module", "session").Str("conn", string(s.cid)).Msg("readPump closing")
		s.close()
	}()

	wait := s.ctl.opts.pongWait()
	s.conn.SetReadLimit(s.ctl.opts.ReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(wait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Str("module", "session").Str("conn", string(s.cid)).Msg("readPump read error")
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(wait))
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		select {
		case s.inbound <- data:
		case <-ctx.Done():
			return
		}
	}
}

// processLoop handles frames strictly one at a time, in arrival order.
func (s *session) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-s.inbound:
			s.handleFrame(ctx, data)
		}
	}
}
