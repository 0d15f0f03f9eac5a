// Package session runs the per-connection transcription protocol over WebSocket.
package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/OmarNassar1127/ai-transcriber/internal/app/orch"
	"github.com/OmarNassar1127/ai-transcriber/internal/core"
	"github.com/OmarNassar1127/ai-transcriber/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	WriteControl(mt int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

type Options struct {
	ReadLimit    int64
	PingPeriod   time.Duration
	WriteWait    time.Duration
	SendBuffer   int
	InboundQueue int
	RateLimit    int
	RateInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 4 << 20
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	switch {
	case o.SendBuffer <= 0:
		o.SendBuffer = 64
	case o.SendBuffer < 2:
		// registration and connection_status are queued before the write pump starts
		o.SendBuffer = 2
	}
	if o.InboundQueue <= 0 {
		o.InboundQueue = 16
	}
	return o
}

// pongWait is how long a peer may stay silent before the read pump gives up.
func (o Options) pongWait() time.Duration {
	return o.PingPeriod * 10 / 9
}

type Controller struct {
	Orch *orch.Orchestrator

	opts    Options
	limiter *RateLimiter
	wg      conc.WaitGroup
}

func NewController(o *orch.Orchestrator, opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		Orch:    o,
		opts:    opts,
		limiter: NewRateLimiter(opts.RateLimit, opts.RateInterval),
	}
}

// wsTransport implements core.Transport on top of a WSConn.
type wsTransport struct {
	conn WSConn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWSTransport(conn WSConn, buffer int) *wsTransport {
	return &wsTransport{conn: conn, send: make(chan core.Frame, buffer)}
}

func (c *wsTransport) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsTransport) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// session is the state of one Registered/Active connection.
type session struct {
	ctl     *Controller
	cid     domain.ConnectionID
	name    string
	conn    WSConn
	out     *wsTransport
	inbound chan []byte

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// close moves the session to Closed. Safe from any goroutine, any number of times.
func (s *session) close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.ctl.Orch.Disconnect(s.cid)
		s.out.Close()
		s.ctl.limiter.Forget(s.cid)
		log.Info().Str("module", "session").Str("conn", string(s.cid)).Str("name", s.name).Msg("session closed")
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and starts a session for name.
// ctx must outlive the request; the session runs until it is cancelled or the peer leaves.
func (ctl *Controller) ServeWS(ctx context.Context, c *gin.Context, name string) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "session").Msg("ws upgrade")
		return
	}
	if err := ctl.HandleConnection(ctx, ws, name); err != nil {
		log.Error().Err(err).Str("module", "session").Str("name", name).Msg("handshake failed")
	}
}

// HandleConnection performs the handshake and starts the pumps.
// If the handshake fails the connection is closed and never becomes active.
func (ctl *Controller) HandleConnection(ctx context.Context, ws WSConn, name string) error {
	out := newWSTransport(ws, ctl.opts.SendBuffer)
	cid, speaker, err := ctl.Orch.Connect(name, out)
	if err != nil {
		out.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &session{
		ctl:     ctl,
		cid:     cid,
		name:    speaker.Name,
		conn:    ws,
		out:     out,
		inbound: make(chan []byte, ctl.opts.InboundQueue),
		cancel:  cancel,
	}

	ctl.Orch.SendTo(cid, core.NewRegistrationEvent(speaker))
	ctl.Orch.SendTo(cid, core.NewConnectionStatusEvent(fmt.Sprintf("Speaker %s connected successfully", speaker.Name)))

	ctl.wg.Go(func() { s.writePump(ctx) })
	ctl.wg.Go(func() { s.readPump(ctx) })
	ctl.wg.Go(func() { s.processLoop(ctx) })

	log.Info().Str("module", "session").Str("conn", string(cid)).Str("speaker", string(speaker.ID)).Msg("session active")
	return nil
}

// Wait blocks until every session goroutine has returned.
// Call it after the hub closed all transports.
func (ctl *Controller) Wait() {
	if r := ctl.wg.WaitAndRecover(); r != nil {
		log.Error().Err(r.AsError()).Str("module", "session").Msg("session goroutine panicked")
	}
}
