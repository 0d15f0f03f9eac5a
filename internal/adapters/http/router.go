package http

import (
	"context"

	"github.com/OmarNassar1127/ai-transcriber/internal/adapters/session"
	"github.com/OmarNassar1127/ai-transcriber/internal/app/orch"
	"github.com/OmarNassar1127/ai-transcriber/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	sessionName    = "TranscriberSessions"
	clientCookie   = "ct"
	clientTokenKey = "client_token"
	clientTokenTTL = 3600 * 24 * 7
)

// ClientTokenMiddleware gives every browser a stable opaque id so log lines
// from its HTTP calls and WebSocket sessions can be correlated.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(clientCookie)
		if err != nil || uuid.Validate(token) != nil {
			token = uuid.NewString()
			c.SetCookie(clientCookie, token, clientTokenTTL, "/", "", false, true)
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

func clientToken(c *gin.Context) string {
	return c.GetString(clientTokenKey)
}

// SetupRouter wires every HTTP and WebSocket route.
// ctx bounds the lifetime of upgraded sessions.
func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, ctl *session.Controller) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	h := &handlers{ctx: ctx, orch: o, ws: ctl}

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/healthz", h.healthz)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")
	api.GET("/ws/transcribe/:name", h.transcribeNamed)
	api.GET("/ws/transcribe", h.transcribeProfile)
	api.GET("/speakers", h.speakers)
	api.GET("/transcript", h.transcript)
	api.POST("/export/:format", h.export)
	api.POST("/save-transcript", h.saveTranscript)
	api.GET("/profile", h.getProfile)
	api.POST("/profile", h.setProfile)

	return r
}
