package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/OmarNassar1127/ai-transcriber/internal/adapters/session"
	"github.com/OmarNassar1127/ai-transcriber/internal/app/orch"
	"github.com/OmarNassar1127/ai-transcriber/internal/domain"
	"github.com/OmarNassar1127/ai-transcriber/internal/export"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const profileKey = "name"

type handlers struct {
	ctx  context.Context
	orch *orch.Orchestrator
	ws   *session.Controller
}

type NickRequest struct {
	Name string `json:"name" binding:"required"`
}

type NickResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

type speakerDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type segmentDTO struct {
	Speaker   string          `json:"speaker" binding:"required"`
	Text      string          `json:"text"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

type exportRequest struct {
	Transcript []segmentDTO `json:"transcript" binding:"omitempty,dive"`
	Segments   []segmentDTO `json:"segments" binding:"omitempty,dive"`
}

func (h *handlers) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *handlers) transcribeNamed(c *gin.Context) {
	h.upgrade(c, c.Param("name"))
}

// transcribeProfile takes the name from ?name= or from the stored profile.
func (h *handlers) transcribeProfile(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		name, _ = sessions.Default(c).Get(profileKey).(string)
	}
	h.upgrade(c, name)
}

func (h *handlers) upgrade(c *gin.Context, raw string) {
	name, err := domain.NormalizeSpeakerName(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Info().Str("module", "adapters.http").Str("client", clientToken(c)).Str("name", name).Msg("ws transcribe endpoint hit")
	h.ws.ServeWS(h.ctx, c, name)
}

func (h *handlers) speakers(c *gin.Context) {
	list := h.orch.Speakers.Speakers()
	if c.Query("active") == "true" {
		list = h.orch.Speakers.ActiveSpeakers()
	}
	c.JSON(http.StatusOK, gin.H{
		"speakers": lo.Map(list, func(s domain.Speaker, _ int) speakerDTO {
			return speakerDTO{ID: string(s.ID), Name: s.Name}
		}),
	})
}

func (h *handlers) transcript(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"transcript": h.history()})
}

func (h *handlers) history() []domain.Segment {
	if h.orch.History == nil {
		return []domain.Segment{}
	}
	return h.orch.History.Snapshot()
}

func (h *handlers) export(c *gin.Context) {
	format, err := export.ParseFormat(c.Param("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported format"})
		return
	}

	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	segments := lo.Map(append(req.Transcript, req.Segments...), func(s segmentDTO, _ int) domain.Segment {
		return domain.Segment{Speaker: s.Speaker, Text: s.Text, Timestamp: s.Timestamp}
	})
	if len(segments) == 0 {
		segments = h.history()
	}

	doc, err := export.Render(format, segments, export.Metadata{GeneratedAt: time.Now()})
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("format", string(format)).Msg("export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	log.Info().Str("module", "adapters.http").Str("format", string(format)).Int("segments", len(segments)).Msg("transcript exported")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

func (h *handlers) saveTranscript(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil || body == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return
	}
	body["metadata"] = gin.H{
		"timestamp":      time.Now().Format(time.RFC3339),
		"total_speakers": h.orch.Speakers.Count(),
	}
	c.JSON(http.StatusOK, body)
}

func (h *handlers) getProfile(c *gin.Context) {
	name, _ := sessions.Default(c).Get(profileKey).(string)
	c.JSON(http.StatusOK, gin.H{"name": name})
}

func (h *handlers) setProfile(c *gin.Context) {
	var req NickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid name"})
		return
	}
	name, err := domain.NormalizeSpeakerName(req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s := sessions.Default(c)
	s.Set(profileKey, name)
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("client", clientToken(c)).Msg("save profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save profile"})
		return
	}
	log.Info().Str("module", "adapters.http").Str("client", clientToken(c)).Str("name", name).Msg("profile saved")
	c.JSON(http.StatusOK, NickResponse{
		Message: fmt.Sprintf("Hello %s!", name),
		Name:    name,
	})
}
