package core

import (
	"github.com/goccy/go-json"

	"github.com/OmarNassar1127/ai-transcriber/internal/domain"
)

// Outbound event type tags.
const (
	EventRegistration     = "registration"
	EventTranscription    = "transcription"
	EventError            = "error"
	EventHeartbeat        = "heartbeat"
	EventConnectionStatus = "connection_status"
)

type RegistrationEvent struct {
	Type      string           `json:"type"`
	Status    string           `json:"status"`
	SpeakerID domain.SpeakerID `json:"speaker_id"`
	Name      string           `json:"name"`
}

type TranscriptionEvent struct {
	Type      string           `json:"type"`
	Text      string           `json:"text"`
	Speaker   string           `json:"speaker"`
	SpeakerID domain.SpeakerID `json:"speaker_id"`
	Timestamp json.RawMessage  `json:"timestamp"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type HeartbeatEvent struct {
	Type   string `json:"type"`
	Status string `json:"status,omitempty"`
}

type ConnectionStatusEvent struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func NewRegistrationEvent(s domain.Speaker) RegistrationEvent {
	return RegistrationEvent{Type: EventRegistration, Status: "success", SpeakerID: s.ID, Name: s.Name}
}

// NewTranscriptionEvent echoes ts verbatim; a missing timestamp becomes null.
func NewTranscriptionEvent(s domain.Speaker, text string, ts json.RawMessage) TranscriptionEvent {
	if len(ts) == 0 {
		ts = json.RawMessage("null")
	}
	return TranscriptionEvent{Type: EventTranscription, Text: text, Speaker: s.Name, SpeakerID: s.ID, Timestamp: ts}
}

func NewErrorEvent(msg string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: msg}
}

func NewHeartbeatEvent() HeartbeatEvent {
	return HeartbeatEvent{Type: EventHeartbeat, Status: "alive"}
}

func NewConnectionStatusEvent(msg string) ConnectionStatusEvent {
	return ConnectionStatusEvent{Type: EventConnectionStatus, Status: "connected", Message: msg}
}

// Encode marshals an event into a single frame.
func Encode(v any) (Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}
