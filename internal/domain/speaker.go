// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const MaxSpeakerNameLen = 64

var (
	ErrSpeakerNameEmpty   = errors.New("speaker name empty")
	ErrSpeakerNameTooLong = errors.New("speaker name too long")
)

type (
	SpeakerID    string
	ConnectionID string
)

// Speaker is the identity attached to transcribed text.
// It outlives the connection that registered it.
type Speaker struct {
	ID   SpeakerID `json:"id"`
	Name string    `json:"name"`
}

// NewSpeaker allocates a fresh id; names are not unique keys.
func NewSpeaker(name string) Speaker {
	return Speaker{ID: SpeakerID(uuid.NewString()), Name: name}
}

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

// NormalizeSpeakerName trims the name and checks its length.
func NormalizeSpeakerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrSpeakerNameEmpty
	}
	if len(name) > MaxSpeakerNameLen {
		return "", ErrSpeakerNameTooLong
	}
	return name, nil
}
