package session

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/OmarNassar1127/ai-transcriber/internal/core"
	"github.com/goccy/go-json"
)

const (
	typeHeartbeat = "heartbeat"
	typeAudio     = "audio"
)

const (
	msgInvalidJSON     = "Invalid JSON message"
	msgMissingType     = "Missing message type"
	msgMissingPayload  = "Message must contain either 'testPhrase' or 'audio' data"
	msgRateLimited     = "Rate limit exceeded"
	msgUnsupportedType = "Unsupported message type: %s"
	msgAudioError      = "Audio processing error: %v"
)

type inboundFrame struct {
	Type       string          `json:"type"`
	TestPhrase *string         `json:"testPhrase"`
	Audio      json.RawMessage `json:"audio"`
	Encoding   string          `json:"encoding"`
	Timestamp  json.RawMessage `json:"timestamp"`
}

func (f inboundFrame) phrase() (string, bool) {
	if f.TestPhrase == nil || strings.TrimSpace(*f.TestPhrase) == "" {
		return "", false
	}
	return *f.TestPhrase, true
}

func (f inboundFrame) hasAudio() bool {
	raw := bytes.TrimSpace(f.Audio)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// decodeAudio accepts a base64 string or a JSON array of byte values.
func decodeAudio(raw json.RawMessage) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no audio", core.ErrInvalidPayload)
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)
		}
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: bad base64: %v", core.ErrInvalidPayload, err)
		}
		return data, nil
	case '[':
		var values []int
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)
		}
		data := make([]byte, len(values))
		for i, v := range values {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: byte %d out of range", core.ErrInvalidPayload, i)
			}
			data[i] = byte(v)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: audio must be a base64 string or a byte array", core.ErrInvalidPayload)
}

func parseEncoding(s string) (core.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "float32", "f32":
		return core.EncodingFloat32, nil
	case "pcm16", "pcm16le", "s16le":
		return core.EncodingPCM16LE, nil
	}
	return "", fmt.Errorf("%w: unknown encoding %q", core.ErrInvalidPayload, s)
}
