package domain

import "github.com/goccy/go-json"

// Segment is one attributed line of a transcript.
// Timestamp is echoed verbatim from the client frame.
type Segment struct {
	Speaker   string          `json:"speaker"`
	Text      string          `json:"text"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}
