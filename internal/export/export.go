// Package export renders transcripts as downloadable documents.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OmarNassar1127/ai-transcriber/internal/domain"
	"github.com/goccy/go-json"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

type Format string

const (
	FormatText Format = "txt"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
)

const DefaultTitle = "Meeting Transcript"

// ParseFormat accepts txt, text, json and pdf, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "txt", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Metadata is everything a rendering depends on besides the segments.
// Equal metadata and segments give byte-equal output.
type Metadata struct {
	Title       string
	GeneratedAt time.Time
}

func (m Metadata) title() string {
	if m.Title == "" {
		return DefaultTitle
	}
	return m.Title
}

func (m Metadata) date() string {
	return m.GeneratedAt.Format(time.DateTime)
}

type Document struct {
	ContentType string
	Filename    string
	Body        []byte
}

func Render(f Format, segments []domain.Segment, meta Metadata) (Document, error) {
	switch f {
	case FormatText:
		return Document{ContentType: "text/plain; charset=utf-8", Filename: "transcript.txt", Body: Text(segments, meta)}, nil
	case FormatJSON:
		body, err := JSON(segments, meta)
		if err != nil {
			return Document{}, err
		}
		return Document{ContentType: "application/json", Filename: "transcript.json", Body: body}, nil
	case FormatPDF:
		body, err := PDF(segments, meta)
		if err != nil {
			return Document{}, err
		}
		return Document{ContentType: "application/pdf", Filename: "transcript.pdf", Body: body}, nil
	}
	return Document{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// line formats one segment as "[ts] speaker: text", or "speaker: text" without a timestamp.
func line(s domain.Segment) string {
	if ts := timestampText(s.Timestamp); ts != "" {
		return fmt.Sprintf("[%s] %s: %s", ts, s.Speaker, s.Text)
	}
	return fmt.Sprintf("%s: %s", s.Speaker, s.Text)
}

func timestampText(raw json.RawMessage) string {
	v := strings.TrimSpace(string(raw))
	if v == "" || v == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return v
}
