package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/OmarNassar1127/ai-transcriber/internal/domain"
	"github.com/goccy/go-json"
)

type jsonMetadata struct {
	Timestamp string `json:"timestamp"`
	Format    string `json:"format"`
}

type jsonDocument struct {
	Metadata   jsonMetadata     `json:"metadata"`
	Transcript []domain.Segment `json:"transcript"`
}

func JSON(segments []domain.Segment, meta Metadata) ([]byte, error) {
	if segments == nil {
		segments = []domain.Segment{}
	}
	doc := jsonDocument{
		Metadata:   jsonMetadata{Timestamp: meta.GeneratedAt.Format(time.RFC3339), Format: string(FormatJSON)},
		Transcript: segments,
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal transcript: %w", err)
	}
	return b, nil
}

// ParseJSON reads back the segments of a document produced by JSON.
func ParseJSON(data []byte) ([]domain.Segment, error) {
	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	// MarshalIndent re-indents object and array timestamps; undo that.
	for i, s := range doc.Transcript {
		if len(s.Timestamp) == 0 {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, s.Timestamp); err != nil {
			return nil, fmt.Errorf("parse transcript timestamp %d: %w", i, err)
		}
		doc.Transcript[i].Timestamp = json.RawMessage(buf.Bytes())
	}
	return doc.Transcript, nil
}
