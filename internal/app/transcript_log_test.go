package app

import (
	"testing"

	"github.com/OmarNassar1127/ai-transcriber/internal/domain"
)

func TestTranscriptLogKeepsNewest(t *testing.T) {
	t.Parallel()

	l := NewTranscriptLog(2)
	l.Append(domain.Segment{Speaker: "a", Text: "1"})
	l.Append(domain.Segment{Speaker: "a", Text: "2"})
	l.Append(domain.Segment{Speaker: "a", Text: "3"})

	got := l.Snapshot()
	if len(got) != 2 || got[0].Text != "2" || got[1].Text != "3" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	got[0].Text = "mutated"
	if l.Snapshot()[0].Text != "2" {
		t.Fatalf("snapshot must be a copy")
	}
}

func TestTranscriptLogDisabled(t *testing.T) {
	t.Parallel()

	l := NewTranscriptLog(0)
	l.Append(domain.Segment{Speaker: "a", Text: "1"})
	if l.Len() != 0 {
		t.Fatalf("disabled log must stay empty")
	}
	if got := l.Snapshot(); got == nil || len(got) != 0 {
		t.Fatalf("unexpected snapshot: %#v", got)
	}
}
