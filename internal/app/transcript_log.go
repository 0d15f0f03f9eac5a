package app

import (
	"sync"

	"github.com/OmarNassar1127/ai-transcriber/internal/domain"
)

// TranscriptLog keeps the most recent broadcast segments in memory.
type TranscriptLog struct {
	mu       sync.RWMutex
	limit    int
	segments []domain.Segment
}

// NewTranscriptLog keeps at most limit segments; limit <= 0 disables the log.
func NewTranscriptLog(limit int) *TranscriptLog {
	return &TranscriptLog{limit: limit}
}

func (l *TranscriptLog) Append(s domain.Segment) {
	if l.limit <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.segments = append(l.segments, s)
	if over := len(l.segments) - l.limit; over > 0 {
		l.segments = append(l.segments[:0:0], l.segments[over:]...)
	}
}

func (l *TranscriptLog) Snapshot() []domain.Segment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Segment, len(l.segments))
	copy(out, l.segments)
	return out
}

func (l *TranscriptLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.segments)
}
