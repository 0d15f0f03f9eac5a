package export

import (
	"strings"

	"github.com/OmarNassar1127/ai-transcriber/internal/domain"
)

func Text(segments []domain.Segment, meta Metadata) []byte {
	var b strings.Builder
	b.WriteString(meta.title())
	b.WriteString("\nDate: ")
	b.WriteString(meta.date())
	b.WriteString("\n\n")
	for _, s := range segments {
		b.WriteString(line(s))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
