package game

import (
	"strings"

	"github.com/antoniostano/crux/internal/dialogue"
)

// splitEscalation splits a turn on the escalation delimiter, trims each
// piece and drops empties, preserving order. Text without the delimiter
// comes back as a single segment.
func splitEscalation(text string) []string {
	parts := strings.Split(text, dialogue.Delimiter)
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// isEscalation reports whether a turn requested burst delivery.
func isEscalation(text string) bool {
	return strings.Contains(text, dialogue.Delimiter)
}

var emphasisStripper = strings.NewReplacer("*", "", "_", "", "~", "", "`", "", "#", "")

// stripEmphasis removes markup characters models sometimes emit so the
// synthesizer does not read them aloud.
func stripEmphasis(text string) string {
	return strings.TrimSpace(emphasisStripper.Replace(text))
}
