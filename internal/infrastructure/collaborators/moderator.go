package collaborators

import (
	"context"
	"strings"

	"pairwave/internal/core/ports"
)

// KeywordModerator vetoes chat text containing any of a configured list of
// banned terms, matched case-insensitively as substrings. It never blocks
// on the hot path — Check is pure and synchronous.
type KeywordModerator struct {
	banned []string
	reason string
}

// NewKeywordModerator creates a Moderator over the given banned-term list.
// reason is the text returned to a vetoed sender's message-blocked event.
func NewKeywordModerator(bannedTerms []string, reason string) *KeywordModerator {
	lowered := make([]string, len(bannedTerms))
	for i, t := range bannedTerms {
		lowered[i] = strings.ToLower(t)
	}
	if reason == "" {
		reason = "message violates community guidelines"
	}
	return &KeywordModerator{banned: lowered, reason: reason}
}

var _ ports.Moderator = (*KeywordModerator)(nil)

func (m *KeywordModerator) Check(ctx context.Context, text string) (ports.ModerationVerdict, error) {
	lowered := strings.ToLower(text)
	for _, term := range m.banned {
		if term != "" && strings.Contains(lowered, term) {
			return ports.ModerationVerdict{Allowed: false, Reason: m.reason}, nil
		}
	}
	return ports.ModerationVerdict{Allowed: true}, nil
}
