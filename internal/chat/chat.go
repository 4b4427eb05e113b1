// Package chat relays a conversation to a generative-language API.
//
// The relay is stateless: every call carries the whole transcript. A reply
// is either returned in one piece (Generate) or as a lazy sequence of text
// fragments (Stream) that ends when the upstream response ends.
package chat

import (
	"context"
	"iter"
	"strings"
	"unicode/utf8"
)

// Role of a turn in a transcript, as clients send it.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	Role Role   `json:"role" validate:"required,oneof=user assistant"`
	Text string `json:"text"`
}

// Generator produces assistant replies for a transcript whose last turn is
// the user's new message.
type Generator interface {
	// Configured reports whether the credential needed to reach the
	// upstream is present. Callers check it before any network call.
	Configured() bool
	Generate(ctx context.Context, turns []Turn) (string, error)
	// Stream yields reply fragments in order. A non-nil error ends the
	// sequence. Cancelling ctx aborts the upstream request.
	Stream(ctx context.Context, turns []Turn) iter.Seq2[string, error]
}

const (
	DefaultTitle        = "New Chat"
	titleSentenceLimit  = 50
	titleFallbackLength = 30
)

// SuggestTitle names a conversation after its first user message: the first
// sentence if it ends within 50 characters, otherwise the first 30
// characters followed by "...". Transcripts with fewer than two turns (no
// reply yet) get DefaultTitle.
func SuggestTitle(turns []Turn) string {
	if len(turns) <= 1 {
		return DefaultTitle
	}

	var first string
	found := false
	for _, t := range turns {
		if t.Role == RoleUser {
			first, found = t.Text, true
			break
		}
	}
	if !found {
		return DefaultTitle
	}

	runes := []rune(first)
	if end := strings.IndexAny(first, ".!?"); end > 0 {
		if n := utf8.RuneCountInString(first[:end]); n < titleSentenceLimit {
			return string(runes[:n+1])
		}
	}
	if len(runes) > titleFallbackLength {
		return string(runes[:titleFallbackLength]) + "..."
	}
	return first
}
