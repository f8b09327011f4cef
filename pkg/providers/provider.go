// Package providers implements the content providers behind the mesh
// command grammar. Every provider degrades to a short fallback string on
// failure; none of them returns an error to the caller or sends anything
// unbounded.
package providers

import "context"

// maxMessageLength bounds every provider-produced string to what fits in a
// single mesh text message.
const maxMessageLength = 200

// MessageProvider produces an ordered sequence of bounded strings.
type MessageProvider interface {
	Messages(ctx context.Context) []string
}

// StatusProvider produces a single bounded string.
type StatusProvider interface {
	Status(ctx context.Context) string
}

// bound truncates s to at most n characters.
func bound(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
