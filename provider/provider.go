package provider

import (
	"context"

	"github.com/parallaxchat/parallax/events"
)

// Key identifies one upstream provider in the fixed set.
type Key string

const (
	Gemini    Key = "gemini"
	OpenAI    Key = "openai"
	Anthropic Key = "anthropic"
)

// Keys returns the provider set in its canonical order. The order is
// significant: the client picks the first finished provider in this order as
// the summarizer for the evaluation pass.
func Keys() []Key {
	return []Key{Gemini, OpenAI, Anthropic}
}

// Valid reports whether k names a known provider.
func (k Key) Valid() bool {
	switch k {
	case Gemini, OpenAI, Anthropic:
		return true
	}
	return false
}

// Label returns the provider's display name.
func (k Key) Label() string {
	switch k {
	case Gemini:
		return "Gemini"
	case OpenAI:
		return "OpenAI"
	case Anthropic:
		return "Anthropic"
	}
	return string(k)
}

// Request carries one normalized completion request into an adapter.
type Request struct {
	// Prompt is the user prompt, non-empty after trimming.
	Prompt string

	// Instructions is an optional system instruction.
	Instructions string

	// Model is the fully resolved provider model variant.
	Model string

	// APIKey is the caller-supplied credential. It is forwarded upstream and
	// must never be logged.
	APIKey string
}

// Adapter translates Request into one provider's native streaming call and
// maps the native chunks onto the normalized event sequence.
//
// Implementations own the full failure surface: every fault, including one
// that happens before the first chunk, resolves as an events.Error on the
// returned channel. The channel is closed after the terminal event. Callers
// cancel via ctx; the upstream call is aborted with it.
type Adapter interface {
	Key() Key
	Stream(ctx context.Context, req Request) <-chan events.Event
}
