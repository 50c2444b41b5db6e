package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/parallaxchat/parallax/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys_CanonicalOrder(t *testing.T) {
	assert.Equal(t, []Key{Gemini, OpenAI, Anthropic}, Keys())
}

func TestKey_Valid(t *testing.T) {
	assert.True(t, OpenAI.Valid())
	assert.False(t, Key("mistral").Valid())
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		name       string
		override   string
		deployment string
		want       string
	}{
		{"override wins", "gpt-4o", "gpt-4.1", "gpt-4o"},
		{"deployment default", "", "gpt-4.1", "gpt-4.1"},
		{"whitespace override ignored", "   ", "", DefaultOpenAIModel},
		{"hardcoded fallback", "", "", DefaultOpenAIModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveModel(OpenAI, tt.override, tt.deployment))
		})
	}
}

func TestClassify_RateLimit(t *testing.T) {
	err := Classify(OpenAI, http.StatusTooManyRequests, "Too Many Requests")
	assert.ErrorIs(t, err, ErrRateLimited)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, OpenAI, upstream.Provider)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
}

func TestClassify_Unauthorized(t *testing.T) {
	assert.ErrorIs(t, Classify(Gemini, http.StatusUnauthorized, "API key not valid"), ErrUnauthorized)
	assert.ErrorIs(t, Classify(Gemini, http.StatusForbidden, "forbidden"), ErrUnauthorized)
}

func TestClassify_Unrecognized(t *testing.T) {
	err := Classify(Anthropic, http.StatusInternalServerError, "overloaded")
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), "status 500")
}

func TestUserMessage_RewritesRateLimit(t *testing.T) {
	raw := Classify(OpenAI, http.StatusTooManyRequests, "Too Many Requests")
	msg := UserMessage(OpenAI, raw)

	assert.Contains(t, msg, "rate limit")
	assert.Contains(t, msg, "OpenAI")
	// the rewritten message replaces the raw upstream text
	assert.NotContains(t, msg, "Too Many Requests")
}

func TestUserMessage_PassesThroughUnknown(t *testing.T) {
	err := errors.New("connection reset by peer")
	assert.Equal(t, "connection reset by peer", UserMessage(OpenAI, err))
}

type stubAdapter struct{ key Key }

func (s stubAdapter) Key() Key { return s.key }

func (s stubAdapter) Stream(ctx context.Context, _ Request) <-chan events.Event {
	out := make(chan events.Event)
	close(out)
	return out
}

func TestRegistry(t *testing.T) {
	a := stubAdapter{key: OpenAI}
	b := stubAdapter{key: Gemini}
	reg := NewRegistry(a, b)

	require.Equal(t, 2, reg.Len())

	got, ok := reg.Get(OpenAI)
	require.True(t, ok)
	assert.Equal(t, OpenAI, got.Key())

	_, ok = reg.Get(Anthropic)
	assert.False(t, ok)
}
