package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/parallaxchat/parallax/events"
	"github.com/parallaxchat/parallax/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(ch <-chan events.Event) []events.Event {
	var got []events.Event
	for ev := range ch {
		got = append(got, ev)
	}
	return got
}

func chunkLine(text string) string {
	return fmt.Sprintf("data: {\"id\":\"cmpl-1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4o-mini\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", text)
}

func streamRequest() provider.Request {
	return provider.Request{Prompt: "2+2?", Model: "gpt-4o-mini", APIKey: "sk-test"}
}

func TestStream_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, chunkLine("4"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	adapter := New(option.WithBaseURL(srv.URL + "/"))
	got := collect(adapter.Stream(context.Background(), streamRequest()))

	require.Len(t, got, 3)
	assert.Equal(t, events.Start{Model: "openai"}, got[0])
	assert.Equal(t, events.Delta{Model: "openai", Text: "4"}, got[1])
	assert.Equal(t, events.End{Model: "openai"}, got[2])
}

func TestStream_ChunkBoundariesPreserved(t *testing.T) {
	chunks := []string{"The ", "answer ", "is ", "4."}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		for _, c := range chunks {
			fmt.Fprint(w, chunkLine(c))
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	adapter := New(option.WithBaseURL(srv.URL + "/"))

	var deltas []string
	var sb strings.Builder
	for ev := range adapter.Stream(context.Background(), streamRequest()) {
		if d, ok := ev.(events.Delta); ok {
			deltas = append(deltas, d.Text)
			sb.WriteString(d.Text)
		}
	}

	assert.Equal(t, chunks, deltas)
	assert.Equal(t, "The answer is 4.", sb.String())
}

func TestStream_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"Rate limit reached for requests","type":"requests"}}`)
	}))
	defer srv.Close()

	adapter := New(option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	got := collect(adapter.Stream(context.Background(), streamRequest()))

	require.Len(t, got, 1)
	ev, ok := got[0].(events.Error)
	require.True(t, ok)
	assert.Contains(t, ev.Err.Error(), "rate limit")
}

func TestStream_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	adapter := New(option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	got := collect(adapter.Stream(context.Background(), streamRequest()))

	require.Len(t, got, 1)
	ev, ok := got[0].(events.Error)
	require.True(t, ok)
	assert.Contains(t, ev.Err.Error(), "API key")
}
