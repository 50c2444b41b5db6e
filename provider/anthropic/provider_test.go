package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
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

func writeEvent(w http.ResponseWriter, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func serveMessage(w http.ResponseWriter, texts ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	writeEvent(w, "message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-sonnet-4-20250514","stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":3,"output_tokens":1}}}`)
	writeEvent(w, "content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`)
	for _, text := range texts {
		writeEvent(w, "content_block_delta", fmt.Sprintf(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":%q}}`, text))
	}
	writeEvent(w, "content_block_stop", `{"type":"content_block_stop","index":0}`)
	writeEvent(w, "message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":4}}`)
	writeEvent(w, "message_stop", `{"type":"message_stop"}`)
}

func streamRequest() provider.Request {
	return provider.Request{Prompt: "2+2?", Model: "claude-sonnet-4-20250514", APIKey: "sk-ant-test"}
}

func TestStream_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		serveMessage(w, "The answer", " is 4.")
	}))
	defer srv.Close()

	adapter := New(option.WithBaseURL(srv.URL))
	got := collect(adapter.Stream(context.Background(), streamRequest()))

	require.Len(t, got, 4)
	assert.Equal(t, events.Start{Model: "anthropic"}, got[0])
	assert.Equal(t, events.Delta{Model: "anthropic", Text: "The answer"}, got[1])
	assert.Equal(t, events.Delta{Model: "anthropic", Text: " is 4."}, got[2])
	assert.Equal(t, events.End{Model: "anthropic"}, got[3])
}

func TestStream_DeltasConcatenateToFullResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		serveMessage(w, "a", "b", "c", "d")
	}))
	defer srv.Close()

	adapter := New(option.WithBaseURL(srv.URL))
	var sb strings.Builder
	for ev := range adapter.Stream(context.Background(), streamRequest()) {
		if d, ok := ev.(events.Delta); ok {
			sb.WriteString(d.Text)
		}
	}
	assert.Equal(t, "abcd", sb.String())
}

func TestStream_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"type":"error","error":{"type":"rate_limit_error","message":"Number of requests has exceeded your rate limit"}}`)
	}))
	defer srv.Close()

	adapter := New(option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	got := collect(adapter.Stream(context.Background(), streamRequest()))

	require.Len(t, got, 1)
	ev, ok := got[0].(events.Error)
	require.True(t, ok)
	assert.Contains(t, ev.Err.Error(), "rate limit")
	assert.NotContains(t, ev.Err.Error(), "Number of requests")
}
