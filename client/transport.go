package client

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/parallaxchat/parallax/events"
	"github.com/parallaxchat/parallax/provider"
)

// maxLineSize matches the emitter side: one event line can carry a large
// fragment but never an unbounded one.
const maxLineSize = 1 * 1024 * 1024

// ChatRequest is the aggregator request body.
type ChatRequest struct {
	Prompt         string                  `json:"prompt"`
	APIKeys        map[provider.Key]string `json:"apiKeys"`
	SelectedModels map[provider.Key]string `json:"selectedModels,omitempty"`
}

// Transport posts aggregation requests and decodes the event stream.
type Transport struct {
	baseURL string
	hc      *http.Client
}

// NewTransport targets the aggregator at baseURL (scheme://host[:port]).
func NewTransport(baseURL string) *Transport {
	return &Transport{baseURL: strings.TrimSuffix(baseURL, "/"), hc: &http.Client{}}
}

// WithHTTPClient sets a custom HTTP client.
func (t *Transport) WithHTTPClient(hc *http.Client) *Transport {
	t.hc = hc
	return t
}

// Stream posts req and invokes fn for every decoded event, in wire order.
// Malformed lines are silently discarded. A non-200 response or a missing
// body fails the whole request; a connection dropped mid-stream returns the
// read error after fn has seen everything that arrived before the drop.
func (t *Transport) Stream(ctx context.Context, req ChatRequest, fn func(events.Event)) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.hc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("aggregator request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxLineSize))
		return fmt.Errorf("aggregator returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		ev, err := events.Decode(line)
		if err != nil {
			// bad line, skip it
			continue
		}
		fn(ev)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream interrupted: %w", err)
	}
	return nil
}
