package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/parallaxchat/parallax/events"
	"github.com/parallaxchat/parallax/provider"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// maxErrorBodySize caps how much of a failed response body is read back.
const maxErrorBodySize int64 = 1 << 20

// Adapter streams generated content from the Gemini API. Google ships no
// first-party Go SDK surface we need here, so the adapter speaks the
// streamGenerateContent SSE protocol directly.
type Adapter struct {
	baseURL string
	client  *http.Client
}

// New creates the Gemini adapter with the public API endpoint.
func New() *Adapter {
	return &Adapter{baseURL: defaultBaseURL, client: &http.Client{}}
}

// WithBaseURL points the adapter at a different endpoint.
func (a *Adapter) WithBaseURL(baseURL string) *Adapter {
	a.baseURL = strings.TrimSuffix(baseURL, "/")
	return a
}

// WithHTTPClient sets a custom HTTP client.
func (a *Adapter) WithHTTPClient(client *http.Client) *Adapter {
	a.client = client
	return a
}

func (a *Adapter) Key() provider.Key { return provider.Gemini }

func (a *Adapter) Stream(ctx context.Context, req provider.Request) <-chan events.Event {
	out := make(chan events.Event, 10)
	go func() {
		defer close(out)
		a.run(ctx, req, out)
	}()
	return out
}

// generateContentRequest is the subset of the Gemini request body this
// system sends.
type generateContentRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// generateContentResponse is the subset of the streaming response this
// system reads. Each SSE payload carries one of these; the candidate's part
// text is the incremental fragment.
type generateContentResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Adapter) run(ctx context.Context, req provider.Request, out chan<- events.Event) {
	model := string(provider.Gemini)

	resp, err := a.post(ctx, req)
	if err != nil {
		out <- events.Error{Model: model, Err: errors.New(provider.UserMessage(provider.Gemini, err))}
		return
	}
	defer resp.Body.Close()

	out <- events.Start{Model: model}

	scanner := newSSEScanner(resp.Body)
	for {
		if ctx.Err() != nil {
			out <- events.Error{Model: model, Err: ctx.Err()}
			return
		}

		payload, err := scanner.Next()
		if err == io.EOF {
			out <- events.End{Model: model}
			return
		}
		if err != nil {
			out <- events.Error{Model: model, Err: err}
			return
		}

		var chunk generateContentResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			out <- events.Error{Model: model, Err: fmt.Errorf("malformed stream payload: %w", err)}
			return
		}
		if chunk.Error != nil {
			err := provider.Classify(provider.Gemini, chunk.Error.Code, chunk.Error.Message)
			out <- events.Error{Model: model, Err: errors.New(provider.UserMessage(provider.Gemini, err))}
			return
		}

		if text := chunkText(&chunk); text != "" {
			out <- events.Delta{Model: model, Text: text}
		}
	}
}

// post issues the streaming request and classifies non-2xx responses before
// any event is emitted.
func (a *Adapter) post(ctx context.Context, req provider.Request) (*http.Response, error) {
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", a.baseURL, req.Model)

	body := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: req.Prompt}}},
		},
	}
	if strings.TrimSpace(req.Instructions) != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.Instructions}}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-goog-api-key", req.APIKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, provider.Classify(provider.Gemini, resp.StatusCode, upstreamMessage(raw, resp.StatusCode))
	}

	return resp, nil
}

// upstreamMessage digs the human-readable message out of a Gemini error
// body, falling back to the raw body or status code.
func upstreamMessage(raw []byte, statusCode int) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	if len(raw) > 0 {
		return string(raw)
	}
	return http.StatusText(statusCode)
}

func chunkText(chunk *generateContentResponse) string {
	if len(chunk.Candidates) == 0 || chunk.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range chunk.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}
