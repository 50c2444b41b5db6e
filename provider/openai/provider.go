package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/parallaxchat/parallax/events"
	"github.com/parallaxchat/parallax/provider"
)

// Adapter streams chat completions from the OpenAI API.
type Adapter struct {
	opts []option.RequestOption
}

// New creates the OpenAI adapter. Extra request options (base URL, HTTP
// client) apply to every call and are appended after the per-request key.
func New(options ...option.RequestOption) *Adapter {
	return &Adapter{opts: options}
}

func (a *Adapter) Key() provider.Key { return provider.OpenAI }

func (a *Adapter) Stream(ctx context.Context, req provider.Request) <-chan events.Event {
	out := make(chan events.Event, 10)
	go func() {
		defer close(out)
		a.run(ctx, req, out)
	}()
	return out
}

func (a *Adapter) run(ctx context.Context, req provider.Request, out chan<- events.Event) {
	model := string(provider.OpenAI)

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(req.APIKey)}, a.opts...)...)

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.Instructions) != "" {
		msgs = append(msgs, openai.SystemMessage(req.Instructions))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages: openai.F(msgs),
		Model:    openai.F(req.Model),
		N:        openai.Int(1),
	}

	strm := client.Chat.Completions.NewStreaming(ctx, params)
	defer strm.Close()

	if err := strm.Err(); err != nil {
		out <- events.Error{Model: model, Err: errors.New(provider.UserMessage(provider.OpenAI, classify(err)))}
		return
	}

	out <- events.Start{Model: model}

	for strm.Next() {
		if ctx.Err() != nil {
			out <- events.Error{Model: model, Err: ctx.Err()}
			return
		}

		chunk := strm.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if text := chunk.Choices[0].Delta.Content; text != "" {
			out <- events.Delta{Model: model, Text: text}
		}
	}

	if err := strm.Err(); err != nil {
		out <- events.Error{Model: model, Err: errors.New(provider.UserMessage(provider.OpenAI, classify(err)))}
		return
	}

	out <- events.End{Model: model}
}

// classify maps SDK errors onto the shared taxonomy so rate limits and auth
// failures surface with rewritten messages.
func classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return provider.Classify(provider.OpenAI, apierr.StatusCode, apierr.Message)
	}
	return err
}
