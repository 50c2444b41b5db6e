package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/parallaxchat/parallax/events"
	"github.com/parallaxchat/parallax/provider"
)

// maxTokens bounds every response; the comparison UI never needs more.
const maxTokens = 4096

// Adapter streams messages from the Anthropic API.
type Adapter struct {
	opts []option.RequestOption
}

// New creates the Anthropic adapter. Extra request options apply to every
// call and are appended after the per-request key.
func New(options ...option.RequestOption) *Adapter {
	return &Adapter{opts: options}
}

func (a *Adapter) Key() provider.Key { return provider.Anthropic }

func (a *Adapter) Stream(ctx context.Context, req provider.Request) <-chan events.Event {
	out := make(chan events.Event, 10)
	go func() {
		defer close(out)
		a.run(ctx, req, out)
	}()
	return out
}

func (a *Adapter) run(ctx context.Context, req provider.Request, out chan<- events.Event) {
	model := string(provider.Anthropic)

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(req.APIKey)}, a.opts...)...)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if strings.TrimSpace(req.Instructions) != "" {
		params.System = []anthropic.TextBlockParam{
			{Type: "text", Text: req.Instructions},
		}
	}

	strm := client.Messages.NewStreaming(ctx, params)
	defer strm.Close()

	if err := strm.Err(); err != nil {
		out <- events.Error{Model: model, Err: errors.New(provider.UserMessage(provider.Anthropic, classify(err)))}
		return
	}

	out <- events.Start{Model: model}

	for strm.Next() {
		if ctx.Err() != nil {
			out <- events.Error{Model: model, Err: ctx.Err()}
			return
		}

		switch e := strm.Current().AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if e.Delta.Type == "text_delta" && e.Delta.Text != "" {
				out <- events.Delta{Model: model, Text: e.Delta.Text}
			}
		default:
			// message_start, content_block_start/stop, message_delta and
			// message_stop carry no text
		}
	}

	if err := strm.Err(); err != nil {
		out <- events.Error{Model: model, Err: errors.New(provider.UserMessage(provider.Anthropic, classify(err)))}
		return
	}

	out <- events.End{Model: model}
}

func classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return provider.Classify(provider.Anthropic, apierr.StatusCode, apierr.Error())
	}
	return err
}
