package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/parallaxchat/parallax/events"
	"github.com/parallaxchat/parallax/pkg/slogx"
	"github.com/parallaxchat/parallax/provider"
)

// ErrMissingPrompt is returned when the prompt is empty after trimming. The
// HTTP layer rejects this before opening a stream; the orchestrator checks
// again so no adapter is ever contacted.
var ErrMissingPrompt = errors.New("orchestrator: missing prompt")

// eventBuffer smooths bursts from concurrent adapters ahead of the single
// writer loop.
const eventBuffer = 256

// Params describes one aggregation request.
type Params struct {
	// Prompt is the user prompt, shared by every provider.
	Prompt string

	// Instructions is an optional system instruction, shared by every provider.
	Instructions string

	// APIKeys maps provider to credential. A provider with an empty (after
	// trimming) credential is inactive and silently skipped.
	APIKeys map[provider.Key]string

	// Models holds per-request model overrides.
	Models map[provider.Key]string

	// Defaults holds per-deployment default models, consulted when the
	// request carries no override.
	Defaults map[provider.Key]string
}

// Sink receives every event produced by the fan-out, one call per event.
// events.Encoder satisfies it.
type Sink interface {
	Emit(events.Event) error
}

// Run fans the request out to every active provider and funnels the
// normalized events into sink in emission order. It returns only after every
// launched adapter has settled, successfully or not: the join barrier, not a
// race. Cancelling ctx aborts the in-flight upstream calls.
func Run(ctx context.Context, reg *provider.Registry, params Params, sink Sink) error {
	prompt := strings.TrimSpace(params.Prompt)
	if prompt == "" {
		return ErrMissingPrompt
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan events.Event, eventBuffer)
	var wg sync.WaitGroup

	for _, key := range provider.Keys() {
		apiKey := strings.TrimSpace(params.APIKeys[key])
		if apiKey == "" {
			continue
		}

		adapter, ok := reg.Get(key)
		if !ok {
			// configured but not deployed; treat like any other upstream fault
			wg.Add(1)
			go func(key provider.Key) {
				defer wg.Done()
				out <- events.Error{Model: string(key), Err: errors.New(key.Label() + " is not available on this server")}
			}(key)
			continue
		}

		req := provider.Request{
			Prompt:       prompt,
			Instructions: params.Instructions,
			Model:        provider.ResolveModel(key, params.Models[key], params.Defaults[key]),
			APIKey:       apiKey,
		}

		slog.DebugContext(ctx, "launching provider stream",
			slogx.Provider(string(key)), slog.String("model", req.Model))

		wg.Add(1)
		go func(a provider.Adapter, req provider.Request) {
			defer wg.Done()
			for ev := range a.Stream(ctx, req) {
				out <- ev
			}
		}(adapter, req)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	// Single writer: one event, one atomic sink write. When the sink dies
	// (client went away) cancel the upstream calls but keep draining so the
	// adapter goroutines can finish and the barrier releases.
	var sinkErr error
	for ev := range out {
		if sinkErr != nil {
			continue
		}
		if err := sink.Emit(ev); err != nil {
			sinkErr = err
			cancel()
			slog.DebugContext(ctx, "client sink failed, aborting upstream streams", slogx.Error(err))
		}
	}

	return sinkErr
}
