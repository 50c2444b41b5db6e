package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/fogfish/opts"
	"github.com/parallaxchat/parallax/events"
	"github.com/parallaxchat/parallax/provider"
)

var (
	// ErrEmptyPrompt is returned before any request is made.
	ErrEmptyPrompt = errors.New("client: empty prompt")

	// ErrNoActiveProviders is returned when no provider has a credential.
	ErrNoActiveProviders = errors.New("client: no provider has an API key configured")
)

// ProviderResult is one provider's outcome within a run.
type ProviderResult struct {
	Status Status
	Text   string
	Err    string
}

// Result is the outcome of one full run cycle.
type Result struct {
	Responses  map[provider.Key]*ProviderResult
	Summary    string
	Summarizer provider.Key // set when an evaluation ran
	Evaluated  bool
}

// Session drives one prompt through the aggregator: it demultiplexes the raw
// comparison stream, tracks per-provider lifecycle, and when at least one
// provider finishes with text it issues the evaluation pass through the same
// aggregator, exactly once per run.
//
// The run cycle is idle -> running -> evaluating -> settled, with
// running -> settled directly when every active provider errors. The
// evaluation fires on the guarded running -> evaluating transition, so
// re-observing the trigger condition cannot fire it twice.
type Session struct {
	transport *Transport
	settings  *Settings
	observer  func(events.Event)

	mu     sync.Mutex
	phase  Phase
	prompt string
	states map[provider.Key]*ProviderResult
}

// WithObserver registers a callback invoked for every raw-phase event, in
// wire order. The CLI uses it for live rendering.
func WithObserver(fn func(events.Event)) opts.Option[Session] {
	return opts.Type[Session](func(s *Session) error {
		s.observer = fn
		return nil
	})
}

// NewSession builds a session over the given transport and settings.
func NewSession(transport *Transport, settings *Settings, options ...opts.Option[Session]) (*Session, error) {
	if transport == nil {
		return nil, errors.New("client: transport is required")
	}
	if settings == nil {
		return nil, errors.New("client: settings are required")
	}
	s := &Session{
		transport: transport,
		settings:  settings,
		phase:     PhaseIdle,
		states:    map[provider.Key]*ProviderResult{},
	}
	if err := opts.Apply(s, options); err != nil {
		return nil, err
	}
	return s, nil
}

// Phase returns the current run-cycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Run executes one full cycle and returns the outcome. Resubmitting reuses
// the session: all prior text, errors and statuses are reset first.
func (s *Session) Run(ctx context.Context, prompt string) (*Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if len(s.settings.ActiveKeys()) == 0 {
		return nil, ErrNoActiveProviders
	}

	s.reset(prompt)

	req := ChatRequest{
		Prompt:         prompt,
		APIKeys:        s.settings.APIKeys,
		SelectedModels: s.settings.SelectedModels,
	}
	// A dropped connection ends the run early with whatever accumulated;
	// there is no retry. The state below still settles normally.
	streamErr := s.transport.Stream(ctx, req, s.applyRaw)

	target, evaluating := s.beginEvaluation()
	if !evaluating {
		s.settle()
		return s.result(), streamErr
	}

	summary := s.evaluate(ctx, target)
	s.settle()

	res := s.result()
	res.Summary = summary
	res.Summarizer = target
	res.Evaluated = true
	return res, streamErr
}

// reset moves idle/settled -> running with fresh per-provider state: pending
// for active providers, finished for inactive ones so they never block
// aggregate completion.
func (s *Session) reset(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseRunning
	s.prompt = prompt
	s.states = make(map[provider.Key]*ProviderResult, len(provider.Keys()))
	for _, key := range provider.Keys() {
		status := StatusFinished
		if s.settings.Active(key) {
			status = StatusPending
		}
		s.states[key] = &ProviderResult{Status: status}
	}
}

// applyRaw folds one raw-phase event into the per-provider state, enforcing
// the transition rules: pending -> streaming on start, streaming -> finished
// on end, pending|streaming -> error on error. Events for unknown models and
// transitions out of terminal states are ignored.
func (s *Session) applyRaw(ev events.Event) {
	s.mu.Lock()
	state, ok := s.states[provider.Key(ev.ModelID())]
	if !ok {
		s.mu.Unlock()
		return
	}

	switch e := ev.(type) {
	case events.Start:
		if state.Status == StatusPending {
			state.Status = StatusStreaming
		}
	case events.Delta:
		if !state.Status.Terminal() {
			state.Text += e.Text
		}
	case events.End:
		if state.Status == StatusStreaming || state.Status == StatusPending {
			state.Status = StatusFinished
		}
	case events.Error:
		if !state.Status.Terminal() {
			state.Status = StatusError
			state.Err = e.Err.Error()
		}
	}
	s.mu.Unlock()

	if s.observer != nil {
		s.observer(ev)
	}
}

// beginEvaluation performs the guarded running -> evaluating transition. It
// fires at most once per cycle: only the running phase can transition, and
// only when every active provider is terminal with at least one finished
// holding non-empty text. It returns the chosen summarizer: the first
// finished provider in canonical order.
func (s *Session) beginEvaluation() (provider.Key, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRunning {
		return "", false
	}
	for _, key := range s.settings.ActiveKeys() {
		if !s.states[key].Status.Terminal() {
			return "", false
		}
	}
	for _, key := range provider.Keys() {
		state := s.states[key]
		if s.settings.Active(key) && state.Status == StatusFinished && strings.TrimSpace(state.Text) != "" {
			s.phase = PhaseEvaluating
			return key, true
		}
	}
	return "", false
}

// evaluate issues the second aggregator request, targeting only the chosen
// summarizer, and returns the summary text. Any failure degrades to the
// fixed fallback text; it never propagates.
func (s *Session) evaluate(ctx context.Context, target provider.Key) string {
	s.mu.Lock()
	responses := make(map[provider.Key]string)
	for _, key := range provider.Keys() {
		state := s.states[key]
		if s.settings.Active(key) && state.Status == StatusFinished && strings.TrimSpace(state.Text) != "" {
			responses[key] = state.Text
		}
	}
	prompt := s.prompt
	s.mu.Unlock()

	req := ChatRequest{
		Prompt:  BuildEvaluationPrompt(prompt, responses),
		APIKeys: map[provider.Key]string{target: s.settings.APIKeys[target]},
		SelectedModels: map[provider.Key]string{
			target: s.settings.SelectedModels[target],
		},
	}

	var sb strings.Builder
	var failed bool
	err := s.transport.Stream(ctx, req, func(ev events.Event) {
		// only the summarizer's fragments count; anything else is ignored
		if ev.ModelID() != string(target) {
			return
		}
		switch e := ev.(type) {
		case events.Delta:
			sb.WriteString(e.Text)
		case events.Error:
			failed = true
		}
	})
	if err != nil || failed {
		return FallbackSummary
	}
	return sb.String()
}

func (s *Session) settle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseSettled
}

func (s *Session) result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := &Result{Responses: make(map[provider.Key]*ProviderResult, len(s.states))}
	for key, state := range s.states {
		copied := *state
		out.Responses[key] = &copied
	}
	return out
}
