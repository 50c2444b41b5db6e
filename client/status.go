package client

// Status tracks one provider's lifecycle within a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusFinished  Status = "finished"
	StatusError     Status = "error"
)

// Terminal reports whether the provider has settled.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusError
}

// Phase is the run cycle of a session.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseRunning    Phase = "running"
	PhaseEvaluating Phase = "evaluating"
	PhaseSettled    Phase = "settled"
)
