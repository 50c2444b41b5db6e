package events

import (
	"io"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
)

// Encoder writes events to a shared sink as newline-delimited JSON. Writes
// from concurrent producers are serialized so that every line lands on the
// wire as a single atomic record, and the sink is flushed after each one.
type Encoder struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

// NewEncoder wraps w. When w implements http.Flusher every emitted line is
// flushed immediately, which keeps chunked HTTP responses unbuffered.
func NewEncoder(w io.Writer) *Encoder {
	enc := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		enc.flusher = f
	}
	return enc
}

// Emit serializes ev followed by a newline in one write.
func (e *Encoder) Emit(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	line := append(data, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(line); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
