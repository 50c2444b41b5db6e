package slogx

import (
	"log/slog"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// Provider returns the attribute tagging a log record with the upstream
// provider it concerns.
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// RequestID returns the attribute carrying the per-request correlation id.
func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}
