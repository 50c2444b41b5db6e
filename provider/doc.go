// Package provider defines the adapter contract shared by every upstream
// model provider, the registry the server resolves adapters from, and the
// error taxonomy for recognized upstream failure modes.
//
// An Adapter owns one provider's native streaming protocol end to end: it
// issues the request, consumes the native stream, and emits normalized
// events. Faults never escape an adapter as a panic or a returned error;
// they arrive on the event channel as a terminal events.Error so a single
// failing provider cannot disturb its siblings.
//
// Concrete adapters live in the subpackages openai, anthropic and gemini.
package provider
