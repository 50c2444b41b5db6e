// Package client is the Go consumer of the aggregator: persisted settings,
// the NDJSON transport, and the session state machine that runs the
// comparison phase and the follow-up evaluation pass.
package client
