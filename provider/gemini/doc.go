// Package gemini adapts the Gemini streamGenerateContent SSE protocol to
// the normalized event sequence.
package gemini
