// Package anthropic adapts the Anthropic messages streaming API to the
// normalized event sequence. Only text_delta fragments are forwarded; the
// other native event kinds carry structure this system does not render.
package anthropic
