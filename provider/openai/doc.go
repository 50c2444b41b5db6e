// Package openai adapts the OpenAI chat completions streaming API to the
// normalized event sequence.
package openai
