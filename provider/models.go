package provider

import "strings"

// Hardcoded fallback model per provider, used when neither the request nor
// the deployment names a variant.
const (
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
)

// DefaultModel returns the hardcoded fallback for k.
func DefaultModel(k Key) string {
	switch k {
	case Gemini:
		return DefaultGeminiModel
	case OpenAI:
		return DefaultOpenAIModel
	case Anthropic:
		return DefaultAnthropicModel
	}
	return ""
}

// ResolveModel picks the model variant for a request: the per-request
// override wins, then the per-deployment default, then the hardcoded default.
func ResolveModel(k Key, override, deploymentDefault string) string {
	if m := strings.TrimSpace(override); m != "" {
		return m
	}
	if m := strings.TrimSpace(deploymentDefault); m != "" {
		return m
	}
	return DefaultModel(k)
}
