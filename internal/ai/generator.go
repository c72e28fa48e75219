package ai

import (
	"context"
	"strings"
)

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Generator is a text completion backend used for long-form narratives.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// NormalizeProvider lowercases the provider name, defaulting to gemini.
func NormalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	switch provider {
	case "":
		return ProviderGemini
	case "claude":
		return ProviderAnthropic
	default:
		return provider
	}
}
