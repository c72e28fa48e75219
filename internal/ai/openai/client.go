package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const defaultModel = gopenai.GPT4oMini

// Generator produces narrative prose through the OpenAI chat completions API.
type Generator struct {
	client    *gopenai.Client
	modelName string
	logger    *zap.Logger
}

// NewGenerator creates a Generator. baseURL is optional and targets compatible gateways.
func NewGenerator(logger *zap.Logger, apiKey, model, baseURL string) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	config := gopenai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		config.BaseURL = baseURL
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:    gopenai.NewClientWithConfig(config),
		modelName: model,
		logger:    logger,
	}, nil
}

func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("openai generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	resp, err := g.client.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model: g.modelName,
		Messages: []gopenai.ChatCompletionMessage{
			{
				Role:    gopenai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		var apiErr *gopenai.APIError
		if errors.As(err, &apiErr) {
			g.logger.Warn("openai api error",
				zap.String("model", g.modelName),
				zap.Int("status", apiErr.HTTPStatusCode),
				zap.String("message", apiErr.Message),
			)
		}
		return "", fmt.Errorf("create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai api returned no choices")
	}

	output := strings.TrimSpace(resp.Choices[0].Message.Content)
	if output == "" {
		return "", errors.New("openai api returned empty response")
	}
	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}
