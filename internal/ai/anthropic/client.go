package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goanthropic "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const (
	defaultModel     = "claude-3-5-haiku-latest"
	defaultMaxTokens = 1000
)

// Generator produces narrative prose through the Anthropic messages API.
type Generator struct {
	client    *goanthropic.Client
	modelName string
	logger    *zap.Logger
}

func NewGenerator(logger *zap.Logger, apiKey, model, baseURL string) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	var opts []goanthropic.ClientOption
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, goanthropic.WithBaseURL(baseURL))
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:    goanthropic.NewClient(apiKey, opts...),
		modelName: model,
		logger:    logger,
	}, nil
}

func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("anthropic generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	resp, err := g.client.CreateMessages(ctx, goanthropic.MessagesRequest{
		Model: goanthropic.Model(g.modelName),
		Messages: []goanthropic.Message{
			{
				Role: goanthropic.RoleUser,
				Content: []goanthropic.MessageContent{
					goanthropic.NewTextMessageContent(prompt),
				},
			},
		},
		MaxTokens: defaultMaxTokens,
	})
	if err != nil {
		var apiErr *goanthropic.APIError
		if errors.As(err, &apiErr) {
			g.logger.Warn("anthropic api error",
				zap.String("model", g.modelName),
				zap.String("type", string(apiErr.Type)),
				zap.String("message", apiErr.Message),
			)
		}
		return "", fmt.Errorf("create messages: %w", err)
	}

	var builder strings.Builder
	for _, content := range resp.Content {
		if content.Text == nil {
			continue
		}
		text := strings.TrimSpace(*content.Text)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(text)
	}

	if builder.Len() == 0 {
		return "", errors.New("anthropic api returned empty response")
	}
	return builder.String(), nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}
