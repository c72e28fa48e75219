package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/erranza/internal/destination"
	"github.com/spigell/erranza/internal/matching"
	"github.com/spigell/erranza/internal/traits"
	"github.com/spigell/erranza/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	minProseRunes       = 80
)

var errMalformedProse = errors.New("malformed prose")

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// ProseWriter asks a text generator for long-form narrative prose.
// Any failure leaves the template narrative in place.
type ProseWriter struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewProseWriter(generator contentGenerator, logger *zap.Logger, maxLogLength int) *ProseWriter {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ProseWriter{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Write returns base with generated prose, or base unchanged when generation fails.
func (w *ProseWriter) Write(ctx context.Context, v traits.Vector, result matching.Result, d *destination.Record, base Narrative) Narrative {
	if w == nil || w.generator == nil || d == nil {
		return base
	}

	prompt, err := buildPrompt(v, result, d, base)
	if err != nil {
		w.logger.Warn("building narrative prompt failed", zap.String("destination_id", d.ID), zap.Error(err))
		return base
	}

	w.logger.Debug("narrative generate content request",
		zap.String("destination_id", d.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, w.maxLogLen)),
	)

	raw, err := w.generator.GenerateContent(ctx, prompt)
	if err != nil {
		w.logger.Warn("narrative generation failed, using template",
			zap.String("destination_id", d.ID),
			zap.Error(err),
		)
		return base
	}

	w.logger.Debug("narrative generate content response",
		zap.String("destination_id", d.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, w.maxLogLen)),
	)

	prose, err := parseProse(raw)
	if err != nil {
		w.logger.Warn("narrative response rejected, using template",
			zap.String("destination_id", d.ID),
			zap.Error(err),
		)
		return base
	}

	base.Prose = prose
	base.Source = SourceGenerated
	return base
}

func buildPrompt(v traits.Vector, result matching.Result, d *destination.Record, base Narrative) (string, error) {
	traitsJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal traits: %w", err)
	}
	breakdownJSON, err := json.MarshalIndent(result.Breakdown, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal breakdown: %w", err)
	}

	tension := "none"
	if base.Tension.Significant() {
		tension = base.Tension.Message + " " + base.Tension.Mitigation
	}

	country := strings.TrimSpace(d.Country)
	if country == "" {
		country = "unknown country"
	}

	replacer := strings.NewReplacer(
		"{{DESTINATION}}", singleLine(d.DisplayName()),
		"{{COUNTRY}}", singleLine(country),
		"{{LABEL}}", base.Label,
		"{{FIT_SCORE}}", fmt.Sprintf("%.1f", result.FitScore),
		"{{TRAITS_JSON}}", string(traitsJSON),
		"{{BREAKDOWN_JSON}}", string(breakdownJSON),
		"{{TENSION}}", tension,
	)
	return replacer.Replace(promptTemplate), nil
}

// parseProse strips code fences and rejects responses that are not usable prose.
func parseProse(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```markdown")
		cleaned = strings.TrimPrefix(cleaned, "```text")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx != -1 {
			cleaned = cleaned[:idx]
		}
	}
	cleaned = strings.TrimSpace(strings.Trim(cleaned, "`"))

	switch {
	case cleaned == "":
		return "", fmt.Errorf("%w: empty response", errMalformedProse)
	case strings.HasPrefix(cleaned, "{"), strings.HasPrefix(cleaned, "["), strings.HasPrefix(cleaned, "<"):
		return "", fmt.Errorf("%w: structured payload instead of prose", errMalformedProse)
	case strings.Contains(cleaned, "{{"):
		return "", fmt.Errorf("%w: unreplaced template placeholder", errMalformedProse)
	case utf8.RuneCountInString(cleaned) < minProseRunes:
		return "", fmt.Errorf("%w: response too short", errMalformedProse)
	}

	return cleaned, nil
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
