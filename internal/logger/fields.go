package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldSession    = "session_id"
	FieldSource     = "session_source"
	FieldRespondent = "respondent_id"
	// FieldProvider is the structured log field key for the narrative provider name.
	FieldProvider = "narrative_provider"
	// FieldModel is the structured log field key for the narrative model identifier.
	FieldModel = "narrative_model"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// SessionFields describes a matching session and the respondent it serves.
func SessionFields(sessionID, source, respondentID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldSession, Value: sessionID},
		StringField{Key: FieldSource, Value: source},
		StringField{Key: FieldRespondent, Value: respondentID},
	)
}

// ProviderFields returns the fields naming the narrative provider and model.
func ProviderFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithProvider attaches the provider fields to the logger.
func WithProvider(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, ProviderFields(provider, model)...)
}
