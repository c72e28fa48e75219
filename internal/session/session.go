// Package session identifies one matching run so stored results and logs can be correlated.
package session

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/erranza/internal/logger"
)

// Source tells which entry point started the session.
type Source string

const (
	SourceCLI   Source = "cli"
	SourceAPI   Source = "api"
	SourceBatch Source = "batch"
)

type Session struct {
	ID        string    `json:"id"`
	Source    Source    `json:"source"`
	StartedAt time.Time `json:"started_at"`
}

func New(source Source) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: time.Now().UTC(),
	}
}

// Fields returns the log fields for the session and respondent.
func (s *Session) Fields(respondentID string) []zap.Field {
	if s == nil {
		return logger.SessionFields("", "", respondentID)
	}
	return logger.SessionFields(s.ID, string(s.Source), respondentID)
}
