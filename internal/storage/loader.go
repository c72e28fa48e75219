package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spigell/erranza/internal/destination"
	"github.com/spigell/erranza/internal/questionnaire"
)

// ResponseRecord is one questionnaire submission in an import file.
type ResponseRecord struct {
	RespondentID string                    `json:"respondent_id"`
	CreatedAt    time.Time                 `json:"created_at"`
	Answers      questionnaire.RawResponse `json:"answers"`
}

// LoadDestinationsFromFile reads destination records from a JSON array file.
func LoadDestinationsFromFile(path string) ([]*destination.Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read destinations file: %w", err)
	}

	var records []*destination.Record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("unmarshal destinations: %w", err)
	}
	return records, nil
}

// LoadResponsesFromFile reads questionnaire submissions from a JSON array file.
func LoadResponsesFromFile(path string) ([]ResponseRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read responses file: %w", err)
	}

	var records []ResponseRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("unmarshal responses: %w", err)
	}
	return records, nil
}
