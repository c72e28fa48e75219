// Package storage is the local SQLite cache of destinations, questionnaire responses and match results.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spigell/erranza/internal/destination"
	"github.com/spigell/erranza/internal/matching"
	"github.com/spigell/erranza/internal/questionnaire"
)

// timeLayout is fixed-width so created_at columns sort as text in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) EnsureSchema() error {
	statements := []string{`
CREATE TABLE IF NOT EXISTS destinations (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  region TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  flight_hours REAL,
  record_json TEXT NOT NULL DEFAULT '{}'
);`, `
CREATE TABLE IF NOT EXISTS questionnaire_responses (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  respondent_id TEXT NOT NULL,
  answers_json TEXT NOT NULL DEFAULT '{}',
  created_at TEXT NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS match_results (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  respondent_id TEXT NOT NULL,
  destination_id TEXT NOT NULL,
  rank INTEGER NOT NULL,
  fit_score REAL NOT NULL,
  breakdown_json TEXT NOT NULL DEFAULT '{}',
  affinity_label TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_responses_respondent ON questionnaire_responses(respondent_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_respondent ON match_results(respondent_id, created_at);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertDestinations inserts or replaces catalog records by id.
func (s *SQLiteStore) UpsertDestinations(ctx context.Context, items []*destination.Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO destinations (id, name, country, region, is_active, flight_hours, record_json)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name = excluded.name,
  country = excluded.country,
  region = excluded.region,
  is_active = excluded.is_active,
  flight_hours = excluded.flight_hours,
  record_json = excluded.record_json
`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, r := range items {
		if r == nil || r.ID == "" {
			continue
		}
		payload, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("marshal destination %s: %w", r.ID, err)
		}

		var flightHours sql.NullFloat64
		if r.FlightHours != nil {
			flightHours = sql.NullFloat64{Float64: *r.FlightHours, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Name, r.Country, r.Region, r.IsActive(), flightHours, string(payload),
		); err != nil {
			return 0, fmt.Errorf("upsert destination %s: %w", r.ID, err)
		}
		n++
	}

	return n, tx.Commit()
}

// ListDestinations returns the whole catalog ordered by id.
func (s *SQLiteStore) ListDestinations(ctx context.Context) (*destination.Catalog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record_json FROM destinations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	catalog := &destination.Catalog{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r destination.Record
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode destination: %w", err)
		}
		catalog.Items = append(catalog.Items, &r)
	}
	return catalog, rows.Err()
}

// SaveResponse records a questionnaire submission. A submission identical to a
// stored one (same respondent, time and answers) is skipped.
func (s *SQLiteStore) SaveResponse(ctx context.Context, respondentID string, raw questionnaire.RawResponse, createdAt time.Time) error {
	if respondentID == "" {
		return errors.New("respondent id is required")
	}
	if raw == nil {
		raw = questionnaire.RawResponse{}
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal response of %s: %w", respondentID, err)
	}
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO questionnaire_responses (respondent_id, answers_json, created_at)
SELECT ?1, ?2, ?3
WHERE NOT EXISTS (
  SELECT 1 FROM questionnaire_responses
  WHERE respondent_id = ?1 AND created_at = ?3 AND answers_json = ?2
)
`, respondentID, string(payload), createdAt.UTC().Format(timeLayout))
	return err
}

// CountResponses returns the number of stored submissions.
func (s *SQLiteStore) CountResponses(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questionnaire_responses`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// GetResponse returns the latest response of the respondent.
func (s *SQLiteStore) GetResponse(ctx context.Context, respondentID string) (questionnaire.RawResponse, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
SELECT answers_json FROM questionnaire_responses
WHERE respondent_id = ?
ORDER BY created_at DESC, id DESC
LIMIT 1
`, respondentID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("respondent %s: %w", respondentID, questionnaire.ErrNoResponse)
	}
	if err != nil {
		return nil, err
	}

	var raw questionnaire.RawResponse
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("decode response of %s: %w", respondentID, err)
	}
	return raw, nil
}

// ListRespondents returns respondent ids, most recent submission first.
func (s *SQLiteStore) ListRespondents(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT respondent_id FROM questionnaire_responses
GROUP BY respondent_id
ORDER BY MAX(created_at) DESC, respondent_id
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveMatches appends match results in a single transaction.
func (s *SQLiteStore) SaveMatches(ctx context.Context, matches []matching.StoredMatch) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO match_results
(id, session_id, respondent_id, destination_id, rank, fit_score, breakdown_json, affinity_label, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range matches {
		breakdown, _ := json.Marshal(m.Breakdown)
		if _, err := stmt.ExecContext(ctx,
			m.ID, m.SessionID, m.RespondentID, m.DestinationID, m.Rank, m.FitScore,
			string(breakdown), m.Label, m.CreatedAt.UTC().Format(timeLayout),
		); err != nil {
			return fmt.Errorf("insert match %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// ListMatches returns stored matches of a respondent, newest session first and by rank within it.
func (s *SQLiteStore) ListMatches(ctx context.Context, respondentID string) ([]matching.StoredMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, respondent_id, destination_id, rank, fit_score, breakdown_json, affinity_label, created_at
FROM match_results
WHERE respondent_id = ?
ORDER BY created_at DESC, rank
`, respondentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []matching.StoredMatch
	for rows.Next() {
		var m matching.StoredMatch
		var breakdown, createdAt string
		if err := rows.Scan(
			&m.ID, &m.SessionID, &m.RespondentID, &m.DestinationID, &m.Rank, &m.FitScore,
			&breakdown, &m.Label, &createdAt,
		); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(breakdown), &m.Breakdown)
		m.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}
