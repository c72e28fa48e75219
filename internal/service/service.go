// Package service runs the matching pipeline: fetch a questionnaire, extract
// traits, narrow the catalog, score, explain and persist.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/erranza/internal/catalog"
	"github.com/spigell/erranza/internal/destination"
	"github.com/spigell/erranza/internal/matching"
	"github.com/spigell/erranza/internal/narrative"
	"github.com/spigell/erranza/internal/questionnaire"
	"github.com/spigell/erranza/internal/session"
	"github.com/spigell/erranza/internal/traits"
)

const (
	DefaultTop         = 5
	DefaultConcurrency = 4
)

type RespondentStore interface {
	GetResponse(ctx context.Context, respondentID string) (questionnaire.RawResponse, error)
	ListRespondents(ctx context.Context) ([]string, error)
}

type CatalogStore interface {
	ListDestinations(ctx context.Context) (*destination.Catalog, error)
}

type MatchStore interface {
	SaveMatches(ctx context.Context, matches []matching.StoredMatch) error
}

// Store is implemented by both the REST backend and the local SQLite cache.
type Store interface {
	RespondentStore
	CatalogStore
	MatchStore
}

// Config holds the service defaults. Per-call Options override them.
type Config struct {
	Top         int            `mapstructure:"top"`
	Persist     bool           `mapstructure:"persist"`
	Concurrency int            `mapstructure:"concurrency"`
	Catalog     catalog.Config `mapstructure:"catalog"`
}

// Deps aggregates the collaborators of the service.
type Deps struct {
	Store     Store
	Extractor *traits.Extractor
	Scorer    *matching.Scorer
	// Prose is optional. Without it narratives stay template-only.
	Prose  *narrative.ProseWriter
	Logger *zap.Logger
}

// Options tune a single matching run.
type Options struct {
	Top       int
	Catalog   catalog.Config
	NoPersist bool
	SkipProse bool
}

type Service struct {
	store     Store
	extractor *traits.Extractor
	scorer    *matching.Scorer
	prose     *narrative.ProseWriter
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

func New(deps Deps, cfg Config) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Extractor == nil {
		deps.Extractor = traits.NewExtractor(traits.DefaultTable())
	}
	if deps.Scorer == nil {
		deps.Scorer = matching.NewScorer(matching.DefaultWeights())
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Top <= 0 {
		cfg.Top = DefaultTop
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	return &Service{
		store:     deps.Store,
		extractor: deps.Extractor,
		scorer:    deps.Scorer,
		prose:     deps.Prose,
		cfg:       cfg,
		logger:    deps.Logger,
		now:       time.Now,
	}, nil
}

// Match is one ranked destination with its explanation.
type Match struct {
	Rank        int                 `json:"rank"`
	Destination *destination.Record `json:"destination"`
	Result      matching.Result     `json:"result"`
	Narrative   narrative.Narrative `json:"narrative"`
}

// Report is the outcome of matching one questionnaire against the catalog.
type Report struct {
	SessionID    string               `json:"session_id"`
	RespondentID string               `json:"respondent_id,omitempty"`
	Format       questionnaire.Format `json:"format"`
	Traits       traits.Vector        `json:"traits"`
	Considered   int                  `json:"considered"`
	Filters      []catalog.Status     `json:"filters"`
	Results      []matching.Result    `json:"results"`
	Matches      []Match              `json:"matches"`
	Persisted    bool                 `json:"persisted"`
	PersistError string               `json:"persist_error,omitempty"`
	GeneratedAt  time.Time            `json:"generated_at"`
}

// TraitsReport is the psychometric profile of a respondent.
type TraitsReport struct {
	RespondentID string               `json:"respondent_id"`
	Format       questionnaire.Format `json:"format"`
	Traits       traits.Vector        `json:"traits"`
}

// Traits extracts the trait vector from the respondent's latest questionnaire.
func (s *Service) Traits(ctx context.Context, respondentID string) (*TraitsReport, error) {
	raw, err := s.store.GetResponse(ctx, respondentID)
	if err != nil {
		return nil, fmt.Errorf("fetch response: %w", err)
	}

	resp := questionnaire.Ingest(raw)
	return &TraitsReport{
		RespondentID: respondentID,
		Format:       resp.Format,
		Traits:       s.extractor.Extract(resp),
	}, nil
}

// Respondents lists the respondents with a stored questionnaire, newest first.
func (s *Service) Respondents(ctx context.Context) ([]string, error) {
	ids, err := s.store.ListRespondents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list respondents: %w", err)
	}
	return ids, nil
}

// Destinations returns the catalog after the configured and requested filters.
func (s *Service) Destinations(ctx context.Context, override catalog.Config) (*destination.Catalog, []catalog.Status, error) {
	all, err := s.store.ListDestinations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch catalog: %w", err)
	}
	return s.filter(ctx, all, override)
}

// Match runs the full pipeline for a stored respondent.
func (s *Service) Match(ctx context.Context, sess *session.Session, respondentID string, opts Options) (*Report, error) {
	respondentID = strings.TrimSpace(respondentID)
	if respondentID == "" {
		return nil, fmt.Errorf("respondent id is required: %w", questionnaire.ErrNoResponse)
	}

	raw, err := s.store.GetResponse(ctx, respondentID)
	if err != nil {
		return nil, fmt.Errorf("fetch response: %w", err)
	}

	all, err := s.store.ListDestinations(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	return s.evaluate(ctx, sess, respondentID, raw, all, opts)
}

// MatchAnswers runs the pipeline for answers supplied by the caller.
// Results are persisted only when a respondent id is given.
func (s *Service) MatchAnswers(ctx context.Context, sess *session.Session, respondentID string, raw questionnaire.RawResponse, opts Options) (*Report, error) {
	all, err := s.store.ListDestinations(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	respondentID = strings.TrimSpace(respondentID)
	if respondentID == "" {
		opts.NoPersist = true
	}
	return s.evaluate(ctx, sess, respondentID, raw, all, opts)
}

func (s *Service) evaluate(ctx context.Context, sess *session.Session, respondentID string, raw questionnaire.RawResponse, all *destination.Catalog, opts Options) (*Report, error) {
	if sess == nil {
		sess = session.New(session.SourceAPI)
	}
	log := s.logger.With(sess.Fields(respondentID)...)

	resp := questionnaire.Ingest(raw)
	vector := s.extractor.Extract(resp)

	log.Debug("traits extracted",
		zap.Stringer("format", resp.Format),
		zap.Float64("energy", vector.Energy),
		zap.Float64("social", vector.Social),
		zap.Float64("luxury", vector.Luxury),
		zap.Float64("pace", vector.Pace),
	)

	filtered, statuses, err := s.filter(ctx, all, opts.Catalog)
	if err != nil {
		return nil, err
	}

	results := s.scorer.Score(vector, filtered.Items)

	top := opts.Top
	if top <= 0 {
		top = s.cfg.Top
	}

	report := &Report{
		SessionID:    sess.ID,
		RespondentID: respondentID,
		Format:       resp.Format,
		Traits:       vector,
		Considered:   filtered.Len(),
		Filters:      statuses,
		Results:      results,
		Matches:      make([]Match, 0, top),
		GeneratedAt:  s.now().UTC(),
	}

	for i, result := range matching.Top(results, top) {
		d := result.Destination
		if d == nil {
			d = filtered.FindByID(result.DestinationID)
		}
		n := narrative.Generate(vector, result, d)
		if !opts.SkipProse && s.prose != nil {
			n = s.prose.Write(ctx, vector, result, d, n)
		}
		report.Matches = append(report.Matches, Match{
			Rank:        i + 1,
			Destination: d,
			Result:      result,
			Narrative:   n,
		})
	}

	log.Info("matching completed",
		zap.Int("considered", report.Considered),
		zap.Int("matches", len(report.Matches)),
	)

	if s.cfg.Persist && !opts.NoPersist && len(report.Matches) > 0 {
		if err := s.store.SaveMatches(ctx, s.storedMatches(sess, report)); err != nil {
			log.Warn("persisting matches failed", zap.Error(err))
			report.PersistError = err.Error()
		} else {
			report.Persisted = true
		}
	}

	return report, nil
}

func (s *Service) filter(ctx context.Context, all *destination.Catalog, override catalog.Config) (*destination.Catalog, []catalog.Status, error) {
	cfg := s.cfg.Catalog.Merge(override)
	steps := catalog.Default()

	filtered, err := catalog.Run(ctx, &cfg, catalog.Deps{Logger: s.logger}, steps, all)
	if err != nil {
		return nil, nil, fmt.Errorf("filter catalog: %w", err)
	}
	return filtered, catalog.Describe(steps), nil
}

func (s *Service) storedMatches(sess *session.Session, report *Report) []matching.StoredMatch {
	out := make([]matching.StoredMatch, 0, len(report.Matches))
	for _, m := range report.Matches {
		out = append(out, matching.StoredMatch{
			ID:            uuid.NewString(),
			SessionID:     sess.ID,
			RespondentID:  report.RespondentID,
			DestinationID: m.Result.DestinationID,
			Rank:          m.Rank,
			FitScore:      m.Result.FitScore,
			Breakdown:     m.Result.Breakdown,
			Label:         m.Narrative.Label,
			CreatedAt:     report.GeneratedAt,
		})
	}
	return out
}
