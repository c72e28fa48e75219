package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/erranza/internal/session"
)

// MatchAll matches several respondents concurrently against a single catalog snapshot.
// With no ids it matches every respondent on record. A failing respondent does not stop
// the others: reports are returned in input order together with the combined error.
func (s *Service) MatchAll(ctx context.Context, sess *session.Session, respondentIDs []string, opts Options) ([]*Report, error) {
	if sess == nil {
		sess = session.New(session.SourceBatch)
	}

	if len(respondentIDs) == 0 {
		ids, err := s.store.ListRespondents(ctx)
		if err != nil {
			return nil, fmt.Errorf("list respondents: %w", err)
		}
		respondentIDs = ids
	}

	all, err := s.store.ListDestinations(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	reports := make([]*Report, len(respondentIDs))

	var (
		mu   sync.Mutex
		errs error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, id := range respondentIDs {
		g.Go(func() error {
			raw, err := s.store.GetResponse(gctx, id)
			if err == nil {
				reports[i], err = s.evaluate(gctx, sess, id, raw, all, opts)
			}
			if err != nil {
				s.logger.Warn("matching respondent failed", append(sess.Fields(id), zap.Error(err))...)
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("respondent %s: %w", id, err))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*Report, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}

	s.logger.Info("batch completed",
		zap.String("session_id", sess.ID),
		zap.Int("respondents", len(respondentIDs)),
		zap.Int("matched", len(out)),
		zap.Int("failed", len(multierr.Errors(errs))),
	)

	return out, errs
}
