package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/erranza/internal/matching"
)

// SaveMatches stores computed matches in the audit table.
func (c *Client) SaveMatches(ctx context.Context, matches []matching.StoredMatch) error {
	if len(matches) == 0 {
		return nil
	}

	if err := c.postJSON(ctx, c.tableURL(MatchesTable), matches); err != nil {
		return fmt.Errorf("save matches: %w", err)
	}

	c.logger.Debug("matches saved",
		zap.String("respondent_id", matches[0].RespondentID),
		zap.Int("count", len(matches)),
	)
	return nil
}
