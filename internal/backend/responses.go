package backend

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/spigell/erranza/internal/questionnaire"
)

const answersColumn = "answers"

// Row metadata that never holds questionnaire answers.
var metadataColumns = map[string]bool{
	"id":            true,
	"respondent_id": true,
	"created_at":    true,
	"updated_at":    true,
}

// Submission is one stored questionnaire response.
type Submission struct {
	RespondentID string
	CreatedAt    time.Time
	Answers      questionnaire.RawResponse
}

// GetResponse returns the most recent questionnaire response of a respondent.
func (c *Client) GetResponse(ctx context.Context, respondentID string) (questionnaire.RawResponse, error) {
	sub, err := c.GetLatestSubmission(ctx, respondentID)
	if err != nil {
		return nil, err
	}
	return sub.Answers, nil
}

// GetLatestSubmission returns the most recent response with its creation time.
// Responses are stored either with an answers JSON column or as flat columns.
// An unparseable created_at is left zero.
func (c *Client) GetLatestSubmission(ctx context.Context, respondentID string) (*Submission, error) {
	respondentID = strings.TrimSpace(respondentID)
	if respondentID == "" {
		return nil, questionnaire.ErrNoResponse
	}

	q := url.Values{}
	q.Set("select", "*")
	q.Set("respondent_id", "eq."+respondentID)
	q.Set("order", "created_at.desc")
	q.Set("limit", "1")

	var rows []Item
	if err := c.getJSON(ctx, c.tableURL(ResponsesTable), q, &rows); err != nil {
		return nil, fmt.Errorf("get response of %s: %w", respondentID, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("respondent %s: %w", respondentID, questionnaire.ErrNoResponse)
	}

	sub := &Submission{
		RespondentID: respondentID,
		Answers:      answersFromRow(rows[0]),
	}
	if created, err := cast.ToTimeE(rows[0]["created_at"]); err == nil {
		sub.CreatedAt = created.UTC()
	}
	return sub, nil
}

// ListRespondents returns respondent ids with at least one response, newest first.
func (c *Client) ListRespondents(ctx context.Context) ([]string, error) {
	q := url.Values{}
	q.Set("select", "respondent_id")
	q.Set("order", "created_at.desc")

	items, err := c.GetItems(ctx, ResponsesTable, q)
	if err != nil {
		return nil, fmt.Errorf("list respondents: %w", err)
	}

	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id, _ := item["respondent_id"].(string)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	return ids, nil
}

func answersFromRow(row Item) questionnaire.RawResponse {
	if answers, ok := row[answersColumn].(map[string]any); ok {
		return questionnaire.RawResponse(answers)
	}

	raw := questionnaire.RawResponse{}
	for k, v := range row {
		if metadataColumns[k] || k == answersColumn {
			continue
		}
		raw[k] = v
	}
	return raw
}
