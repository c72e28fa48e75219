// Package backend talks to the hosted Erranza database through its PostgREST API.
package backend

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	restPath  = "/rest/v1/"
	userAgent = "erranza-matcher"
	// Rows requested per page.
	pageSize = 500

	DestinationsTable = "destinations"
	ResponsesTable    = "questionnaire_responses"
	MatchesTable      = "match_results"
)

type Client struct {
	apiKey     string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	PageSize   int
}

func New(logger *zap.Logger, apiURL, apiKey string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey: apiKey,
		APIURL: strings.TrimRight(apiURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
		PageSize:  pageSize,
	}
}

func (c *Client) tableURL(table string) string {
	return c.APIURL + restPath + table
}
