package backend

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/erranza/internal/utils"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	maxErrorBody    = 300
)

// Item is a single row as returned by the REST API.
type Item map[string]any

// GetItems makes GET requests to the table endpoint and returns rows from all pages.
// Paging stops at the first short page.
func (c *Client) GetItems(ctx context.Context, table string, q url.Values) ([]Item, error) {
	var items []Item

	limit := c.PageSize
	if limit <= 0 {
		limit = pageSize
	}

	for offset := 0; ; offset += limit {
		page := url.Values{}
		for k, v := range q {
			page[k] = append([]string(nil), v...)
		}
		page.Set("limit", strconv.Itoa(limit))
		page.Set("offset", strconv.Itoa(offset))

		var rows []Item
		if err := c.getJSON(ctx, c.tableURL(table), page, &rows); err != nil {
			return nil, err
		}

		items = append(items, rows...)

		if len(rows) < limit {
			break
		}
		c.logger.Debug("additional request needed", zap.String("table", table), zap.Int("offset", offset+limit))
	}

	return items, nil
}

func (c *Client) getJSON(ctx context.Context, url string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	req.Header.Set("Accept", contentType)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s: %s", resp.Status, utils.TruncateForLog(string(data), maxErrorBody))
	}

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// postJSON inserts rows without asking the API to echo them back.
func (c *Client) postJSON(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		data, _ := readBody(resp)
		return fmt.Errorf("bad status: %s: %s", resp.Status, utils.TruncateForLog(string(data), maxErrorBody))
	}

	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return io.ReadAll(reader)
}
