package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/erranza/internal/destination"
)

// ListDestinations loads the full catalog ordered by id.
func (c *Client) ListDestinations(ctx context.Context) (*destination.Catalog, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "id.asc")

	items, err := c.GetItems(ctx, DestinationsTable, q)
	if err != nil {
		return nil, fmt.Errorf("list destinations: %w", err)
	}

	records, err := decodeRecords(items)
	if err != nil {
		return nil, fmt.Errorf("decode destinations: %w", err)
	}

	return &destination.Catalog{Items: records}, nil
}

func decodeRecords(items []Item) ([]*destination.Record, error) {
	var records []*destination.Record

	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           &records,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}

	raw := make([]map[string]any, 0, len(items))
	for _, item := range items {
		raw = append(raw, item)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}

	return records, nil
}
