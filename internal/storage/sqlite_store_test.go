package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/erranza/internal/destination"
	"github.com/spigell/erranza/internal/matching"
	"github.com/spigell/erranza/internal/questionnaire"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "erranza.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureSchema())
	return store
}

func TestDestinationsUpsertAndList(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	inactive := false
	n, err := store.UpsertDestinations(ctx, []*destination.Record{
		{ID: "lisbon", Name: "Lisbon", Country: "Portugal", Restorative: destination.Float(40)},
		{ID: "bali", Name: "Bali", Active: &inactive, FlightHours: destination.Float(16)},
		nil,
		{Name: "no id"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.UpsertDestinations(ctx, []*destination.Record{
		{ID: "lisbon", Name: "Lisboa", Country: "Portugal"},
	})
	require.NoError(t, err)

	catalog, err := store.ListDestinations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bali", "lisbon"}, catalog.IDs())

	lisbon := catalog.FindByID("lisbon")
	assert.Equal(t, "Lisboa", lisbon.Name)
	assert.Nil(t, lisbon.Restorative, "upsert replaces the whole record")

	bali := catalog.FindByID("bali")
	assert.False(t, bali.IsActive())
	require.NotNil(t, bali.FlightHours)
	assert.Equal(t, 16.0, *bali.FlightHours)
}

func TestResponses(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveResponse(ctx, "anna", questionnaire.RawResponse{"Q4": 2}, base))
	require.NoError(t, store.SaveResponse(ctx, "ben", questionnaire.RawResponse{"Q4": 5}, base.Add(time.Hour)))
	require.NoError(t, store.SaveResponse(ctx, "anna", questionnaire.RawResponse{"Q4": 7, "Q34": "Nature"}, base.Add(2*time.Hour)))

	raw, err := store.GetResponse(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, questionnaire.RawResponse{"Q4": 7.0, "Q34": "Nature"}, raw)

	_, err = store.GetResponse(ctx, "ghost")
	assert.True(t, errors.Is(err, questionnaire.ErrNoResponse))

	ids, err := store.ListRespondents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"anna", "ben"}, ids)

	assert.Error(t, store.SaveResponse(ctx, "", nil, base))
}

func TestResponsesWithinOneSecond(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveResponse(ctx, "r1", questionnaire.RawResponse{"Q4": 10}, base))
	require.NoError(t, store.SaveResponse(ctx, "r2", questionnaire.RawResponse{"Q4": 50}, base.Add(250*time.Millisecond)))
	require.NoError(t, store.SaveResponse(ctx, "r1", questionnaire.RawResponse{"Q4": 90}, base.Add(500*time.Millisecond)))

	raw, err := store.GetResponse(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 90.0, raw["Q4"])

	ids, err := store.ListRespondents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids)
}

func TestSaveResponseSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveResponse(ctx, "anna", questionnaire.RawResponse{"Q4": 40}, at))
	}
	require.NoError(t, store.SaveResponse(ctx, "anna", questionnaire.RawResponse{"Q4": 60}, at))

	count, err := store.CountResponses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMatches(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	matches := []matching.StoredMatch{
		{ID: "m2", SessionID: "s1", RespondentID: "anna", DestinationID: "porto", Rank: 2, FitScore: 70.5, Label: "Strong Match", CreatedAt: created},
		{ID: "m1", SessionID: "s1", RespondentID: "anna", DestinationID: "lisbon", Rank: 1, FitScore: 88.1, Label: "Exceptional Match", CreatedAt: created,
			Breakdown: matching.Breakdown{Energy: 90, Social: 80, Sensory: 85, Luxury: 95}},
	}
	require.NoError(t, store.SaveMatches(ctx, matches))
	require.NoError(t, store.SaveMatches(ctx, nil))

	stored, err := store.ListMatches(ctx, "anna")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "lisbon", stored[0].DestinationID)
	assert.Equal(t, 95.0, stored[0].Breakdown.Luxury)
	assert.True(t, created.Equal(stored[0].CreatedAt))

	assert.Error(t, store.SaveMatches(ctx, matches[:1]), "duplicate ids must be rejected")

	later := created.Add(500 * time.Millisecond)
	require.NoError(t, store.SaveMatches(ctx, []matching.StoredMatch{
		{ID: "m3", SessionID: "s2", RespondentID: "anna", DestinationID: "kyoto", Rank: 1, FitScore: 91, CreatedAt: later},
	}))

	stored, err = store.ListMatches(ctx, "anna")
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "s2", stored[0].SessionID)
	assert.True(t, later.Equal(stored[0].CreatedAt))
}

func TestLoaders(t *testing.T) {
	dir := t.TempDir()

	destinations := filepath.Join(dir, "destinations.json")
	require.NoError(t, os.WriteFile(destinations, []byte(`[{"id":"kyoto","name":"Kyoto","visual_score":92}]`), 0o644))
	records, err := LoadDestinationsFromFile(destinations)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 92.0, *records[0].Visual)

	responses := filepath.Join(dir, "responses.json")
	require.NoError(t, os.WriteFile(responses, []byte(`[{"respondent_id":"anna","created_at":"2024-03-01T10:00:00Z","answers":{"Q4":6}}]`), 0o644))
	rs, err := LoadResponsesFromFile(responses)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "anna", rs[0].RespondentID)
	assert.Equal(t, 6.0, rs[0].Answers["Q4"])

	_, err = LoadDestinationsFromFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
	require.NoError(t, os.WriteFile(responses, []byte(`{`), 0o644))
	_, err = LoadResponsesFromFile(responses)
	assert.Error(t, err)
}
