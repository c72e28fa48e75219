package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/erranza/internal/destination"
	"github.com/spigell/erranza/internal/matching"
	"github.com/spigell/erranza/internal/narrative"
	"github.com/spigell/erranza/internal/service"
)

func TestNewScorerValidatesWeights(t *testing.T) {
	scorer, err := newScorer(&MatchingConfig{})
	require.NoError(t, err)
	assert.Equal(t, matching.DefaultWeights(), scorer.Weights())

	_, err = newScorer(&MatchingConfig{Weights: &matching.Weights{Energy: 1, Social: 1}})
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	cfg := &Config{
		Storage: &StorageConfig{Driver: "SQLite", Path: filepath.Join(t.TempDir(), "erranza.db")},
		Backend: &BackendConfig{},
	}

	store, release, err := openStore(cfg, zap.NewNop())
	require.NoError(t, err)
	ids, err := store.ListRespondents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
	release()

	cfg.Storage.Driver = "backend"
	_, _, err = openStore(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "backend.url")

	cfg.Backend = &BackendConfig{URL: "https://db.example.com", APIKey: "anon"}
	store, _, err = openStore(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, store)

	cfg.Storage.Driver = "mongo"
	_, _, err = openStore(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported storage driver")
}

func TestNewProseWriter(t *testing.T) {
	prose, err := newProseWriter(context.Background(), &NarrativeConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, prose)

	_, err = newProseWriter(context.Background(), &NarrativeConfig{Enabled: true, Provider: "mistral", APIKey: "k"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported narrative provider")

	prose, err = newProseWriter(context.Background(), &NarrativeConfig{Enabled: true, Provider: "openai", APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, prose)
}

func testReport() *service.Report {
	return &service.Report{
		RespondentID: "anna",
		Considered:   2,
		Matches: []service.Match{
			{
				Rank:        1,
				Destination: &destination.Record{ID: "kyoto", Name: "Kyoto", Country: "Japan"},
				Result:      matching.Result{DestinationID: "kyoto", FitScore: 87.5},
				Narrative:   narrative.Narrative{Label: narrative.LabelExceptional, Prose: "Kyoto suits you."},
			},
			{
				Rank:        2,
				Destination: &destination.Record{ID: "porto", Name: "Porto", Country: "Portugal"},
				Result:      matching.Result{DestinationID: "porto", FitScore: 61},
				Narrative:   narrative.Narrative{Label: narrative.LabelGood, Prose: "Porto works."},
			},
		},
	}
}

func TestWriteReport(t *testing.T) {
	var text bytes.Buffer
	require.NoError(t, writeReport(&text, testReport(), "text"))
	assert.Contains(t, text.String(), "Respondent anna (current questionnaire)")
	assert.Contains(t, text.String(), "87.5  Exceptional Match")
	assert.Contains(t, text.String(), "Porto works.")

	var raw bytes.Buffer
	require.NoError(t, writeReport(&raw, testReport(), "json"))
	var decoded service.Report
	require.NoError(t, json.Unmarshal(raw.Bytes(), &decoded))
	assert.Len(t, decoded.Matches, 2)

	assert.Error(t, writeReport(&raw, testReport(), "yaml"))
}

func TestMarkMatchesSeen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")

	added, err := markMatchesSeen(path, testReport())
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = markMatchesSeen(path, testReport())
	require.NoError(t, err)
	assert.Zero(t, added)

	excluded, err := destination.LoadExcluded(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"kyoto", "porto"}, excluded.IDs())

	_, err = markMatchesSeen("", testReport())
	assert.Error(t, err)
}
