package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/erranza/internal/destination"
	"github.com/spigell/erranza/internal/matching"
	"github.com/spigell/erranza/internal/questionnaire"
	"github.com/spigell/erranza/internal/service"
)

type memoryStore struct {
	responses  map[string]questionnaire.RawResponse
	catalog    []*destination.Record
	catalogErr error
	saved      []matching.StoredMatch
}

func (m *memoryStore) GetResponse(_ context.Context, id string) (questionnaire.RawResponse, error) {
	raw, ok := m.responses[id]
	if !ok {
		return nil, questionnaire.ErrNoResponse
	}
	return raw, nil
}

func (m *memoryStore) ListRespondents(context.Context) ([]string, error) {
	return []string{"anna"}, nil
}

func (m *memoryStore) ListDestinations(context.Context) (*destination.Catalog, error) {
	if m.catalogErr != nil {
		return nil, m.catalogErr
	}
	return &destination.Catalog{Items: append([]*destination.Record(nil), m.catalog...)}, nil
}

func (m *memoryStore) SaveMatches(_ context.Context, matches []matching.StoredMatch) error {
	m.saved = append(m.saved, matches...)
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *memoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	inactive := false
	store := &memoryStore{
		responses: map[string]questionnaire.RawResponse{
			"anna": {"Q4": 90, "Q34": "Nature,Wellness"},
		},
		catalog: []*destination.Record{
			{ID: "kyoto", Name: "Kyoto", Country: "Japan", Region: "Asia", FlightHours: destination.Float(14)},
			{ID: "porto", Name: "Porto", Country: "Portugal", Region: "Europe", FlightHours: destination.Float(3)},
			{ID: "closed", Name: "Closed", Country: "Portugal", Region: "Europe", Active: &inactive},
		},
	}

	svc, err := service.New(service.Deps{Store: store}, service.Config{Top: 2, Persist: true})
	require.NoError(t, err)

	return New(svc, nil).SetupRouter(), store
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDestinations(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/v1/destinations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all struct {
		Count        int                   `json:"count"`
		Destinations []*destination.Record `json:"destinations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Equal(t, 2, all.Count)

	w = do(t, r, http.MethodGet, "/v1/destinations?country=portugal&include_inactive=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Equal(t, 2, all.Count)
	assert.Equal(t, "porto", all.Destinations[0].ID)

	w = do(t, r, http.MethodGet, "/v1/destinations?max_flight_hours=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMatchByRespondent(t *testing.T) {
	r, store := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/v1/match", gin.H{"respondent_id": "anna", "top": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report service.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "anna", report.RespondentID)
	assert.Equal(t, 2, report.Considered)
	require.Len(t, report.Matches, 1)
	assert.NotEmpty(t, report.Matches[0].Narrative.Label)
	assert.True(t, report.Persisted)
	assert.Len(t, store.saved, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "legacy", payload["format"])
}

func TestMatchWithAnswers(t *testing.T) {
	r, store := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/v1/match", gin.H{
		"answers":          gin.H{"Q4": 20, "Q34_nature": 90},
		"max_flight_hours": 5,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report service.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Considered)
	assert.Equal(t, "porto", report.Matches[0].Result.DestinationID)
	assert.False(t, report.Persisted)
	assert.Empty(t, store.saved)
}

func TestMatchErrors(t *testing.T) {
	r, store := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/v1/match", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/v1/match", gin.H{"respondent_id": "anna", "top": 500})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/v1/match", gin.H{"respondent_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	store.catalogErr = errors.New("database is down")
	w = do(t, r, http.MethodPost, "/v1/match", gin.H{"respondent_id": "anna"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "database is down")
}

func TestTraits(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/v1/traits/anna", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report service.TraitsReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "anna", report.RespondentID)
	assert.Equal(t, 60.0, report.Traits.Energy)
	require.NotEmpty(t, report.Traits.SensoryPriorities)
	assert.Equal(t, questionnaire.Nature, report.Traits.SensoryPriorities[0].Category)

	w = do(t, r, http.MethodGet, "/v1/traits/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSplitList(t *testing.T) {
	got := splitList([]string{"Japan, Portugal", " ", "Peru"})
	assert.Equal(t, []string{"Japan", "Portugal", "Peru"}, got)
	assert.Nil(t, splitList(nil))
}
