package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/flood-exposure/internal/adapter/http"
	"github.com/couchcryptid/flood-exposure/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockEvaluator struct {
	err  error
	seen []domain.Scenario
}

func (m *mockEvaluator) Defaults() domain.ScenarioDefaults { return domain.DefaultScenarioDefaults() }

func (m *mockEvaluator) Evaluate(_ context.Context, sc domain.Scenario) (domain.ExposureReport, error) {
	m.seen = append(m.seen, sc)
	if m.err != nil {
		return domain.ExposureReport{}, m.err
	}
	return domain.ExposureReport{
		ScenarioID:     sc.ID,
		Method:         sc.Method,
		FloodedCells:   12,
		FloodedAreaKM2: 0.5,
		Facilities:     map[string]int{"hospitals": 1},
		PointEvaluator: "polygon",
	}, nil
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, &mockEvaluator{}, slog.Default())
}

func postScenario(srv *httpadapter.Server, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/scenarios", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("not ready yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestScenarioReturnsReport(t *testing.T) {
	eval := &mockEvaluator{}
	srv := httpadapter.NewServer(":0", &mockReadiness{}, eval, slog.Default())

	rec := postScenario(srv, `{"id":"s-1","method":"hand","target_level_m":4.5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var rep domain.ExposureReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, "s-1", rep.ScenarioID)
	assert.Equal(t, domain.MethodHAND, rep.Method)
	assert.Equal(t, 12, rep.FloodedCells)
	assert.Equal(t, 1, rep.Facilities["hospitals"])

	require.Len(t, eval.seen, 1)
	sc := eval.seen[0]
	require.NotNil(t, sc.TargetLevelM)
	assert.InDelta(t, 4.5, *sc.TargetLevelM, 1e-12)
	assert.InDelta(t, domain.DefaultRiverPercentile, sc.RiverPercentile, 1e-12)
	assert.Equal(t, domain.DefaultHANDConfig(), sc.HAND)
}

func TestScenarioGeneratesID(t *testing.T) {
	srv := newTestServer(nil)

	first := postScenario(srv, `{"level_above_river_m":2}`)
	second := postScenario(srv, `{"level_above_river_m":2}`)

	require.Equal(t, http.StatusOK, first.Code)
	var a, b domain.ExposureReport
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.NotEmpty(t, a.ScenarioID)
	assert.Equal(t, a.ScenarioID, b.ScenarioID)
}

func TestScenarioRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"level_above_river_m":`},
		{"missing level", `{"id":"s-1"}`},
		{"unknown method", `{"method":"tsunami","level_above_river_m":1}`},
		{"percentile out of range", `{"level_above_river_m":1,"river_percentile":100}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := &mockEvaluator{}
			srv := httpadapter.NewServer(":0", &mockReadiness{}, eval, slog.Default())

			rec := postScenario(srv, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			assert.Empty(t, eval.seen)
		})
	}
}

func TestScenarioMapsEvaluationErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", fmt.Errorf("scenario x: %w", domain.ErrInvalidScenario), http.StatusBadRequest},
		{"insufficient data", fmt.Errorf("scenario x: %w", domain.ErrInsufficientData), http.StatusUnprocessableEntity},
		{"canceled", context.Canceled, http.StatusServiceUnavailable},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httpadapter.NewServer(":0", &mockReadiness{}, &mockEvaluator{err: tt.err}, slog.Default())

			rec := postScenario(srv, `{"level_above_river_m":1}`)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestScenarioRequiresPost(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/scenarios", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
