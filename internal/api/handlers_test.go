package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whale-scanner/internal/models"
	"github.com/whale-scanner/internal/storage"
	"github.com/whale-scanner/internal/types"
)

type fakeSnapshots struct {
	snapshots map[string]*models.Snapshot // keyed mode:rank
	meta      *models.RunMeta
}

func (f *fakeSnapshots) GetSnapshot(ctx context.Context, mode, rank string) (*models.Snapshot, error) {
	return f.snapshots[mode+":"+rank], nil
}

func (f *fakeSnapshots) GetMeta(ctx context.Context) (*models.RunMeta, error) {
	return f.meta, nil
}

type fakeHistory struct {
	points []storage.MetricsPoint
}

func (f *fakeHistory) AddressHistory(ctx context.Context, addr types.Address, limit int) ([]storage.MetricsPoint, error) {
	return f.points, nil
}

func testServer(snapshots SnapshotProvider, history HistoryProvider) *Server {
	return NewServer(&ServerConfig{
		Host:           "127.0.0.1",
		Port:           "0",
		FreeTierRPS:    100,
		PremiumTierRPS: 1000,
	}, snapshots, history)
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	s := testServer(&fakeSnapshots{}, nil)
	rec := doRequest(t, s, http.MethodGet, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHandleGetRankings(t *testing.T) {
	snap := &models.Snapshot{
		RunMeta: models.RunMeta{RunID: "run-1"},
		Mode:    models.ModeActive,
		RankBy:  "risk",
		Wallets: []*models.Wallet{{Address: "0x01"}},
	}
	f := &fakeSnapshots{snapshots: map[string]*models.Snapshot{
		"active:risk": snap,
		"active:all":  {RunMeta: models.RunMeta{RunID: "run-1"}, Mode: models.ModeActive},
	}}
	s := testServer(f, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/rankings/active?by=risk")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "risk", got.RankBy)
	require.Len(t, got.Wallets, 1)

	// No ?by= serves the unranked document
	rec = doRequest(t, s, http.MethodGet, "/api/v1/rankings/active")
	require.Equal(t, http.StatusOK, rec.Code)
	got = models.Snapshot{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Empty(t, got.RankBy)
}

func TestHandleGetRankings_Validation(t *testing.T) {
	s := testServer(&fakeSnapshots{}, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/rankings/everything")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/rankings/active?by=vibes")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/rankings/active?by=risk")
	assert.Equal(t, http.StatusNotFound, rec.Code, "nothing published")
}

func TestHandleGetMeta(t *testing.T) {
	s := testServer(&fakeSnapshots{meta: &models.RunMeta{RunID: "run-7"}}, nil)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/meta")

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.RunMeta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-7", got.RunID)
}

func TestHandleGetMeta_NotPublished(t *testing.T) {
	s := testServer(&fakeSnapshots{}, nil)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/meta")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetWalletHistory(t *testing.T) {
	history := &fakeHistory{points: []storage.MetricsPoint{
		{RunID: "run-1", AccountValue: 100000, RiskScore: 12, Style: "stable"},
	}}
	s := testServer(&fakeSnapshots{}, history)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/wallets/0x1111111111111111111111111111111111111111/history")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Address types.Address          `json:"address"`
		Points  []storage.MetricsPoint `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, types.Address("0x1111111111111111111111111111111111111111"), body.Address)
	require.Len(t, body.Points, 1)
	assert.Equal(t, "stable", body.Points[0].Style)
}

func TestHandleGetWalletHistory_Validation(t *testing.T) {
	s := testServer(&fakeSnapshots{}, &fakeHistory{})

	rec := doRequest(t, s, http.MethodGet, "/api/v1/wallets/nope/history")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_ADDRESS", body.Error.Code)
	assert.Equal(t, "nope", body.Error.Details["address"])

	rec = doRequest(t, s, http.MethodGet, "/api/v1/wallets/0x1111111111111111111111111111111111111111/history?limit=-3")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	noHistory := testServer(&fakeSnapshots{}, nil)
	rec = doRequest(t, noHistory, http.MethodGet, "/api/v1/wallets/0x1111111111111111111111111111111111111111/history")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimiting(t *testing.T) {
	s := testServer(&fakeSnapshots{meta: &models.RunMeta{RunID: "run-1"}}, nil)
	// Limiter allows a burst of 10 at 1 rps
	limited := NewServer(&ServerConfig{FreeTierRPS: 1, PremiumTierRPS: 100}, &fakeSnapshots{meta: &models.RunMeta{}}, nil)

	sawLimit := false
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/meta", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		limited.Router().ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			sawLimit = true
			break
		}
	}
	assert.True(t, sawLimit, "free tier should throttle a burst of 20")

	// Unconstrained server keeps serving
	rec := doRequest(t, s, http.MethodGet, "/api/v1/meta")
	assert.Equal(t, http.StatusOK, rec.Code)
}
