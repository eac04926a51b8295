package hyperliquid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whale-scanner/internal/config"
	"github.com/whale-scanner/internal/ratelimit"
)

func testClient(t *testing.T, infoURL, leaderboardURL string) *Client {
	t.Helper()
	cfg := &config.ClientConfig{
		Timeout:     2 * time.Second,
		Retries:     3,
		BackoffBase: time.Millisecond,
		BackoffCap:  5 * time.Millisecond,
		Jitter:      time.Millisecond,
		MinInterval: time.Millisecond,
		MaxInterval: 10 * time.Millisecond,
		UserAgent:   "test",
	}
	scanner := &config.ScannerConfig{
		InfoURL:        infoURL,
		LeaderboardURL: leaderboardURL,
	}
	pacer := ratelimit.NewAdaptivePacer(cfg.MinInterval, cfg.MaxInterval)
	return NewClient(cfg, scanner, pacer)
}

func TestClient_RetriesServerErrorsThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"BTC":"65000.5","@1":"1.0"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, srv.URL)
	mids := c.AllMids(context.Background())

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	require.Len(t, mids, 1)
	assert.InDelta(t, 65000.5, mids["BTC"], 1e-9)
}

func TestClient_FatalStatusDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, srv.URL)
	state, ok := c.ClearinghouseState(context.Background(), "0x1111111111111111111111111111111111111111")

	assert.False(t, ok)
	assert.Nil(t, state)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_UnparsableBodyIsRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Write([]byte(`<html>rate limited</html>`))
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, srv.URL)
	fills, ok := c.UserFills(context.Background(), "0x2222222222222222222222222222222222222222")

	assert.True(t, ok)
	assert.Empty(t, fills)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_ExhaustedRetriesReportAbsence(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, srv.URL)
	_, ok := c.Portfolio(context.Background(), "0x3333333333333333333333333333333333333333")

	assert.False(t, ok)
	// Retries=3 means 4 attempts total
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestClient_AllMidsFailureYieldsEmptyMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, srv.URL)
	mids := c.AllMids(context.Background())

	assert.NotNil(t, mids)
	assert.Empty(t, mids)
}

func TestClient_ContextCancellationStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testClient(t, srv.URL, srv.URL)
	_, ok := c.ClearinghouseState(ctx, "0x4444444444444444444444444444444444444444")
	assert.False(t, ok)
}
