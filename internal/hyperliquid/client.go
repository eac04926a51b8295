// Package hyperliquid provides a resilient client for the Hyperliquid
// public /info API and the leaderboard endpoint.
//
// Every outbound call is paced by a shared AdaptivePacer and retried
// with exponential backoff and jitter. Upstream failures never surface
// as errors: a call either yields a payload or reports absence, and the
// pacer's cooldown tracks the observed error rate.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/whale-scanner/internal/config"
	"github.com/whale-scanner/internal/errors"
	"github.com/whale-scanner/internal/logging"
	"github.com/whale-scanner/internal/ratelimit"
	"github.com/whale-scanner/internal/types"
)

// Default retry configuration values.
const (
	DefaultRetries     = 4
	DefaultTimeout     = 20 * time.Second
	DefaultBackoffBase = 800 * time.Millisecond
	DefaultBackoffCap  = 10 * time.Second
	DefaultJitter      = 250 * time.Millisecond
)

// RetryConfig configures per-request retry behavior.
type RetryConfig struct {
	Retries     int           // attempts beyond the first
	Timeout     time.Duration // per-attempt timeout
	BackoffBase time.Duration
	BackoffCap  time.Duration
	Jitter      time.Duration
}

// DefaultRetryConfig returns the standard retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Retries:     DefaultRetries,
		Timeout:     DefaultTimeout,
		BackoffBase: DefaultBackoffBase,
		BackoffCap:  DefaultBackoffCap,
		Jitter:      DefaultJitter,
	}
}

// Client issues requests against the Hyperliquid info and leaderboard
// endpoints. All calls share one pacer, so request spacing adapts to
// upstream health across the whole scan.
type Client struct {
	infoURL        string
	leaderboardURL string
	httpClient     *http.Client
	pacer          *ratelimit.AdaptivePacer
	retry          RetryConfig
	userAgent      string
}

// NewClient creates a client from the given configuration and shared pacer.
func NewClient(cfg *config.ClientConfig, scanner *config.ScannerConfig, pacer *ratelimit.AdaptivePacer) *Client {
	retry := RetryConfig{
		Retries:     cfg.Retries,
		Timeout:     cfg.Timeout,
		BackoffBase: cfg.BackoffBase,
		BackoffCap:  cfg.BackoffCap,
		Jitter:      cfg.Jitter,
	}
	if retry.Timeout <= 0 {
		retry.Timeout = DefaultTimeout
	}
	if retry.Retries < 0 {
		retry.Retries = DefaultRetries
	}
	if retry.BackoffBase <= 0 {
		retry.BackoffBase = DefaultBackoffBase
	}
	if retry.BackoffCap <= 0 {
		retry.BackoffCap = DefaultBackoffCap
	}

	return &Client{
		infoURL:        scanner.InfoURL,
		leaderboardURL: scanner.LeaderboardURL,
		httpClient:     &http.Client{Timeout: retry.Timeout},
		pacer:          pacer,
		retry:          retry,
		userAgent:      cfg.UserAgent,
	}
}

// InfoURL returns the configured info endpoint.
func (c *Client) InfoURL() string { return c.infoURL }

// LeaderboardURL returns the configured leaderboard endpoint.
func (c *Client) LeaderboardURL() string { return c.leaderboardURL }

// backoffDelay computes the sleep before retry attempt n (0-based):
// min(cap, base * 2^attempt) plus uniform jitter.
func (c *Client) backoffDelay(attempt int) time.Duration {
	base := float64(c.retry.BackoffBase) * math.Pow(2, float64(attempt))
	if base > float64(c.retry.BackoffCap) {
		base = float64(c.retry.BackoffCap)
	}
	jitter := time.Duration(rand.Float64() * float64(c.retry.Jitter))
	return time.Duration(base) + jitter
}

// sleepBackoff waits the backoff delay or until the context ends.
func (c *Client) sleepBackoff(ctx context.Context, attempt int) bool {
	timer := time.NewTimer(c.backoffDelay(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// retryable reports whether an HTTP status should be retried.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// do performs one paced request cycle with retries, classifying each
// outcome. It returns the raw JSON body on success and false on any
// terminal failure; it never returns an error for upstream trouble.
func (c *Client) do(ctx context.Context, build func() (*http.Request, error), op string) (json.RawMessage, bool) {
	logger := logging.FromContext(ctx).WithField("op", op)

	for attempt := 0; attempt <= c.retry.Retries; attempt++ {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, false
		}

		req, err := build()
		if err != nil {
			logger.WithError(err).Error("Failed to build request")
			return nil, false
		}
		req.Header.Set("Content-Type", "application/json")
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.retry.Timeout)
		resp, err := c.httpClient.Do(req.WithContext(attemptCtx))
		if err != nil {
			cancel()
			c.pacer.NoteError()
			logger.WithError(err).WithField("attempt", attempt+1).Warn("Transport error")
			if attempt < c.retry.Retries && c.sleepBackoff(ctx, attempt) {
				continue
			}
			return nil, false
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
		resp.Body.Close()
		cancel()

		if resp.StatusCode == http.StatusOK {
			if readErr == nil && json.Valid(body) {
				c.pacer.NoteOK()
				return body, true
			}
			// 200 with an unreadable or unparsable body is treated the
			// same as an upstream hiccup
			c.pacer.NoteError()
			logger.WithField("attempt", attempt+1).Warn("Unparsable response body")
			if attempt < c.retry.Retries && c.sleepBackoff(ctx, attempt) {
				continue
			}
			return nil, false
		}

		if retryable(resp.StatusCode) {
			c.pacer.NoteError()
			logger.WithFields(map[string]interface{}{
				"status":  resp.StatusCode,
				"attempt": attempt + 1,
			}).Warn("Retryable upstream status")
			if attempt < c.retry.Retries && c.sleepBackoff(ctx, attempt) {
				continue
			}
			return nil, false
		}

		// Other statuses (e.g. 4xx) indicate a request-level problem
		// that retrying will not fix
		c.pacer.NoteOK()
		logger.WithError(errors.NewFatalUpstreamError(op, resp.StatusCode)).Error("Fatal upstream status")
		return nil, false
	}

	return nil, false
}

// postInfo posts a typed request to the /info endpoint.
func (c *Client) postInfo(ctx context.Context, payload interface{}) (json.RawMessage, bool) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, false
	}
	op := "info"
	if m, isMap := payload.(map[string]interface{}); isMap {
		if t, isStr := m["type"].(string); isStr {
			op = t
		}
	}
	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodPost, c.infoURL, bytes.NewReader(body))
	}, op)
}

// getJSON fetches a URL expecting a JSON body.
func (c *Client) getJSON(ctx context.Context, url string) (json.RawMessage, bool) {
	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	}, "GET "+url)
}

// AllMids fetches current mid prices keyed by coin. Synthetic "@"-keyed
// entries are skipped. An empty map means the call failed.
func (c *Client) AllMids(ctx context.Context) map[string]float64 {
	raw, ok := c.postInfo(ctx, map[string]interface{}{"type": "allMids", "dex": ""})
	if !ok {
		return map[string]float64{}
	}

	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return map[string]float64{}
	}

	mids := make(map[string]float64, len(data))
	for coin, px := range data {
		if strings.HasPrefix(coin, "@") {
			continue
		}
		mids[coin] = ParseFloat(px, 0)
	}
	return mids
}

// ClearinghouseState fetches the account state of one address.
func (c *Client) ClearinghouseState(ctx context.Context, addr types.Address) (*ClearinghouseState, bool) {
	raw, ok := c.postInfo(ctx, map[string]interface{}{
		"type": "clearinghouseState",
		"user": addr.String(),
		"dex":  "",
	})
	if !ok {
		return nil, false
	}

	var state ClearinghouseState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, false
	}
	return &state, true
}

// UserFills fetches the recent fills of one address.
func (c *Client) UserFills(ctx context.Context, addr types.Address) ([]Fill, bool) {
	raw, ok := c.postInfo(ctx, map[string]interface{}{
		"type": "userFills",
		"user": addr.String(),
	})
	if !ok {
		return nil, false
	}

	var fills []Fill
	if err := json.Unmarshal(raw, &fills); err != nil {
		return nil, false
	}
	return fills, true
}

// Portfolio fetches the raw portfolio history document of one address.
func (c *Client) Portfolio(ctx context.Context, addr types.Address) (json.RawMessage, bool) {
	return c.postInfo(ctx, map[string]interface{}{
		"type": "portfolio",
		"user": addr.String(),
	})
}

// Leaderboard fetches the raw leaderboard document.
func (c *Client) Leaderboard(ctx context.Context) (json.RawMessage, bool) {
	return c.getJSON(ctx, c.leaderboardURL)
}
