package api

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/whale-scanner/internal/types"
)

// RateLimiter enforces per-client request rates, keyed by client ID or
// remote address, with limits chosen by tier.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex

	freeTierLimit    rate.Limit
	premiumTierLimit rate.Limit
	burstSize        int
}

// NewRateLimiter creates a rate limiter with per-tier request rates.
func NewRateLimiter(freeTierRPS, premiumTierRPS int) *RateLimiter {
	return &RateLimiter{
		limiters:         make(map[string]*rate.Limiter),
		freeTierLimit:    rate.Limit(freeTierRPS),
		premiumTierLimit: rate.Limit(premiumTierRPS),
		burstSize:        10,
	}
}

// getLimiter returns the limiter for one client, creating it on first use.
func (rl *RateLimiter) getLimiter(clientID string, tier types.ClientTier) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[clientID]
	rl.mu.RUnlock()
	if exists {
		return limiter
	}

	limit := rl.freeTierLimit
	if tier == types.TierPremium {
		limit = rl.premiumTierLimit
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, exists := rl.limiters[clientID]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(limit, rl.burstSize)
	rl.limiters[clientID] = limiter
	return limiter
}

// RateLimitMiddleware creates a middleware that enforces rate limiting.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := r.Header.Get("X-Client-ID")
			if clientID == "" {
				clientID = r.RemoteAddr
			}

			tier := types.ClientTier(r.Header.Get("X-Client-Tier"))
			if tier == "" {
				tier = types.TierFree
			}

			limiter := rl.getLimiter(clientID, tier)
			if !limiter.Allow() {
				respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded. Please try again later.", map[string]interface{}{
					"tier":  tier,
					"limit": limiter.Limit(),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
