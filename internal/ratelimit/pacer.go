// Package ratelimit provides adaptive pacing for outbound Hyperliquid
// API calls.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Default pacer configuration values.
const (
	DefaultMinInterval = 150 * time.Millisecond
	DefaultMaxInterval = 1 * time.Second
)

// Cooldown adaptation constants. Errors grow the cooldown geometrically;
// successes decay it multiplicatively with a small constant subtraction
// so it reaches zero instead of approaching it asymptotically.
const (
	cooldownGrowthFactor = 1.6
	cooldownDecayFactor  = 0.85
	cooldownDecayStep    = 10 * time.Millisecond
)

// AdaptivePacer spaces outbound requests and adapts to observed upstream
// health. One instance is shared by every call a client makes: Wait
// grants each caller a slot at least minInterval + cooldown after the
// previous slot, NoteError grows the cooldown, NoteOK decays it.
type AdaptivePacer struct {
	minInterval time.Duration
	maxInterval time.Duration

	mu       sync.Mutex
	lastCall time.Time
	cooldown time.Duration
}

// NewAdaptivePacer creates a pacer with the given pacing bounds.
// Non-positive bounds fall back to defaults.
func NewAdaptivePacer(minInterval, maxInterval time.Duration) *AdaptivePacer {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	if maxInterval <= 0 {
		maxInterval = DefaultMaxInterval
	}
	if maxInterval < minInterval {
		maxInterval = minInterval
	}
	return &AdaptivePacer{
		minInterval: minInterval,
		maxInterval: maxInterval,
	}
}

// Wait blocks until the pacing interval has elapsed since the previous
// caller's slot, or the context is cancelled. Each caller reserves its
// slot under the lock before sleeping, so concurrent callers are
// granted successive slots rather than waking together.
func (p *AdaptivePacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	now := time.Now()
	target := p.lastCall.Add(p.minInterval + p.cooldown)
	if target.Before(now) {
		target = now
	}
	p.lastCall = target
	p.mu.Unlock()

	if delay := time.Until(target); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// NoteError grows the cooldown geometrically, bounded above by the max
// interval and below by the min interval.
func (p *AdaptivePacer) NoteError() {
	p.mu.Lock()
	defer p.mu.Unlock()

	grown := time.Duration(float64(p.cooldown) * cooldownGrowthFactor)
	if grown < p.minInterval {
		grown = p.minInterval
	}
	if grown > p.maxInterval {
		grown = p.maxInterval
	}
	p.cooldown = grown
}

// NoteOK decays the cooldown toward zero.
func (p *AdaptivePacer) NoteOK() {
	p.mu.Lock()
	defer p.mu.Unlock()

	decayed := time.Duration(float64(p.cooldown)*cooldownDecayFactor) - cooldownDecayStep
	if decayed < 0 {
		decayed = 0
	}
	p.cooldown = decayed
}

// Cooldown returns the current adaptive cooldown. Useful for monitoring
// and testing.
func (p *AdaptivePacer) Cooldown() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cooldown
}

// MinInterval returns the configured pacing floor.
func (p *AdaptivePacer) MinInterval() time.Duration {
	return p.minInterval
}

// MaxInterval returns the configured pacing ceiling.
func (p *AdaptivePacer) MaxInterval() time.Duration {
	return p.maxInterval
}
