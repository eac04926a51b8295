package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/whale-scanner/internal/config"
	"github.com/whale-scanner/internal/errors"
	"github.com/whale-scanner/internal/hyperliquid"
	"github.com/whale-scanner/internal/logging"
	"github.com/whale-scanner/internal/models"
	"github.com/whale-scanner/internal/types"
)

// MarketClient is the upstream surface the scanner needs. Implemented
// by hyperliquid.Client; tests substitute fakes.
type MarketClient interface {
	AllMids(ctx context.Context) map[string]float64
	Leaderboard(ctx context.Context) (json.RawMessage, bool)
	BatchClearinghouseStates(ctx context.Context, addrs []types.Address, batchSize, minBatchSize int) (map[types.Address]*hyperliquid.ClearinghouseState, []types.Address)
	UserFills(ctx context.Context, addr types.Address) ([]hyperliquid.Fill, bool)
	Portfolio(ctx context.Context, addr types.Address) (json.RawMessage, bool)
	InfoURL() string
	LeaderboardURL() string
}

// SnapshotSink receives the documents a run produces. Implementations
// write JSON files, Redis keys, or database rows.
type SnapshotSink interface {
	PublishSnapshot(ctx context.Context, filename string, snap *models.Snapshot) error
	PublishMeta(ctx context.Context, meta *models.RunMeta) error
}

// StateStore caches clearinghouse states between runs. GetState
// returns nil on a miss; errors are treated as misses by the scanner.
type StateStore interface {
	GetState(ctx context.Context, addr types.Address) (*hyperliquid.ClearinghouseState, error)
	PutState(ctx context.Context, addr types.Address, state *hyperliquid.ClearinghouseState) error
}

// RunRecorder persists run history. Nil-safe via the skip-db path in
// the scanner: a nil recorder disables persistence.
type RunRecorder interface {
	RecordRun(ctx context.Context, meta *models.RunMeta, wallets []*models.Wallet) error
	RecordMetricsHistory(ctx context.Context, runID string, wallets []*models.Wallet) error
}

// ScanResult is everything one run produced.
type ScanResult struct {
	Meta     models.RunMeta
	Active   []*models.Wallet
	Inactive []*models.Wallet
}

// Scanner drives one full scan: discovery, state and fill acquisition,
// metric computation, scoring, ranking, and publication.
type Scanner struct {
	cfg      *config.ScannerConfig
	client   MarketClient
	sinks    []SnapshotSink
	recorder RunRecorder
	states   StateStore
	now      func() time.Time
}

// NewScanner wires a scanner from its dependencies. recorder may be nil
// to skip database persistence.
func NewScanner(cfg *config.ScannerConfig, client MarketClient, recorder RunRecorder, sinks ...SnapshotSink) *Scanner {
	return &Scanner{
		cfg:      cfg,
		client:   client,
		sinks:    sinks,
		recorder: recorder,
		now:      time.Now,
	}
}

// WithStateStore enables cross-run state caching. Returns the scanner
// for chaining.
func (s *Scanner) WithStateStore(store StateStore) *Scanner {
	s.states = store
	return s
}

// DiscoverAddresses merges explicit seed addresses with the leaderboard
// when auto-discovery is on. Seeds are validated and normalized; the
// result keeps first-seen order. Returns a validation error when the
// final set is empty, and an exhaustion error when auto-discovery was
// requested but the leaderboard yielded nothing.
func (s *Scanner) DiscoverAddresses(ctx context.Context, seeds []string, autoDiscover bool) ([]types.Address, error) {
	logger := logging.FromContext(ctx)

	var addrs []types.Address
	for _, seed := range seeds {
		if addr, ok := types.NormalizeAddress(seed); ok {
			addrs = append(addrs, addr)
		} else if seed != "" {
			logger.WithField("address", seed).Warn("Skipping invalid seed address")
		}
	}

	if autoDiscover {
		logger.WithField("top_n", s.cfg.TopN).Info("Fetching leaderboard")
		raw, ok := s.client.Leaderboard(ctx)
		if !ok {
			return nil, errors.NewUpstreamUnavailableError("leaderboard")
		}
		lbAddrs := hyperliquid.ExtractLeaderboardAddresses(raw, s.cfg.TopN)
		if len(lbAddrs) == 0 {
			return nil, errors.NewUpstreamUnavailableError("leaderboard addresses")
		}
		addrs = append(addrs, lbAddrs...)
	}

	addrs = types.DedupeAddresses(addrs)
	if len(addrs) == 0 {
		return nil, errors.NewNoAddressesError()
	}
	return addrs, nil
}

// Run executes one scan over the given addresses for the given mode and
// publishes the resulting snapshots to every sink.
func (s *Scanner) Run(ctx context.Context, addrs []types.Address, mode string) (*ScanResult, error) {
	logger := logging.FromContext(ctx)
	start := s.now()

	meta := models.RunMeta{
		RunID:              uuid.New().String(),
		GeneratedAt:        start.UTC(),
		GeneratedAtEpochMs: start.UnixMilli(),
		ActiveDays:         s.cfg.ActiveDays,
		MinAccountValueUSD: s.cfg.MinAccountValueUSD,
		InfoURL:            s.client.InfoURL(),
		LeaderboardURL:     s.client.LeaderboardURL(),
		FailedStates:       []types.Address{},
		FailedFills:        []types.Address{},
	}
	logger = logger.WithField("run_id", meta.RunID)
	ctx = logging.WithLogger(ctx, logger)

	logger.Info("Fetching mid prices")
	mids := s.client.AllMids(ctx)
	if len(mids) == 0 {
		return nil, errors.NewUpstreamUnavailableError("allMids")
	}

	states := make(map[types.Address]*hyperliquid.ClearinghouseState, len(addrs))
	toFetch := addrs
	if s.states != nil {
		toFetch = make([]types.Address, 0, len(addrs))
		for _, addr := range addrs {
			if cached, err := s.states.GetState(ctx, addr); err == nil && cached != nil {
				states[addr] = cached
			} else {
				toFetch = append(toFetch, addr)
			}
		}
		logger.WithField("cached", len(states)).Info("States served from cache")
	}

	logger.WithFields(map[string]interface{}{
		"addresses":  len(toFetch),
		"batch_size": s.cfg.BatchSize,
	}).Info("Fetching clearinghouse states")
	fetched, failedStates := s.client.BatchClearinghouseStates(ctx, toFetch, s.cfg.BatchSize, s.cfg.MinBatchSize)
	for addr, state := range fetched {
		states[addr] = state
		if s.states != nil {
			if err := s.states.PutState(ctx, addr, state); err != nil {
				logger.WithError(err).WithField("address", addr).Warn("Failed to cache state")
			}
		}
	}
	meta.FailedStates = append(meta.FailedStates, failedStates...)
	logger.WithFields(map[string]interface{}{
		"fetched": len(fetched),
		"failed":  len(failedStates),
	}).Info("States fetched")

	// Filter to funded accounts with open positions, preserving input order
	type candidate struct {
		addr         types.Address
		accountValue float64
		positions    []*models.Position
	}
	var candidates []candidate
	for _, addr := range addrs {
		state, ok := states[addr]
		if !ok {
			continue
		}
		av := ExtractAccountValue(state)
		if av < s.cfg.MinAccountValueUSD {
			continue
		}
		positions := ExtractPositions(state, av, mids)
		if len(positions) == 0 {
			continue
		}
		candidates = append(candidates, candidate{addr: addr, accountValue: av, positions: positions})
	}
	if s.cfg.CandidateLimit > 0 && len(candidates) > s.cfg.CandidateLimit {
		candidates = candidates[:s.cfg.CandidateLimit]
	}
	logger.WithField("candidates", len(candidates)).Info("Candidates after equity and position filters")

	if len(candidates) == 0 {
		result := &ScanResult{Meta: meta}
		if err := s.publish(ctx, mode, result); err != nil {
			return nil, err
		}
		return result, nil
	}

	// Activity and position ages from fills, fetched by a bounded pool.
	// The shared pacer serializes the actual requests; the pool only
	// overlaps response handling.
	type fillOutcome struct {
		lastTrade *time.Time
		failed    bool
	}
	outcomes := make(map[types.Address]*fillOutcome, len(candidates))
	var mu sync.Mutex

	workers := s.cfg.FillWorkers
	if workers < 1 {
		workers = 1
	}
	logger.WithFields(map[string]interface{}{
		"wallets": len(candidates),
		"workers": workers,
	}).Info("Fetching user fills")

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c := candidates[i]
				fills, ok := s.client.UserFills(ctx, c.addr)
				outcome := &fillOutcome{failed: !ok}
				if ok {
					outcome.lastTrade = LastTradeTime(fills)
					ages := InferPositionAges(fills, c.positions, s.now())
					ApplyPositionAges(c.positions, ages)
				}
				mu.Lock()
				outcomes[c.addr] = outcome
				mu.Unlock()
			}
		}()
	}
	for i := range candidates {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, c := range candidates {
		if o := outcomes[c.addr]; o != nil && o.failed {
			meta.FailedFills = append(meta.FailedFills, c.addr)
		}
	}

	// Split by recency of last trade
	activeCutoff := s.now().Add(-time.Duration(s.cfg.ActiveDays) * 24 * time.Hour)
	result := &ScanResult{Meta: meta}
	for _, c := range candidates {
		w := &models.Wallet{
			Address:      c.addr,
			AccountValue: c.accountValue,
			Positions:    c.positions,
			RiskScore:    0,
			Style:        "unknown",
		}
		if o := outcomes[c.addr]; o != nil {
			w.LastTradeAt = o.lastTrade
		}
		AggregatePositions(w)

		if w.LastTradeAt != nil && !w.LastTradeAt.Before(activeCutoff) {
			result.Active = append(result.Active, w)
		} else {
			result.Inactive = append(result.Inactive, w)
		}
	}
	logger.WithFields(map[string]interface{}{
		"active":   len(result.Active),
		"inactive": len(result.Inactive),
	}).Info("Cohorts split")

	if includesMode(mode, models.ModeActive) {
		s.enrichAndScore(ctx, result.Active)
	}
	if includesMode(mode, models.ModeInactive) {
		s.enrichAndScore(ctx, result.Inactive)
	}

	result.Meta = meta
	if err := s.publish(ctx, mode, result); err != nil {
		return nil, err
	}

	if s.recorder != nil {
		all := append(append([]*models.Wallet{}, result.Active...), result.Inactive...)
		if err := s.recorder.RecordRun(ctx, &result.Meta, all); err != nil {
			logger.WithError(err).Error("Failed to record run")
		} else if err := s.recorder.RecordMetricsHistory(ctx, result.Meta.RunID, all); err != nil {
			logger.WithError(err).Error("Failed to record metrics history")
		}
	}

	logger.WithField("duration", s.now().Sub(start).String()).Info("Scan complete")
	return result, nil
}

// enrichAndScore attaches portfolio metrics to a cohort, then finalizes
// risk, style, rank scores, and ranks.
func (s *Scanner) enrichAndScore(ctx context.Context, wallets []*models.Wallet) {
	logger := logging.FromContext(ctx)

	if !s.cfg.SkipPortfolio {
		logger.WithField("wallets", len(wallets)).Info("Fetching portfolio histories")
		for _, w := range wallets {
			raw, ok := s.client.Portfolio(ctx, w.Address)
			if !ok {
				continue
			}
			windows := hyperliquid.ParsePortfolioWindows(raw)
			if win, found := windows["month"]; found {
				w.Portfolio.Month = ComputeWindowMetrics(win)
			}
			if win, found := windows["week"]; found {
				w.Portfolio.Week = ComputeWindowMetrics(win)
			}
			if win, found := windows["allTime"]; found {
				w.Portfolio.AllTime = ComputeWindowMetrics(win)
			}
		}
	}

	for _, w := range wallets {
		w.RiskScore = RiskScore(w.AccountValue, w.Positions)
		var vol, mdd *float64
		if m := w.Portfolio.Month; m != nil {
			vol, mdd = m.VolPctDaily, m.MaxDrawdownPct
		}
		w.Style = StyleLabel(w.RiskScore, vol, mdd)
	}

	ApplyRanks(wallets)
}

// publish writes all snapshot documents for the requested mode to every
// sink, then the run metadata listing the published files.
func (s *Scanner) publish(ctx context.Context, mode string, result *ScanResult) error {
	var files []string

	publishCohort := func(modeName string, wallets []*models.Wallet) error {
		if wallets == nil {
			wallets = []*models.Wallet{}
		}
		all := &models.Snapshot{RunMeta: result.Meta, Mode: modeName, Wallets: wallets}
		name := fmt.Sprintf("%s_all.json", modeName)
		for _, sink := range s.sinks {
			if err := sink.PublishSnapshot(ctx, name, all); err != nil {
				return err
			}
		}
		files = append(files, name)

		for _, key := range models.RankKeys {
			ranked := &models.Snapshot{
				RunMeta: result.Meta,
				Mode:    modeName,
				RankBy:  key,
				Wallets: SortWallets(wallets, key),
			}
			name := fmt.Sprintf("%s_%s.json", modeName, key)
			for _, sink := range s.sinks {
				if err := sink.PublishSnapshot(ctx, name, ranked); err != nil {
					return err
				}
			}
			files = append(files, name)
		}
		return nil
	}

	if includesMode(mode, models.ModeActive) {
		if err := publishCohort(models.ModeActive, result.Active); err != nil {
			return err
		}
	}
	if includesMode(mode, models.ModeInactive) {
		if err := publishCohort(models.ModeInactive, result.Inactive); err != nil {
			return err
		}
	}

	result.Meta.Files = files
	for _, sink := range s.sinks {
		if err := sink.PublishMeta(ctx, &result.Meta); err != nil {
			return err
		}
	}
	return nil
}

// includesMode reports whether a run mode covers the given cohort.
func includesMode(mode, cohort string) bool {
	return mode == cohort || mode == models.ModeBoth
}
