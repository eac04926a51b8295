package models

import (
	"time"

	"github.com/whale-scanner/internal/types"
)

// Scan modes select which cohorts a run processes and publishes.
const (
	ModeActive   = "active"
	ModeInactive = "inactive"
	ModeBoth     = "both"
)

// Rank keys a cohort is ordered by.
var RankKeys = []string{"risk", "pnl", "stability", "conviction"}

// RunMeta describes one scan run: when it ran, which thresholds applied,
// and which addresses could not be fetched. It is embedded in every
// published snapshot document.
type RunMeta struct {
	RunID              string          `json:"run_id"`
	GeneratedAt        time.Time       `json:"generated_at_utc"`
	GeneratedAtEpochMs int64           `json:"generated_at_epoch_ms"`
	ActiveDays         int             `json:"active_days"`
	MinAccountValueUSD float64         `json:"min_value"`
	InfoURL            string          `json:"info_url"`
	LeaderboardURL     string          `json:"leaderboard_url"`
	FailedStates       []types.Address `json:"failed_states"`
	FailedFills        []types.Address `json:"failed_fills"`
	Files              []string        `json:"files,omitempty"`
}

// Snapshot is one published document: run metadata plus a wallet cohort,
// optionally ordered by a rank key.
type Snapshot struct {
	RunMeta
	Mode    string    `json:"mode"`
	RankBy  string    `json:"rank_by,omitempty"`
	Wallets []*Wallet `json:"wallets"`
}
