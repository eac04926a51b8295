// Package models defines the domain records produced by a scan run.
package models

import (
	"time"

	"github.com/whale-scanner/internal/types"
)

// Position represents one open perp position of a scanned account.
// Derived fields are pointers: nil means the required input (positive
// equity, known mid price, known liquidation price) was unavailable.
// Zero is a meaningful value for scoring and is never used as a default.
type Position struct {
	Coin              string   `json:"coin"`
	Side              string   `json:"side"` // LONG or SHORT, from the sign of Size
	Size              float64  `json:"size"`
	EntryPrice        float64  `json:"entry_px"`
	MidPrice          *float64 `json:"mid_px"`
	PositionValue     float64  `json:"position_value"`
	UnrealizedPnl     float64  `json:"unrealized_pnl"`
	ROEPct            *float64 `json:"roe_pct"`
	Leverage          float64  `json:"leverage"`
	LiquidationPrice  *float64 `json:"liquidation_px"`
	MarginUsed        float64  `json:"margin_used"`
	NotionalPctEquity *float64 `json:"notional_pct_equity"`
	LiqDistancePct    *float64 `json:"liq_distance_pct"`
	AgeDays           *float64 `json:"age_days"`
}

// TimePoint is one sample of a portfolio history series.
type TimePoint struct {
	TimeMs int64
	Value  float64
}

// PortfolioWindow holds the raw history series of one named time bucket
// (month/week/allTime). Points may arrive unsorted, the two series may
// differ in length, and account values may lead with zeros from before
// the account existed.
type PortfolioWindow struct {
	AccountValues []TimePoint
	Pnls          []TimePoint
	Volume        float64
}

// WindowMetrics holds metrics derived from one PortfolioWindow. Every
// field is nil when there is not enough valid data to compute it.
type WindowMetrics struct {
	GrowthPct      *float64 `json:"growth_pct"`
	PnlPct         *float64 `json:"pnl_pct"`
	VolPctDaily    *float64 `json:"vol_pct_daily"`
	MaxDrawdownPct *float64 `json:"max_drawdown_pct"`
}

// PortfolioMetrics groups per-window metrics for the buckets the scanner
// publishes.
type PortfolioMetrics struct {
	Month   *WindowMetrics `json:"month"`
	Week    *WindowMetrics `json:"week"`
	AllTime *WindowMetrics `json:"allTime"`
}

// RankScores holds the four independent scores a wallet is ranked by.
type RankScores struct {
	Risk       float64 `json:"risk"`
	Pnl        float64 `json:"pnl"`
	Stability  float64 `json:"stability"`
	Conviction float64 `json:"conviction"`
}

// Ranks holds 1-based rank positions within a cohort.
type Ranks struct {
	Risk       int `json:"risk"`
	Pnl        int `json:"pnl"`
	Stability  int `json:"stability"`
	Conviction int `json:"conviction"`
}

// Wallet is the full per-account record built up by the pipeline stages.
type Wallet struct {
	Address            types.Address    `json:"address"`
	AccountValue       float64          `json:"account_value"`
	LastTradeAt        *time.Time       `json:"last_trade_utc"`
	Positions          []*Position      `json:"positions"`
	NumPositions       int              `json:"num_positions"`
	TotalPositionValue float64          `json:"total_position_value"`
	TotalUnrealizedPnl float64          `json:"total_unrealized_pnl"`
	TotalMarginUsed    float64          `json:"total_margin_used"`
	ExposurePct        *float64         `json:"exposure_pct"`
	MarginPct          *float64         `json:"margin_pct"`
	MaxLeverage        float64          `json:"max_leverage"`
	MinLiqDistancePct  *float64         `json:"min_liq_distance_pct"`
	Portfolio          PortfolioMetrics `json:"portfolio"`
	RiskScore          float64          `json:"risk_score"`
	Style              string           `json:"style"`
	RankScores         *RankScores      `json:"rank_scores,omitempty"`
	Ranks              *Ranks           `json:"ranks,omitempty"`
}

// AvgPositionAgeDays returns the mean age over positions with a known
// age, and false when no position has one.
func (w *Wallet) AvgPositionAgeDays() (float64, bool) {
	var sum float64
	var n int
	for _, p := range w.Positions {
		if p.AgeDays != nil {
			sum += *p.AgeDays
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
