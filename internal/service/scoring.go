package service

import (
	"sort"

	"github.com/whale-scanner/internal/models"
	"github.com/whale-scanner/internal/types"
)

// Risk score weights. Margin utilization dominates, with leverage and
// liquidation proximity sharing the rest. Leverage saturates at 50x and
// liquidation distance at 50%; an account with no liquidation price on
// any position gets a modest default proximity component.
const (
	riskMarginWeight   = 0.40
	riskLeverageWeight = 0.30
	riskLiqWeight      = 0.30
	riskLeverageCap    = 50.0
	riskLiqDistanceCap = 50.0
	riskLiqDefault     = 0.25
)

// Style thresholds on risk score, daily volatility, and max drawdown.
const (
	aggressiveRisk = 70.0
	aggressiveVol  = 5.0
	aggressiveMdd  = 25.0
	balancedRisk   = 40.0
	balancedVol    = 2.0
	balancedMdd    = 12.0
)

// RiskScore rates an account 0-100 from margin utilization, peak
// leverage, and distance to the nearest liquidation. Accounts with no
// equity or no open positions score zero.
func RiskScore(accountValue float64, positions []*models.Position) float64 {
	if accountValue <= 0 || len(positions) == 0 {
		return 0
	}

	var totalMargin, maxLev float64
	var closestLiq *float64
	for _, p := range positions {
		totalMargin += p.MarginUsed
		if p.Leverage > maxLev {
			maxLev = p.Leverage
		}
		if p.LiqDistancePct != nil && (closestLiq == nil || *p.LiqDistancePct < *closestLiq) {
			closestLiq = p.LiqDistancePct
		}
	}

	marginRatio := totalMargin / accountValue
	if marginRatio > 1 {
		marginRatio = 1
	}

	levScore := maxLev / riskLeverageCap
	if levScore > 1 {
		levScore = 1
	}

	liqScore := riskLiqDefault
	if closestLiq != nil {
		norm := *closestLiq / riskLiqDistanceCap
		if norm > 1 {
			norm = 1
		}
		liqScore = 1 - norm
	}

	score := 100 * (riskMarginWeight*marginRatio + riskLeverageWeight*levScore + riskLiqWeight*liqScore)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// StyleLabel classifies an account's trading style from its risk score
// and monthly volatility and drawdown. Missing metrics count as zero.
func StyleLabel(risk float64, volPctDaily, mddPct *float64) string {
	v, d := 0.0, 0.0
	if volPctDaily != nil {
		v = *volPctDaily
	}
	if mddPct != nil {
		d = *mddPct
	}
	if risk >= aggressiveRisk || v >= aggressiveVol || d >= aggressiveMdd {
		return "aggressive"
	}
	if risk >= balancedRisk || v >= balancedVol || d >= balancedMdd {
		return "balanced"
	}
	return "stable"
}

// ComputeRankScores derives the four rank scores of a wallet. The PnL
// score falls back from the month window to week to all-time; stability
// penalizes monthly volatility and drawdown; conviction rewards position
// age and exposure against risk.
func ComputeRankScores(w *models.Wallet) *models.RankScores {
	risk := w.RiskScore

	exposure := 0.0
	if w.ExposurePct != nil {
		exposure = *w.ExposurePct
	}

	pnl := 0.0
	for _, win := range []*models.WindowMetrics{w.Portfolio.Month, w.Portfolio.Week, w.Portfolio.AllTime} {
		if win != nil && win.PnlPct != nil {
			pnl = *win.PnlPct
			break
		}
	}

	vol, mdd := 0.0, 0.0
	if m := w.Portfolio.Month; m != nil {
		if m.VolPctDaily != nil {
			vol = *m.VolPctDaily
		}
		if m.MaxDrawdownPct != nil {
			mdd = *m.MaxDrawdownPct
		}
	}
	stability := 100 - vol*10 - mdd*2
	if stability < 0 {
		stability = 0
	}

	avgAge, _ := w.AvgPositionAgeDays()
	conviction := avgAge*2 + exposure*0.5 - risk*0.5

	return &models.RankScores{
		Risk:       risk,
		Pnl:        pnl,
		Stability:  stability,
		Conviction: conviction,
	}
}

// ApplyRanks computes rank scores for every wallet in a cohort and
// assigns 1-based rank positions per key, highest score first. Ties
// keep input order.
func ApplyRanks(wallets []*models.Wallet) {
	for _, w := range wallets {
		w.RankScores = ComputeRankScores(w)
	}

	positions := make(map[string]map[types.Address]int, len(models.RankKeys))
	for _, key := range models.RankKeys {
		ordered := make([]*models.Wallet, len(wallets))
		copy(ordered, wallets)
		sort.SliceStable(ordered, func(i, j int) bool {
			return rankScoreFor(ordered[i], key) > rankScoreFor(ordered[j], key)
		})

		byAddr := make(map[types.Address]int, len(ordered))
		for i, w := range ordered {
			byAddr[w.Address] = i + 1
		}
		positions[key] = byAddr
	}

	for _, w := range wallets {
		w.Ranks = &models.Ranks{
			Risk:       positions["risk"][w.Address],
			Pnl:        positions["pnl"][w.Address],
			Stability:  positions["stability"][w.Address],
			Conviction: positions["conviction"][w.Address],
		}
	}
}

func rankScoreFor(w *models.Wallet, key string) float64 {
	if w.RankScores == nil {
		return 0
	}
	switch key {
	case "risk":
		return w.RankScores.Risk
	case "pnl":
		return w.RankScores.Pnl
	case "stability":
		return w.RankScores.Stability
	case "conviction":
		return w.RankScores.Conviction
	}
	return 0
}

// SortWallets returns a copy of the cohort ordered by the given rank
// key or by account value, highest first. An unknown key returns the
// cohort unchanged.
func SortWallets(wallets []*models.Wallet, by string) []*models.Wallet {
	out := make([]*models.Wallet, len(wallets))
	copy(out, wallets)

	switch by {
	case "risk", "pnl", "stability", "conviction":
		sort.SliceStable(out, func(i, j int) bool {
			return rankScoreFor(out[i], by) > rankScoreFor(out[j], by)
		})
	case "account_value":
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].AccountValue > out[j].AccountValue
		})
	}
	return out
}
