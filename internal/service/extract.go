// Package service implements the scan pipeline: candidate discovery,
// state extraction, activity classification, window metrics, scoring,
// ranking, and snapshot publication.
package service

import (
	"math"

	"github.com/whale-scanner/internal/hyperliquid"
	"github.com/whale-scanner/internal/models"
)

// positionSizeEps is the threshold below which a reported position size
// is treated as flat.
const positionSizeEps = 1e-12

// ExtractAccountValue reads the account equity from a clearinghouse state.
func ExtractAccountValue(state *hyperliquid.ClearinghouseState) float64 {
	if state == nil {
		return 0
	}
	return hyperliquid.ParseFloat(state.MarginSummary.AccountValue, 0)
}

// ExtractPositions converts the open positions of a clearinghouse state
// into domain records, enriching each with the current mid price and the
// derived fields that depend on it. Positions with a near-zero size are
// skipped. Derived fields stay nil when their inputs are unavailable;
// zero is never used as a stand-in.
func ExtractPositions(state *hyperliquid.ClearinghouseState, accountValue float64, mids map[string]float64) []*models.Position {
	if state == nil {
		return nil
	}

	var out []*models.Position
	for _, ap := range state.AssetPositions {
		raw := ap.Position
		if raw == nil {
			continue
		}

		size := hyperliquid.ParseFloat(raw.Szi, 0)
		if math.Abs(size) < positionSizeEps {
			continue
		}

		coin := raw.Coin
		if coin == "" {
			coin = "Unknown"
		}
		side := "SHORT"
		if size > 0 {
			side = "LONG"
		}

		var roePct *float64
		if roe := hyperliquid.ParseOptFloat(raw.ReturnOnEquity); roe != nil {
			pct := *roe * 100
			roePct = &pct
		}

		var leverage float64
		if raw.Leverage != nil {
			leverage = raw.Leverage.Value
		}

		liqPx := hyperliquid.ParseOptFloat(raw.LiquidationPx)
		positionValue := hyperliquid.ParseFloat(raw.PositionValue, 0)

		var midPx *float64
		if mid, ok := mids[coin]; ok && mid > 0 {
			midPx = &mid
		}

		var notionalPct *float64
		if accountValue > 0 {
			pct := math.Abs(positionValue) / accountValue * 100
			notionalPct = &pct
		}

		var liqDistPct *float64
		if midPx != nil && liqPx != nil {
			pct := math.Abs(*midPx-*liqPx) / *midPx * 100
			liqDistPct = &pct
		}

		out = append(out, &models.Position{
			Coin:              coin,
			Side:              side,
			Size:              size,
			EntryPrice:        hyperliquid.ParseFloat(raw.EntryPx, 0),
			MidPrice:          midPx,
			PositionValue:     positionValue,
			UnrealizedPnl:     hyperliquid.ParseFloat(raw.UnrealizedPnl, 0),
			ROEPct:            roePct,
			Leverage:          leverage,
			LiquidationPrice:  liqPx,
			MarginUsed:        hyperliquid.ParseFloat(raw.MarginUsed, 0),
			NotionalPctEquity: notionalPct,
			LiqDistancePct:    liqDistPct,
		})
	}
	return out
}

// AggregatePositions fills a wallet's position-derived totals. Equity
// ratios stay nil when the account value is not positive.
func AggregatePositions(w *models.Wallet) {
	var totalPV, totalPnl, totalMargin, maxLev float64
	var minLiqDist *float64

	for _, p := range w.Positions {
		totalPV += math.Abs(p.PositionValue)
		totalPnl += p.UnrealizedPnl
		totalMargin += p.MarginUsed
		if p.Leverage > maxLev {
			maxLev = p.Leverage
		}
		if p.LiqDistancePct != nil && (minLiqDist == nil || *p.LiqDistancePct < *minLiqDist) {
			d := *p.LiqDistancePct
			minLiqDist = &d
		}
	}

	w.NumPositions = len(w.Positions)
	w.TotalPositionValue = totalPV
	w.TotalUnrealizedPnl = totalPnl
	w.TotalMarginUsed = totalMargin
	w.MaxLeverage = maxLev
	w.MinLiqDistancePct = minLiqDist

	if w.AccountValue > 0 {
		exposure := totalPV / w.AccountValue * 100
		margin := totalMargin / w.AccountValue * 100
		w.ExposurePct = &exposure
		w.MarginPct = &margin
	} else {
		w.ExposurePct = nil
		w.MarginPct = nil
	}
}
