package service

import (
	"math"
	"sort"

	"github.com/whale-scanner/internal/models"
)

// baselineEps is the smallest account value treated as a usable
// baseline. Account value histories can lead with zeros from before the
// account was funded, so the first positive sample anchors growth and
// PnL instead of the first sample.
const baselineEps = 1e-9

// ComputeWindowMetrics derives growth, PnL, volatility, and drawdown
// from one portfolio window. Each metric is nil when the series does
// not carry enough valid data for it.
func ComputeWindowMetrics(win models.PortfolioWindow) *models.WindowMetrics {
	m := &models.WindowMetrics{}
	if len(win.AccountValues) < 2 {
		return m
	}

	av := make([]models.TimePoint, len(win.AccountValues))
	copy(av, win.AccountValues)
	sort.Slice(av, func(i, j int) bool { return av[i].TimeMs < av[j].TimeMs })

	baseIdx := -1
	for i, p := range av {
		if !math.IsInf(p.Value, 0) && !math.IsNaN(p.Value) && p.Value > baselineEps {
			baseIdx = i
			break
		}
	}

	// Volatility and drawdown ignore the leading unfunded stretch
	sliceStart := 0
	if baseIdx >= 0 {
		sliceStart = baseIdx
	}
	var vals []float64
	for _, p := range av[sliceStart:] {
		if !math.IsInf(p.Value, 0) && !math.IsNaN(p.Value) {
			vals = append(vals, p.Value)
		}
	}

	if len(vals) >= 2 {
		var rets []float64
		for i := 1; i < len(vals); i++ {
			if vals[i-1] > baselineEps {
				rets = append(rets, (vals[i]-vals[i-1])/vals[i-1])
			}
		}
		if len(rets) >= 2 {
			vol := sampleStdev(rets) * 100
			m.VolPctDaily = &vol
		}

		mdd := maxDrawdown(vals) * 100
		m.MaxDrawdownPct = &mdd
	}

	if baseIdx >= 0 && baseIdx < len(av)-1 {
		baseTs, baseAv := av[baseIdx].TimeMs, av[baseIdx].Value
		endAv := av[len(av)-1].Value

		if baseAv > baselineEps {
			growth := (endAv - baseAv) / baseAv * 100
			m.GrowthPct = &growth

			if len(win.Pnls) >= 2 {
				pnls := make([]models.TimePoint, len(win.Pnls))
				copy(pnls, win.Pnls)
				sort.Slice(pnls, func(i, j int) bool { return pnls[i].TimeMs < pnls[j].TimeMs })

				// Baseline pnl aligns to the first sample at or after
				// the baseline timestamp
				basePnl := pnls[0].Value
				for _, p := range pnls {
					if p.TimeMs >= baseTs {
						basePnl = p.Value
						break
					}
				}
				pnlPct := (pnls[len(pnls)-1].Value - basePnl) / baseAv * 100
				m.PnlPct = &pnlPct
			}
		}
	}

	return m
}

// sampleStdev returns the Bessel-corrected standard deviation. Callers
// guarantee at least two values.
func sampleStdev(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

// maxDrawdown returns the largest peak-to-trough decline as a fraction
// of the peak. Callers guarantee at least two values.
func maxDrawdown(series []float64) float64 {
	peak := series[0]
	mdd := 0.0
	for _, v := range series {
		if v > peak {
			peak = v
		}
		if peak != 0 {
			if dd := (peak - v) / peak; dd > mdd {
				mdd = dd
			}
		}
	}
	return mdd
}
