package service

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whale-scanner/internal/models"
	"github.com/whale-scanner/internal/types"
)

func floatPtr(v float64) *float64 { return &v }

func TestRiskScore_EmptyInputs(t *testing.T) {
	assert.Zero(t, RiskScore(0, []*models.Position{{MarginUsed: 100}}))
	assert.Zero(t, RiskScore(100000, nil))
}

func TestRiskScore_Components(t *testing.T) {
	// Full margin use, 50x leverage, liquidation right at the mark:
	// every component saturates.
	positions := []*models.Position{{
		MarginUsed:     100000,
		Leverage:       50,
		LiqDistancePct: floatPtr(0),
	}}
	assert.InDelta(t, 100, RiskScore(100000, positions), 1e-9)

	// No margin, no leverage, liquidation very far away
	calm := []*models.Position{{LiqDistancePct: floatPtr(100)}}
	assert.InDelta(t, 0, RiskScore(100000, calm), 1e-9)
}

func TestRiskScore_DefaultLiquidationComponent(t *testing.T) {
	// No position reports a liquidation distance: the proximity
	// component defaults to 0.25.
	positions := []*models.Position{{MarginUsed: 0, Leverage: 0}}
	assert.InDelta(t, 100*0.30*0.25, RiskScore(100000, positions), 1e-9)
}

func TestRiskScore_MonotonicInLeverage(t *testing.T) {
	base := func(lev float64) float64 {
		return RiskScore(100000, []*models.Position{{MarginUsed: 10000, Leverage: lev}})
	}
	prev := base(0)
	for _, lev := range []float64{1, 5, 10, 25, 50, 100} {
		cur := base(lev)
		assert.GreaterOrEqual(t, cur, prev, "risk must not decrease as leverage grows")
		prev = cur
	}
	// Saturates at 50x
	assert.InDelta(t, base(50), base(200), 1e-9)
}

func TestRiskScore_MonotonicInMarginRatio(t *testing.T) {
	base := func(margin float64) float64 {
		return RiskScore(100000, []*models.Position{{MarginUsed: margin, Leverage: 10}})
	}
	prev := base(0)
	for _, margin := range []float64{10000, 25000, 50000, 100000, 200000} {
		cur := base(margin)
		assert.GreaterOrEqual(t, cur, prev, "risk must not decrease as margin use grows")
		prev = cur
	}
	// Saturates once margin reaches equity
	assert.InDelta(t, base(100000), base(500000), 1e-9)
}

func TestRiskScore_MonotonicInLiquidationProximity(t *testing.T) {
	base := func(dist float64) float64 {
		return RiskScore(100000, []*models.Position{{MarginUsed: 10000, Leverage: 10, LiqDistancePct: floatPtr(dist)}})
	}
	prev := base(100)
	for _, dist := range []float64{50, 25, 10, 5, 1, 0} {
		cur := base(dist)
		assert.GreaterOrEqual(t, cur, prev, "risk must not decrease as liquidation draws closer")
		prev = cur
	}
	// Distances beyond 50% all zero the proximity component
	assert.InDelta(t, base(50), base(100), 1e-9)
}

func TestStyleLabel(t *testing.T) {
	tests := []struct {
		name string
		risk float64
		vol  *float64
		mdd  *float64
		want string
	}{
		{"high risk", 70, nil, nil, "aggressive"},
		{"high volatility", 10, floatPtr(5), nil, "aggressive"},
		{"deep drawdown", 10, nil, floatPtr(25), "aggressive"},
		{"moderate risk", 40, nil, nil, "balanced"},
		{"moderate volatility", 10, floatPtr(2), nil, "balanced"},
		{"moderate drawdown", 10, nil, floatPtr(12), "balanced"},
		{"calm", 39.9, floatPtr(1.9), floatPtr(11.9), "stable"},
		{"missing metrics count as zero", 0, nil, nil, "stable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StyleLabel(tt.risk, tt.vol, tt.mdd))
		})
	}
}

func TestComputeRankScores(t *testing.T) {
	w := &models.Wallet{
		RiskScore:   40,
		ExposurePct: floatPtr(80),
		Positions: []*models.Position{
			{AgeDays: floatPtr(4)},
			{AgeDays: floatPtr(6)},
			{AgeDays: nil},
		},
		Portfolio: models.PortfolioMetrics{
			Month: &models.WindowMetrics{
				PnlPct:         floatPtr(12.5),
				VolPctDaily:    floatPtr(3),
				MaxDrawdownPct: floatPtr(10),
			},
		},
	}
	scores := ComputeRankScores(w)

	assert.InDelta(t, 40, scores.Risk, 1e-9)
	assert.InDelta(t, 12.5, scores.Pnl, 1e-9)
	// 100 - 3*10 - 10*2
	assert.InDelta(t, 50, scores.Stability, 1e-9)
	// avg age 5: 5*2 + 80*0.5 - 40*0.5
	assert.InDelta(t, 30, scores.Conviction, 1e-9)
}

func TestComputeRankScores_PnlFallbackChain(t *testing.T) {
	w := &models.Wallet{
		Portfolio: models.PortfolioMetrics{
			Month:   &models.WindowMetrics{},
			Week:    &models.WindowMetrics{PnlPct: floatPtr(7)},
			AllTime: &models.WindowMetrics{PnlPct: floatPtr(99)},
		},
	}
	assert.InDelta(t, 7, ComputeRankScores(w).Pnl, 1e-9)

	w.Portfolio.Week = nil
	assert.InDelta(t, 99, ComputeRankScores(w).Pnl, 1e-9)

	w.Portfolio.AllTime = nil
	assert.Zero(t, ComputeRankScores(w).Pnl)
}

func TestComputeRankScores_StabilityFloor(t *testing.T) {
	w := &models.Wallet{
		Portfolio: models.PortfolioMetrics{
			Month: &models.WindowMetrics{VolPctDaily: floatPtr(50), MaxDrawdownPct: floatPtr(90)},
		},
	}
	assert.Zero(t, ComputeRankScores(w).Stability)
}

func TestApplyRanks(t *testing.T) {
	wallets := []*models.Wallet{
		{Address: "0x01", RiskScore: 10},
		{Address: "0x02", RiskScore: 90},
		{Address: "0x03", RiskScore: 50},
	}
	ApplyRanks(wallets)

	require.NotNil(t, wallets[0].Ranks)
	assert.Equal(t, 3, wallets[0].Ranks.Risk)
	assert.Equal(t, 1, wallets[1].Ranks.Risk)
	assert.Equal(t, 2, wallets[2].Ranks.Risk)
}

func TestApplyRanks_RanksArePermutation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("each rank key assigns 1..N exactly once", prop.ForAll(
		func(risks []float64) bool {
			wallets := make([]*models.Wallet, len(risks))
			for i, r := range risks {
				wallets[i] = &models.Wallet{
					Address:   types.Address(fmt.Sprintf("0x%040x", i+1)),
					RiskScore: r,
				}
			}
			ApplyRanks(wallets)

			for _, key := range models.RankKeys {
				seen := make(map[int]bool, len(wallets))
				for _, w := range wallets {
					var rank int
					switch key {
					case "risk":
						rank = w.Ranks.Risk
					case "pnl":
						rank = w.Ranks.Pnl
					case "stability":
						rank = w.Ranks.Stability
					case "conviction":
						rank = w.Ranks.Conviction
					}
					if rank < 1 || rank > len(wallets) || seen[rank] {
						return false
					}
					seen[rank] = true
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(0, 100)),
	))

	properties.TestingRun(t)
}

func TestSortWallets(t *testing.T) {
	wallets := []*models.Wallet{
		{Address: "0x01", AccountValue: 100, RankScores: &models.RankScores{Pnl: 5}},
		{Address: "0x02", AccountValue: 300, RankScores: &models.RankScores{Pnl: 20}},
		{Address: "0x03", AccountValue: 200, RankScores: &models.RankScores{Pnl: 10}},
	}

	byPnl := SortWallets(wallets, "pnl")
	assert.Equal(t, types.Address("0x02"), byPnl[0].Address)
	assert.Equal(t, types.Address("0x03"), byPnl[1].Address)

	byValue := SortWallets(wallets, "account_value")
	assert.Equal(t, types.Address("0x02"), byValue[0].Address)

	unknown := SortWallets(wallets, "whatever")
	assert.Equal(t, types.Address("0x01"), unknown[0].Address, "unknown key keeps input order")

	// Input order untouched
	assert.Equal(t, types.Address("0x01"), wallets[0].Address)
}
