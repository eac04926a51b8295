package storage

import (
	"context"
	"time"

	"github.com/whale-scanner/internal/errors"
	"github.com/whale-scanner/internal/models"
	"github.com/whale-scanner/internal/types"
)

// MetricsHistoryRepository stores per-run wallet metrics in ClickHouse
// for time-series queries across runs.
type MetricsHistoryRepository struct {
	db *ClickHouseDB
}

// NewMetricsHistoryRepository creates a metrics history repository.
func NewMetricsHistoryRepository(db *ClickHouseDB) *MetricsHistoryRepository {
	return &MetricsHistoryRepository{db: db}
}

// EnsureSchema creates the metrics table if it does not exist.
func (r *MetricsHistoryRepository) EnsureSchema(ctx context.Context) error {
	err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS wallet_metrics_history (
			run_id String,
			recorded_at DateTime64(3),
			address String,
			account_value Float64,
			num_positions UInt32,
			total_position_value Float64,
			total_unrealized_pnl Float64,
			total_margin_used Float64,
			exposure_pct Nullable(Float64),
			max_leverage Float64,
			min_liq_distance_pct Nullable(Float64),
			risk_score Float64,
			style String,
			month_growth_pct Nullable(Float64),
			month_pnl_pct Nullable(Float64),
			month_vol_pct_daily Nullable(Float64),
			month_max_drawdown_pct Nullable(Float64)
		) ENGINE = MergeTree()
		ORDER BY (address, recorded_at)`)
	if err != nil {
		return errors.NewDatabaseError("create wallet_metrics_history table", err)
	}
	return nil
}

// InsertRun appends one row per wallet for a completed run.
func (r *MetricsHistoryRepository) InsertRun(ctx context.Context, runID string, recordedAt time.Time, wallets []*models.Wallet) error {
	if len(wallets) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `
		INSERT INTO wallet_metrics_history (run_id, recorded_at, address,
			account_value, num_positions, total_position_value, total_unrealized_pnl,
			total_margin_used, exposure_pct, max_leverage, min_liq_distance_pct,
			risk_score, style, month_growth_pct, month_pnl_pct,
			month_vol_pct_daily, month_max_drawdown_pct)`)
	if err != nil {
		return errors.NewDatabaseError("prepare metrics history batch", err)
	}

	for _, w := range wallets {
		var growth, pnl, vol, mdd *float64
		if m := w.Portfolio.Month; m != nil {
			growth, pnl, vol, mdd = m.GrowthPct, m.PnlPct, m.VolPctDaily, m.MaxDrawdownPct
		}
		err := batch.Append(
			runID,
			recordedAt,
			w.Address.String(),
			w.AccountValue,
			uint32(w.NumPositions),
			w.TotalPositionValue,
			w.TotalUnrealizedPnl,
			w.TotalMarginUsed,
			w.ExposurePct,
			w.MaxLeverage,
			w.MinLiqDistancePct,
			w.RiskScore,
			w.Style,
			growth,
			pnl,
			vol,
			mdd,
		)
		if err != nil {
			return errors.NewDatabaseError("append metrics history row", err)
		}
	}

	if err := batch.Send(); err != nil {
		return errors.NewDatabaseError("send metrics history batch", err)
	}
	return nil
}

// MetricsPoint is one historical sample of a wallet's headline metrics.
type MetricsPoint struct {
	RunID        string    `json:"run_id"`
	RecordedAt   time.Time `json:"recorded_at"`
	AccountValue float64   `json:"account_value"`
	RiskScore    float64   `json:"risk_score"`
	Style        string    `json:"style"`
}

// AddressHistory returns the recorded metric samples for one address,
// oldest first.
func (r *MetricsHistoryRepository) AddressHistory(ctx context.Context, addr types.Address, limit int) ([]MetricsPoint, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Conn().Query(ctx, `
		SELECT run_id, recorded_at, account_value, risk_score, style
		FROM wallet_metrics_history
		WHERE address = ?
		ORDER BY recorded_at ASC
		LIMIT ?`,
		addr.String(), limit)
	if err != nil {
		return nil, errors.NewDatabaseError("query metrics history", err)
	}
	defer rows.Close()

	var out []MetricsPoint
	for rows.Next() {
		var p MetricsPoint
		if err := rows.Scan(&p.RunID, &p.RecordedAt, &p.AccountValue, &p.RiskScore, &p.Style); err != nil {
			return nil, errors.NewDatabaseError("scan metrics history row", err)
		}
		out = append(out, p)
	}
	return out, nil
}
