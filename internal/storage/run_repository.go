package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/whale-scanner/internal/errors"
	"github.com/whale-scanner/internal/models"
	"github.com/whale-scanner/internal/types"
)

func isNoRows(err error) bool {
	return stderrors.Is(err, pgx.ErrNoRows)
}

// RunRepository persists scan runs and their wallet records in Postgres.
type RunRepository struct {
	db *PostgresDB
}

// NewRunRepository creates a run repository.
func NewRunRepository(db *PostgresDB) *RunRepository {
	return &RunRepository{db: db}
}

// InsertRun stores a run's metadata and all of its wallets in one
// transaction. The full wallet document is kept as JSONB alongside the
// queryable columns.
func (r *RunRepository) InsertRun(ctx context.Context, meta *models.RunMeta, wallets []*models.Wallet) error {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return errors.NewDatabaseError("begin scan run transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO scan_runs (run_id, generated_at, active_days, min_account_value,
			info_url, leaderboard_url, failed_states, failed_fills, files)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		meta.RunID,
		meta.GeneratedAt,
		meta.ActiveDays,
		meta.MinAccountValueUSD,
		meta.InfoURL,
		meta.LeaderboardURL,
		addressStrings(meta.FailedStates),
		addressStrings(meta.FailedFills),
		meta.Files,
	)
	if err != nil {
		return errors.NewDatabaseError("insert scan run", err)
	}

	for _, w := range wallets {
		payload, err := json.Marshal(w)
		if err != nil {
			return errors.NewDatabaseError("marshal wallet payload", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO wallets (run_id, address, account_value, last_trade_at,
				num_positions, total_position_value, total_unrealized_pnl, total_margin_used,
				exposure_pct, margin_pct, max_leverage, min_liq_distance_pct,
				risk_score, style, payload)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			meta.RunID,
			w.Address.String(),
			w.AccountValue,
			w.LastTradeAt,
			w.NumPositions,
			w.TotalPositionValue,
			w.TotalUnrealizedPnl,
			w.TotalMarginUsed,
			w.ExposurePct,
			w.MarginPct,
			w.MaxLeverage,
			w.MinLiqDistancePct,
			w.RiskScore,
			w.Style,
			payload,
		)
		if err != nil {
			return errors.NewDatabaseError("insert wallet", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.NewDatabaseError("commit scan run transaction", err)
	}
	return nil
}

// LatestRun returns the metadata of the most recent run, or nil when no
// run has been recorded yet.
func (r *RunRepository) LatestRun(ctx context.Context) (*models.RunMeta, error) {
	row := r.db.Pool().QueryRow(ctx, `
		SELECT run_id, generated_at, active_days, min_account_value,
			info_url, leaderboard_url, failed_states, failed_fills, files
		FROM scan_runs
		ORDER BY generated_at DESC
		LIMIT 1`)

	var meta models.RunMeta
	var generatedAt time.Time
	var failedStates, failedFills []string
	err := row.Scan(
		&meta.RunID,
		&generatedAt,
		&meta.ActiveDays,
		&meta.MinAccountValueUSD,
		&meta.InfoURL,
		&meta.LeaderboardURL,
		&failedStates,
		&failedFills,
		&meta.Files,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, errors.NewDatabaseError("query latest scan run", err)
	}

	meta.GeneratedAt = generatedAt.UTC()
	meta.GeneratedAtEpochMs = meta.GeneratedAt.UnixMilli()
	meta.FailedStates = toAddresses(failedStates)
	meta.FailedFills = toAddresses(failedFills)
	return &meta, nil
}

// WalletHistory returns the stored wallet rows for one address across
// runs, newest first.
func (r *RunRepository) WalletHistory(ctx context.Context, addr types.Address, limit int) ([]*models.Wallet, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.db.Pool().Query(ctx, `
		SELECT w.payload
		FROM wallets w
		JOIN scan_runs r ON r.run_id = w.run_id
		WHERE w.address = $1
		ORDER BY r.generated_at DESC
		LIMIT $2`,
		addr.String(), limit)
	if err != nil {
		return nil, errors.NewDatabaseError("query wallet history", err)
	}
	defer rows.Close()

	var out []*models.Wallet
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.NewDatabaseError("scan wallet row", err)
		}
		var w models.Wallet
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, errors.NewDatabaseError("decode wallet payload", err)
		}
		out = append(out, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("iterate wallet rows", err)
	}
	return out, nil
}

func addressStrings(addrs []types.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}

func toAddresses(ss []string) []types.Address {
	out := make([]types.Address, len(ss))
	for i, s := range ss {
		out[i] = types.Address(s)
	}
	return out
}
