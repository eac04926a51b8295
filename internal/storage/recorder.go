package storage

import (
	"context"
	"time"

	"github.com/whale-scanner/internal/models"
)

// Recorder persists run results across Postgres and ClickHouse. The
// history repository is optional; a nil one disables metric history.
type Recorder struct {
	runs    *RunRepository
	history *MetricsHistoryRepository
}

// NewRecorder creates a recorder.
func NewRecorder(runs *RunRepository, history *MetricsHistoryRepository) *Recorder {
	return &Recorder{runs: runs, history: history}
}

// RecordRun stores the run and its wallets in Postgres.
func (r *Recorder) RecordRun(ctx context.Context, meta *models.RunMeta, wallets []*models.Wallet) error {
	return r.runs.InsertRun(ctx, meta, wallets)
}

// RecordMetricsHistory appends per-wallet metric rows to ClickHouse.
func (r *Recorder) RecordMetricsHistory(ctx context.Context, runID string, wallets []*models.Wallet) error {
	if r.history == nil {
		return nil
	}
	return r.history.InsertRun(ctx, runID, time.Now().UTC(), wallets)
}
