package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whale-scanner/internal/models"
)

func TestSnapshotWriter_PublishSnapshot(t *testing.T) {
	dir := t.TempDir()
	w, err := NewSnapshotWriter(filepath.Join(dir, "data"))
	require.NoError(t, err)

	snap := &models.Snapshot{
		RunMeta: models.RunMeta{RunID: "run-1"},
		Mode:    models.ModeActive,
		Wallets: []*models.Wallet{{Address: "0x01", Style: "stable"}},
	}
	require.NoError(t, w.PublishSnapshot(context.Background(), "active_all.json", snap))

	payload, err := os.ReadFile(filepath.Join(w.Dir(), "active_all.json"))
	require.NoError(t, err)

	var got models.Snapshot
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, models.ModeActive, got.Mode)
	require.Len(t, got.Wallets, 1)

	// No leftover temp file
	entries, err := os.ReadDir(w.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSnapshotWriter_PublishMeta(t *testing.T) {
	w, err := NewSnapshotWriter(t.TempDir())
	require.NoError(t, err)

	meta := &models.RunMeta{RunID: "run-2", Files: []string{"active_all.json"}}
	require.NoError(t, w.PublishMeta(context.Background(), meta))

	payload, err := os.ReadFile(filepath.Join(w.Dir(), "meta.json"))
	require.NoError(t, err)

	var got models.RunMeta
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, []string{"active_all.json"}, got.Files)
}

func TestSnapshotWriter_OverwritesPreviousRun(t *testing.T) {
	w, err := NewSnapshotWriter(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first := &models.Snapshot{RunMeta: models.RunMeta{RunID: "run-1"}, Mode: models.ModeActive}
	second := &models.Snapshot{RunMeta: models.RunMeta{RunID: "run-2"}, Mode: models.ModeActive}
	require.NoError(t, w.PublishSnapshot(ctx, "active_all.json", first))
	require.NoError(t, w.PublishSnapshot(ctx, "active_all.json", second))

	payload, err := os.ReadFile(filepath.Join(w.Dir(), "active_all.json"))
	require.NoError(t, err)
	var got models.Snapshot
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "run-2", got.RunID)
}
