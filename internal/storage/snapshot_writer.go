package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/whale-scanner/internal/models"
)

// SnapshotWriter publishes scan output as JSON files in a directory,
// suitable for serving as static content. Each file is written to a
// temporary path and renamed so readers never see a partial document.
type SnapshotWriter struct {
	dir string
}

// NewSnapshotWriter creates a writer rooted at dir, creating it if needed.
func NewSnapshotWriter(dir string) (*SnapshotWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &SnapshotWriter{dir: dir}, nil
}

// Dir returns the output directory.
func (w *SnapshotWriter) Dir() string { return w.dir }

// PublishSnapshot writes one snapshot document.
func (w *SnapshotWriter) PublishSnapshot(ctx context.Context, filename string, snap *models.Snapshot) error {
	return w.writeJSON(filename, snap)
}

// PublishMeta writes the run metadata as meta.json.
func (w *SnapshotWriter) PublishMeta(ctx context.Context, meta *models.RunMeta) error {
	return w.writeJSON("meta.json", meta)
}

func (w *SnapshotWriter) writeJSON(filename string, doc interface{}) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filename, err)
	}

	target := filepath.Join(w.dir, filename)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filename, err)
	}
	return nil
}
