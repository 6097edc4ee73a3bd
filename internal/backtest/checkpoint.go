// Checkpointing is strictly a backtest convenience: resuming a long
// offline replay from the last checkpoint instead of from seq 0. It
// must never be confused with restoring live strategy state across a
// restart, which this pipeline deliberately never does — a live
// recorder always starts flat. Adapted from the teacher's
// SnapshotManager, generalized from a map of per-symbol market state
// to the single-symbol position/PnL triple this pipeline tracks.
package backtest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cortex/pkg/quant"
)

// Checkpoint captures enough state to resume a replay mid-stream.
type Checkpoint struct {
	Seq         uint64        `json:"seq"`
	TsUnix      int64         `json:"ts"`
	Position    quant.QtyE8   `json:"position_e8"`
	AvgEntry    quant.PriceE8 `json:"avg_entry_e8"`
	RealizedPnL int64         `json:"realized_pnl_e8"`
}

// CheckpointManager saves and loads Checkpoint files under dir.
type CheckpointManager struct {
	dir string
}

func NewCheckpointManager(dir string) *CheckpointManager {
	return &CheckpointManager{dir: dir}
}

// Save writes a checkpoint atomically: temp file then rename, so a
// reader never observes a half-written file.
func (cm *CheckpointManager) Save(c Checkpoint) error {
	if err := os.MkdirAll(cm.dir, 0755); err != nil {
		return fmt.Errorf("backtest: create checkpoint dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("backtest: marshal checkpoint: %w", err)
	}

	final := filepath.Join(cm.dir, fmt.Sprintf("checkpoint_%d.json", c.Seq))
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("backtest: write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("backtest: rename checkpoint: %w", err)
	}

	slog.Info("checkpoint saved", slog.Uint64("seq", c.Seq), slog.String("path", final))
	return nil
}

// LoadLatest returns the highest-seq checkpoint on disk, or ok=false
// if none exist.
func (cm *CheckpointManager) LoadLatest() (c Checkpoint, ok bool, err error) {
	entries, err := os.ReadDir(cm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return c, false, nil
		}
		return c, false, fmt.Errorf("backtest: read checkpoint dir: %w", err)
	}

	var latestPath string
	var latestSeq uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var seq uint64
		if _, err := fmt.Sscanf(e.Name(), "checkpoint_%d.json", &seq); err != nil {
			continue
		}
		if seq >= latestSeq {
			latestSeq = seq
			latestPath = filepath.Join(cm.dir, e.Name())
		}
	}
	if latestPath == "" {
		return c, false, nil
	}

	data, err := os.ReadFile(latestPath)
	if err != nil {
		return c, false, fmt.Errorf("backtest: read checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, false, fmt.Errorf("backtest: unmarshal checkpoint: %w", err)
	}
	return c, true, nil
}

// Cleanup keeps only the keepCount most recent checkpoints.
func (cm *CheckpointManager) Cleanup(keepCount int) error {
	entries, err := os.ReadDir(cm.dir)
	if err != nil {
		return err
	}

	type file struct {
		path string
		seq  uint64
	}
	var files []file
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var seq uint64
		if _, err := fmt.Sscanf(e.Name(), "checkpoint_%d.json", &seq); err == nil {
			files = append(files, file{path: filepath.Join(cm.dir, e.Name()), seq: seq})
		}
	}
	if len(files) <= keepCount {
		return nil
	}

	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if files[j].seq > files[i].seq {
				files[i], files[j] = files[j], files[i]
			}
		}
	}

	for i := keepCount; i < len(files); i++ {
		if err := os.Remove(files[i].path); err != nil {
			slog.Warn("failed to remove old checkpoint", slog.String("path", files[i].path))
		}
	}
	return nil
}
