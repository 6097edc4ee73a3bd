// Command replay drives the production decision path (the same
// Dispatcher the live recorder uses) over a previously recorded WAL
// log instead of stdin — regression-testing signal/strategy changes
// against a recorded session. This is strictly an offline, opt-in
// tool; it never runs automatically on live relaunch, so it is not
// the live-state persistence the core pipeline deliberately omits.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"cortex/internal/backtest"
	"cortex/internal/consumer"
	"cortex/internal/display"
	"cortex/internal/execution"
	"cortex/internal/infra"
	"cortex/internal/storage"
)

func main() {
	var (
		fromSeq         = flag.Uint64("from", 0, "replay starting at this sequence number (0 = resume from latest checkpoint, or beginning)")
		checkpointEvery = flag.Int("checkpoint-every", 10000, "save a checkpoint every N replayed events (0 disables)")
	)
	flag.Parse()

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		slog.Error("load config failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.SetDefault(infra.NewLogger(cfg))

	dbPath := filepath.Join(cfg.Recorder.WorkspaceDir, "data", cfg.Storage.DBPath)
	store, err := storage.Open(dbPath)
	if err != nil {
		slog.Error("open event store failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer store.Close()

	disp := display.New(filepath.Join(cfg.Recorder.WorkspaceDir, "replay"), cfg.UI.UpdateIntervalMS)
	sim := execution.New(store)
	d := consumer.New(nil, disp, sim, false)

	checkpointDir := filepath.Join(cfg.Recorder.WorkspaceDir, "checkpoints")
	cm := backtest.NewCheckpointManager(checkpointDir)

	r := backtest.NewReplayer(store, d, cm)
	processed, err := r.Run(context.Background(), *fromSeq, *checkpointEvery)
	if err != nil {
		slog.Error("replay failed", slog.Any("err", err), slog.Int("processed", processed))
		os.Exit(1)
	}
	slog.Info("replay finished", slog.Int("events", processed))
}
