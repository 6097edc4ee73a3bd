// Package app wires every package in this module into a running
// process, mirroring the teacher's Bootstrap.Initialize ordering:
// config, then logger, then workspace directories and the singleton
// lock, then the event store, then the ring and producer/consumer
// pair.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cortex/internal/consumer"
	"cortex/internal/display"
	"cortex/internal/infra"
	"cortex/internal/recorder"
	"cortex/internal/ring"
	"cortex/internal/storage"
	"cortex/internal/wire"
)

const ringCapacity = 1 << 16

// Bootstrap holds everything a running process needs, so main can
// stay a thin wrapper around Initialize/Run/Shutdown.
type Bootstrap struct {
	Config     *infra.Config
	Store      *storage.Store
	Dispatcher *consumer.Dispatcher
	Ring       *ring.Queue[wire.Event]
	Recorder   *recorder.Recorder

	unlock func()
}

// NewBootstrap creates an empty Bootstrap; call Initialize next.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, installs the logger, prepares the
// workspace directories, takes the singleton lock, opens the event
// store, and wires the ring/dispatcher. headless selects which
// consumer mode Dispatch runs in.
func (b *Bootstrap) Initialize(headless bool) error {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return fmt.Errorf("bootstrap: load config: %w", err)
	}
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg))
	infra.PrintBanner(cfg, headless)

	workDir := cfg.Recorder.WorkspaceDir
	dataDir := filepath.Join(workDir, "data")
	historyDir := filepath.Join(dataDir, "history")
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("bootstrap: create data dir: %w", err)
	}
	if err := infra.EnsureDir(historyDir); err != nil {
		return fmt.Errorf("bootstrap: create history dir: %w", err)
	}

	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	b.unlock = unlock

	dbPath := filepath.Join(dataDir, cfg.Storage.DBPath)
	store, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("bootstrap: open event store: %w", err)
	}
	b.Store = store
	slog.Info("event store ready", slog.String("path", dbPath))

	b.Ring = ring.New[wire.Event](ringCapacity)

	var rec consumer.Recorder
	var disp consumer.Display
	if headless {
		r, err := recorderFor(cfg, historyDir)
		if err != nil {
			return err
		}
		b.Recorder = r
		rec = r
	} else {
		disp = display.New(workDir, cfg.UI.UpdateIntervalMS)
	}

	sim := newSimulator(store)
	b.Dispatcher = consumer.New(rec, disp, sim, headless)

	return nil
}

// Shutdown releases the singleton lock and closes the event store.
// Call it once, after the consumer's Run loop has returned.
func (b *Bootstrap) Shutdown() {
	if b.Recorder != nil {
		if err := b.Recorder.Close(); err != nil {
			slog.Warn("bootstrap: close recorder failed", slog.Any("err", err))
		}
	}
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Warn("bootstrap: close event store failed", slog.Any("err", err))
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
}

// Run drives the consumer loop until ctx is cancelled (typically on
// producer EOF or an OS signal).
func (b *Bootstrap) Run(ctx context.Context) {
	consumer.Run(ctx, b.Ring, b.Dispatcher)
}

// ExitWithUsage prints a usage message to stderr and exits 1, used
// when the required mode flag is missing or unrecognized.
func ExitWithUsage(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	fmt.Fprintln(os.Stderr, "usage: recorder (--headless | --visual-only)")
	os.Exit(1)
}
