package app

import (
	"cortex/internal/execution"
	"cortex/internal/infra"
	"cortex/internal/recorder"
	"cortex/internal/storage"
)

func recorderFor(cfg *infra.Config, historyDir string) (*recorder.Recorder, error) {
	return recorder.New(historyDir, cfg.Recorder.Prefix)
}

// newSimulator wires the execution simulator's journal straight to
// the event store, which implements execution.Journal via RecordFill.
func newSimulator(store *storage.Store) *execution.Simulator {
	return execution.New(store)
}
