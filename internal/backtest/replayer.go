// Package backtest replays a recorded WAL log through the exact
// consumer dispatch path the live pipeline uses — "replay is reality":
// there is no separate backtest-only decision code, only the
// production book/signal/strategy/execution path fed from a database
// instead of stdin. Grounded on the teacher's backtest/replayer.go and
// engine.Sequencer.ReplayEvent.
package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"cortex/internal/consumer"
	"cortex/internal/storage"
	"cortex/internal/wire"
)

// Replayer drives a Dispatcher from a Store's WAL table.
type Replayer struct {
	store       *storage.Store
	dispatcher  *consumer.Dispatcher
	checkpoints *CheckpointManager
}

// NewReplayer builds a Replayer. checkpoints may be nil to disable
// checkpoint save/resume entirely.
func NewReplayer(store *storage.Store, d *consumer.Dispatcher, checkpoints *CheckpointManager) *Replayer {
	return &Replayer{store: store, dispatcher: d, checkpoints: checkpoints}
}

// Run replays every WAL event at or after fromSeq, in sequence order.
// If fromSeq is 0 and a checkpoint manager is configured, it resumes
// from the seq immediately after the latest checkpoint instead of
// starting over. A checkpoint is saved every checkpointEvery processed
// events (0 disables periodic checkpointing).
func (r *Replayer) Run(ctx context.Context, fromSeq uint64, checkpointEvery int) (int, error) {
	if fromSeq == 0 && r.checkpoints != nil {
		if cp, ok, err := r.checkpoints.LoadLatest(); err != nil {
			return 0, fmt.Errorf("backtest: load checkpoint: %w", err)
		} else if ok {
			fromSeq = cp.Seq + 1
			slog.Info("resuming replay from checkpoint", slog.Uint64("seq", fromSeq))
		}
	}

	records, err := r.store.LoadWALEvents(ctx, fromSeq)
	if err != nil {
		return 0, fmt.Errorf("backtest: load wal events: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	guardStart := fromSeq
	if guardStart == 0 {
		guardStart = records[0].Seq
	}
	guard := consumer.NewSequenceGuard(guardStart)

	processed := 0
	for _, rec := range records {
		select {
		case <-ctx.Done():
			return processed, ctx.Err()
		default:
		}

		if err := guard.Validate(rec.Seq); err != nil {
			return processed, err
		}

		ev, err := wire.DecodeEvent(rec.Tag, rec.Seq, rec.Payload)
		if err != nil {
			slog.Warn("replay: dropping malformed wal record", slog.Uint64("seq", rec.Seq), slog.Any("err", err))
			continue
		}

		r.dispatcher.Dispatch(ev)
		processed++

		if r.checkpoints != nil && checkpointEvery > 0 && processed%checkpointEvery == 0 {
			position, avgEntry, realized := r.dispatcher.Sim.Position()
			cp := Checkpoint{Seq: rec.Seq, TsUnix: rec.Ts, Position: position, AvgEntry: avgEntry, RealizedPnL: realized}
			if err := r.checkpoints.Save(cp); err != nil {
				slog.Warn("replay: checkpoint save failed", slog.Any("err", err))
			}
		}
	}

	slog.Info("replay complete", slog.Int("events", processed))
	return processed, nil
}
