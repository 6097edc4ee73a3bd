package backtest

import (
	"context"
	"path/filepath"
	"testing"

	"cortex/internal/consumer"
	"cortex/internal/execution"
	"cortex/internal/storage"
	"cortex/internal/wire"
	"cortex/pkg/quant"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.db")
	s, err := storage.Open(path)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReplayerDispatchesRecordedEvents(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var snap wire.DepthSnapshot
	snap.Bids[0] = wire.Level{Price: 100_00000000, Qty: 2_00000000}
	snap.Asks[0] = wire.Level{Price: 101_00000000, Qty: 2_00000000}
	snapPayload := wire.EncodeDepthSnapshot(wire.DefaultSymbol, snap)
	if err := store.SaveWALEvent(ctx, 1, wire.TypeDepthSnapshot, 0, snapPayload); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	tradePayload := wire.EncodeTrade(wire.DefaultSymbol, wire.Trade{
		Price: 100_50000000, Qty: 1_00000000, TakerSide: wire.SideBuy, TimestampUs: 1000,
	})
	if err := store.SaveWALEvent(ctx, 2, wire.TypeTrade, 1000, tradePayload); err != nil {
		t.Fatalf("save trade: %v", err)
	}

	d := consumer.New(nil, nil, execution.New(nil), false)
	r := NewReplayer(store, d, nil)

	processed, err := r.Run(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if processed != 2 {
		t.Fatalf("expected 2 events replayed, got %d", processed)
	}

	if _, _, ok := d.Book.BestBid(); !ok {
		t.Fatal("expected book to reflect replayed snapshot")
	}
	bid, ask := d.Sim.RestingOrders()
	if bid == nil && ask == nil {
		t.Fatal("expected strategy to have reacted to the replayed trade")
	}
}

func TestReplayerCheckspointsAndResumes(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := uint64(1); i <= 4; i++ {
		payload := wire.EncodeTrade(wire.DefaultSymbol, wire.Trade{
			Price: 100_00000000, Qty: 1_00000000, TakerSide: wire.SideBuy, TimestampUs: quant.TimeStamp(i * 1000),
		})
		if err := store.SaveWALEvent(ctx, i, wire.TypeTrade, int64(i), payload); err != nil {
			t.Fatalf("save trade %d: %v", i, err)
		}
	}

	cm := NewCheckpointManager(t.TempDir())
	d := consumer.New(nil, nil, execution.New(nil), false)
	r := NewReplayer(store, d, cm)

	processed, err := r.Run(ctx, 0, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if processed != 4 {
		t.Fatalf("expected 4 events, got %d", processed)
	}

	cp, ok, err := cm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if !ok {
		t.Fatal("expected a checkpoint to have been saved")
	}
	if cp.Seq != 4 {
		t.Fatalf("expected latest checkpoint seq 4, got %d", cp.Seq)
	}

	// A second run resumes after the checkpoint at seq 4, which already
	// covers every recorded event, so nothing is replayed again.
	resumed, err := r.Run(ctx, 0, 2)
	if err != nil {
		t.Fatalf("resumed Run: %v", err)
	}
	if resumed != 0 {
		t.Fatalf("expected resume past checkpoint seq 4 to replay 0 events, got %d", resumed)
	}
}
