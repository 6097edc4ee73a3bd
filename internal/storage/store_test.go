package storage

import (
	"context"
	"os"
	"testing"

	"cortex/internal/execution"
	"cortex/internal/wire"
	"cortex/pkg/quant"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	path := t.TempDir() + "/test.db"
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		os.Remove(path)
		os.Remove(path + "-wal")
		os.Remove(path + "-shm")
	})
	return s
}

func TestSaveAndLoadWALEvents(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	if err := s.SaveWALEvent(ctx, 1, wire.TypeTrade, 1000, []byte{1, 2, 3}); err != nil {
		t.Fatalf("SaveWALEvent: %v", err)
	}
	if err := s.SaveWALEvent(ctx, 2, wire.TypeTrade, 2000, []byte{4, 5, 6}); err != nil {
		t.Fatalf("SaveWALEvent: %v", err)
	}

	events, err := s.LoadWALEvents(ctx, 1)
	if err != nil {
		t.Fatalf("LoadWALEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Seq != 1 || events[1].Seq != 2 {
		t.Fatalf("unexpected seq order: %+v", events)
	}
}

func TestGetLastSeqEmptyIsZero(t *testing.T) {
	s := tempStore(t)
	last, err := s.GetLastSeq(context.Background())
	if err != nil {
		t.Fatalf("GetLastSeq: %v", err)
	}
	if last != 0 {
		t.Fatalf("expected 0 for empty store, got %d", last)
	}
}

func TestRecordFillWritesBothSchemas(t *testing.T) {
	s := tempStore(t)
	f := execution.Fill{
		OrderID:     1,
		Side:        wire.SideBuy,
		Price:       100_00000000,
		Qty:         1_00000000,
		RealizedPnL: 500000,
		Timestamp:   quant.TimeStamp(1234),
	}
	if err := s.RecordFill(f, 1_00000000, 100_00000000, 500000); err != nil {
		t.Fatalf("RecordFill: %v", err)
	}

	var legacyCount, extendedCount int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM trades").Scan(&legacyCount); err != nil {
		t.Fatalf("query trades: %v", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM trade_log").Scan(&extendedCount); err != nil {
		t.Fatalf("query trade_log: %v", err)
	}
	if legacyCount != 1 || extendedCount != 1 {
		t.Fatalf("expected one row in each schema, got legacy=%d extended=%d", legacyCount, extendedCount)
	}
}
