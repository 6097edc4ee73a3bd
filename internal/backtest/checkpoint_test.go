package backtest

import "testing"

func TestSaveAndLoadLatestCheckpoint(t *testing.T) {
	dir := t.TempDir()
	cm := NewCheckpointManager(dir)

	if _, ok, err := cm.LoadLatest(); err != nil || ok {
		t.Fatalf("expected no checkpoint initially, ok=%v err=%v", ok, err)
	}

	if err := cm.Save(Checkpoint{Seq: 10, Position: 5, AvgEntry: 100, RealizedPnL: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := cm.Save(Checkpoint{Seq: 20, Position: 7, AvgEntry: 101, RealizedPnL: 2}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	latest, ok, err := cm.LoadLatest()
	if err != nil || !ok {
		t.Fatalf("expected latest checkpoint, ok=%v err=%v", ok, err)
	}
	if latest.Seq != 20 {
		t.Fatalf("expected latest seq 20, got %d", latest.Seq)
	}
}

func TestCleanupKeepsOnlyLatestN(t *testing.T) {
	dir := t.TempDir()
	cm := NewCheckpointManager(dir)
	for _, seq := range []uint64{1, 2, 3, 4, 5} {
		if err := cm.Save(Checkpoint{Seq: seq}); err != nil {
			t.Fatalf("Save(%d): %v", seq, err)
		}
	}
	if err := cm.Cleanup(2); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	latest, ok, err := cm.LoadLatest()
	if err != nil || !ok || latest.Seq != 5 {
		t.Fatalf("expected seq 5 to survive cleanup, got %+v ok=%v err=%v", latest, ok, err)
	}
}
