package consumer

import "testing"

func TestSequenceGuardAcceptsInOrder(t *testing.T) {
	g := NewSequenceGuard(1)
	for seq := uint64(1); seq <= 5; seq++ {
		if err := g.Validate(seq); err != nil {
			t.Fatalf("seq %d: unexpected error: %v", seq, err)
		}
	}
}

func TestSequenceGuardIgnoresDuplicate(t *testing.T) {
	g := NewSequenceGuard(1)
	if err := g.Validate(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Validate(1); err != nil {
		t.Fatalf("expected duplicate to be ignored, got error: %v", err)
	}
	if err := g.Validate(2); err != nil {
		t.Fatalf("unexpected error after duplicate: %v", err)
	}
}

func TestSequenceGuardToleratesSmallGap(t *testing.T) {
	g := NewSequenceGuard(1)
	if err := g.Validate(6); err != nil {
		t.Fatalf("expected gap of 5 to be tolerated, got: %v", err)
	}
	if err := g.Validate(7); err != nil {
		t.Fatalf("unexpected error after tolerated gap: %v", err)
	}
}

func TestSequenceGuardRejectsLargeGap(t *testing.T) {
	g := NewSequenceGuard(1)
	if err := g.Validate(100); err == nil {
		t.Fatal("expected a gap of 99 to be rejected as fatal")
	}
}
