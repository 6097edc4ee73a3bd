package signal

import (
	"testing"

	"cortex/pkg/quant"
)

func TestVPINBoundsAndSign(t *testing.T) {
	e := New()
	if v := e.VPIN(); v != 0 {
		t.Fatalf("empty engine VPIN = %v, want 0", v)
	}
	e.AddTrade(100, 10, true, 1000)
	e.AddTrade(100, 30, false, 2000)
	v := e.VPIN()
	if v >= 0 {
		t.Fatalf("expected negative VPIN with more sell volume, got %v", v)
	}
	if v < -quant.Scale || v > quant.Scale {
		t.Fatalf("VPIN %v out of [-1e8,1e8] bounds", v)
	}
}

func TestTrapSignalRequiresMinimumRecords(t *testing.T) {
	e := New()
	for i := 0; i < TrapMinRecords-1; i++ {
		e.AddTrade(quant.PriceE8(100_00000000), 1_00000000, true, quant.TimeStamp(i*1000))
	}
	if trap := e.TrapSignal(); trap != TrapNone {
		t.Fatalf("expected TrapNone below the minimum record count, got %v", trap)
	}
}

func TestTrapSignalBullOnStalledHighWithNetBuying(t *testing.T) {
	e := New()
	for i := 0; i < TrapMinRecords; i++ {
		e.AddTrade(quant.PriceE8(100_00000000), 1_00000000, true, quant.TimeStamp(i*1000))
	}
	// Window high is 100.0; the last print stalls well below it despite
	// the window being entirely net-buy volume.
	e.AddTrade(quant.PriceE8(99_90000000), 1_00000000, true, quant.TimeStamp(TrapMinRecords*1000))
	if trap := e.TrapSignal(); trap != TrapBull {
		t.Fatalf("expected TrapBull, got %v", trap)
	}
}

func TestTrapSignalBearOnStalledLowWithNetSelling(t *testing.T) {
	e := New()
	for i := 0; i < TrapMinRecords; i++ {
		e.AddTrade(quant.PriceE8(100_00000000), 1_00000000, false, quant.TimeStamp(i*1000))
	}
	e.AddTrade(quant.PriceE8(100_10000000), 1_00000000, false, quant.TimeStamp(TrapMinRecords*1000))
	if trap := e.TrapSignal(); trap != TrapBear {
		t.Fatalf("expected TrapBear, got %v", trap)
	}
}

func TestTradeVelocity(t *testing.T) {
	e := New()
	if v := e.TradeVelocity(); v != 0 {
		t.Fatalf("velocity with <2 trades = %v, want 0", v)
	}
	e.AddTrade(100, 1, true, 0)
	e.AddTrade(100, 1, true, 1_000_000) // 1 second later
	e.AddTrade(100, 1, true, 2_000_000) // 2 seconds later
	v := e.TradeVelocity()
	if v <= 0 {
		t.Fatalf("expected positive velocity, got %v", v)
	}
}

func TestCheckIntegrityStaleness(t *testing.T) {
	e := New()
	if e.CheckIntegrity(1000) {
		t.Fatal("empty window should never be reported stale")
	}
	e.AddTrade(100, 1, true, 0)
	if e.CheckIntegrity(100_000) {
		t.Fatal("100ms gap should not be stale")
	}
	if !e.CheckIntegrity(600_000) {
		t.Fatal("600ms gap should be stale")
	}
}

func TestClassifyDegradesToNormalWhenStale(t *testing.T) {
	e := New()
	e.AddTrade(100, 1, true, 0)
	regime := e.Classify(quant.TimeStamp(10_000_000), BookDepth{Top5BidVol: 1, Top5AskVol: 1})
	if regime != RegimeNormal {
		t.Fatalf("stale feed should degrade to NORMAL, got %v", regime)
	}
}

func TestClassifyVacuumAndAbsorption(t *testing.T) {
	e := New()
	e.AddTrade(100, 1, true, 0)

	vacuum := e.Classify(quant.TimeStamp(1000), BookDepth{Top5BidVol: 1, Top5AskVol: 1})
	if vacuum != RegimeVacuum {
		t.Fatalf("thin book should classify as VACUUM, got %v", vacuum)
	}

	absorption := e.Classify(quant.TimeStamp(1000), BookDepth{
		Top5BidVol: 400_000_000, Top5AskVol: 400_000_000,
		TopBidQty: 600_000_000, TopAskQty: 600_000_000,
	})
	if absorption != RegimeAbsorption {
		t.Fatalf("thick book should classify as ABSORPTION, got %v", absorption)
	}
}

func TestWindowWrapsAtCapacity(t *testing.T) {
	e := New()
	for i := 0; i < WindowSize+10; i++ {
		e.AddTrade(quant.PriceE8(100), quant.QtyE8(1), i%2 == 0, quant.TimeStamp(i*1000))
	}
	if e.count != WindowSize {
		t.Fatalf("count = %d, want capped at %d", e.count, WindowSize)
	}
}
