package heatmap

import (
	"testing"

	"cortex/internal/wire"
	"cortex/pkg/quant"
)

func TestOnTradeSellSideAddsAboveTheMark(t *testing.T) {
	h := New()
	h.OnTrade(wire.Trade{Price: 100_00000000, Qty: 100000000, TakerSide: wire.SideSell})
	snap := h.Snapshot()
	if len(snap.Zones) != 1 {
		t.Fatalf("expected one zone, got %d", len(snap.Zones))
	}
	if snap.Zones[0].Price <= 100_00000000 {
		t.Fatalf("sell-side trade should infer a liquidation zone above the print, got %d", snap.Zones[0].Price)
	}
}

func TestOnTradeBuySideAddsBelowTheMark(t *testing.T) {
	h := New()
	h.OnTrade(wire.Trade{Price: 100_00000000, Qty: 100000000, TakerSide: wire.SideBuy})
	snap := h.Snapshot()
	if snap.Zones[0].Price >= 100_00000000 {
		t.Fatalf("buy-side trade should infer a liquidation zone below the print, got %d", snap.Zones[0].Price)
	}
}

func TestOnLiquidationBoostsConfirmedBucket(t *testing.T) {
	h := New()
	h.OnTrade(wire.Trade{Price: 104_00000000, Qty: 100000000, TakerSide: wire.SideSell}) // lands near 108.16
	before := h.Snapshot().Zones[0].Score

	h.OnLiquidation(wire.Liquidation{Side: wire.SideSell, Price: bucketOf(h.Snapshot().Zones[0].Price), Qty: 100000000})
	after := h.Snapshot().Zones[0].Score

	if after <= before {
		t.Fatalf("liquidation confirmation should boost the bucket score: before=%v after=%v", before, after)
	}
}

func TestBucketOfRoundsDownToStep(t *testing.T) {
	p := quant.PriceE8(250_150)
	b := bucketOf(p)
	if int64(b) != 200_000 {
		t.Fatalf("bucketOf(%d) = %d, want 200000", p, b)
	}
}

func TestOnTickerRecordsTelemetry(t *testing.T) {
	h := New()
	h.OnTicker(wire.Ticker{MarkPrice: 1, IndexPrice: 2, FundingRateE8: 3, OpenInterest: 4})
	snap := h.Snapshot()
	if snap.MarkPrice != 1 || snap.IndexPrice != 2 || snap.FundingRate != 3 || snap.OpenInterest != 4 {
		t.Fatalf("ticker telemetry not recorded: %+v", snap)
	}
}
