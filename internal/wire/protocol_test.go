package wire

import (
	"testing"
	"unsafe"

	"cortex/pkg/quant"
)

func TestMarketUpdateSize(t *testing.T) {
	var m MarketUpdate
	if got := unsafe.Sizeof(m); got != marketUpdateSize {
		t.Fatalf("MarketUpdate size = %d, want %d", got, marketUpdateSize)
	}
}

func TestTradeRoundTrip(t *testing.T) {
	want := Trade{
		Price:       quant.PriceE8(12345600000),
		Qty:         quant.QtyE8(100000000),
		TimestampUs: quant.TimeStamp(1700000000000000),
		TakerSide:   SideSell,
	}
	buf := EncodeTrade(DefaultSymbol, want)
	sym, got, err := DecodeTrade(buf)
	if err != nil {
		t.Fatalf("DecodeTrade: %v", err)
	}
	if sym != DefaultSymbol {
		t.Errorf("symbol mismatch: %v", sym)
	}
	if got != want {
		t.Errorf("trade round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestDepthLevelRoundTrip(t *testing.T) {
	want := DepthLevelUpdate{Side: SideBuy, Price: quant.PriceE8(100_00000000), Qty: quant.QtyE8(1_00000000), TimestampUs: quant.TimeStamp(7)}
	buf := EncodeDepthLevel(DefaultSymbol, want)
	_, got, err := DecodeDepthLevel(buf)
	if err != nil {
		t.Fatalf("DecodeDepthLevel: %v", err)
	}
	if got != want {
		t.Errorf("depth level round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestDepthSnapshotRoundTrip(t *testing.T) {
	var want DepthSnapshot
	want.TimestampUs = quant.TimeStamp(42)
	for i := 0; i < DepthLevels; i++ {
		want.Bids[i] = Level{Price: quant.PriceE8(100 - int64(i)), Qty: quant.QtyE8(int64(i) + 1)}
		want.Asks[i] = Level{Price: quant.PriceE8(100 + int64(i)), Qty: quant.QtyE8(int64(i) + 1)}
	}
	buf := EncodeDepthSnapshot(DefaultSymbol, want)
	_, got, err := DecodeDepthSnapshot(buf)
	if err != nil {
		t.Fatalf("DecodeDepthSnapshot: %v", err)
	}
	if got != want {
		t.Errorf("snapshot round trip mismatch")
	}
}

func TestLiquidationRoundTrip(t *testing.T) {
	want := Liquidation{Side: SideBuy, Price: quant.PriceE8(5000000000), Qty: quant.QtyE8(200000000), TimestampUs: quant.TimeStamp(99)}
	buf := EncodeLiquidation(DefaultSymbol, want)
	_, got, err := DecodeLiquidation(buf)
	if err != nil {
		t.Fatalf("DecodeLiquidation: %v", err)
	}
	if got != want {
		t.Errorf("liquidation round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestTickerRoundTrip(t *testing.T) {
	want := Ticker{MarkPrice: 123, IndexPrice: 124, FundingRateE8: -500, OpenInterest: 777, TimestampUs: 1}
	buf := EncodeTicker(DefaultSymbol, want)
	_, got, err := DecodeTicker(buf)
	if err != nil {
		t.Fatalf("DecodeTicker: %v", err)
	}
	if got != want {
		t.Errorf("ticker round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestPeekTypeRejectsEmpty(t *testing.T) {
	if _, err := PeekType(nil); err == nil {
		t.Fatal("expected error on empty buffer")
	}
}
