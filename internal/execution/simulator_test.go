package execution

import (
	"testing"

	"cortex/internal/strategy"
	"cortex/internal/wire"
	"cortex/pkg/quant"
)

type fakeJournal struct {
	calls int
	fail  bool
}

func (f *fakeJournal) RecordFill(Fill, quant.QtyE8, quant.PriceE8, int64) error {
	f.calls++
	if f.fail {
		return errTest
	}
	return nil
}

var errTest = &testError{"journal write failed"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

// minNotionalQty mirrors strategy's unexported quoteQty formula
// (MinNotionalE8 / price) so tests exercise the same price-dependent
// sizing the strategy package actually produces.
func minNotionalQty(price quant.PriceE8) quant.QtyE8 {
	return quant.QtyE8(strategy.MinNotionalE8 * quant.Scale / int64(price))
}

func quoteAt(bid, ask quant.PriceE8) strategy.Quote {
	return strategy.Quote{
		BidPrice: bid, BidQty: minNotionalQty(bid), BidActive: true,
		AskPrice: ask, AskQty: minNotionalQty(ask), AskActive: true,
	}
}

func TestApplyQuoteAdmitsBothSides(t *testing.T) {
	s := New(nil)
	s.ApplyQuote(quoteAt(99_00000000, 101_00000000))
	bid, ask := s.RestingOrders()
	if bid == nil || ask == nil {
		t.Fatal("expected both sides admitted")
	}
	if bid.Price != 99_00000000 || ask.Price != 101_00000000 {
		t.Fatalf("unexpected prices: bid=%d ask=%d", bid.Price, ask.Price)
	}
}

func TestApplyQuoteWithinToleranceKeepsOrder(t *testing.T) {
	s := New(nil)
	s.ApplyQuote(quoteAt(99_00000000, 101_00000000))
	bidBefore, _ := s.RestingOrders()
	s.ApplyQuote(quoteAt(99_00000000+500, 101_00000000)) // within ToleranceE8
	bidAfter, _ := s.RestingOrders()
	if bidBefore.ID != bidAfter.ID {
		t.Fatal("small reprice within tolerance should not replace the order")
	}
}

func TestApplyQuoteBeyondToleranceReplaces(t *testing.T) {
	s := New(nil)
	s.ApplyQuote(quoteAt(99_00000000, 101_00000000))
	bidBefore, _ := s.RestingOrders()
	s.ApplyQuote(quoteAt(98_00000000, 101_00000000))
	bidAfter, _ := s.RestingOrders()
	if bidBefore.ID == bidAfter.ID {
		t.Fatal("reprice beyond tolerance should replace the order")
	}
}

func TestFillOpeningLongThenClosingRealizesPnL(t *testing.T) {
	j := &fakeJournal{}
	s := New(j)
	// Both sides quoted with the same fixed quantity here (rather than
	// quoteAt's price-dependent sizing) so the test isolates the
	// four-case PnL math from order-sizing behavior.
	fixedQty := quant.QtyE8(50000000)
	q := strategy.Quote{
		BidPrice: 100_00000000, BidQty: fixedQty, BidActive: true,
		AskPrice: 102_00000000, AskQty: fixedQty, AskActive: true,
	}
	s.ApplyQuote(q)

	// sell print at or below bid fills the bid -> opens a long
	f := s.OnTrade(wire.Trade{Price: 100_00000000, Qty: fixedQty, TakerSide: wire.SideSell})
	if f == nil {
		t.Fatal("expected a fill on the bid")
	}
	pos, avg, _ := s.Position()
	if pos != fixedQty || avg != 100_00000000 {
		t.Fatalf("unexpected position after open: pos=%d avg=%d", pos, avg)
	}

	// re-quote then a buy print at/above ask fills the ask -> closes the long at a profit
	s.ApplyQuote(q)
	f2 := s.OnTrade(wire.Trade{Price: 102_00000000, Qty: fixedQty, TakerSide: wire.SideBuy})
	if f2 == nil {
		t.Fatal("expected a fill on the ask")
	}
	if f2.RealizedPnL <= 0 {
		t.Fatalf("expected positive realized PnL closing long at higher price, got %d", f2.RealizedPnL)
	}
	pos2, _, total := s.Position()
	if pos2 != 0 {
		t.Fatalf("expected flat position after full close, got %d", pos2)
	}
	if total != f.RealizedPnL+f2.RealizedPnL {
		t.Fatalf("cumulative PnL mismatch: %d != %d+%d", total, f.RealizedPnL, f2.RealizedPnL)
	}
	if j.calls != 2 {
		t.Fatalf("expected 2 journal calls, got %d", j.calls)
	}
}

// TestOnTradeFillsOnPriceCrossingRegardlessOfTakerSide pins fill
// detection to pure price crossing: a print that crosses a resting
// order's price must fill it even when its taker side doesn't match
// the side that print would "normally" arrive on.
func TestOnTradeFillsOnPriceCrossingRegardlessOfTakerSide(t *testing.T) {
	s := New(nil)
	fixedQty := quant.QtyE8(50000000)
	q := strategy.Quote{
		BidPrice: 100_00000000, BidQty: fixedQty, BidActive: true,
		AskPrice: 102_00000000, AskQty: fixedQty, AskActive: true,
	}
	s.ApplyQuote(q)

	// A BUY-taker print at or below the resting bid still crosses it.
	f := s.OnTrade(wire.Trade{Price: 100_00000000, Qty: fixedQty, TakerSide: wire.SideBuy})
	if f == nil {
		t.Fatal("expected the bid to fill on price crossing, regardless of taker side")
	}

	s.ApplyQuote(q)
	// A SELL-taker print at or above the resting ask still crosses it.
	f2 := s.OnTrade(wire.Trade{Price: 102_00000000, Qty: fixedQty, TakerSide: wire.SideSell})
	if f2 == nil {
		t.Fatal("expected the ask to fill on price crossing, regardless of taker side")
	}
}

func TestJournalFailureDoesNotUnwindState(t *testing.T) {
	j := &fakeJournal{fail: true}
	s := New(j)
	s.ApplyQuote(quoteAt(100_00000000, 102_00000000))
	f := s.OnTrade(wire.Trade{Price: 100_00000000, Qty: 10000000, TakerSide: wire.SideSell})
	if f == nil {
		t.Fatal("expected a fill despite journal failure")
	}
	pos, _, _ := s.Position()
	if pos != 10000000 {
		t.Fatalf("position should still reflect the fill despite journal error, got %d", pos)
	}
}

func TestExecuteTakerChargesfee(t *testing.T) {
	s := New(nil)
	f := s.ExecuteTaker(strategy.TakerIntent{Buy: true, Qty: 100000000}, 100_00000000, 1)
	if !f.Taker {
		t.Fatal("expected taker fill flag set")
	}
	// Opening a position realizes nothing, so the fee alone makes the
	// fill's realized PnL negative.
	if f.RealizedPnL >= 0 {
		t.Fatalf("expected the taker fee to make realized PnL negative, got %d", f.RealizedPnL)
	}
}
