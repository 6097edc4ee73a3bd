// Package execution simulates fills and tracks PnL against the live
// trade tape without ever placing a real order. It holds at most one
// resting order per side (mirroring the strategy core's one quote per
// side), admits/reprices/cancels those orders as the strategy's
// decision changes, and detects fills against each trade print.
// Grounded on the teacher's paper execution engine, restructured
// around the spec's four-case PnL accounting instead of a balance
// book per currency pair.
package execution

import (
	"log/slog"
	"sync"

	"cortex/internal/strategy"
	"cortex/internal/wire"
	"cortex/pkg/quant"
	"cortex/pkg/safe"
)

// ToleranceE8 is the price-match tolerance below which a requote is
// treated as unchanged rather than cancel-and-replace — 1e-5 in
// normalized price terms, scaled to E8.
const ToleranceE8 = 1000

// Order is a single resting order on one side of the simulator.
type Order struct {
	ID     int64
	Side   wire.Side
	Price  quant.PriceE8
	Qty    quant.QtyE8
	Active bool
}

// Fill is one completed execution, ready to be journaled.
type Fill struct {
	OrderID     int64
	Side        wire.Side
	Price       quant.PriceE8
	Qty         quant.QtyE8
	RealizedPnL int64 // E8-scaled
	Timestamp   quant.TimeStamp
	Taker       bool
}

// Journal persists completed fills. Implementations must never cause
// ApplyQuote/OnTrade to fail or unwind state — a journal write failure
// is logged and swallowed, not propagated, per the no-rollback policy.
type Journal interface {
	RecordFill(f Fill, position quant.QtyE8, avgEntry quant.PriceE8, realizedTotal int64) error
}

// Simulator tracks one resting bid, one resting ask, and a net
// position with its average entry price.
type Simulator struct {
	mu sync.Mutex

	nextID int64
	bid    *Order
	ask    *Order

	position    quant.QtyE8 // positive = long, negative = short
	avgEntry    quant.PriceE8
	realizedPnL int64 // E8-scaled, cumulative

	journal Journal
}

func New(j Journal) *Simulator {
	return &Simulator{journal: j}
}

// ApplyQuote admits the strategy's quote, side by side and
// independently: an active side with no resting order gets one
// created; an active side whose price moved by more than ToleranceE8
// is cancelled and recreated; an active side within tolerance is left
// alone; a side the quote marks inactive (WICK_CATCHER quotes only
// one side; the safety/wait postures quote neither) is cancelled.
func (s *Simulator) ApplyQuote(q strategy.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q.BidActive {
		s.bid = s.admit(s.bid, wire.SideBuy, q.BidPrice, q.BidQty)
	} else {
		s.bid = nil
	}
	if q.AskActive {
		s.ask = s.admit(s.ask, wire.SideSell, q.AskPrice, q.AskQty)
	} else {
		s.ask = nil
	}
}

func (s *Simulator) admit(existing *Order, side wire.Side, price quant.PriceE8, qty quant.QtyE8) *Order {
	if existing != nil && existing.Active {
		delta := int64(existing.Price) - int64(price)
		if delta < 0 {
			delta = -delta
		}
		if delta <= ToleranceE8 {
			return existing
		}
	}
	s.nextID++
	return &Order{ID: s.nextID, Side: side, Price: price, Qty: qty, Active: true}
}

// OnTrade checks the live trade print against both resting orders and
// fills whichever one the print crosses: a print at or below the
// resting bid fills the bid; a print at or above the resting ask fills
// the ask. Fill detection is pure price-crossing, with no taker-side
// condition, matching the original engine's checkFills — a resting
// order fills when the tape trades through its price, regardless of
// which side initiated that print. At most one side fills per print.
func (s *Simulator) OnTrade(t wire.Trade) *Fill {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bid != nil && s.bid.Active && t.Price <= s.bid.Price {
		f := s.executeFill(s.bid, t.Price, t.Qty, t.TimestampUs, false)
		s.bid.Active = false
		return f
	}
	if s.ask != nil && s.ask.Active && t.Price >= s.ask.Price {
		f := s.executeFill(s.ask, t.Price, t.Qty, t.TimestampUs, false)
		s.ask.Active = false
		return f
	}
	return nil
}

// ExecuteTaker immediately fills a strategy-issued taker intent at the
// given reference price, paying the taker fee.
func (s *Simulator) ExecuteTaker(intent strategy.TakerIntent, price quant.PriceE8, ts quant.TimeStamp) *Fill {
	s.mu.Lock()
	defer s.mu.Unlock()

	side := wire.SideBuy
	if !intent.Buy {
		side = wire.SideSell
	}
	s.nextID++
	order := &Order{ID: s.nextID, Side: side, Price: price, Qty: intent.Qty}
	return s.executeFill(order, price, intent.Qty, ts, true)
}

// executeFill applies the four-case PnL update and journals the
// result. Must be called with s.mu held.
func (s *Simulator) executeFill(o *Order, fillPrice quant.PriceE8, fillQty quant.QtyE8, ts quant.TimeStamp, taker bool) *Fill {
	qty := fillQty
	if qty > o.Qty {
		qty = o.Qty
	}

	signedQty := int64(qty)
	if o.Side == wire.SideSell {
		signedQty = -signedQty
	}

	realized := s.applyPosition(signedQty, fillPrice)

	if taker {
		fee := safe.MulDivSigned(int64(qty), strategy.TakerFeeE8, 100000000)
		realized = safe.SafeSub(realized, fee)
	}

	s.realizedPnL = safe.SafeAdd(s.realizedPnL, realized)

	f := Fill{
		OrderID:     o.ID,
		Side:        o.Side,
		Price:       fillPrice,
		Qty:         qty,
		RealizedPnL: realized,
		Timestamp:   ts,
		Taker:       taker,
	}

	if s.journal != nil {
		// Best effort: a journal failure never unwinds the fill we
		// already applied above.
		if err := s.journal.RecordFill(f, s.position, s.avgEntry, s.realizedPnL); err != nil {
			slog.Warn("execution: journal write failed", slog.Any("err", err))
		}
	}

	return &f
}

// applyPosition folds a signed fill quantity into the net position and
// returns the realized PnL E8-scaled delta, covering the four cases:
// adding to a long, covering part/all of a short, adding to a short,
// and closing part/all of a long.
func (s *Simulator) applyPosition(signedQty int64, fillPrice quant.PriceE8) int64 {
	pos := int64(s.position)
	var realized int64

	switch {
	case pos >= 0 && signedQty >= 0:
		// Case 1: adding to (or opening) a long.
		s.avgEntry = weightedAvg(s.avgEntry, quant.QtyE8(pos), fillPrice, quant.QtyE8(signedQty))
		pos += signedQty

	case pos < 0 && signedQty >= 0:
		covered := signedQty
		if covered > -pos {
			covered = -pos
		}
		// Case 2: covering a short — short holders profit when price falls.
		realized = safe.MulDivSigned(int64(s.avgEntry)-int64(fillPrice), covered, 100000000)
		pos += signedQty
		if pos > 0 {
			// Flipped through flat into a fresh long with the remainder.
			s.avgEntry = fillPrice
		}

	case pos <= 0 && signedQty < 0:
		// Case 3: adding to (or opening) a short.
		s.avgEntry = weightedAvg(s.avgEntry, quant.QtyE8(-pos), fillPrice, quant.QtyE8(-signedQty))
		pos += signedQty

	default: // pos > 0 && signedQty < 0
		closed := -signedQty
		if closed > pos {
			closed = pos
		}
		// Case 4: closing a long — long holders profit when price rises.
		realized = safe.MulDivSigned(int64(fillPrice)-int64(s.avgEntry), closed, 100000000)
		pos += signedQty
		if pos < 0 {
			s.avgEntry = fillPrice
		}
	}

	s.position = quant.QtyE8(pos)
	if pos == 0 {
		s.avgEntry = 0
	}
	return realized
}

// weightedAvg blends a new fill into an existing average entry price,
// sized by quantity on each side.
func weightedAvg(avg quant.PriceE8, existingQty quant.QtyE8, fillPrice quant.PriceE8, fillQty quant.QtyE8) quant.PriceE8 {
	total := int64(existingQty) + int64(fillQty)
	if total == 0 {
		return fillPrice
	}
	if existingQty == 0 {
		return fillPrice
	}
	num := safe.SafeAdd(safe.SafeMul(int64(avg), int64(existingQty)), safe.SafeMul(int64(fillPrice), int64(fillQty)))
	return quant.PriceE8(num / total)
}

// Position reports the current net position, average entry, and
// cumulative realized PnL.
func (s *Simulator) Position() (quant.QtyE8, quant.PriceE8, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position, s.avgEntry, s.realizedPnL
}

// RestingOrders reports the currently active bid/ask, for display.
func (s *Simulator) RestingOrders() (bid, ask *Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bid, s.ask
}
