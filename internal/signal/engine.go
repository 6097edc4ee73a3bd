// Package signal derives short-horizon microstructure signals from the
// trade tape: a rolling VPIN estimate, trade velocity, a tri-valued
// stop-hunt ("trap") signal, and a liquidity-regime classification the
// strategy core uses to pick its quoting posture. Grounded on the
// original engine's SignalEngine, including its exact thresholds.
package signal

import (
	"cortex/pkg/quant"
	"cortex/pkg/safe"
)

const (
	WindowSize      = 1000
	MaxLatencyUs    = 500_000 // 500ms staleness bound, in microseconds
	VacuumThreshold = 50_000_000
	WallThreshold   = 500_000_000

	TrapVpinThreshold = 30_000_000 // 3e7 E8, the VPIN magnitude a trap requires
	TrapPriceMarginE8 = 50_000     // how far last price must stall short of the window extreme
	TrapMinRecords    = 50
)

// Regime is the liquidity-state classification fed to the strategy.
type Regime int

const (
	RegimeNormal Regime = iota
	RegimeVacuum
	RegimeAbsorption
)

func (r Regime) String() string {
	switch r {
	case RegimeVacuum:
		return "VACUUM"
	case RegimeAbsorption:
		return "ABSORPTION"
	default:
		return "NORMAL"
	}
}

// Trap is the tri-valued stop-hunt signal.
type Trap int

const (
	TrapNone Trap = iota
	TrapBull
	TrapBear
)

type tradeRecord struct {
	price     quant.PriceE8
	qty       quant.QtyE8
	takerBuy  bool
	timestamp quant.TimeStamp
}

// Engine holds the rolling trade-history window and running totals.
type Engine struct {
	window   [WindowSize]tradeRecord
	count    int // number of valid entries, caps at WindowSize
	next     int // next slot to overwrite
	buyVol   int64
	sellVol  int64
	lastSeen quant.TimeStamp
}

func New() *Engine {
	return &Engine{}
}

// AddTrade records a trade print and updates the running VPIN totals.
func (e *Engine) AddTrade(price quant.PriceE8, qty quant.QtyE8, takerBuy bool, ts quant.TimeStamp) {
	if e.count == WindowSize {
		old := e.window[e.next]
		if old.takerBuy {
			e.buyVol -= int64(old.qty)
		} else {
			e.sellVol -= int64(old.qty)
		}
	} else {
		e.count++
	}

	e.window[e.next] = tradeRecord{price: price, qty: qty, takerBuy: takerBuy, timestamp: ts}
	e.next = (e.next + 1) % WindowSize

	if takerBuy {
		e.buyVol += int64(qty)
	} else {
		e.sellVol += int64(qty)
	}
	e.lastSeen = ts
}

// CheckIntegrity reports whether the feed is stale: the gap between
// the last seen trade timestamp and "now" exceeds MaxLatencyUs. An
// empty window is never considered stale (nothing to be stale about).
func (e *Engine) CheckIntegrity(now quant.TimeStamp) bool {
	if e.count == 0 {
		return false
	}
	gap := int64(now) - int64(e.lastSeen)
	if gap < 0 {
		gap = 0
	}
	return gap > MaxLatencyUs
}

// TradeVelocity is recent trade count per second, measured over the
// span between the oldest and newest trade still in the window.
func (e *Engine) TradeVelocity() float64 {
	if e.count < 2 {
		return 0
	}
	newest := e.window[(e.next-1+WindowSize)%WindowSize]
	oldestIdx := e.next
	if e.count < WindowSize {
		oldestIdx = 0
	}
	oldest := e.window[oldestIdx]
	dtUs := int64(newest.timestamp) - int64(oldest.timestamp)
	if dtUs <= 0 {
		return 0
	}
	dtSec := float64(dtUs) / 1_000_000
	return float64(e.count) / dtSec
}

// VPIN is the signed order-flow toxicity estimate: the magnitude
// |buyVol-sellVol|*1e8/(buyVol+sellVol), signed by buyVol-sellVol.
// Domain [-1e8, +1e8]; zero when the window holds no volume at all.
func (e *Engine) VPIN() int64 {
	total := e.buyVol + e.sellVol
	if total == 0 {
		return 0
	}
	diff := e.buyVol - e.sellVol
	abs := diff
	if abs < 0 {
		abs = -abs
	}
	magnitude := safe.MulDivSigned(abs, quant.Scale, total)
	if diff < 0 {
		return -magnitude
	}
	return magnitude
}

// TrapSignal flags a stop-hunt wick: directional VPIN pressure that
// has nonetheless failed to extend the window's price extreme. A bull
// trap is net buying (VPIN > threshold) that stalls below the window
// high; a bear trap is net selling that stalls above the window low.
// Requires at least TrapMinRecords prints, so the extremes mean
// something.
func (e *Engine) TrapSignal() Trap {
	if e.count < TrapMinRecords {
		return TrapNone
	}

	vpin := e.VPIN()
	last := e.window[(e.next-1+WindowSize)%WindowSize].price
	max, min := e.windowExtremes()

	switch {
	case vpin > TrapVpinThreshold && int64(last) < int64(max)-TrapPriceMarginE8:
		return TrapBull
	case vpin < -TrapVpinThreshold && int64(last) > int64(min)+TrapPriceMarginE8:
		return TrapBear
	default:
		return TrapNone
	}
}

// windowExtremes scans the valid window entries for the highest and
// lowest trade price currently held.
func (e *Engine) windowExtremes() (max, min quant.PriceE8) {
	start := 0
	if e.count == WindowSize {
		start = e.next
	}
	max = e.window[start].price
	min = e.window[start].price
	for i := 1; i < e.count; i++ {
		p := e.window[(start+i)%WindowSize].price
		if p > max {
			max = p
		}
		if p < min {
			min = p
		}
	}
	return max, min
}

// BookDepth is the minimal book summary the regime classifier needs —
// kept separate from the book package so signal never imports book;
// the consumer wires the two together each tick.
type BookDepth struct {
	TopBidQty  quant.QtyE8
	TopAskQty  quant.QtyE8
	Top5BidVol quant.QtyE8
	Top5AskVol quant.QtyE8
}

// Classify derives the liquidity regime from resting book depth alone
// (trade velocity is not consulted), degrading to NORMAL whenever the feed is stale —
// acting on a classification built from old data is worse than acting
// on none. Vacuum and absorption are independent per-side checks on
// two different metrics: vacuum looks at either side's top-5 resting
// volume, absorption at either side's single best-level (L1) size —
// summing both sides into one value would let a thick bid mask a thin
// ask, or a single L1 wall get diluted by the rest of the book.
func (e *Engine) Classify(now quant.TimeStamp, depth BookDepth) Regime {
	if e.CheckIntegrity(now) {
		return RegimeNormal
	}

	if int64(depth.Top5BidVol) < VacuumThreshold || int64(depth.Top5AskVol) < VacuumThreshold {
		return RegimeVacuum
	}
	if int64(depth.TopBidQty) > WallThreshold || int64(depth.TopAskQty) > WallThreshold {
		return RegimeAbsorption
	}
	return RegimeNormal
}
