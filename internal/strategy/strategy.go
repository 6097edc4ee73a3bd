// Package strategy implements the regime-keyed quoting decision
// procedure as a pure function: Decide takes an explicit Inputs value
// and returns an explicit Quote value, with no hidden state read or
// written. That purity is deliberate — it's what makes "same inputs in,
// same decision out" mechanically checkable, rather than merely
// believed. Grounded on the original engine's MarketMakerStrategy,
// including its exact tuning constants and fall-through ordering.
package strategy

import (
	"cortex/internal/signal"
	"cortex/pkg/quant"
	"cortex/pkg/safe"
)

const (
	TickSizeE8                 = 10000     // 0.0001 price units
	HalfSpreadE8               = 20000     // 0.0002 price units
	RiskAversionE8             = 100       // spread skew per unit of position, E8-scaled
	TakerFeeE8                 = 55000     // 0.00055, 5.5bps
	VelocityThreshold          = 5.0       // trades/sec
	RocketExpectedMoveE8       = 200000    // hardcoded 0.2% expected move, kept as the contract per the open question
	RocketImbalanceThresholdE8 = 30_000_000 // 3e7 E8

	// MinNotionalE8 is the venue's minimum order value (25.0 quote
	// units, E8-scaled), matching the original engine's minOrderValue.
	// Maker quotes size themselves to exactly this notional divided by
	// price; ROCKET_SURFER's taker intent keeps a fixed unit size.
	MinNotionalE8 = 25_00000000
)

// Posture names the regime-specific behavior actually chosen, distinct
// from signal.Regime because ROCKET_SURFER and WICK_CATCHER both
// layer a trade-flow condition on top of the base liquidity regime.
type Posture int

const (
	PostureRange Posture = iota
	PostureRocketSurfer
	PostureWickCatcher
	PostureHalted
)

func (p Posture) String() string {
	switch p {
	case PostureRocketSurfer:
		return "ROCKET_SURFER"
	case PostureWickCatcher:
		return "WICK_CATCHER"
	case PostureHalted:
		return "HALTED"
	default:
		return "RANGE"
	}
}

// Inputs is every piece of state the decision procedure is allowed to
// look at. Nothing outside this struct may influence Decide's output.
type Inputs struct {
	MicroPrice quant.PriceE8
	MicroValid bool
	Stale      bool // signal engine latency-staleness flag
	BestBid    quant.PriceE8
	BestAsk    quant.PriceE8
	Regime     signal.Regime
	Trap       signal.Trap
	Imbalance  int64 // top-5 depth imbalance, E8-scaled, signed, clamped to +-1e8
	VPIN       int64 // E8-scaled, signed, clamped to +-1e8
	Velocity   float64
	Position   quant.QtyE8
}

// TakerIntent is a market-order-style aggressive fill request.
type TakerIntent struct {
	Buy bool
	Qty quant.QtyE8
}

// Quote is the strategy's complete output for one tick: two
// independently-active resting sides, an optional taker intent, and
// the posture/reason that produced it (for logging/telemetry, never
// fed back as an input).
type Quote struct {
	Posture   Posture
	Reason    string
	BidPrice  quant.PriceE8
	BidQty    quant.QtyE8
	BidActive bool
	AskPrice  quant.PriceE8
	AskQty    quant.QtyE8
	AskActive bool
	Taker     TakerIntent
	HasTaker  bool
}

const baseQuoteQty = quant.QtyE8(100000000) // 1.0 unit, ROCKET_SURFER's taker intent only

// quoteQty sizes a resting maker order to the venue's minimum notional
// at the given price: qty = MinNotionalE8 / price, matching the
// original engine's minOrderValue/px order-admission formula.
func quoteQty(price quant.PriceE8) quant.QtyE8 {
	if price <= 0 {
		return 0
	}
	return quant.QtyE8(safe.MulDivSigned(MinNotionalE8, quant.Scale, int64(price)))
}

// Decide runs the ordered decision procedure: safety gate, regime
// classification, regime-specific quote construction (falling through
// to RANGE when the regime's own condition isn't met), then crossed
// book repair. It is a pure function of in — calling it twice with an
// identical Inputs value always produces an identical Quote value.
func Decide(in Inputs) Quote {
	if in.Stale {
		return Quote{Posture: PostureHalted, Reason: "SAFETY_LATENCY_GUARD"}
	}
	if !in.MicroValid || in.MicroPrice <= 0 {
		return Quote{Posture: PostureHalted, Reason: "WAIT"}
	}

	var q Quote
	var matched bool
	switch {
	case in.Velocity > VelocityThreshold && in.Regime == signal.RegimeVacuum:
		q, matched = rocketSurfer(in)
	case in.Velocity > VelocityThreshold && (in.Regime == signal.RegimeAbsorption || in.Trap != signal.TrapNone):
		q, matched = wickCatcher(in)
	}
	if !matched {
		q = rangeQuote(in)
	}

	return repairCross(q)
}

// rocketSurfer chases a confirmed directional move with an immediate
// taker intent of fixed size (baseQuoteQty). It is gated on a hardcoded
// expected move, rather than the measured one, clearing three taker
// fees — kept exactly as the original engine does it,
// self-contradictory tuning and all (see the open question it
// deliberately leaves unresolved). Falls through to RANGE when depth
// imbalance doesn't clear either threshold.
func rocketSurfer(in Inputs) (Quote, bool) {
	if RocketExpectedMoveE8 <= TakerFeeE8*3 {
		return Quote{}, false
	}
	switch {
	case in.Imbalance > RocketImbalanceThresholdE8:
		return Quote{
			Posture:  PostureRocketSurfer,
			Reason:   "ROCKET_SURFER_BUY",
			HasTaker: true,
			Taker:    TakerIntent{Buy: true, Qty: baseQuoteQty},
		}, true
	case in.Imbalance < -RocketImbalanceThresholdE8:
		return Quote{
			Posture:  PostureRocketSurfer,
			Reason:   "ROCKET_SURFER_SELL",
			HasTaker: true,
			Taker:    TakerIntent{Buy: false, Qty: baseQuoteQty},
		}, true
	default:
		return Quote{}, false
	}
}

// wickCatcher quotes exactly one side at micro +- HalfSpread, on the
// side the trap signal says is safe to fade — literally micro +-
// HalfSpread, not "one tick inside the wall" as the original engine's
// own comment claims; the code and the comment disagree, and the code
// is the contract. Falls through to RANGE when the regime was entered
// via ABSORPTION alone, with no trap direction to act on.
func wickCatcher(in Inputs) (Quote, bool) {
	switch in.Trap {
	case signal.TrapBull:
		askPrice := in.MicroPrice + HalfSpreadE8
		return Quote{
			Posture:   PostureWickCatcher,
			Reason:    "WICK_CATCHER_SHORT",
			AskPrice:  askPrice,
			AskQty:    quoteQty(askPrice),
			AskActive: true,
		}, true
	case signal.TrapBear:
		bidPrice := in.MicroPrice - HalfSpreadE8
		return Quote{
			Posture:   PostureWickCatcher,
			Reason:    "WICK_CATCHER_LONG",
			BidPrice:  bidPrice,
			BidQty:    quoteQty(bidPrice),
			BidActive: true,
		}, true
	default:
		return Quote{}, false
	}
}

// rangeQuote is the default two-sided market-making posture: a
// quote HalfSpreadE8 either side of micro price, skewed by RiskAversion in
// direct proportion to current inventory so the strategy leans
// against its own position.
func rangeQuote(in Inputs) Quote {
	skew := safeSkew(in.Position)
	bid := quant.PriceE8(safe.SafeSub(safe.SafeSub(int64(in.MicroPrice), HalfSpreadE8), skew))
	ask := quant.PriceE8(safe.SafeSub(safe.SafeAdd(int64(in.MicroPrice), HalfSpreadE8), skew))
	return Quote{
		Posture:   PostureRange,
		Reason:    "RANGE_MM",
		BidPrice:  bid,
		BidQty:    quoteQty(bid),
		BidActive: true,
		AskPrice:  ask,
		AskQty:    quoteQty(ask),
		AskActive: true,
	}
}

// safeSkew is the position's quote-skew contribution: position*k,
// literally, matching the original engine's direct multiplication
// rather than normalizing position against RiskAversionE8's scale.
func safeSkew(position quant.QtyE8) int64 {
	return safe.SafeMul(int64(position), RiskAversionE8)
}

// repairCross recenters a two-sided quote whose own bid/ask have
// crossed (inventory skew can push bid above ask at extreme
// positions) onto their midpoint, re-applying half-spread
// symmetrically. Single-sided quotes (WICK_CATCHER) and halted quotes
// never reach here with both sides active, so they pass through
// unchanged.
func repairCross(q Quote) Quote {
	if !q.BidActive || !q.AskActive || q.BidPrice < q.AskPrice {
		return q
	}
	mid := (q.BidPrice + q.AskPrice) / 2
	q.BidPrice = mid - HalfSpreadE8
	q.AskPrice = mid + HalfSpreadE8
	q.BidQty = quoteQty(q.BidPrice)
	q.AskQty = quoteQty(q.AskPrice)
	return q
}
