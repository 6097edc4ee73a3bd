// Package book maintains the order book view for the single tracked
// symbol: best bid/ask, a bounded set of depth levels, and the
// micro-structure metrics (micro-price, depth imbalance) the signal
// engine and strategy core read every tick. Grounded on the original
// engine's OrderBookL3, translated from unsigned __int128 arithmetic
// to pkg/safe's 128-bit-intermediate helpers.
package book

import (
	"sort"

	"cortex/internal/wire"
	"cortex/pkg/quant"
	"cortex/pkg/safe"
)

// ImbalanceScale clamps the depth imbalance signal to [-1e8, 1e8], the
// same E8 scale used for prices and quantities elsewhere.
const ImbalanceScale = 100000000

// ImbalanceDepth is how many levels per side feed the imbalance ratio.
const ImbalanceDepth = 5

// Book holds the current state of one side-by-side order book.
type Book struct {
	bids map[quant.PriceE8]quant.QtyE8
	asks map[quant.PriceE8]quant.QtyE8
}

func New() *Book {
	return &Book{
		bids: make(map[quant.PriceE8]quant.QtyE8),
		asks: make(map[quant.PriceE8]quant.QtyE8),
	}
}

// ApplySnapshot replaces both sides of the book wholesale.
func (b *Book) ApplySnapshot(snap wire.DepthSnapshot) {
	for k := range b.bids {
		delete(b.bids, k)
	}
	for k := range b.asks {
		delete(b.asks, k)
	}
	for _, lv := range snap.Bids {
		if lv.Qty > 0 {
			b.bids[lv.Price] = lv.Qty
		}
	}
	for _, lv := range snap.Asks {
		if lv.Qty > 0 {
			b.asks[lv.Price] = lv.Qty
		}
	}
}

// ApplyLevel updates a single price level; qty == 0 deletes the level.
func (b *Book) ApplyLevel(side wire.Side, price quant.PriceE8, qty quant.QtyE8) {
	m := b.bids
	if side == wire.SideSell {
		m = b.asks
	}
	if qty <= 0 {
		delete(m, price)
		return
	}
	m[price] = qty
}

// sortedBids returns bid prices descending; sortedAsks ascending.
func (b *Book) sortedBids() []quant.PriceE8 {
	out := make([]quant.PriceE8, 0, len(b.bids))
	for p := range b.bids {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

func (b *Book) sortedAsks() []quant.PriceE8 {
	out := make([]quant.PriceE8, 0, len(b.asks))
	for p := range b.asks {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BestBid returns the highest bid price/qty, or ok=false if empty.
func (b *Book) BestBid() (price quant.PriceE8, qty quant.QtyE8, ok bool) {
	bids := b.sortedBids()
	if len(bids) == 0 {
		return 0, 0, false
	}
	return bids[0], b.bids[bids[0]], true
}

// BestAsk returns the lowest ask price/qty, or ok=false if empty.
func (b *Book) BestAsk() (price quant.PriceE8, qty quant.QtyE8, ok bool) {
	asks := b.sortedAsks()
	if len(asks) == 0 {
		return 0, 0, false
	}
	return asks[0], b.asks[asks[0]], true
}

// IsCrossed reports whether the best bid is at or above the best ask —
// a malformed book state the strategy core must never act on directly.
func (b *Book) IsCrossed() bool {
	bidP, _, bidOK := b.BestBid()
	askP, _, askOK := b.BestAsk()
	if !bidOK || !askOK {
		return false
	}
	return bidP >= askP
}

// MicroPrice is the size-weighted price between the best bid and ask:
// (bidPrice*askQty + askPrice*bidQty) / (bidQty+askQty). It leans
// toward the side with less resting size, anticipating where the next
// print is likely to land. ok is false if either side is empty.
func (b *Book) MicroPrice() (price quant.PriceE8, ok bool) {
	bidP, bidQ, bidOK := b.BestBid()
	askP, askQ, askOK := b.BestAsk()
	if !bidOK || !askOK || bidQ <= 0 || askQ <= 0 {
		return 0, false
	}
	denom := uint64(bidQ) + uint64(askQ)
	if denom == 0 {
		return 0, false
	}
	micro := safe.MulAddDiv(uint64(bidP), uint64(askQ), uint64(askP), uint64(bidQ), denom)
	return quant.PriceE8(micro), true
}

// Imbalance is the signed, clamped top-ImbalanceDepth volume skew:
// (bidVol-askVol)/(bidVol+askVol) scaled to E8 and clamped to
// [-ImbalanceScale, ImbalanceScale]. Positive means bid-heavy. Zero
// whenever either side of the book is empty — a one-sided book has no
// skew to report, not a maximal one.
func (b *Book) Imbalance() int64 {
	bids := b.sortedBids()
	asks := b.sortedAsks()
	if len(bids) == 0 || len(asks) == 0 {
		return 0
	}

	var bidVol, askVol int64
	for i := 0; i < ImbalanceDepth && i < len(bids); i++ {
		bidVol = safe.SafeAdd(bidVol, int64(b.bids[bids[i]]))
	}
	for i := 0; i < ImbalanceDepth && i < len(asks); i++ {
		askVol = safe.SafeAdd(askVol, int64(b.asks[asks[i]]))
	}

	total := bidVol + askVol
	if total == 0 {
		return 0
	}
	diff := bidVol - askVol
	ratio := safe.MulDivSigned(diff, ImbalanceScale, total)
	if ratio > ImbalanceScale {
		return ImbalanceScale
	}
	if ratio < -ImbalanceScale {
		return -ImbalanceScale
	}
	return ratio
}

// TopLevels returns up to n levels per side for display/diagnostics.
func (b *Book) TopLevels(n int) (bids, asks []wire.Level) {
	bp := b.sortedBids()
	ap := b.sortedAsks()
	if n < len(bp) {
		bp = bp[:n]
	}
	if n < len(ap) {
		ap = ap[:n]
	}
	for _, p := range bp {
		bids = append(bids, wire.Level{Price: p, Qty: b.bids[p]})
	}
	for _, p := range ap {
		asks = append(asks, wire.Level{Price: p, Qty: b.asks[p]})
	}
	return bids, asks
}
