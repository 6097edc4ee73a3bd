// Package heatmap builds an inferred liquidation-price density map:
// every trade contributes a probable liquidation zone at roughly ±4%
// from the print (longs liquidate below, shorts above), and every
// confirmed liquidation event boosts its own bucket by 10x. This is
// the alternate consumer mode's core data structure, read by a display
// goroutine while a single decision goroutine writes it — the only
// place in this pipeline a mutex is needed. Grounded on the original
// engine's LiquidationEngine.
package heatmap

import (
	"sort"
	"sync"

	"cortex/internal/wire"
	"cortex/pkg/quant"
	"cortex/pkg/safe"
)

const (
	InverseLiqFactorE8 = 4_000_000 // 0.04, E8-scaled
	BucketStepE8       = 100000
	ConfirmBoost       = 10
)

// Heatmap accumulates a score per price bucket. Scores are E8-scaled
// size, the same fixed-point convention as every other quantity in the
// pipeline — no float64 touches this path, matching the original
// engine's int64-keyed liquidationMap.
type Heatmap struct {
	mu      sync.Mutex
	buckets map[quant.PriceE8]int64

	lastMark    quant.PriceE8
	lastIndex   quant.PriceE8
	lastFunding int64
	lastOI      quant.QtyE8
}

func New() *Heatmap {
	return &Heatmap{buckets: make(map[quant.PriceE8]int64)}
}

func bucketOf(price quant.PriceE8) quant.PriceE8 {
	p := int64(price)
	b := (p / BucketStepE8) * BucketStepE8
	if p < 0 && p%BucketStepE8 != 0 {
		b -= BucketStepE8
	}
	return quant.PriceE8(b)
}

// OnTrade adds an inferred liquidation-zone contribution: a sell-side
// taker print suggests shorts might liquidate above the print; a
// buy-side taker print suggests longs might liquidate below it.
func (h *Heatmap) OnTrade(t wire.Trade) {
	delta := safe.MulDivSigned(int64(t.Price), InverseLiqFactorE8, quant.Scale)
	var liqPrice int64
	if t.TakerSide == wire.SideSell {
		liqPrice = safe.SafeAdd(int64(t.Price), delta)
	} else {
		liqPrice = safe.SafeSub(int64(t.Price), delta)
	}
	bucket := bucketOf(quant.PriceE8(liqPrice))

	weight := int64(t.Qty)
	h.mu.Lock()
	h.buckets[bucket] = safe.SafeAdd(h.buckets[bucket], weight)
	h.mu.Unlock()
}

// OnLiquidation boosts the bucket a confirmed liquidation event lands
// in, 10x stronger than an inferred contribution from OnTrade.
func (h *Heatmap) OnLiquidation(l wire.Liquidation) {
	bucket := bucketOf(l.Price)
	weight := safe.SafeMul(int64(l.Qty), ConfirmBoost)

	h.mu.Lock()
	h.buckets[bucket] = safe.SafeAdd(h.buckets[bucket], weight)
	h.mu.Unlock()
}

// OnTicker records passthrough telemetry for the display side-channel.
func (h *Heatmap) OnTicker(t wire.Ticker) {
	h.mu.Lock()
	h.lastMark = t.MarkPrice
	h.lastIndex = t.IndexPrice
	h.lastFunding = t.FundingRateE8
	h.lastOI = t.OpenInterest
	h.mu.Unlock()
}

// Zone is one bucket/score pair, used for snapshotting. Score is
// E8-scaled size, not a probability or a raw trade count.
type Zone struct {
	Price quant.PriceE8
	Score int64
}

// Snapshot is a consistent, sorted-by-price copy of the current
// heatmap state plus the latest ticker telemetry, safe to serialize
// to the display side-channel without holding the lock.
type Snapshot struct {
	Zones        []Zone
	MarkPrice    quant.PriceE8
	IndexPrice   quant.PriceE8
	FundingRate  int64
	OpenInterest quant.QtyE8
}

// Snapshot copies the current state under the lock and releases it
// immediately; callers should never hold onto the lock themselves.
func (h *Heatmap) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	zones := make([]Zone, 0, len(h.buckets))
	for p, score := range h.buckets {
		zones = append(zones, Zone{Price: p, Score: score})
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].Price < zones[j].Price })

	return Snapshot{
		Zones:        zones,
		MarkPrice:    h.lastMark,
		IndexPrice:   h.lastIndex,
		FundingRate:  h.lastFunding,
		OpenInterest: h.lastOI,
	}
}
