package wire

import "cortex/pkg/quant"

// MarketUpdate is the fixed-size record that crosses the SPSC ring
// between the producer and the consumer. It is sized and ordered to
// land on one 64-byte cache line so producer writes and consumer reads
// never false-share with a neighboring slot, mirroring the original
// engine's alignas(64) record.
type MarketUpdate struct {
	Tag      byte // one of TypeTrade, TypeDepthLevel, TypeDepthSnapshot, TypeLiquidation, TypeTicker
	Symbol   SymbolID
	Flags    byte // bit0: TakerSide/Side for Trade/DepthLevel/Liquidation payloads
	_        [5]byte
	Seq      uint64
	Ts       int64 // exchange timestamp, microseconds
	LocalTs  int64 // local arrival timestamp, microseconds; zero on WAL-replayed events, which carry no live arrival
	Price    int64
	Qty      int64
	OrderID  int64 // reserved for L3 order identity; always zero, this core is a book-snapshot consumer
	_        [8]byte // pad out to 64 bytes
}

const marketUpdateSize = 64

// FromTrade packs a decoded Trade into a MarketUpdate. localTs is the
// wall-clock time the record was read off the wire, captured at the
// ingest boundary, not the exchange's own print timestamp.
func FromTrade(seq uint64, sym SymbolID, t Trade, localTs quant.TimeStamp) MarketUpdate {
	return MarketUpdate{
		Tag:     TypeTrade,
		Symbol:  sym,
		Flags:   byte(t.TakerSide),
		Seq:     seq,
		Ts:      int64(t.TimestampUs),
		LocalTs: int64(localTs),
		Price:   int64(t.Price),
		Qty:     int64(t.Qty),
	}
}

// FromLiquidation packs a decoded Liquidation into a MarketUpdate.
func FromLiquidation(seq uint64, sym SymbolID, l Liquidation, localTs quant.TimeStamp) MarketUpdate {
	return MarketUpdate{
		Tag:     TypeLiquidation,
		Symbol:  sym,
		Flags:   byte(l.Side),
		Seq:     seq,
		Ts:      int64(l.TimestampUs),
		LocalTs: int64(localTs),
		Price:   int64(l.Price),
		Qty:     int64(l.Qty),
	}
}

// AsTrade reinterprets a MarketUpdate tagged TypeTrade back into a Trade.
func (m MarketUpdate) AsTrade() Trade {
	return Trade{
		Price:       quant.PriceE8(m.Price),
		Qty:         quant.QtyE8(m.Qty),
		TimestampUs: quant.TimeStamp(m.Ts),
		TakerSide:   Side(m.Flags),
	}
}

// AsDepthLevel reinterprets a MarketUpdate tagged TypeDepthLevel.
func (m MarketUpdate) AsDepthLevel() DepthLevelUpdate {
	return DepthLevelUpdate{
		Side:        Side(m.Flags),
		Price:       quant.PriceE8(m.Price),
		Qty:         quant.QtyE8(m.Qty),
		TimestampUs: quant.TimeStamp(m.Ts),
	}
}

// AsLiquidation reinterprets a MarketUpdate tagged TypeLiquidation.
func (m MarketUpdate) AsLiquidation() Liquidation {
	return Liquidation{
		Side:        Side(m.Flags),
		Price:       quant.PriceE8(m.Price),
		Qty:         quant.QtyE8(m.Qty),
		TimestampUs: quant.TimeStamp(m.Ts),
	}
}
