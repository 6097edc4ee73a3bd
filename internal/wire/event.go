package wire

import (
	"fmt"

	"cortex/pkg/quant"
)

// Event is the envelope that actually travels through the ring buffer.
// Trade and Liquidation events are carried inline in the embedded
// MarketUpdate so the hot path never allocates; DepthSnapshot and
// Ticker events, which are far less frequent and too large for one
// cache line, are carried by pointer.
type Event struct {
	MarketUpdate
	Snapshot *DepthSnapshot
	Tickr    *Ticker
}

// localTs is the local arrival time of the record (see MarketUpdate.LocalTs);
// pass quant.TimeStamp(0) when rebuilding an event that carries no live
// arrival time of its own, e.g. WAL replay via DecodeEvent.
func TradeEvent(seq uint64, sym SymbolID, t Trade, localTs quant.TimeStamp) Event {
	return Event{MarketUpdate: FromTrade(seq, sym, t, localTs)}
}

func LiquidationEvent(seq uint64, sym SymbolID, l Liquidation, localTs quant.TimeStamp) Event {
	return Event{MarketUpdate: FromLiquidation(seq, sym, l, localTs)}
}

func DepthLevelEvent(seq uint64, sym SymbolID, d DepthLevelUpdate, localTs quant.TimeStamp) Event {
	return Event{MarketUpdate: MarketUpdate{
		Tag:     TypeDepthLevel,
		Symbol:  sym,
		Flags:   byte(d.Side),
		Seq:     seq,
		Ts:      int64(d.TimestampUs),
		LocalTs: int64(localTs),
		Price:   int64(d.Price),
		Qty:     int64(d.Qty),
	}}
}

func SnapshotEvent(seq uint64, sym SymbolID, d DepthSnapshot, localTs quant.TimeStamp) Event {
	return Event{
		MarketUpdate: MarketUpdate{Tag: TypeDepthSnapshot, Symbol: sym, Seq: seq, Ts: int64(d.TimestampUs), LocalTs: int64(localTs)},
		Snapshot:     &d,
	}
}

func TickerEvent(seq uint64, sym SymbolID, t Ticker, localTs quant.TimeStamp) Event {
	return Event{
		MarketUpdate: MarketUpdate{Tag: TypeTicker, Symbol: sym, Seq: seq, Ts: int64(t.TimestampUs), LocalTs: int64(localTs)},
		Tickr:        &t,
	}
}

// DecodeEvent rebuilds the Event a WAL record was encoded from, given
// the tag and seq columns stored alongside the raw payload (seq is
// never itself part of the wire payload, only of the ring envelope).
// Used exclusively by the offline replay path.
func DecodeEvent(tag byte, seq uint64, payload []byte) (Event, error) {
	switch tag {
	case TypeTrade:
		sym, t, err := DecodeTrade(payload)
		if err != nil {
			return Event{}, err
		}
		return TradeEvent(seq, sym, t, 0), nil
	case TypeDepthLevel:
		sym, d, err := DecodeDepthLevel(payload)
		if err != nil {
			return Event{}, err
		}
		return DepthLevelEvent(seq, sym, d, 0), nil
	case TypeDepthSnapshot:
		sym, d, err := DecodeDepthSnapshot(payload)
		if err != nil {
			return Event{}, err
		}
		return SnapshotEvent(seq, sym, d, 0), nil
	case TypeLiquidation:
		sym, l, err := DecodeLiquidation(payload)
		if err != nil {
			return Event{}, err
		}
		return LiquidationEvent(seq, sym, l, 0), nil
	case TypeTicker:
		sym, t, err := DecodeTicker(payload)
		if err != nil {
			return Event{}, err
		}
		return TickerEvent(seq, sym, t, 0), nil
	default:
		return Event{}, fmt.Errorf("wire: unknown packet tag %d", tag)
	}
}
