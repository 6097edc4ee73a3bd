// Package wire defines the tagged-union market-data protocol shared
// between the producer and the consumer, and the 64-byte cache-line
// aligned MarketUpdate record that crosses the ring buffer between
// them. Every payload is encoded without padding, field by field, so
// the on-wire layout never depends on Go's struct alignment rules.
package wire

import (
	"encoding/binary"
	"fmt"

	"cortex/pkg/quant"
)

// Packet type tags, mirroring the original protocol's tagged union.
const (
	TypeTrade         byte = 0x01
	TypeDepthLevel    byte = 0x02
	TypeDepthSnapshot byte = 0x03
	TypeLiquidation   byte = 0x04
	TypeTicker        byte = 0x05
)

// SymbolID identifies the instrument; this pipeline is single-symbol,
// so only one id is ever produced, but the table leaves room for the
// recorder to prefix multi-symbol logs without a format break.
type SymbolID byte

const DefaultSymbol SymbolID = 0

const DepthLevels = 50

// Side is the taker/book side of a trade, liquidation, or book level.
type Side byte

const (
	SideBuy Side = iota
	SideSell
)

// Level is one price/quantity pair of a depth snapshot.
type Level struct {
	Price quant.PriceE8
	Qty   quant.QtyE8
}

// Trade is a single executed print.
type Trade struct {
	Price        quant.PriceE8
	Qty          quant.QtyE8
	TimestampUs  quant.TimeStamp
	TakerSide    Side
}

// DepthSnapshot replaces both sides of the book wholesale.
type DepthSnapshot struct {
	TimestampUs quant.TimeStamp
	Bids        [DepthLevels]Level
	Asks        [DepthLevels]Level
}

// Liquidation is a forced-close print from the venue.
type Liquidation struct {
	Side        Side
	Price       quant.PriceE8
	Qty         quant.QtyE8
	TimestampUs quant.TimeStamp
}

// Ticker carries mark price, index price, funding, and open interest.
type Ticker struct {
	MarkPrice     quant.PriceE8
	IndexPrice    quant.PriceE8
	FundingRateE8 int64
	OpenInterest  quant.QtyE8
	TimestampUs   quant.TimeStamp
}

// EncodeTrade writes the packed Trade payload (1 tag + 1 symbol + 25
// bytes of fields), 27 bytes total.
func EncodeTrade(sym SymbolID, t Trade) []byte {
	buf := make([]byte, 2+8+8+8+1)
	buf[0] = TypeTrade
	buf[1] = byte(sym)
	off := 2
	binary.LittleEndian.PutUint64(buf[off:], uint64(t.Price))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(t.Qty))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(t.TimestampUs))
	off += 8
	buf[off] = byte(t.TakerSide)
	return buf
}

func DecodeTrade(buf []byte) (SymbolID, Trade, error) {
	if len(buf) < 2+25 || buf[0] != TypeTrade {
		return 0, Trade{}, fmt.Errorf("wire: malformed trade packet")
	}
	sym := SymbolID(buf[1])
	off := 2
	price := quant.PriceE8(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	qty := quant.QtyE8(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	ts := quant.TimeStamp(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	side := Side(buf[off])
	return sym, Trade{Price: price, Qty: qty, TimestampUs: ts, TakerSide: side}, nil
}

// DepthLevelUpdate is a single incremental book-level change: a qty of
// zero means the level is removed.
type DepthLevelUpdate struct {
	Side        Side
	Price       quant.PriceE8
	Qty         quant.QtyE8
	TimestampUs quant.TimeStamp
}

// EncodeDepthLevel writes the packed single-level update payload.
func EncodeDepthLevel(sym SymbolID, d DepthLevelUpdate) []byte {
	buf := make([]byte, 2+1+8+8+8)
	buf[0] = TypeDepthLevel
	buf[1] = byte(sym)
	off := 2
	buf[off] = byte(d.Side)
	off++
	binary.LittleEndian.PutUint64(buf[off:], uint64(d.Price))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(d.Qty))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(d.TimestampUs))
	return buf
}

func DecodeDepthLevel(buf []byte) (SymbolID, DepthLevelUpdate, error) {
	if len(buf) < 2+25 || buf[0] != TypeDepthLevel {
		return 0, DepthLevelUpdate{}, fmt.Errorf("wire: malformed depth level packet")
	}
	sym := SymbolID(buf[1])
	off := 2
	side := Side(buf[off])
	off++
	price := quant.PriceE8(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	qty := quant.QtyE8(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	ts := quant.TimeStamp(binary.LittleEndian.Uint64(buf[off:]))
	return sym, DepthLevelUpdate{Side: side, Price: price, Qty: qty, TimestampUs: ts}, nil
}

// EncodeDepthSnapshot writes the packed snapshot: 1 tag + 1 symbol + 8
// timestamp + 50*2 levels * 16 bytes = 1610 bytes total.
func EncodeDepthSnapshot(sym SymbolID, d DepthSnapshot) []byte {
	const levelsBytes = DepthLevels * 2 * 16
	buf := make([]byte, 2+8+levelsBytes)
	buf[0] = TypeDepthSnapshot
	buf[1] = byte(sym)
	off := 2
	binary.LittleEndian.PutUint64(buf[off:], uint64(d.TimestampUs))
	off += 8
	for _, lv := range d.Bids {
		binary.LittleEndian.PutUint64(buf[off:], uint64(lv.Price))
		off += 8
		binary.LittleEndian.PutUint64(buf[off:], uint64(lv.Qty))
		off += 8
	}
	for _, lv := range d.Asks {
		binary.LittleEndian.PutUint64(buf[off:], uint64(lv.Price))
		off += 8
		binary.LittleEndian.PutUint64(buf[off:], uint64(lv.Qty))
		off += 8
	}
	return buf
}

func DecodeDepthSnapshot(buf []byte) (SymbolID, DepthSnapshot, error) {
	const levelsBytes = DepthLevels * 2 * 16
	if len(buf) < 2+8+levelsBytes || buf[0] != TypeDepthSnapshot {
		return 0, DepthSnapshot{}, fmt.Errorf("wire: malformed depth snapshot packet")
	}
	sym := SymbolID(buf[1])
	off := 2
	var d DepthSnapshot
	d.TimestampUs = quant.TimeStamp(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	for i := range d.Bids {
		d.Bids[i].Price = quant.PriceE8(binary.LittleEndian.Uint64(buf[off:]))
		off += 8
		d.Bids[i].Qty = quant.QtyE8(binary.LittleEndian.Uint64(buf[off:]))
		off += 8
	}
	for i := range d.Asks {
		d.Asks[i].Price = quant.PriceE8(binary.LittleEndian.Uint64(buf[off:]))
		off += 8
		d.Asks[i].Qty = quant.QtyE8(binary.LittleEndian.Uint64(buf[off:]))
		off += 8
	}
	return sym, d, nil
}

// EncodeLiquidation writes the packed liquidation payload.
func EncodeLiquidation(sym SymbolID, l Liquidation) []byte {
	buf := make([]byte, 2+1+8+8+8)
	buf[0] = TypeLiquidation
	buf[1] = byte(sym)
	off := 2
	buf[off] = byte(l.Side)
	off++
	binary.LittleEndian.PutUint64(buf[off:], uint64(l.Price))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(l.Qty))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(l.TimestampUs))
	return buf
}

func DecodeLiquidation(buf []byte) (SymbolID, Liquidation, error) {
	if len(buf) < 2+25 || buf[0] != TypeLiquidation {
		return 0, Liquidation{}, fmt.Errorf("wire: malformed liquidation packet")
	}
	sym := SymbolID(buf[1])
	off := 2
	side := Side(buf[off])
	off++
	price := quant.PriceE8(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	qty := quant.QtyE8(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	ts := quant.TimeStamp(binary.LittleEndian.Uint64(buf[off:]))
	return sym, Liquidation{Side: side, Price: price, Qty: qty, TimestampUs: ts}, nil
}

// EncodeTicker writes the packed ticker payload.
func EncodeTicker(sym SymbolID, t Ticker) []byte {
	buf := make([]byte, 2+8*5)
	buf[0] = TypeTicker
	buf[1] = byte(sym)
	off := 2
	binary.LittleEndian.PutUint64(buf[off:], uint64(t.MarkPrice))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(t.IndexPrice))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(t.FundingRateE8))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(t.OpenInterest))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(t.TimestampUs))
	return buf
}

func DecodeTicker(buf []byte) (SymbolID, Ticker, error) {
	if len(buf) < 2+8*5 || buf[0] != TypeTicker {
		return 0, Ticker{}, fmt.Errorf("wire: malformed ticker packet")
	}
	sym := SymbolID(buf[1])
	off := 2
	mark := quant.PriceE8(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	index := quant.PriceE8(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	funding := int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	oi := quant.QtyE8(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	ts := quant.TimeStamp(binary.LittleEndian.Uint64(buf[off:]))
	return sym, Ticker{MarkPrice: mark, IndexPrice: index, FundingRateE8: funding, OpenInterest: oi, TimestampUs: ts}, nil
}

// PeekType reports the packet type tag of an encoded wire record
// without fully decoding it.
func PeekType(buf []byte) (byte, error) {
	if len(buf) < 1 {
		return 0, fmt.Errorf("wire: empty packet")
	}
	return buf[0], nil
}
