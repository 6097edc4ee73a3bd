// Package ingest implements the producer side of the pipeline: it
// reads the `|`-delimited text feed line by line, converts every
// decimal field to E8 fixed point without ever touching float64, and
// pushes a typed wire.Event into the ring buffer. Every line is also
// stamped with the wall-clock time it was read, the event's local
// arrival timestamp, captured once before the field-specific parser
// runs so it reflects read time, not parse time. A malformed or
// unrecognized line is silently dropped and counted — the hot path
// never logs per line; the total is exposed through Dropped. Grounded on
// spec.md §6's external interface and the reference producer's
// literal print formats (bybit_feed.py).
package ingest

import (
	"bufio"
	"io"
	"strings"

	"cortex/internal/ring"
	"cortex/internal/wire"
	"cortex/pkg/quant"
)

// Producer owns the sequence counter, the output ring, and the
// expected symbol name — lines naming any other symbol are dropped
// without attempting to parse the rest of the record.
type Producer struct {
	seq     uint64
	out     *ring.Queue[wire.Event]
	sym     wire.SymbolID
	symName string
	dropped uint64
}

func NewProducer(out *ring.Queue[wire.Event], sym wire.SymbolID, symName string) *Producer {
	return &Producer{out: out, sym: sym, symName: symName}
}

// Dropped reports how many input lines were malformed, unknown, or
// off-symbol, and discarded.
func (p *Producer) Dropped() uint64 { return p.dropped }

// Run reads lines from r until EOF, pushing a decoded event for every
// well-formed line. It returns on read error or EOF; io.EOF is not
// itself returned as an error.
func (p *Producer) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.handleLine(scanner.Text())
	}
	return scanner.Err()
}

func (p *Producer) handleLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	// Every record type is TYPE|ts_ms|SYMBOL|..., so the symbol check
	// is uniform across TRADE/DEPTH/LIQ/TICKER.
	fields := strings.Split(line, "|")
	if len(fields) < 3 || fields[2] != p.symName {
		p.dropped++
		return
	}

	localTs := quant.NowTimeStamp()

	var ev wire.Event
	var ok bool
	switch fields[0] {
	case "TRADE":
		ev, ok = p.parseTrade(fields, localTs)
	case "DEPTH":
		ev, ok = p.parseDepth(fields, localTs)
	case "LIQ":
		ev, ok = p.parseLiquidation(fields, localTs)
	case "TICKER":
		ev, ok = p.parseTicker(fields, localTs)
	default:
		ok = false
	}

	if !ok {
		p.dropped++
		return
	}
	if !p.out.Push(ev) {
		p.dropped++
	}
}

// parseTradeSide reads TRADE's SIDE field, which the reference
// producer always upper-cases before printing (trade["S"].upper()).
func parseTradeSide(s string) (wire.Side, bool) {
	switch strings.ToUpper(s) {
	case "BUY":
		return wire.SideBuy, true
	case "SELL":
		return wire.SideSell, true
	default:
		return 0, false
	}
}

// parseWordSide reads a side word by its first character only, case
// insensitively — the liquidation feed passes Bybit's own side casing
// ("Buy"/"Sell") straight through instead of normalizing it.
func parseWordSide(s string) (wire.Side, bool) {
	if s == "" {
		return 0, false
	}
	switch s[0] {
	case 'B', 'b':
		return wire.SideBuy, true
	case 'S', 's':
		return wire.SideSell, true
	default:
		return 0, false
	}
}

// parseTrade expects: TRADE|ts_ms|SYMBOL|SIDE|price|qty
func (p *Producer) parseTrade(f []string, localTs quant.TimeStamp) (wire.Event, bool) {
	if len(f) != 6 {
		return wire.Event{}, false
	}
	ts, err := quant.ParseTimeStamp(f[1])
	if err != nil {
		return wire.Event{}, false
	}
	side, ok := parseTradeSide(f[3])
	if !ok {
		return wire.Event{}, false
	}
	price, err := quant.ParsePriceE8(f[4])
	if err != nil {
		return wire.Event{}, false
	}
	qty, err := quant.ParseQtyE8(f[5])
	if err != nil {
		return wire.Event{}, false
	}
	seq := quant.NextSeq(&p.seq)
	return wire.TradeEvent(seq, p.sym, wire.Trade{
		Price:       price,
		Qty:         qty,
		TimestampUs: ts,
		TakerSide:   side,
	}, localTs), true
}

// parseDepth expects: DEPTH|ts_ms|SYMBOL|bid_list|ask_list, where each
// list is a comma-separated "price:qty,price:qty,..." snapshot of up
// to wire.DepthLevels pairs — the full flattened top-50 book the
// reference producer maintains locally from the venue's snapshot+delta
// messages, emitted fresh on every line, not a single incremental
// level.
func (p *Producer) parseDepth(f []string, localTs quant.TimeStamp) (wire.Event, bool) {
	if len(f) != 5 {
		return wire.Event{}, false
	}
	ts, err := quant.ParseTimeStamp(f[1])
	if err != nil {
		return wire.Event{}, false
	}
	var snap wire.DepthSnapshot
	snap.TimestampUs = ts
	if !parseLevels(f[3], snap.Bids[:]) {
		return wire.Event{}, false
	}
	if !parseLevels(f[4], snap.Asks[:]) {
		return wire.Event{}, false
	}
	seq := quant.NextSeq(&p.seq)
	return wire.SnapshotEvent(seq, p.sym, snap, localTs), true
}

// parseLevels decodes a "price:qty,price:qty,..." list into dst, up to
// len(dst) pairs. An empty string (no resting levels on that side) is
// valid and leaves dst zeroed.
func parseLevels(s string, dst []wire.Level) bool {
	if s == "" {
		return true
	}
	pairs := strings.Split(s, ",")
	if len(pairs) > len(dst) {
		return false
	}
	for i, pair := range pairs {
		pv := strings.SplitN(pair, ":", 2)
		if len(pv) != 2 {
			return false
		}
		price, err := quant.ParsePriceE8(pv[0])
		if err != nil {
			return false
		}
		qty, err := quant.ParseQtyE8(pv[1])
		if err != nil {
			return false
		}
		dst[i] = wire.Level{Price: price, Qty: qty}
	}
	return true
}

// parseLiquidation expects: LIQ|ts_ms|SYMBOL|side|price|qty
func (p *Producer) parseLiquidation(f []string, localTs quant.TimeStamp) (wire.Event, bool) {
	if len(f) != 6 {
		return wire.Event{}, false
	}
	ts, err := quant.ParseTimeStamp(f[1])
	if err != nil {
		return wire.Event{}, false
	}
	side, ok := parseWordSide(f[3])
	if !ok {
		return wire.Event{}, false
	}
	price, err := quant.ParsePriceE8(f[4])
	if err != nil {
		return wire.Event{}, false
	}
	qty, err := quant.ParseQtyE8(f[5])
	if err != nil {
		return wire.Event{}, false
	}
	seq := quant.NextSeq(&p.seq)
	return wire.LiquidationEvent(seq, p.sym, wire.Liquidation{
		Side:        side,
		Price:       price,
		Qty:         qty,
		TimestampUs: ts,
	}, localTs), true
}

// parseTicker expects: TICKER|ts_ms|SYMBOL|open_interest|funding_rate|mark_price.
// The text feed carries no index price, unlike the binary wire.Ticker
// struct it populates; IndexPrice defaults to the mark price, the
// closest available proxy absent a real index quote on this line.
func (p *Producer) parseTicker(f []string, localTs quant.TimeStamp) (wire.Event, bool) {
	if len(f) != 6 {
		return wire.Event{}, false
	}
	ts, err := quant.ParseTimeStamp(f[1])
	if err != nil {
		return wire.Event{}, false
	}
	oi, err := quant.ParseQtyE8(f[3])
	if err != nil {
		return wire.Event{}, false
	}
	funding, err := quant.ParseE8(f[4])
	if err != nil {
		return wire.Event{}, false
	}
	mark, err := quant.ParsePriceE8(f[5])
	if err != nil {
		return wire.Event{}, false
	}
	seq := quant.NextSeq(&p.seq)
	return wire.TickerEvent(seq, p.sym, wire.Ticker{
		MarkPrice:     mark,
		IndexPrice:    mark,
		FundingRateE8: funding,
		OpenInterest:  oi,
		TimestampUs:   ts,
	}, localTs), true
}
