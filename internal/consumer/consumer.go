// Package consumer implements the single drain loop that pops events
// off the ring buffer and dispatches them. The exact same dispatch
// function backs both the live ring-draining path and the offline WAL
// replay path — "replay is reality": a backtest runs the production
// decision code over logged events instead of stdin.
package consumer

import (
	"context"
	"log/slog"
	"runtime"

	"cortex/internal/book"
	"cortex/internal/execution"
	"cortex/internal/heatmap"
	"cortex/internal/ring"
	"cortex/internal/signal"
	"cortex/internal/strategy"
	"cortex/internal/wire"
	"cortex/pkg/quant"
)

// Recorder is the minimal interface the headless mode needs from the
// binary log writer — kept narrow so consumer never imports the
// recorder package's rotation/backoff internals.
type Recorder interface {
	Write(ev wire.Event) error
}

// Display is the minimal interface the decision mode needs from the
// JSON side-channel writer.
type Display interface {
	Publish(book *book.Book, heat *heatmap.Heatmap, sim *execution.Simulator, velocity float64, vpin int64, regime signal.Regime)
}

// Dispatcher holds every piece of state one tick of decision-mode
// processing touches. A headless-mode dispatcher only ever uses rec.
type Dispatcher struct {
	Book      *book.Book
	Signal    *signal.Engine
	Heatmap   *heatmap.Heatmap
	Sim       *execution.Simulator
	Rec       Recorder
	Disp      Display
	Headless  bool
}

// New builds a Dispatcher. rec may be nil when running decision-only
// (visual) mode; disp may be nil when running headless.
func New(rec Recorder, disp Display, sim *execution.Simulator, headless bool) *Dispatcher {
	return &Dispatcher{
		Book:     book.New(),
		Signal:   signal.New(),
		Heatmap:  heatmap.New(),
		Sim:      sim,
		Rec:      rec,
		Disp:     disp,
		Headless: headless,
	}
}

// Dispatch processes one event, in exactly the same way whether it
// came from the live ring or from WAL replay.
func (d *Dispatcher) Dispatch(ev wire.Event) {
	if d.Headless {
		if d.Rec != nil {
			if err := d.Rec.Write(ev); err != nil {
				slog.Warn("recorder write failed", slog.Any("err", err))
			}
		}
		return
	}

	switch ev.Tag {
	case wire.TypeTrade:
		d.onTrade(ev)
	case wire.TypeDepthLevel:
		lvl := ev.AsDepthLevel()
		d.Book.ApplyLevel(lvl.Side, lvl.Price, lvl.Qty)
	case wire.TypeDepthSnapshot:
		if ev.Snapshot != nil {
			d.Book.ApplySnapshot(*ev.Snapshot)
		}
	case wire.TypeLiquidation:
		liq := ev.AsLiquidation()
		d.Heatmap.OnLiquidation(liq)
	case wire.TypeTicker:
		if ev.Tickr != nil {
			d.Heatmap.OnTicker(*ev.Tickr)
		}
	}

	if d.Disp != nil {
		regime := d.Signal.Classify(quant.TimeStamp(ev.LocalTs), bookDepth(d.Book))
		d.Disp.Publish(d.Book, d.Heatmap, d.Sim, d.Signal.TradeVelocity(), d.Signal.VPIN(), regime)
	}
}

func bookDepth(b *book.Book) signal.BookDepth {
	bids, asks := b.TopLevels(5)
	var bidVol, askVol quant.QtyE8
	for _, l := range bids {
		bidVol += l.Qty
	}
	for _, l := range asks {
		askVol += l.Qty
	}
	var topBid, topAsk quant.QtyE8
	if len(bids) > 0 {
		topBid = bids[0].Qty
	}
	if len(asks) > 0 {
		topAsk = asks[0].Qty
	}
	return signal.BookDepth{
		TopBidQty:  topBid,
		TopAskQty:  topAsk,
		Top5BidVol: bidVol,
		Top5AskVol: askVol,
	}
}

// onTrade runs the full decision path for one trade print. Staleness is
// judged by localNow — the event's own local arrival time — against the
// exchange timestamp of the last trade the signal engine has seen, not
// by the newly-arrived trade's own exchange timestamp; conflating the
// two made the latency guard structurally unable to fire, since a
// trade is always compared against itself.
func (d *Dispatcher) onTrade(ev wire.Event) {
	t := ev.AsTrade()
	localNow := quant.TimeStamp(ev.LocalTs)

	d.Signal.AddTrade(t.Price, t.Qty, t.TakerSide == wire.SideBuy, t.TimestampUs)
	d.Heatmap.OnTrade(t)

	fill := d.Sim.OnTrade(t)
	_ = fill // fills are journaled inside the simulator itself

	mp, ok := d.Book.MicroPrice()
	bidP, _, _ := d.Book.BestBid()
	askP, _, _ := d.Book.BestAsk()
	regime := d.Signal.Classify(localNow, bookDepth(d.Book))
	trap := d.Signal.TrapSignal()
	velocity := d.Signal.TradeVelocity()
	vpin := d.Signal.VPIN()
	position, _, _ := d.Sim.Position()

	in := strategy.Inputs{
		MicroPrice: mp,
		MicroValid: ok,
		Stale:      d.Signal.CheckIntegrity(localNow),
		BestBid:    bidP,
		BestAsk:    askP,
		Regime:     regime,
		Trap:       trap,
		Imbalance:  d.Book.Imbalance(),
		VPIN:       vpin,
		Velocity:   velocity,
		Position:   position,
	}
	q := strategy.Decide(in)

	if q.HasTaker {
		// A taker intent crosses the spread: buys fill at the best ask,
		// sells at the best bid.
		takerPx := askP
		if !q.Taker.Buy {
			takerPx = bidP
		}
		d.Sim.ExecuteTaker(q.Taker, takerPx, t.TimestampUs)
	}
	d.Sim.ApplyQuote(q)
}

// Run dispatches each event it pops until ctx is cancelled, then
// drains whatever is left in the ring and returns. It never sleeps —
// it busy-waits with a scheduler yield between empty checks, matching
// the original engine's consumer loop.
func Run(ctx context.Context, q *ring.Queue[wire.Event], d *Dispatcher) {
	for {
		select {
		case <-ctx.Done():
			drain(q, d)
			return
		default:
		}
		ev, ok := q.Pop()
		if !ok {
			runtime.Gosched()
			continue
		}
		d.Dispatch(ev)
	}
}

// drain flushes whatever is left in the ring once the producer side
// has signaled shutdown (stdin EOF), so no trailing events are lost.
func drain(q *ring.Queue[wire.Event], d *Dispatcher) {
	for {
		ev, ok := q.Pop()
		if !ok {
			return
		}
		d.Dispatch(ev)
	}
}
