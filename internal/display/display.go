// Package display writes the two JSON side-channel files an external
// dashboard/heatmap renderer reads: book_snapshot.json and
// dashboard.json. Writes are atomic (temp file then rename) so a
// reader never observes a half-written file, and rate-limited so a
// fast-ticking consumer doesn't hammer the filesystem on every single
// trade. Grounded on the original engine's dumpOrderBook/
// dumpDashboardState and on the teacher's atomic snapshot writer; the
// E8-to-decimal conversion at this boundary uses shopspring/decimal so
// no float rounding reaches a file a human reads.
package display

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"cortex/internal/book"
	"cortex/internal/execution"
	"cortex/internal/heatmap"
	"cortex/internal/infra"
	"cortex/internal/signal"
	"cortex/pkg/quant"
)

const e8Exponent = -8

func toDecimal(v int64) decimal.Decimal {
	return decimal.New(v, e8Exponent)
}

// Writer throttles and serializes snapshots to disk.
type Writer struct {
	dir       string
	sessionID string
	limiter   *infra.RateLimiter
}

// New builds a Writer that writes under dir, allowing at most one
// publish every updateIntervalMS milliseconds.
func New(dir string, updateIntervalMS int) *Writer {
	if updateIntervalMS <= 0 {
		updateIntervalMS = 250
	}
	perSecond := 1000.0 / float64(updateIntervalMS)
	return &Writer{
		dir:       dir,
		sessionID: fmt.Sprintf("GEN3-CORTEX-%d", time.Now().Unix()),
		limiter:   infra.NewRateLimiter(1, perSecond),
	}
}

type levelJSON struct {
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`
}

type bookSnapshotJSON struct {
	Bids []levelJSON `json:"bids"`
	Asks []levelJSON `json:"asks"`
}

type zoneJSON struct {
	Price decimal.Decimal `json:"price"`
	Score decimal.Decimal `json:"score"`
}

type dashboardJSON struct {
	SessionID    string          `json:"session_id"`
	Regime       string          `json:"regime"`
	Velocity     float64         `json:"trade_velocity"`
	VPIN         decimal.Decimal `json:"vpin"`
	Position     decimal.Decimal `json:"position"`
	AvgEntry     decimal.Decimal `json:"avg_entry"`
	RealizedPnL  decimal.Decimal `json:"realized_pnl"`
	MarkPrice    decimal.Decimal `json:"mark_price"`
	IndexPrice   decimal.Decimal `json:"index_price"`
	FundingRate  decimal.Decimal `json:"funding_rate"`
	OpenInterest decimal.Decimal `json:"open_interest"`
	LiqZones     []zoneJSON      `json:"liquidation_zones"`
	UpdatedUnix  int64           `json:"updated_unix"`
}

// Publish writes book_snapshot.json and dashboard.json if the rate
// limiter currently has a token; otherwise it is a silent no-op — the
// underlying state isn't lost, it'll be captured on the next tick
// that does get a token.
func (w *Writer) Publish(b *book.Book, heat *heatmap.Heatmap, sim *execution.Simulator, velocity float64, vpin int64, regime signal.Regime) {
	if !w.limiter.TryAcquire() {
		return
	}

	bids, asks := b.TopLevels(5)
	snap := bookSnapshotJSON{}
	for _, l := range bids {
		snap.Bids = append(snap.Bids, levelJSON{Price: toDecimal(int64(l.Price)), Qty: toDecimal(int64(l.Qty))})
	}
	for _, l := range asks {
		snap.Asks = append(snap.Asks, levelJSON{Price: toDecimal(int64(l.Price)), Qty: toDecimal(int64(l.Qty))})
	}
	if err := w.writeAtomic("book_snapshot.json", snap); err != nil {
		slog.Warn("display: write book snapshot failed", slog.Any("err", err))
	}

	position, avgEntry, realized := sim.Position()
	heatSnap := heat.Snapshot()

	zones := make([]zoneJSON, 0, len(heatSnap.Zones))
	for _, z := range heatSnap.Zones {
		zones = append(zones, zoneJSON{Price: toDecimal(int64(z.Price)), Score: toDecimal(z.Score)})
	}

	dash := dashboardJSON{
		SessionID:    w.sessionID,
		Regime:       regime.String(),
		Velocity:     velocity,
		VPIN:         toDecimal(vpin),
		Position:     toDecimal(int64(position)),
		AvgEntry:     toDecimal(int64(avgEntry)),
		RealizedPnL:  toDecimal(realized),
		MarkPrice:    toDecimal(int64(heatSnap.MarkPrice)),
		IndexPrice:   toDecimal(int64(heatSnap.IndexPrice)),
		FundingRate:  toDecimal(heatSnap.FundingRate),
		OpenInterest: toDecimal(int64(heatSnap.OpenInterest)),
		LiqZones:     zones,
		UpdatedUnix:  time.Now().Unix(),
	}
	if err := w.writeAtomic("dashboard.json", dash); err != nil {
		slog.Warn("display: write dashboard failed", slog.Any("err", err))
	}
}

func (w *Writer) writeAtomic(name string, v any) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("display: ensure dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("display: marshal %s: %w", name, err)
	}
	final := filepath.Join(w.dir, name)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("display: write %s: %w", name, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("display: rename %s: %w", name, err)
	}
	return nil
}

var _ = quant.Scale // display formatting anchors to the same E8 scale as the wire protocol
