// Package recorder is the headless mode's binary log writer: it
// appends every wire event to a buffered file under
// data/history/<prefix>_<YYYYMMDD_HHMMSS>.bin, rotating once an hour
// and forcing a flush once per second or on rotation. A circuit
// breaker gates writes after repeated rotation failures so a stuck
// disk degrades to dropped writes instead of a crash loop. Grounded
// on the original engine's recorder.cpp FileWriter, with the teacher's
// CircuitBreaker/backoff helpers repurposed for the rotation-failure
// policy spec.md §7 calls for.
package recorder

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cortex/internal/infra"
	"cortex/internal/wire"
)

const (
	rotationInterval = time.Hour
	flushInterval    = time.Second
	writeBufferSize  = 1 << 20 // 1MB
)

// Recorder appends encoded wire packets to a rotating binary log.
type Recorder struct {
	mu sync.Mutex

	dir       string
	prefix    string
	file      *os.File
	buf       *bufio.Writer
	openedAt  time.Time
	breaker   *infra.CircuitBreaker
	retries   int
	lastFlush time.Time

	stop chan struct{}
	done chan struct{}
}

// New opens (or creates) the history directory and the first log file.
func New(dir, prefix string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("recorder: create history dir: %w", err)
	}

	r := &Recorder{
		dir:     dir,
		prefix:  prefix,
		breaker: infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "recorder-rotation", FailureThreshold: 3, SuccessThreshold: 1, Timeout: 30 * time.Second}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if err := r.rotate(); err != nil {
		return nil, err
	}

	go r.flushLoop()
	return r, nil
}

func (r *Recorder) rotate() error {
	if r.file != nil {
		r.buf.Flush()
		r.file.Close()
	}

	name := fmt.Sprintf("%s_%s.bin", r.prefix, time.Now().Format("20060102_150405"))
	path := filepath.Join(r.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("recorder: open log file: %w", err)
	}

	r.file = f
	r.buf = bufio.NewWriterSize(f, writeBufferSize)
	r.openedAt = time.Now()
	return nil
}

// Write encodes ev and appends it to the current log file. If the
// circuit breaker has tripped (repeated rotation failures), Write is
// a silent no-op — the original engine's policy is to drop rather
// than block the consumer loop on a stuck disk.
func (r *Recorder) Write(ev wire.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.breaker.Allow() {
		return nil
	}

	if time.Since(r.openedAt) >= rotationInterval {
		if err := r.rotate(); err != nil {
			r.breaker.RecordFailure()
			r.retries++
			slog.Warn("recorder rotation failed", slog.Any("err", err), slog.Int("retry", r.retries),
				slog.Duration("backoff", infra.CalculateBackoff(r.retries)))
			return err
		}
		r.breaker.RecordSuccess()
		r.retries = 0
	}

	buf := encode(ev)
	if _, err := r.buf.Write(buf); err != nil {
		return fmt.Errorf("recorder: write: %w", err)
	}

	if time.Since(r.lastFlush) >= flushInterval {
		if err := r.buf.Flush(); err != nil {
			return fmt.Errorf("recorder: flush: %w", err)
		}
		r.lastFlush = time.Now()
	}
	return nil
}

func encode(ev wire.Event) []byte {
	switch ev.Tag {
	case wire.TypeTrade:
		return wire.EncodeTrade(ev.Symbol, ev.AsTrade())
	case wire.TypeDepthLevel:
		return wire.EncodeDepthLevel(ev.Symbol, ev.AsDepthLevel())
	case wire.TypeDepthSnapshot:
		if ev.Snapshot != nil {
			return wire.EncodeDepthSnapshot(ev.Symbol, *ev.Snapshot)
		}
	case wire.TypeLiquidation:
		return wire.EncodeLiquidation(ev.Symbol, ev.AsLiquidation())
	case wire.TypeTicker:
		if ev.Tickr != nil {
			return wire.EncodeTicker(ev.Symbol, *ev.Tickr)
		}
	}
	return nil
}

func (r *Recorder) flushLoop() {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	defer close(r.done)

	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			if r.buf != nil {
				if err := r.buf.Flush(); err != nil {
					slog.Warn("recorder periodic flush failed", slog.Any("err", err))
				} else {
					r.lastFlush = time.Now()
				}
			}
			r.mu.Unlock()
		case <-r.stop:
			return
		}
	}
}

// Close flushes and closes the current log file, stopping the
// background flush loop. Calling Close again is a no-op.
func (r *Recorder) Close() error {
	select {
	case <-r.stop:
		return nil
	default:
	}
	close(r.stop)
	<-r.done

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.buf != nil {
		r.buf.Flush()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
