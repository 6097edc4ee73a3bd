package consumer

import (
	"fmt"
	"log/slog"
)

// MaxToleratedGap is the largest forward sequence jump the WAL-replay
// path tolerates before treating it as a fatal corruption rather than
// a dropped/lost record. The live ring path never needs this check —
// it's a single-producer single-consumer queue, so delivery is
// gapless and in-order by construction.
const MaxToleratedGap = 10

// SequenceGuard enforces monotonic sequence delivery for WAL replay,
// grounded on the teacher's engine.Sequencer.ValidateSequence.
type SequenceGuard struct {
	nextSeq uint64
}

// NewSequenceGuard starts the guard expecting start as the next seq.
func NewSequenceGuard(start uint64) *SequenceGuard {
	return &SequenceGuard{nextSeq: start}
}

// Validate checks seq against the expected next sequence number. A
// duplicate or stale seq is ignored. A small forward gap is tolerated
// and fast-forwards the expectation. A gap larger than
// MaxToleratedGap is reported as a fatal error by the caller.
func (g *SequenceGuard) Validate(seq uint64) error {
	if seq == g.nextSeq {
		g.nextSeq++
		return nil
	}

	diff := int64(seq) - int64(g.nextSeq)
	if diff < 0 {
		slog.Warn("replay: duplicate or stale sequence ignored", slog.Uint64("expected", g.nextSeq), slog.Uint64("got", seq))
		return nil
	}

	if diff <= MaxToleratedGap {
		slog.Warn("replay: sequence gap tolerated",
			slog.Uint64("expected", g.nextSeq), slog.Uint64("got", seq), slog.Int64("gap", diff))
		g.nextSeq = seq + 1
		return nil
	}

	return fmt.Errorf("replay: sequence gap fatal: expected %d, got %d", g.nextSeq, seq)
}
