package engine

import (
	"go.uber.org/zap"

	"github.com/electaudit/cvranon/internal/domain"
	"github.com/electaudit/cvranon/internal/ports"
)

var _ ports.Stage = (*Verifier)(nil)

// Verifier is the correctness oracle that gates delivery: it recomputes
// the full per-contest, per-choice tallies independently from the input
// rows and the assembled output rows and requires exact equality. A
// mismatch means the aggregation logic silently changed the election
// record, so the output must never be delivered.
type Verifier struct {
	log *zap.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(log *zap.Logger) *Verifier {
	return &Verifier{log: log}
}

// Name implements ports.Stage.
func (v *Verifier) Name() string { return "verify" }

// Validate implements ports.Stage.
func (v *Verifier) Validate() error { return nil }

// Verify compares the tallies of the source rows against the assembled
// output rows. Individual marks and pre-summed aggregate counts are
// interpreted under the same value rule, so raw, untouched, and aggregate
// rows all contribute correctly.
func (v *Verifier) Verify(t *domain.Table, output []domain.BallotRow) error {
	in := t.Tally(t.Rows)
	out := t.Tally(output)
	if !in.Equal(out) {
		return &domain.TallyMismatchError{Detail: in.Diff(out)}
	}
	v.log.Debug("tally verification passed", zap.Int("contests", len(in)))
	return nil
}
