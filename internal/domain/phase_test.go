package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseTransitions(t *testing.T) {
	t.Run("straight line forward", func(t *testing.T) {
		order := []Phase{
			PhaseClassified, PhaseMerged, PhaseQuotaFilled, PhaseBalanced,
			PhaseAggregated, PhaseVerified, PhaseDelivered,
		}
		p := PhasePending
		for _, next := range order {
			var err error
			p, err = p.Advance(next)
			require.NoError(t, err, "advance to %s", next)
		}
		assert.True(t, p.Terminal())
	})

	t.Run("no skipping", func(t *testing.T) {
		_, err := PhasePending.Advance(PhaseMerged)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("no backward transitions", func(t *testing.T) {
		_, err := PhaseAggregated.Advance(PhaseMerged)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("any phase may reject", func(t *testing.T) {
		for _, p := range []Phase{PhasePending, PhaseClassified, PhaseVerified} {
			next, err := p.Advance(PhaseRejected)
			require.NoError(t, err)
			assert.Equal(t, PhaseRejected, next)
		}
	})

	t.Run("terminal phases are final", func(t *testing.T) {
		_, err := PhaseDelivered.Advance(PhaseRejected)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = PhaseRejected.Advance(PhaseClassified)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestErrorTaxonomy(t *testing.T) {
	t.Run("insufficient data", func(t *testing.T) {
		err := &InsufficientDataError{RareBallots: 4, MinBallots: 10}
		assert.ErrorIs(t, err, ErrInsufficientData)
		assert.Contains(t, err.Error(), "4 rare ballots")
	})

	t.Run("invariant violation", func(t *testing.T) {
		err := &InvariantViolationError{Group: "2C-RARE-1", Size: 7, MinBallots: 10}
		assert.ErrorIs(t, err, ErrInvariantViolation)
		assert.Contains(t, err.Error(), "2C-RARE-1")
	})

	t.Run("tally mismatch", func(t *testing.T) {
		err := &TallyMismatchError{Detail: "Mayor/Ann: 5 != 6"}
		assert.ErrorIs(t, err, ErrTallyMismatch)
		assert.Contains(t, err.Error(), "Mayor/Ann")
	})

	t.Run("warning formatting", func(t *testing.T) {
		w := Warning{Kind: WarnLowCoverage, Contest: "Assessor", Detail: "3 of 10 exposures"}
		assert.Contains(t, w.String(), "low_coverage")
		assert.Contains(t, w.String(), "Assessor")
	})
}
