package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the anonymization pipeline. Typed errors below wrap
// these so callers can branch with errors.Is.
var (
	// ErrInsufficientData indicates the input cannot be anonymized at the
	// configured threshold without excluding ballots, which is forbidden.
	ErrInsufficientData = errors.New("insufficient data to anonymize")

	// ErrInvariantViolation indicates an algorithm bug: a structural
	// guarantee failed after the responsible stage claimed completion.
	ErrInvariantViolation = errors.New("internal invariant violation")

	// ErrTallyMismatch indicates the published tallies differ from the
	// source tallies; the output must not be delivered.
	ErrTallyMismatch = errors.New("tally mismatch")

	// ErrInvalidTable indicates a malformed input table.
	ErrInvalidTable = errors.New("invalid table")

	// ErrInvalidTransition indicates a pipeline phase transition that the
	// state machine does not permit.
	ErrInvalidTransition = errors.New("invalid phase transition")
)

// InsufficientDataError reports that the rare-ballot pool is below the
// anonymity threshold and no common-style pool exists to borrow from.
type InsufficientDataError struct {
	// RareBallots is the total count of ballots still requiring aggregation.
	RareBallots int

	// MinBallots is the configured anonymity threshold k.
	MinBallots int
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d rare ballots below threshold %d with no common styles to borrow from",
		e.RareBallots, e.MinBallots)
}

// Unwrap supports errors.Is(err, ErrInsufficientData).
func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// InvariantViolationError reports a finalized group whose size is still
// below the threshold after the merge loop claimed completion.
type InvariantViolationError struct {
	// Group names the offending style group.
	Group string

	// Size is the group's actual ballot count.
	Size int

	// MinBallots is the configured anonymity threshold k.
	MinBallots int
}

// Error implements the error interface.
func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: group %s finalized with %d ballots, threshold %d",
		e.Group, e.Size, e.MinBallots)
}

// Unwrap supports errors.Is(err, ErrInvariantViolation).
func (e *InvariantViolationError) Unwrap() error { return ErrInvariantViolation }

// TallyMismatchError reports a difference between the source and
// published tallies. Delivery must be blocked even if the output file was
// already written to disk.
type TallyMismatchError struct {
	// Detail is a human-readable diff of the two tallies.
	Detail string
}

// Error implements the error interface.
func (e *TallyMismatchError) Error() string {
	return fmt.Sprintf("tally mismatch between input and output:\n%s", e.Detail)
}

// Unwrap supports errors.Is(err, ErrTallyMismatch).
func (e *TallyMismatchError) Unwrap() error { return ErrTallyMismatch }

// WarningKind classifies advisory conditions that do not halt processing
// but must be surfaced to the operator.
type WarningKind string

const (
	// WarnLeakage flags source style or ballot-type labels that carry
	// more information than the contest pattern, which may re-identify
	// voters independent of aggregation.
	WarnLeakage WarningKind = "leakage"

	// WarnLowCoverage flags a contest that cannot reach the threshold
	// number of exposures even after borrowing.
	WarnLowCoverage WarningKind = "low_coverage"

	// WarnBalance flags a contest that remains near-unanimous inside the
	// aggregate pool because no contrasting ballots were available.
	WarnBalance WarningKind = "balance"
)

// Warning is an advisory condition collected during a run and reported
// alongside a successful result.
type Warning struct {
	// Kind classifies the condition.
	Kind WarningKind

	// Contest names the affected contest, when applicable.
	Contest string

	// Detail is a human-readable description.
	Detail string
}

// String implements fmt.Stringer.
func (w Warning) String() string {
	if w.Contest == "" {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Detail)
	}
	return fmt.Sprintf("[%s] contest %q: %s", w.Kind, w.Contest, w.Detail)
}
