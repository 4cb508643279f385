package engine

import (
	"fmt"
	"strings"

	"github.com/electaudit/cvranon/internal/domain"
)

// Report summarizes a completed (or rejected) anonymization run.
type Report struct {
	// RunID is the unique identifier of this execution.
	RunID string

	// Phase is the terminal pipeline phase.
	Phase domain.Phase

	// TotalRows is the number of input ballot rows.
	TotalRows int

	// OriginalStyles is the number of distinct contest patterns found.
	OriginalStyles int

	// RareStyles is the number of patterns below the threshold.
	RareStyles int

	// RareBallots is the number of ballots that belonged to rare styles.
	RareBallots int

	// AggregateRows is the number of synthetic aggregate rows produced.
	AggregateRows int

	// FinalStyles counts untouched common styles plus aggregates.
	FinalStyles int

	// BorrowedBallots counts ballots moved out of common styles across
	// the merge, quota, and balance stages.
	BorrowedBallots int

	// Warnings holds every advisory collected during the run.
	Warnings []domain.Warning
}

// Summary renders the operator-facing run summary.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Anonymization %s (run %s)\n", r.Phase, r.RunID)
	fmt.Fprintf(&b, "  Total rows processed: %d\n", r.TotalRows)
	fmt.Fprintf(&b, "  Original styles: %d\n", r.OriginalStyles)
	fmt.Fprintf(&b, "  Rare styles: %d (%d ballots)\n", r.RareStyles, r.RareBallots)
	fmt.Fprintf(&b, "  Aggregated rows created: %d\n", r.AggregateRows)
	fmt.Fprintf(&b, "  Ballots borrowed from common styles: %d\n", r.BorrowedBallots)
	fmt.Fprintf(&b, "  Final styles: %d\n", r.FinalStyles)
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "  warning: %s\n", w)
	}
	return b.String()
}
