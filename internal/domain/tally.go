package domain

import (
	"github.com/google/go-cmp/cmp"
)

// ContestChoiceTally maps contest name to choice name to total votes.
// It must be invariant under anonymization: computed identically from the
// raw rows and from the published, partly aggregated rows.
//
// Zero contributions are not recorded, so a raw "0" mark and an absent
// cell produce identical tallies.
type ContestChoiceTally map[string]map[string]float64

// Add records n votes for a (contest, choice) pair. Zero contributions
// are dropped to keep the map canonical.
func (t ContestChoiceTally) Add(contest, choice string, n float64) {
	if n == 0 {
		return
	}
	byChoice, ok := t[contest]
	if !ok {
		byChoice = make(map[string]float64)
		t[contest] = byChoice
	}
	byChoice[choice] += n
	if byChoice[choice] == 0 {
		delete(byChoice, choice)
		if len(byChoice) == 0 {
			delete(t, contest)
		}
	}
}

// Total returns the total votes cast in a contest.
func (t ContestChoiceTally) Total(contest string) float64 {
	var sum float64
	for _, n := range t[contest] {
		sum += n
	}
	return sum
}

// Equal reports exact contest-by-contest, choice-by-choice equality.
func (t ContestChoiceTally) Equal(other ContestChoiceTally) bool {
	// Convert to the underlying map type so cmp compares structurally
	// instead of calling back into this Equal method.
	return cmp.Equal(map[string]map[string]float64(t), map[string]map[string]float64(other))
}

// Diff returns a human-readable description of the differences between
// two tallies, empty when they are equal.
func (t ContestChoiceTally) Diff(other ContestChoiceTally) string {
	return cmp.Diff(map[string]map[string]float64(t), map[string]map[string]float64(other))
}

// Tally computes the contest/choice totals of the given rows under the
// table's column metadata, treating "1"/"0" as individual marks and other
// numeric strings as pre-summed counts.
func (t *Table) Tally(rows []BallotRow) ContestChoiceTally {
	tally := make(ContestChoiceTally)
	for _, row := range rows {
		for _, col := range t.columns {
			if n := ParseVoteValue(row.Field(col.Index)).Number(); n != 0 {
				tally.Add(col.Contest, col.Choice, n)
			}
		}
	}
	return tally
}
