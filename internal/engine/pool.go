package engine

import (
	"github.com/electaudit/cvranon/internal/domain"
)

// poolState tracks the merged pool (the union of all rare-derived groups)
// during quota enforcement and unanimity balancing: per-contest exposure
// counts and per-choice running vote totals, updated incrementally as
// ballots are borrowed in.
type poolState struct {
	t         *domain.Table
	arena     *domain.GroupArena
	mergedIdx []int

	cols          []domain.VoteColumn
	colsByContest [][]int // contest ordinal -> positions into cols

	exposure []int     // contest ordinal -> ballots in pool exposing it
	votes    []float64 // position into cols -> pool vote total
}

// newPoolState scans the current members of the merged groups and builds
// the running exposure and vote totals.
func newPoolState(t *domain.Table, arena *domain.GroupArena, mergedIdx []int) *poolState {
	nContests := len(t.Contests())
	cols := t.VoteColumns()
	ps := &poolState{
		t:             t,
		arena:         arena,
		mergedIdx:     mergedIdx,
		cols:          cols,
		colsByContest: make([][]int, nContests),
		exposure:      make([]int, nContests),
		votes:         make([]float64, len(cols)),
	}
	for pos, col := range cols {
		ps.colsByContest[col.ContestOrd] = append(ps.colsByContest[col.ContestOrd], pos)
	}
	for _, gi := range mergedIdx {
		for _, ri := range arena.Get(gi).Rows {
			ps.account(ri)
		}
	}
	return ps
}

// account folds one row into the running exposure and vote totals.
func (ps *poolState) account(rowIdx int) {
	row := ps.t.Rows[rowIdx]
	p := ps.t.ExtractPattern(row)
	for ord := range ps.exposure {
		if p.Has(ord) {
			ps.exposure[ord]++
		}
	}
	for pos, col := range ps.cols {
		ps.votes[pos] += domain.ParseVoteValue(row.Field(col.Index)).Number()
	}
}

// place moves a borrowed ballot into the merged group whose union pattern
// is most similar to the ballot's own pattern (lowest group index on
// ties), then updates the running totals. Placement by similarity keeps
// coverage borrowing from degrading the merge stage's similarity
// objective.
func (ps *poolState) place(rowIdx int) {
	p := ps.t.ExtractPattern(ps.t.Rows[rowIdx])
	bestIdx, bestSim := -1, -1.0
	for _, gi := range ps.mergedIdx {
		if sim := domain.Jaccard(p, ps.arena.Get(gi).Pattern); sim > bestSim {
			bestIdx, bestSim = gi, sim
		}
	}
	g := ps.arena.Get(bestIdx)
	g.Rows = append(g.Rows, rowIdx)
	g.AbsorbPattern(p)
	ps.account(rowIdx)
}

// leadingChoice returns the column position holding the most pool votes
// in the contest, preferring the first column on ties. The second return
// is false when the contest has no choice columns.
func (ps *poolState) leadingChoice(ord int) (int, bool) {
	positions := ps.colsByContest[ord]
	if len(positions) == 0 {
		return 0, false
	}
	best := positions[0]
	for _, pos := range positions[1:] {
		if ps.votes[pos] > ps.votes[best] {
			best = pos
		}
	}
	return best, true
}

// contestVotes returns the pool's total and non-winning vote counts for a
// contest.
func (ps *poolState) contestVotes(ord int) (total, other float64) {
	lead, ok := ps.leadingChoice(ord)
	if !ok {
		return 0, 0
	}
	for _, pos := range ps.colsByContest[ord] {
		total += ps.votes[pos]
	}
	return total, total - ps.votes[lead]
}

// marksNonLeading reports whether the row casts a vote in the contest for
// a choice other than the current pool leader.
func (ps *poolState) marksNonLeading(row domain.BallotRow, ord int) bool {
	lead, ok := ps.leadingChoice(ord)
	if !ok {
		return false
	}
	for _, pos := range ps.colsByContest[ord] {
		if pos == lead {
			continue
		}
		if domain.ParseVoteValue(row.Field(ps.cols[pos].Index)).Number() > 0 {
			return true
		}
	}
	return false
}

// donors iterates the common groups still able to lose a ballot (size
// strictly above the threshold), in classification order, calling fn for
// each. fn receives the arena index and the group.
func (ps *poolState) donors(commonIdx []int, k int, fn func(gi int, g *domain.StyleGroup)) {
	for _, gi := range commonIdx {
		g := ps.arena.Get(gi)
		if g == nil || g.RareDerived || g.Size() <= k {
			continue
		}
		fn(gi, g)
	}
}

// takeFrom removes the row at position pos within the donor group,
// preserving order.
func (ps *poolState) takeFrom(g *domain.StyleGroup, pos int) int {
	rowIdx := g.Rows[pos]
	g.Rows = append(g.Rows[:pos], g.Rows[pos+1:]...)
	return rowIdx
}
