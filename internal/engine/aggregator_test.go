package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electaudit/cvranon/internal/domain"
)

func TestAggregatorSynthesizesAggregateRow(t *testing.T) {
	tbl := testTable(t,
		both(1, "P1", "A1", "B1"),
		both(2, "P1", "A1", "B2"),
		alphaOnly(3, "P1", "A2"),
	)
	arena := domain.NewGroupArena()
	gi := arena.Add(&domain.StyleGroup{
		Name: "2C-RARE-1", Rows: []int{0, 1, 2}, RareDerived: true,
	})

	rows, err := NewAggregator(testConfig(3), zapNop()).Aggregate(tbl, arena, []int{gi})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	agg := rows[0]
	assert.Equal(t, "AGGREGATED-1", agg.Field(domain.ColCvrNumber))
	assert.Equal(t, "AGGREGATED-1", agg.Field(6), "style column carries the aggregate id")
	assert.Equal(t, domain.AggregatedMarker, agg.Field(domain.ColCountingGroup))
	assert.Equal(t, domain.AggregatedMarker, agg.Field(7))
	for _, c := range []int{1, 2, 3, 4} {
		assert.Empty(t, agg.Field(c), "identifying column %d must be blank", c)
	}

	// A1=2, A2=1, B1=1, B2=1.
	assert.Equal(t, []string{"2", "1", "1", "1"}, []string(agg[8:]))

	assert.Equal(t, "AGGREGATED-1", arena.Get(gi).Name, "group renamed to its aggregate id")
}

func TestAggregatorSumsFractionalCounts(t *testing.T) {
	prefix := func(id string) []string {
		return []string{id, "1", "1", id, "i", "Mail", "P1", "P1"}
	}
	tbl := testTable(t,
		domain.BallotRow(append(prefix("1"), "0.25", "", "", "")),
		domain.BallotRow(append(prefix("2"), "0.25", "", "", "")),
		domain.BallotRow(append(prefix("3"), "N/A", "1", "", "")),
	)
	arena := domain.NewGroupArena()
	gi := arena.Add(&domain.StyleGroup{Rows: []int{0, 1, 2}, RareDerived: true})

	rows, err := NewAggregator(testConfig(3), zapNop()).Aggregate(tbl, arena, []int{gi})
	require.NoError(t, err)

	agg := rows[0]
	assert.Equal(t, "0.5", agg.Field(8), "fractional sums keep their decimal form")
	assert.Equal(t, "1", agg.Field(9), "unparseable cells contribute nothing")
	assert.Equal(t, "0", agg.Field(10))
}

func TestAggregatorPadsToWidestMember(t *testing.T) {
	short := domain.BallotRow{"1", "1", "1", "1", "i", "Mail", "P1", "P1", "1"}
	long := ballot(2, "P1", "0", "1", "1", "0")
	tbl := testTable(t, short, long)
	arena := domain.NewGroupArena()
	gi := arena.Add(&domain.StyleGroup{Rows: []int{0, 1}, RareDerived: true})

	rows, err := NewAggregator(testConfig(2), zapNop()).Aggregate(tbl, arena, []int{gi})
	require.NoError(t, err)

	agg := rows[0]
	assert.Len(t, agg, 12, "aggregate spans the widest member row")
	assert.Equal(t, "1", agg.Field(8))
	assert.Equal(t, "1", agg.Field(10))
	assert.Equal(t, "0", agg.Field(11), "columns past the short row read as absent")
}

func TestAggregatorRejectsEmptyGroup(t *testing.T) {
	tbl := testTable(t, alphaOnly(1, "P1", "A1"))
	arena := domain.NewGroupArena()
	gi := arena.Add(&domain.StyleGroup{RareDerived: true})

	_, err := NewAggregator(testConfig(2), zapNop()).Aggregate(tbl, arena, []int{gi})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestVerifierPassesOnConservedTallies(t *testing.T) {
	tbl := testTable(t,
		both(1, "P1", "A1", "B1"),
		both(2, "P1", "A2", "B2"),
		alphaOnly(3, "P2", "A1"),
	)

	// Aggregate the first two rows, pass the third through untouched.
	arena := domain.NewGroupArena()
	gi := arena.Add(&domain.StyleGroup{Rows: []int{0, 1}, RareDerived: true})
	aggs, err := NewAggregator(testConfig(2), zapNop()).Aggregate(tbl, arena, []int{gi})
	require.NoError(t, err)

	output := append([]domain.BallotRow{tbl.Rows[2]}, aggs...)
	assert.NoError(t, NewVerifier(zapNop()).Verify(tbl, output))
}

func TestVerifierRejectsAlteredTallies(t *testing.T) {
	tbl := testTable(t,
		both(1, "P1", "A1", "B1"),
		both(2, "P1", "A2", "B2"),
	)

	corrupted := tbl.Rows[1].Clone()
	corrupted[9] = "0" // drop the A2 vote
	output := []domain.BallotRow{tbl.Rows[0], corrupted}

	err := NewVerifier(zapNop()).Verify(tbl, output)
	require.ErrorIs(t, err, domain.ErrTallyMismatch)

	var tme *domain.TallyMismatchError
	require.ErrorAs(t, err, &tme)
	assert.Contains(t, tme.Detail, "Alpha")
}

func TestVerifierTreatsZeroAndAbsentAlike(t *testing.T) {
	tbl := testTable(t, ballot(1, "P1", "1", "0", "", ""))

	// Rewriting unmarked cells between "" and "0" is tally-neutral.
	rewritten := ballot(1, "P1", "1", "", "0", "0")
	assert.NoError(t, NewVerifier(zapNop()).Verify(tbl, []domain.BallotRow{rewritten}))
}
