package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patternTable(t *testing.T) *Table {
	t.Helper()
	prefix := make([]string, 8)
	tbl, err := NewTable(
		append(append([]string{}, prefix...), "", "", "", ""),
		append(append([]string{}, prefix...), "Alpha", "Alpha", "Beta", "Beta"),
		append(append([]string{}, prefix...), "A1", "A2", "B1", "B2"),
		append(append([]string{}, prefix...), "A1", "A2", "B1", "B2"),
		nil, 8, 6)
	require.NoError(t, err)
	return tbl
}

func TestExtractPattern(t *testing.T) {
	tbl := patternTable(t)
	prefix := []string{"1", "1", "1", "1", "imp", "Mail", "P1", "BT"}

	tests := []struct {
		name  string
		votes []string
		want  ContestPattern
	}{
		{"both contests", []string{"1", "0", "0", "1"}, "11"},
		{"first contest only", []string{"0", "1", "", ""}, "10"},
		{"second contest only", []string{"", "", "1", "0"}, "01"},
		{"no contests", []string{"", "", "", ""}, "00"},
		{"garbage still marks presence", []string{"N/A", "", "", ""}, "10"},
		{"ragged row", []string{"1"}, "10"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			row := BallotRow(append(append([]string{}, prefix...), tc.votes...))
			assert.Equal(t, tc.want, tbl.ExtractPattern(row))
		})
	}

	t.Run("independent of style label", func(t *testing.T) {
		a := BallotRow{"1", "1", "1", "1", "i", "Mail", "P1", "BT", "1", "0", "", ""}
		b := BallotRow{"2", "1", "1", "2", "i", "Mail", "P999", "XX", "0", "1", "", ""}
		assert.Equal(t, tbl.ExtractPattern(a), tbl.ExtractPattern(b))
	})
}

func TestContestPattern(t *testing.T) {
	assert.Equal(t, 2, ContestPattern("101").ContestCount())
	assert.True(t, ContestPattern("101").Has(0))
	assert.False(t, ContestPattern("101").Has(1))
	assert.False(t, ContestPattern("101").Has(7), "out of range is absent")
	assert.Equal(t, ContestPattern("111"), Union("101", "010"))
	assert.Equal(t, ContestPattern("110"), Union("10", "110"))
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b ContestPattern
		want float64
	}{
		{"identical", "110", "110", 1},
		{"disjoint", "100", "010", 0},
		{"half overlap", "110", "100", 0.5},
		{"subset", "111", "100", 1.0 / 3.0},
		{"all-zero identical", "000", "000", 1},
		{"all-zero different length", "000", "0000", 0},
		{"zero against nonzero", "000", "100", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Jaccard(tc.a, tc.b), 1e-12)
			assert.InDelta(t, tc.want, Jaccard(tc.b, tc.a), 1e-12, "symmetric")
		})
	}
}
