package engine

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/electaudit/cvranon/internal/domain"
)

func zapNop() *zap.Logger { return zap.NewNop() }

// Test fixture: two contests in stable order, Alpha (choices A1, A2) and
// Beta (B1, B2), behind the standard 8-column identifying prefix.
func testTable(t *testing.T, rows ...domain.BallotRow) *domain.Table {
	t.Helper()
	prefix := make([]string, 8)
	tbl, err := domain.NewTable(
		append(append([]string{}, prefix...), "", "", "", ""),
		append(append([]string{}, prefix...), "Alpha", "Alpha", "Beta", "Beta"),
		append(append([]string{}, prefix...), "A1", "A2", "B1", "B2"),
		append([]string{"CvrNumber", "TabulatorNum", "BatchId", "RecordId", "ImprintedId", "CountingGroup", "PrecinctPortion", "BallotType"}, "A1", "A2", "B1", "B2"),
		rows, 8, 6)
	require.NoError(t, err)
	return tbl
}

// ballot builds a data row with the standard prefix. votes are the four
// cells A1, A2, B1, B2.
func ballot(id int, style string, votes ...string) domain.BallotRow {
	seq := strconv.Itoa(id)
	row := domain.BallotRow{seq, "1", "1", seq, "IMP-" + seq, "Mail", style, style}
	return append(row, votes...)
}

// alphaOnly votes in Alpha only; marked selects A1 or A2.
func alphaOnly(id int, style string, choice string) domain.BallotRow {
	switch choice {
	case "A1":
		return ballot(id, style, "1", "0", "", "")
	default:
		return ballot(id, style, "0", "1", "", "")
	}
}

// betaOnly votes in Beta only.
func betaOnly(id int, style string, choice string) domain.BallotRow {
	switch choice {
	case "B1":
		return ballot(id, style, "", "", "1", "0")
	default:
		return ballot(id, style, "", "", "0", "1")
	}
}

// both votes in both contests.
func both(id int, style string, alpha, beta string) domain.BallotRow {
	a1, a2 := "1", "0"
	if alpha != "A1" {
		a1, a2 = "0", "1"
	}
	b1, b2 := "1", "0"
	if beta != "B1" {
		b1, b2 = "0", "1"
	}
	return ballot(id, style, a1, a2, b1, b2)
}

// classify is a convenience wrapper for stage tests.
func classify(t *testing.T, tbl *domain.Table, cfg Config) *Classification {
	t.Helper()
	cls, err := NewClassifier(cfg, zapNop()).Classify(tbl)
	require.NoError(t, err)
	return cls
}

func testConfig(k int) Config {
	cfg := DefaultConfig()
	cfg.MinBallots = k
	return cfg
}
