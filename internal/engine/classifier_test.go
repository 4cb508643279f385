package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electaudit/cvranon/internal/domain"
)

func TestClassifierSplitsRareAndCommon(t *testing.T) {
	var rows []domain.BallotRow
	id := 0
	for i := 0; i < 5; i++ {
		id++
		rows = append(rows, alphaOnly(id, "P1", "A1"))
	}
	for i := 0; i < 2; i++ {
		id++
		rows = append(rows, betaOnly(id, "P2", "B1"))
	}
	tbl := testTable(t, rows...)

	cls := classify(t, tbl, testConfig(4))

	require.Len(t, cls.RareIdx, 1)
	require.Len(t, cls.CommonIdx, 1)

	common := cls.Arena.Get(cls.CommonIdx[0])
	rare := cls.Arena.Get(cls.RareIdx[0])
	assert.Equal(t, 5, common.Size())
	assert.Equal(t, 2, rare.Size())
	assert.True(t, rare.Rare)
	assert.True(t, rare.RareDerived)
	assert.False(t, common.RareDerived)

	// Names encode contest count, rarity, and a sequence number.
	assert.Equal(t, "1C-COMMON-1", common.Name)
	assert.Equal(t, "1C-RARE-1", rare.Name)
}

func TestClassifierGroupsByPatternNotLabel(t *testing.T) {
	// Same contest pattern under three different precinct labels.
	tbl := testTable(t,
		alphaOnly(1, "P1", "A1"),
		alphaOnly(2, "P2", "A2"),
		alphaOnly(3, "P3", "A1"),
	)

	cls := classify(t, tbl, testConfig(2))

	assert.Len(t, cls.CommonIdx, 1, "labels must not split a logical style")
	assert.Empty(t, cls.RareIdx)

	require.NotEmpty(t, cls.Warnings)
	w := cls.Warnings[0]
	assert.Equal(t, domain.WarnLeakage, w.Kind)
	assert.Contains(t, w.Detail, "style labels")
	assert.Contains(t, w.Detail, "p1", "labels are case-folded in the report")
}

func TestClassifierNoLeakageForConsistentLabels(t *testing.T) {
	tbl := testTable(t,
		alphaOnly(1, "P1", "A1"),
		alphaOnly(2, "P1", "A2"),
	)

	cls := classify(t, tbl, testConfig(2))
	assert.Empty(t, cls.Warnings)
}

func TestClassifierCaseOnlyLabelsDoNotLeak(t *testing.T) {
	tbl := testTable(t,
		alphaOnly(1, "p1", "A1"),
		alphaOnly(2, "P1", "A2"),
	)

	cls := classify(t, tbl, testConfig(2))
	assert.Empty(t, cls.Warnings, "case-only label variants are not leakage")
}

func TestClassifierRejectsEmptyTable(t *testing.T) {
	tbl := testTable(t)
	_, err := NewClassifier(testConfig(10), zapNop()).Classify(tbl)
	assert.ErrorIs(t, err, domain.ErrInvalidTable)
}

func TestClassifierDeterministicOrder(t *testing.T) {
	rows := []domain.BallotRow{
		betaOnly(1, "P2", "B1"),
		alphaOnly(2, "P1", "A1"),
		betaOnly(3, "P2", "B2"),
	}
	tbl := testTable(t, rows...)

	first := classify(t, tbl, testConfig(2))
	second := classify(t, tbl, testConfig(2))

	require.Equal(t, first.RareIdx, second.RareIdx)
	require.Equal(t, first.CommonIdx, second.CommonIdx)
	// Beta style encountered first keeps the first arena slot.
	assert.Equal(t, []int{0, 2}, first.Arena.Get(0).Rows)
}
