// Package domain contains pure, dependency-light domain models and types
// for the CVR anonymization engine.
package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Default column indices of the identifying prefix in a Dominion-style
// wide CVR export. The prefix layout is configurable at the engine level;
// these constants document the conventional shape.
const (
	ColCvrNumber       = 0
	ColTabulatorNum    = 1
	ColBatchID         = 2
	ColRecordID        = 3
	ColImprintedID     = 4
	ColCountingGroup   = 5
	ColPrecinctPortion = 6
	ColBallotType      = 7
)

// AggregatedMarker replaces the counting-group and ballot-type labels on
// synthetic aggregate rows.
const AggregatedMarker = "AGGREGATED"

// AggregateIDPrefix prefixes the sequential identifier assigned to each
// aggregate row, e.g. "AGGREGATED-3".
const AggregateIDPrefix = "AGGREGATED-"

// BallotRow is one data row of a CVR table: a fixed-length identifying
// prefix followed by one field per (contest, choice) column.
type BallotRow []string

// Clone returns an independent copy of the row. The engine never redacts
// an input row in place; synthetic rows are built from clones.
func (r BallotRow) Clone() BallotRow {
	out := make(BallotRow, len(r))
	copy(out, r)
	return out
}

// Field returns the trimmed value at index i, or "" when the row is too
// short. Ragged rows are common in real CVR exports.
func (r BallotRow) Field(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

// VoteKind discriminates the interpretations of a single vote cell.
type VoteKind uint8

const (
	// VoteAbsent means the contest was not on the ballot (empty cell).
	VoteAbsent VoteKind = iota

	// VoteMark is an individual ballot's "0" or "1".
	VoteMark

	// VoteCount is a pre-summed numeric count from an aggregate row.
	VoteCount

	// VoteInvalid is non-numeric garbage; present for pattern purposes,
	// zero for arithmetic.
	VoteInvalid
)

// VoteValue is the tagged interpretation of one vote cell. Cells are
// parsed once at ingestion so the scoring and tally code never touches
// raw strings.
type VoteValue struct {
	Kind   VoteKind
	Marked bool
	Count  float64
}

// ParseVoteValue interprets a raw vote cell.
// "" is Absent, "0"/"1" are individual marks, any other numeric string is
// a pre-summed count, and anything else is Invalid.
func ParseVoteValue(s string) VoteValue {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return VoteValue{Kind: VoteAbsent}
	case "0":
		return VoteValue{Kind: VoteMark, Marked: false}
	case "1":
		return VoteValue{Kind: VoteMark, Marked: true}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return VoteValue{Kind: VoteCount, Count: n}
	}
	return VoteValue{Kind: VoteInvalid}
}

// Present reports whether the cell indicates the contest appeared on the
// ballot. Any non-empty cell counts, including garbage.
func (v VoteValue) Present() bool { return v.Kind != VoteAbsent }

// Number returns the cell's arithmetic contribution to a vote sum.
func (v VoteValue) Number() float64 {
	switch v.Kind {
	case VoteMark:
		if v.Marked {
			return 1
		}
		return 0
	case VoteCount:
		return v.Count
	default:
		return 0
	}
}

// VoteColumn describes one (contest, choice) column of the vote matrix.
type VoteColumn struct {
	// Index is the absolute column index within a BallotRow.
	Index int

	// Contest is the contest name from the second header row.
	Contest string

	// Choice is the choice/candidate name from the third header row.
	Choice string

	// ContestOrd is the contest's position in the table's stable
	// (lexicographic) contest order; it addresses ContestPattern bits.
	ContestOrd int
}

// Table is an in-memory wide CVR table: the four header rows of the
// export format plus the ballot rows, with derived column metadata.
//
// Rows are never mutated after construction; pipeline stages address them
// by index and synthetic rows are built separately.
type Table struct {
	// VersionRow is the election/version metadata (row 1).
	VersionRow []string

	// ContestRow names the contest per vote column (row 2).
	ContestRow []string

	// ChoiceRow names the choice per vote column (row 3).
	ChoiceRow []string

	// HeaderRow holds the column headers (row 4).
	HeaderRow []string

	// Rows are the ballot (or aggregate) data rows.
	Rows []BallotRow

	// HeaderColumns is the count of identifying prefix columns.
	HeaderColumns int

	// StyleColumn is the index of the precinct/style label column.
	StyleColumn int

	// LineTerminator preserves the source file's line ending so output
	// round-trips byte-for-byte. Defaults to "\n".
	LineTerminator string

	contests []string
	columns  []VoteColumn
}

// NewTable builds a Table from the four header rows and the data rows and
// derives the vote-column metadata. The contest order is the lexicographic
// order of distinct contest names, independent of column order.
func NewTable(version, contests, choices, headers []string, rows []BallotRow, headerColumns, styleColumn int) (*Table, error) {
	if headerColumns < 1 {
		return nil, fmt.Errorf("%w: header column count %d", ErrInvalidTable, headerColumns)
	}
	if styleColumn < 0 || styleColumn >= headerColumns {
		return nil, fmt.Errorf("%w: style column %d outside identifying prefix of %d columns",
			ErrInvalidTable, styleColumn, headerColumns)
	}
	if len(contests) < headerColumns {
		return nil, fmt.Errorf("%w: contest row has %d columns, need at least %d",
			ErrInvalidTable, len(contests), headerColumns)
	}

	t := &Table{
		VersionRow:     version,
		ContestRow:     contests,
		ChoiceRow:      choices,
		HeaderRow:      headers,
		Rows:           rows,
		HeaderColumns:  headerColumns,
		StyleColumn:    styleColumn,
		LineTerminator: "\n",
	}

	seen := make(map[string]bool)
	for c := headerColumns; c < len(contests); c++ {
		name := strings.TrimSpace(contests[c])
		if name == "" {
			continue
		}
		if !seen[name] {
			seen[name] = true
			t.contests = append(t.contests, name)
		}
	}
	sort.Strings(t.contests)

	ord := make(map[string]int, len(t.contests))
	for i, name := range t.contests {
		ord[name] = i
	}

	for c := headerColumns; c < len(contests); c++ {
		name := strings.TrimSpace(contests[c])
		if name == "" {
			continue
		}
		choice := ""
		if c < len(choices) {
			choice = strings.TrimSpace(choices[c])
		}
		t.columns = append(t.columns, VoteColumn{
			Index:      c,
			Contest:    name,
			Choice:     choice,
			ContestOrd: ord[name],
		})
	}

	return t, nil
}

// Contests returns the distinct contest names in the table's stable order.
func (t *Table) Contests() []string { return t.contests }

// VoteColumns returns the vote-column metadata in column order.
func (t *Table) VoteColumns() []VoteColumn { return t.columns }

// StyleLabel returns the raw textual style label of a row.
func (t *Table) StyleLabel(r BallotRow) string { return r.Field(t.StyleColumn) }

// BallotTypeLabel returns the raw ballot-type label of a row, taken from
// the last identifying column when it is distinct from the style column.
func (t *Table) BallotTypeLabel(r BallotRow) string {
	col := t.HeaderColumns - 1
	if col == t.StyleColumn {
		return ""
	}
	return r.Field(col)
}
