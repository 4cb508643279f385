package domain

// ContestPattern is the binary fingerprint of which contests appear on a
// ballot: one '1'/'0' byte per contest in the table's stable contest
// order. It is the privacy-relevant notion of "style", independent of any
// textual style label carried in the row.
type ContestPattern string

// ExtractPattern derives the contest-presence pattern of a row. A contest
// is present iff any of its choice columns holds a non-empty value.
func (t *Table) ExtractPattern(r BallotRow) ContestPattern {
	bits := make([]byte, len(t.contests))
	for i := range bits {
		bits[i] = '0'
	}
	for _, col := range t.columns {
		if bits[col.ContestOrd] == '1' {
			continue
		}
		if ParseVoteValue(r.Field(col.Index)).Present() {
			bits[col.ContestOrd] = '1'
		}
	}
	return ContestPattern(bits)
}

// ContestCount returns the number of contests present in the pattern.
func (p ContestPattern) ContestCount() int {
	n := 0
	for i := 0; i < len(p); i++ {
		if p[i] == '1' {
			n++
		}
	}
	return n
}

// Has reports whether the contest at ordinal ord is present.
func (p ContestPattern) Has(ord int) bool {
	return ord >= 0 && ord < len(p) && p[ord] == '1'
}

// Union returns the bitwise union of two patterns. Patterns of unequal
// length are aligned at the left; missing positions count as absent.
func Union(a, b ContestPattern) ContestPattern {
	if len(b) > len(a) {
		a, b = b, a
	}
	bits := []byte(string(a))
	for i := 0; i < len(b); i++ {
		if b[i] == '1' {
			bits[i] = '1'
		}
	}
	return ContestPattern(bits)
}

// Jaccard computes the Jaccard similarity of two contest-presence
// patterns: |intersection| / |union| over the '1' positions. Two all-zero
// patterns are similar (1) only when identical; an all-zero pattern is
// dissimilar (0) to everything else.
func Jaccard(a, b ContestPattern) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	var inter, union int
	for i := 0; i < n; i++ {
		av := i < len(a) && a[i] == '1'
		bv := i < len(b) && b[i] == '1'
		switch {
		case av && bv:
			inter++
			union++
		case av || bv:
			union++
		}
	}
	if union == 0 {
		if a == b {
			return 1
		}
		return 0
	}
	return float64(inter) / float64(union)
}
