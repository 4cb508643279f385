package domain

// StyleGroup is a set of ballots sharing one or more contest patterns.
// Groups are created by classification, mutated only by merge and borrow
// operations, and consumed when folded into a larger group.
type StyleGroup struct {
	// Name is a descriptive identifier used for reporting only; privacy
	// decisions never depend on it.
	Name string

	// Patterns lists the signatures folded into this group, in the order
	// they were absorbed.
	Patterns []ContestPattern

	// Pattern is the union of all absorbed signatures.
	Pattern ContestPattern

	// Rows holds indices into Table.Rows, in table order.
	Rows []int

	// Rare records the group's classification relative to the threshold.
	Rare bool

	// RareDerived marks groups that must be published as aggregates.
	// It is set on every rare group and survives merges and borrows.
	RareDerived bool
}

// Size returns the number of member ballots.
func (g *StyleGroup) Size() int { return len(g.Rows) }

// AbsorbPattern folds an additional signature into the group.
func (g *StyleGroup) AbsorbPattern(p ContestPattern) {
	g.Patterns = append(g.Patterns, p)
	g.Pattern = Union(g.Pattern, p)
}

// GroupArena is an index-addressable store of style groups. Consumed
// groups leave tombstones so indices remain stable across merges, which
// keeps greedy tie-breaking deterministic and testable.
type GroupArena struct {
	groups []*StyleGroup
}

// NewGroupArena returns an empty arena.
func NewGroupArena() *GroupArena { return &GroupArena{} }

// Add appends a group and returns its arena index.
func (a *GroupArena) Add(g *StyleGroup) int {
	a.groups = append(a.groups, g)
	return len(a.groups) - 1
}

// Get returns the group at index i, or nil when i is out of range or the
// group has been consumed.
func (a *GroupArena) Get(i int) *StyleGroup {
	if i < 0 || i >= len(a.groups) {
		return nil
	}
	return a.groups[i]
}

// Remove tombstones the group at index i.
func (a *GroupArena) Remove(i int) {
	if i >= 0 && i < len(a.groups) {
		a.groups[i] = nil
	}
}

// Alive returns the indices of live groups in ascending order.
func (a *GroupArena) Alive() []int {
	out := make([]int, 0, len(a.groups))
	for i, g := range a.groups {
		if g != nil {
			out = append(out, i)
		}
	}
	return out
}

// Merge folds the group at src into the group at dst: rows are
// concatenated, signatures unioned, and src is consumed. A merge
// involving a rare-derived side leaves dst rare-derived.
func (a *GroupArena) Merge(dst, src int) {
	d, s := a.Get(dst), a.Get(src)
	if d == nil || s == nil || dst == src {
		return
	}
	d.Rows = append(d.Rows, s.Rows...)
	for _, p := range s.Patterns {
		d.AbsorbPattern(p)
	}
	d.RareDerived = d.RareDerived || s.RareDerived
	a.Remove(src)
}
