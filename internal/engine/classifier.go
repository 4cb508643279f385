package engine

import (
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/electaudit/cvranon/internal/domain"
	"github.com/electaudit/cvranon/internal/ports"
)

var _ ports.Stage = (*Classifier)(nil)

// Classification is the result of grouping a table's rows by contest
// pattern: an arena of style groups split into rare and common, plus any
// label-leakage warnings detected along the way.
type Classification struct {
	// Arena owns every style group for the remainder of the run.
	Arena *domain.GroupArena

	// RareIdx are arena indices of rare groups in first-encountered order.
	RareIdx []int

	// CommonIdx are arena indices of common groups in first-encountered
	// order.
	CommonIdx []int

	// Warnings holds leakage advisories.
	Warnings []domain.Warning
}

// Classifier groups ballots by contest pattern and splits the groups into
// rare (size < k) and common (size >= k).
type Classifier struct {
	cfg Config
	log *zap.Logger
}

// NewClassifier creates a Classifier.
func NewClassifier(cfg Config, log *zap.Logger) *Classifier {
	return &Classifier{cfg: cfg, log: log}
}

// Name implements ports.Stage.
func (c *Classifier) Name() string { return "classify" }

// Validate implements ports.Stage.
func (c *Classifier) Validate() error { return c.cfg.Validate() }

// Classify buckets rows by contest pattern in table order, derives the
// descriptive style names, and cross-checks the raw style and ballot-type
// labels for information leakage.
//
// Grouping uses only the contest pattern, never the textual style label,
// so inconsistent or leaking source labels cannot split a logical style.
func (c *Classifier) Classify(t *domain.Table) (*Classification, error) {
	if len(t.Rows) == 0 {
		return nil, fmt.Errorf("%w: table has no ballot rows", domain.ErrInvalidTable)
	}

	arena := domain.NewGroupArena()
	byPattern := make(map[domain.ContestPattern]int)
	var order []int

	for rowIdx, row := range t.Rows {
		p := t.ExtractPattern(row)
		gi, ok := byPattern[p]
		if !ok {
			g := &domain.StyleGroup{Pattern: p, Patterns: []domain.ContestPattern{p}}
			gi = arena.Add(g)
			byPattern[p] = gi
			order = append(order, gi)
		}
		g := arena.Get(gi)
		g.Rows = append(g.Rows, rowIdx)
	}

	cls := &Classification{Arena: arena}
	rareSeq, commonSeq := 0, 0
	for _, gi := range order {
		g := arena.Get(gi)
		if g.Size() < c.cfg.MinBallots {
			rareSeq++
			g.Rare = true
			g.RareDerived = true
			g.Name = fmt.Sprintf("%dC-RARE-%d", g.Pattern.ContestCount(), rareSeq)
			cls.RareIdx = append(cls.RareIdx, gi)
		} else {
			commonSeq++
			g.Name = fmt.Sprintf("%dC-COMMON-%d", g.Pattern.ContestCount(), commonSeq)
			cls.CommonIdx = append(cls.CommonIdx, gi)
		}
		if w, leaked := c.leakCheck(t, g); leaked {
			cls.Warnings = append(cls.Warnings, w)
		}
	}

	c.log.Debug("classified styles",
		zap.Int("styles", len(order)),
		zap.Int("rare", len(cls.RareIdx)),
		zap.Int("common", len(cls.CommonIdx)),
		zap.Int("leakage_warnings", len(cls.Warnings)))

	return cls, nil
}

// leakCheck flags groups whose rows share one contest pattern but carry
// multiple distinct raw style or ballot-type labels. Such labeling can
// re-identify voters regardless of any aggregation performed here.
// Labels are case-folded before comparison so case-only variants do not
// raise false alarms.
func (c *Classifier) leakCheck(t *domain.Table, g *domain.StyleGroup) (domain.Warning, bool) {
	caser := cases.Fold()
	styles := make(map[string]bool)
	types := make(map[string]bool)
	for _, ri := range g.Rows {
		row := t.Rows[ri]
		if s := t.StyleLabel(row); s != "" {
			styles[caser.String(s)] = true
		}
		if bt := t.BallotTypeLabel(row); bt != "" {
			types[caser.String(bt)] = true
		}
	}
	leaking := styles
	kind := "style"
	if len(leaking) <= 1 {
		leaking = types
		kind = "ballot-type"
	}
	if len(leaking) <= 1 {
		return domain.Warning{}, false
	}

	labels := make([]string, 0, len(leaking))
	for s := range leaking {
		labels = append(labels, s)
	}
	sort.Strings(labels)

	// The edit distance between the leaking labels gives the operator a
	// sense of whether they differ by a typo or by genuinely distinct
	// naming.
	maxDist := 0
	for i := 0; i < len(labels); i++ {
		for j := i + 1; j < len(labels); j++ {
			if d := levenshtein.ComputeDistance(labels[i], labels[j]); d > maxDist {
				maxDist = d
			}
		}
	}

	return domain.Warning{
		Kind: domain.WarnLeakage,
		Detail: fmt.Sprintf("group %s carries %d distinct %s labels %v (max edit distance %d); source labeling may re-identify voters",
			g.Name, len(labels), kind, labels, maxDist),
	}, true
}
