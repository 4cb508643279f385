package engine

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/electaudit/cvranon/internal/domain"
	"github.com/electaudit/cvranon/internal/ports"
)

var _ ports.Stage = (*Merger)(nil)

// Scoring constants for candidate merges. A merge that reaches the
// anonymity threshold always outranks one that does not; among
// threshold-reaching merges, contest-similar styles are preferred because
// they minimize what membership in the aggregate reveals, and borrowing
// from a common style earns a small popularity bonus.
const (
	thresholdBonus   = 1000.0
	mergeSimWeight   = 10.0
	borrowBonus      = 2.0
	pendingSimWeight = 1.0
)

// MergeResult summarizes the merge stage.
type MergeResult struct {
	// MergedIdx are arena indices of the rare-derived groups, each now at
	// or above the threshold, in ascending arena order.
	MergedIdx []int

	// Borrowed counts ballots drawn from common groups during merging.
	Borrowed int

	// Merges counts merge and borrow operations performed.
	Merges int
}

// mergeCandidate is one scored merge option. Left is always a pending
// rare-derived group; Right is either another rare-derived group or a
// common donor group.
type mergeCandidate struct {
	left, right int
	borrow      bool
	score       float64
}

// Merger greedily merges rare style groups, borrowing from common groups
// when needed, until every rare-derived group holds at least k ballots.
type Merger struct {
	cfg Config
	log *zap.Logger
}

// NewMerger creates a Merger.
func NewMerger(cfg Config, log *zap.Logger) *Merger {
	return &Merger{cfg: cfg, log: log}
}

// Name implements ports.Stage.
func (m *Merger) Name() string { return "merge" }

// Validate implements ports.Stage.
func (m *Merger) Validate() error { return m.cfg.Validate() }

// Merge runs the greedy best-pair loop. Candidate scoring fans out across
// goroutines because scores are pure functions of the current group
// state; the merge decision and every state mutation stay on the calling
// goroutine, since each merge invalidates the remaining scores.
//
// Tie-break: equal scores resolve to the candidate with the lowest
// (left, right) arena index pair, making output independent of goroutine
// scheduling.
func (m *Merger) Merge(ctx context.Context, cls *Classification) (*MergeResult, error) {
	k := m.cfg.MinBallots
	res := &MergeResult{}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pending := m.pending(cls)
		if len(pending) == 0 {
			break
		}

		cands := m.candidates(cls, pending)
		if len(cands) == 0 {
			total := 0
			for _, gi := range pending {
				total += cls.Arena.Get(gi).Size()
			}
			return nil, &domain.InsufficientDataError{RareBallots: total, MinBallots: k}
		}

		if err := m.scoreAll(ctx, cls.Arena, cands); err != nil {
			return nil, err
		}

		best := cands[0]
		for _, c := range cands[1:] {
			if c.score > best.score {
				best = c
			}
		}

		m.apply(cls, best, res)
		res.Merges++
	}

	// The merge loop claims completion; anything still undersized is an
	// algorithm bug, not an input problem.
	for _, gi := range cls.Arena.Alive() {
		g := cls.Arena.Get(gi)
		if !g.RareDerived {
			continue
		}
		if g.Size() < k {
			return nil, &domain.InvariantViolationError{Group: g.Name, Size: g.Size(), MinBallots: k}
		}
		res.MergedIdx = append(res.MergedIdx, gi)
	}

	m.log.Debug("merge complete",
		zap.Int("aggregate_groups", len(res.MergedIdx)),
		zap.Int("merges", res.Merges),
		zap.Int("borrowed", res.Borrowed))

	return res, nil
}

// pending returns arena indices of rare-derived groups still below the
// threshold, in ascending order.
func (m *Merger) pending(cls *Classification) []int {
	var out []int
	for _, gi := range cls.Arena.Alive() {
		g := cls.Arena.Get(gi)
		if g.RareDerived && g.Size() < m.cfg.MinBallots {
			out = append(out, gi)
		}
	}
	return out
}

// candidates enumerates merge options in deterministic (left, right)
// order: pending-pending pairs once each, pending-to-settled rare pairs,
// and pending-to-common borrows.
func (m *Merger) candidates(cls *Classification, pending []int) []mergeCandidate {
	pendingSet := make(map[int]bool, len(pending))
	for _, gi := range pending {
		pendingSet[gi] = true
	}

	var cands []mergeCandidate
	for _, i := range pending {
		for _, j := range cls.Arena.Alive() {
			if j == i {
				continue
			}
			g := cls.Arena.Get(j)
			if pendingSet[j] && j < i {
				continue // pair already enumerated from the other side
			}
			cands = append(cands, mergeCandidate{left: i, right: j, borrow: !g.RareDerived})
		}
	}
	return cands
}

// scoreAll computes candidate scores concurrently. Group state is
// read-only for the duration; each goroutine writes only its own slot.
func (m *Merger) scoreAll(ctx context.Context, arena *domain.GroupArena, cands []mergeCandidate) error {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for idx := range cands {
		g.Go(func() error {
			cands[idx].score = m.score(arena, cands[idx])
			return nil
		})
	}
	return g.Wait()
}

// score rates one candidate merge per the greedy policy: threshold-
// reaching merges get a large constant plus a similarity-weighted bonus
// (plus the borrow bonus when drawing on a common style); merges that
// stay below the threshold score by combined size with a small similarity
// bonus.
func (m *Merger) score(arena *domain.GroupArena, c mergeCandidate) float64 {
	gi, gj := arena.Get(c.left), arena.Get(c.right)
	sim := domain.Jaccard(gi.Pattern, gj.Pattern)
	if c.borrow {
		// A common donor holds at least k ballots, which always covers
		// the shortfall of a pending group.
		return thresholdBonus + mergeSimWeight*sim + borrowBonus
	}
	combined := gi.Size() + gj.Size()
	if combined >= m.cfg.MinBallots {
		return thresholdBonus + mergeSimWeight*sim
	}
	return float64(combined) + pendingSimWeight*sim
}

// apply executes the selected merge or borrow.
func (m *Merger) apply(cls *Classification, c mergeCandidate, res *MergeResult) {
	arena := cls.Arena
	gi, gj := arena.Get(c.left), arena.Get(c.right)

	if c.borrow {
		need := m.cfg.MinBallots - gi.Size()
		if gj.Size()-need < m.cfg.MinBallots {
			// Taking only what is needed would leave a rare-looking
			// residue behind; take the whole donor instead.
			res.Borrowed += gj.Size()
			arena.Merge(c.left, c.right)
			m.log.Debug("absorbed entire common group",
				zap.String("into", gi.Name), zap.String("donor", gj.Name))
			return
		}
		moved := gj.Rows[:need]
		gj.Rows = gj.Rows[need:]
		gi.Rows = append(gi.Rows, moved...)
		gi.AbsorbPattern(gj.Pattern)
		res.Borrowed += need
		m.log.Debug("borrowed ballots",
			zap.String("into", gi.Name), zap.String("donor", gj.Name), zap.Int("count", need))
		return
	}

	// Merge the smaller group into the larger; ties keep the lower index.
	dst, src := c.left, c.right
	if gj.Size() > gi.Size() || (gj.Size() == gi.Size() && c.right < c.left) {
		dst, src = c.right, c.left
	}
	srcName := arena.Get(src).Name
	arena.Merge(dst, src)
	m.log.Debug("merged rare groups",
		zap.String("into", arena.Get(dst).Name), zap.String("from", srcName))
}
