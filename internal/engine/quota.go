package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/electaudit/cvranon/internal/domain"
	"github.com/electaudit/cvranon/internal/ports"
)

var _ ports.Stage = (*QuotaEnforcer)(nil)

// QuotaResult summarizes the quota enforcement stage.
type QuotaResult struct {
	// Borrowed counts ballots drawn from common groups.
	Borrowed int

	// Warnings holds low-coverage advisories for contests that could not
	// reach the threshold.
	Warnings []domain.Warning
}

// QuotaEnforcer ensures every contest appearing anywhere in the merged
// pool appears on at least k ballots within the pool, borrowing
// additional common-style ballots when it does not.
type QuotaEnforcer struct {
	cfg Config
	log *zap.Logger
}

// NewQuotaEnforcer creates a QuotaEnforcer.
func NewQuotaEnforcer(cfg Config, log *zap.Logger) *QuotaEnforcer {
	return &QuotaEnforcer{cfg: cfg, log: log}
}

// Name implements ports.Stage.
func (q *QuotaEnforcer) Name() string { return "quota" }

// Validate implements ports.Stage.
func (q *QuotaEnforcer) Validate() error { return q.cfg.Validate() }

// Enforce repeatedly borrows the best single donor ballot until every
// contest quota is met or no eligible donor remains. Donor score =
// CoverageWeight x (still-needed contests the ballot covers) plus one
// point per covered contest where the ballot would also reduce a vote
// imbalance. Shortfalls are reported, never fatal: a contest may be rare
// in the whole dataset, and excluding ballots is forbidden.
func (q *QuotaEnforcer) Enforce(ctx context.Context, cls *Classification, ps *poolState) (*QuotaResult, error) {
	res := &QuotaResult{}
	k := q.cfg.MinBallots

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		needed := q.needed(ps)
		if len(needed) == 0 {
			return res, nil
		}

		bestGroup, bestPos, bestScore := -1, -1, 0.0
		ps.donors(cls.CommonIdx, k, func(gi int, g *domain.StyleGroup) {
			cov := 0
			for _, ord := range needed {
				if g.Pattern.Has(ord) {
					cov++
				}
			}
			if cov == 0 {
				return
			}
			for pos, ri := range g.Rows {
				row := ps.t.Rows[ri]
				improvement := 0.0
				for _, ord := range needed {
					if g.Pattern.Has(ord) && ps.marksNonLeading(row, ord) {
						improvement++
					}
				}
				score := q.cfg.CoverageWeight*float64(cov) + improvement
				if score > bestScore {
					bestGroup, bestPos, bestScore = gi, pos, score
				}
			}
		})

		if bestGroup < 0 {
			for _, ord := range needed {
				contest := ps.t.Contests()[ord]
				res.Warnings = append(res.Warnings, domain.Warning{
					Kind:    domain.WarnLowCoverage,
					Contest: contest,
					Detail: fmt.Sprintf("only %d of %d required ballot exposures available in the aggregate pool",
						ps.exposure[ord], k),
				})
			}
			q.log.Debug("quota shortfall", zap.Int("contests", len(needed)))
			return res, nil
		}

		donor := cls.Arena.Get(bestGroup)
		rowIdx := ps.takeFrom(donor, bestPos)
		ps.place(rowIdx)
		res.Borrowed++
	}
}

// needed returns contest ordinals that appear in the pool but fall short
// of k exposures, in stable contest order.
func (q *QuotaEnforcer) needed(ps *poolState) []int {
	var out []int
	for ord, n := range ps.exposure {
		if n > 0 && n < q.cfg.MinBallots {
			out = append(out, ord)
		}
	}
	return out
}
