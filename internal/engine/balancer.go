package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/electaudit/cvranon/internal/domain"
	"github.com/electaudit/cvranon/internal/ports"
)

var _ ports.Stage = (*Balancer)(nil)

// BalanceResult summarizes the unanimity balancing stage.
type BalanceResult struct {
	// Borrowed counts contrasting ballots drawn from common groups.
	Borrowed int

	// Warnings holds advisories for contests that stayed near-unanimous
	// because no contrasting ballots were available.
	Warnings []domain.Warning
}

// Balancer detects contests whose vote distribution inside the aggregate
// pool is near-unanimous, which would functionally re-identify minority
// voters, and borrows contrasting ballots to break the pattern.
type Balancer struct {
	cfg Config
	log *zap.Logger
}

// NewBalancer creates a Balancer.
func NewBalancer(cfg Config, log *zap.Logger) *Balancer {
	return &Balancer{cfg: cfg, log: log}
}

// Name implements ports.Stage.
func (b *Balancer) Name() string { return "balance" }

// Validate implements ports.Stage.
func (b *Balancer) Validate() error { return b.cfg.Validate() }

// Balance flags every pool contest whose non-winning vote count is at or
// below UnanimitySlack, then greedily borrows common-style ballots that
// cast non-winning votes, preferring ballots that rebalance several
// flagged contests at once to minimize total disclosure. Borrowing for a
// contest stops once it accumulates ContrastTarget non-winning votes or
// donors run out.
func (b *Balancer) Balance(ctx context.Context, cls *Classification, ps *poolState) (*BalanceResult, error) {
	res := &BalanceResult{}

	flagged := b.flagged(ps)
	if len(flagged) == 0 {
		return res, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		remaining := b.below(ps, flagged)
		if len(remaining) == 0 {
			return res, nil
		}

		bestGroup, bestPos, bestScore := -1, -1, 0
		ps.donors(cls.CommonIdx, b.cfg.MinBallots, func(gi int, g *domain.StyleGroup) {
			for pos, ri := range g.Rows {
				row := ps.t.Rows[ri]
				fixes := 0
				for _, ord := range remaining {
					if ps.marksNonLeading(row, ord) {
						fixes++
					}
				}
				if fixes > bestScore {
					bestGroup, bestPos, bestScore = gi, pos, fixes
				}
			}
		})

		if bestGroup < 0 {
			for _, ord := range remaining {
				_, other := ps.contestVotes(ord)
				res.Warnings = append(res.Warnings, domain.Warning{
					Kind:    domain.WarnBalance,
					Contest: ps.t.Contests()[ord],
					Detail: fmt.Sprintf("aggregate pool remains near-unanimous (%g non-winning votes, target %d); no contrasting ballots available",
						other, b.cfg.ContrastTarget),
				})
			}
			b.log.Debug("balance shortfall", zap.Int("contests", len(remaining)))
			return res, nil
		}

		donor := cls.Arena.Get(bestGroup)
		rowIdx := ps.takeFrom(donor, bestPos)
		ps.place(rowIdx)
		res.Borrowed++
	}
}

// flagged returns the ordinals of pool contests that are near-unanimous
// at entry, in stable contest order.
func (b *Balancer) flagged(ps *poolState) []int {
	var out []int
	for ord, n := range ps.exposure {
		if n == 0 {
			continue
		}
		total, other := ps.contestVotes(ord)
		if total > 0 && other <= float64(b.cfg.UnanimitySlack) {
			out = append(out, ord)
		}
	}
	return out
}

// below filters the flagged set to contests still short of the contrast
// target.
func (b *Balancer) below(ps *poolState, flagged []int) []int {
	var out []int
	for _, ord := range flagged {
		if _, other := ps.contestVotes(ord); other < float64(b.cfg.ContrastTarget) {
			out = append(out, ord)
		}
	}
	return out
}
