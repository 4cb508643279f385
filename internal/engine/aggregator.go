package engine

import (
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/electaudit/cvranon/internal/domain"
	"github.com/electaudit/cvranon/internal/ports"
)

var _ ports.Stage = (*Aggregator)(nil)

// Aggregator folds each finalized rare-derived group into one synthetic
// row: vote columns hold the arithmetic sum of the member rows and the
// identifying columns are blanked or replaced with the aggregate marker.
type Aggregator struct {
	cfg Config
	log *zap.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg Config, log *zap.Logger) *Aggregator {
	return &Aggregator{cfg: cfg, log: log}
}

// Name implements ports.Stage.
func (a *Aggregator) Name() string { return "aggregate" }

// Validate implements ports.Stage.
func (a *Aggregator) Validate() error { return a.cfg.Validate() }

// Aggregate produces one aggregate row per merged group, in arena order.
// Member rows are read, never mutated; the synthetic row is built fresh.
func (a *Aggregator) Aggregate(t *domain.Table, arena *domain.GroupArena, mergedIdx []int) ([]domain.BallotRow, error) {
	out := make([]domain.BallotRow, 0, len(mergedIdx))
	for seq, gi := range mergedIdx {
		g := arena.Get(gi)
		if g == nil || g.Size() == 0 {
			return nil, fmt.Errorf("%w: empty aggregate group at arena index %d", domain.ErrInvariantViolation, gi)
		}
		id := fmt.Sprintf("%s%d", domain.AggregateIDPrefix, seq+1)
		out = append(out, a.synthesize(t, g, id))
		g.Name = id
		a.log.Debug("synthesized aggregate", zap.String("id", id), zap.Int("ballots", g.Size()))
	}
	return out, nil
}

// synthesize builds the aggregate row for one group.
func (a *Aggregator) synthesize(t *domain.Table, g *domain.StyleGroup, id string) domain.BallotRow {
	numCols := a.cfg.HeaderColumns
	for _, ri := range g.Rows {
		if n := len(t.Rows[ri]); n > numCols {
			numCols = n
		}
	}

	row := make(domain.BallotRow, numCols)

	// Start from the first member's prefix, then redact every identifying
	// field.
	first := t.Rows[g.Rows[0]]
	for c := 0; c < a.cfg.HeaderColumns; c++ {
		row[c] = first.Field(c)
	}
	for c := domain.ColCvrNumber; c <= domain.ColImprintedID && c < a.cfg.HeaderColumns; c++ {
		row[c] = ""
	}
	row[domain.ColCvrNumber] = id
	if domain.ColCountingGroup < a.cfg.HeaderColumns {
		row[domain.ColCountingGroup] = domain.AggregatedMarker
	}
	row[a.cfg.StyleColumn] = id
	if bt := a.cfg.HeaderColumns - 1; bt != a.cfg.StyleColumn {
		row[bt] = domain.AggregatedMarker
	}

	for c := a.cfg.HeaderColumns; c < numCols; c++ {
		var total float64
		for _, ri := range g.Rows {
			total += domain.ParseVoteValue(t.Rows[ri].Field(c)).Number()
		}
		row[c] = formatVoteSum(total)
	}
	return row
}

// formatVoteSum renders integral sums without a decimal point and keeps
// the decimal value otherwise.
func formatVoteSum(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
