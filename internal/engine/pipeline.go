package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/electaudit/cvranon/internal/domain"
	"github.com/electaudit/cvranon/internal/ports"
)

// Pipeline is the straight-line anonymization batch computation:
// classify, merge, quota-fill, balance, aggregate, verify, deliver. All
// mutable state is owned by the single executing goroutine; only
// candidate scoring inside the merge stage fans out.
type Pipeline struct {
	cfg     Config
	log     *zap.Logger
	metrics ports.MetricsCollector
	tracer  trace.Tracer

	classifier *Classifier
	merger     *Merger
	quota      *QuotaEnforcer
	balancer   *Balancer
	aggregator *Aggregator
	verifier   *Verifier
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger attaches a structured logger. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithMetrics attaches a metrics collector. Metrics are optional; a nil
// collector disables them.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a Pipeline with a validated configuration.
func NewPipeline(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:    cfg,
		log:    zap.NewNop(),
		tracer: otel.Tracer("cvranon/engine"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.classifier = NewClassifier(cfg, p.log)
	p.merger = NewMerger(cfg, p.log)
	p.quota = NewQuotaEnforcer(cfg, p.log)
	p.balancer = NewBalancer(cfg, p.log)
	p.aggregator = NewAggregator(cfg, p.log)
	p.verifier = NewVerifier(p.log)

	for _, s := range p.stages() {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("stage %s: %w", s.Name(), err)
		}
	}
	return p, nil
}

func (p *Pipeline) stages() []ports.Stage {
	return []ports.Stage{p.classifier, p.merger, p.quota, p.balancer, p.aggregator, p.verifier}
}

// Run anonymizes the table and returns the output table and run report.
// The input table is never mutated. Output is deterministic for identical
// input and configuration.
//
// On any fatal condition the returned report carries the Rejected phase
// and no output table is produced.
func (p *Pipeline) Run(ctx context.Context, t *domain.Table) (*domain.Table, *Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Phase:     domain.PhasePending,
		TotalRows: len(t.Rows),
	}

	ctx, span := p.tracer.Start(ctx, "cvranon.run", trace.WithAttributes(
		attribute.String("run.id", report.RunID),
		attribute.Int("config.min_ballots", p.cfg.MinBallots),
		attribute.Int("table.rows", len(t.Rows)),
		attribute.Int("table.contests", len(t.Contests())),
	))
	defer span.End()

	out, err := p.run(ctx, t, report)
	if err != nil {
		report.Phase = domain.PhaseRejected
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		p.counter("runs_total", map[string]string{"status": "rejected"})
		return nil, report, err
	}

	report.Phase = domain.PhaseDelivered
	p.counter("runs_total", map[string]string{"status": "delivered"})
	p.log.Info("anonymization delivered",
		zap.String("run_id", report.RunID),
		zap.Int("rows", report.TotalRows),
		zap.Int("aggregates", report.AggregateRows),
		zap.Int("borrowed", report.BorrowedBallots),
		zap.Int("warnings", len(report.Warnings)))
	return out, report, nil
}

func (p *Pipeline) run(ctx context.Context, t *domain.Table, report *Report) (*domain.Table, error) {
	var (
		cls    *Classification
		merged *MergeResult
		ps     *poolState
		aggs   []domain.BallotRow
		err    error
	)

	err = p.stage(ctx, report, domain.PhaseClassified, p.classifier, func(ctx context.Context) error {
		cls, err = p.classifier.Classify(t)
		return err
	})
	if err != nil {
		return nil, err
	}
	report.OriginalStyles = len(cls.RareIdx) + len(cls.CommonIdx)
	report.RareStyles = len(cls.RareIdx)
	for _, gi := range cls.RareIdx {
		report.RareBallots += cls.Arena.Get(gi).Size()
	}
	report.Warnings = append(report.Warnings, cls.Warnings...)
	if p.cfg.Verbose {
		p.logStyles(cls)
	}

	err = p.stage(ctx, report, domain.PhaseMerged, p.merger, func(ctx context.Context) error {
		merged, err = p.merger.Merge(ctx, cls)
		return err
	})
	if err != nil {
		return nil, err
	}
	report.BorrowedBallots += merged.Borrowed

	ps = newPoolState(t, cls.Arena, merged.MergedIdx)

	err = p.stage(ctx, report, domain.PhaseQuotaFilled, p.quota, func(ctx context.Context) error {
		qr, qerr := p.quota.Enforce(ctx, cls, ps)
		if qerr != nil {
			return qerr
		}
		report.BorrowedBallots += qr.Borrowed
		report.Warnings = append(report.Warnings, qr.Warnings...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, report, domain.PhaseBalanced, p.balancer, func(ctx context.Context) error {
		br, berr := p.balancer.Balance(ctx, cls, ps)
		if berr != nil {
			return berr
		}
		report.BorrowedBallots += br.Borrowed
		report.Warnings = append(report.Warnings, br.Warnings...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, report, domain.PhaseAggregated, p.aggregator, func(ctx context.Context) error {
		aggs, err = p.aggregator.Aggregate(t, cls.Arena, merged.MergedIdx)
		return err
	})
	if err != nil {
		return nil, err
	}
	report.AggregateRows = len(aggs)

	outRows, untouchedStyles, err := p.assemble(t, cls, merged, aggs)
	if err != nil {
		return nil, err
	}
	report.FinalStyles = untouchedStyles + len(aggs)

	err = p.stage(ctx, report, domain.PhaseVerified, p.verifier, func(ctx context.Context) error {
		return p.verifier.Verify(t, outRows)
	})
	if err != nil {
		return nil, err
	}

	out, err := domain.NewTable(t.VersionRow, t.ContestRow, t.ChoiceRow, t.HeaderRow,
		outRows, t.HeaderColumns, t.StyleColumn)
	if err != nil {
		return nil, err
	}
	out.LineTerminator = t.LineTerminator
	return out, nil
}

// stage runs one pipeline step inside its own span, records latency, and
// advances the phase state machine.
func (p *Pipeline) stage(ctx context.Context, report *Report, next domain.Phase, s ports.Stage, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "cvranon."+s.Name())
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	if p.metrics != nil {
		p.metrics.RecordLatency(s.Name(), time.Since(start))
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return err
	}

	phase, err := report.Phase.Advance(next)
	if err != nil {
		return err
	}
	report.Phase = phase
	span.SetAttributes(attribute.String("pipeline.phase", phase.String()))
	return nil
}

// assemble merges the untouched common rows with the aggregate rows and
// sorts them for publication. It also enforces row conservation: every
// input ballot must land in exactly one output row or aggregate.
func (p *Pipeline) assemble(t *domain.Table, cls *Classification, merged *MergeResult, aggs []domain.BallotRow) ([]domain.BallotRow, int, error) {
	var outRows []domain.BallotRow
	untouchedStyles := 0
	untouchedBallots := 0
	for _, gi := range cls.CommonIdx {
		g := cls.Arena.Get(gi)
		if g == nil || g.RareDerived {
			continue
		}
		untouchedStyles++
		untouchedBallots += g.Size()
		for _, ri := range g.Rows {
			outRows = append(outRows, t.Rows[ri])
		}
	}

	pooled := 0
	for _, gi := range merged.MergedIdx {
		pooled += cls.Arena.Get(gi).Size()
	}
	if untouchedBallots+pooled != len(t.Rows) {
		return nil, 0, fmt.Errorf("%w: %d untouched + %d aggregated ballots != %d input rows",
			domain.ErrInvariantViolation, untouchedBallots, pooled, len(t.Rows))
	}

	outRows = append(outRows, aggs...)
	sortOutputRows(outRows)
	return outRows, untouchedStyles, nil
}

func (p *Pipeline) logStyles(cls *Classification) {
	for _, gi := range append(append([]int{}, cls.RareIdx...), cls.CommonIdx...) {
		g := cls.Arena.Get(gi)
		p.log.Info("style",
			zap.String("name", g.Name),
			zap.Int("ballots", g.Size()),
			zap.Bool("rare", g.Rare))
	}
}

func (p *Pipeline) counter(name string, labels map[string]string) {
	if p.metrics != nil {
		p.metrics.RecordCounter(name, 1, labels)
	}
}

// sortOutputRows orders published rows by ballot id: numeric ids first in
// numeric order, then non-numeric ids lexicographically, then aggregates
// by sequence number.
func sortOutputRows(rows []domain.BallotRow) {
	type key struct {
		class int
		num   int
		str   string
	}
	keyOf := func(r domain.BallotRow) key {
		id := r.Field(domain.ColCvrNumber)
		if rest, ok := strings.CutPrefix(id, domain.AggregateIDPrefix); ok {
			if n, err := strconv.Atoi(rest); err == nil {
				return key{class: 2, num: n}
			}
			return key{class: 3, str: id}
		}
		if n, err := strconv.Atoi(id); err == nil {
			return key{class: 0, num: n}
		}
		return key{class: 1, str: id}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := keyOf(rows[i]), keyOf(rows[j])
		if a.class != b.class {
			return a.class < b.class
		}
		if a.num != b.num {
			return a.num < b.num
		}
		return a.str < b.str
	})
}
