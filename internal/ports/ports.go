// Package ports defines the interfaces that form the contract between the
// engine and the infrastructure layer. They enable dependency inversion
// and make the pipeline testable without touching the filesystem.
package ports

import (
	"context"
	"time"

	"github.com/electaudit/cvranon/internal/domain"
)

// TableReader loads a wide CVR table from a file. Implementations handle
// serialization concerns (CSV dialect sniffing, Parquet conversion); the
// engine only ever sees a domain.Table.
type TableReader interface {
	// Read loads the table at path. The returned table must carry the
	// source line terminator so output can round-trip.
	Read(ctx context.Context, path string) (*domain.Table, error)
}

// TableWriter persists a wide CVR table to a file.
type TableWriter interface {
	// Write emits the table at path using the table's line terminator.
	Write(ctx context.Context, path string, t *domain.Table) error
}

// Stage is a named pipeline stage that can verify its own configuration
// before a run starts. Execution signatures are stage-specific; the
// shared surface is identification and preflight validation.
type Stage interface {
	// Name returns a unique identifier for logging and metrics.
	Name() string

	// Validate checks that the stage is properly configured.
	Validate() error
}

// MetricsCollector records pipeline metrics. A nil-safe no-op
// implementation is acceptable; the engine never requires metrics to run.
type MetricsCollector interface {
	// RecordLatency records the execution time of a pipeline stage.
	RecordLatency(stage string, d time.Duration)

	// RecordCounter increments a named counter.
	RecordCounter(metric string, value float64, labels map[string]string)

	// SetGauge sets a named gauge value.
	SetGauge(metric string, value float64, labels map[string]string)
}
