package study

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cbcrcli/internal/cbcr"
	"cbcrcli/internal/errors"
)

// Analyzer orchestrates single pipeline runs. It is stateless across runs:
// every invocation clones its input dataset, so callers may reuse one loaded
// extract for the whole tax-type × method grid.
type Analyzer struct {
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer logging to the given logger
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger}
}

// Run executes one pipeline run: normalize → method branch → derive → fit.
//
// The input dataset is never mutated. A schema-complete but unusable sample
// surfaces as an insufficient-data error; an unfittable quadratic
// specification on an otherwise viable sample is recorded on the result
// rather than failing the run.
func (a *Analyzer) Run(ctx context.Context, ds *cbcr.Dataset, cfg RunConfig) (*RunResult, error) {
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate run config: %w", err)
	}

	a.logger.InfoContext(ctx, "starting study run",
		"jurisdiction", ds.Jurisdiction,
		"tax_type", cfg.TaxType,
		"method", cfg.Method,
		"observations", ds.Len(),
	)

	working := ds.Clone()
	rewritten := NormalizeZeros(working)

	var impReport *ImputationReport
	switch cfg.Method {
	case MethodBaseline:
		dropped := DropIncomplete(working, cfg.TaxType)
		a.logger.InfoContext(ctx, "listwise deletion applied",
			"zeros_reclassified", rewritten,
			"rows_dropped", dropped,
			"rows_remaining", working.Len(),
		)
	case MethodImputed:
		report, err := NewImputer(cfg, a.logger).Impute(working, cfg.TaxType)
		if err != nil {
			a.logger.ErrorContext(ctx, "imputation failed", "error", err)
			return nil, fmt.Errorf("impute missing values: %w", err)
		}
		impReport = report
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled: %w", err)
	}

	droppedByFilter := DeriveFields(working, cfg.TaxType, cfg.ETRUpperBound)
	sampleSize := working.Len()
	a.logger.InfoContext(ctx, "admissibility filter applied",
		"rows_dropped", droppedByFilter,
		"sample_size", sampleSize,
	)

	linear, err := FitOLS(working, SpecLinear)
	if err != nil {
		if errors.IsInsufficientData(err) {
			a.logger.WarnContext(ctx, "sample too small for linear specification",
				"sample_size", sampleSize, "error", err)
		}
		return nil, fmt.Errorf("fit linear specification: %w", err)
	}

	result := &RunResult{
		RunID:        uuid.NewString(),
		Jurisdiction: ds.Jurisdiction,
		TaxType:      cfg.TaxType,
		Method:       cfg.Method,
		SampleSize:   sampleSize,
		Linear:       linear,
		Imputation:   impReport,
	}

	quadratic, err := FitOLS(working, SpecQuadratic)
	switch {
	case err == nil:
		result.Quadratic = quadratic
	case errors.IsInsufficientData(err):
		// The sample supports the linear fit but not the extra regressor;
		// record the loss instead of failing the run.
		result.QuadraticNote = err.Error()
		a.logger.WarnContext(ctx, "sample too small for quadratic specification",
			"sample_size", sampleSize, "error", err)
	default:
		return nil, fmt.Errorf("fit quadratic specification: %w", err)
	}

	a.logger.InfoContext(ctx, "study run complete",
		"run_id", result.RunID,
		"label", result.Label(),
		"sample_size", sampleSize,
		"linear_r2", linear.R2,
		"duration", time.Since(start),
	)

	return result, nil
}
