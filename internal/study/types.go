package study

import (
	"fmt"

	"cbcrcli/internal/cbcr"
)

// Method selects how missing control variables are handled before modeling
type Method string

const (
	// MethodBaseline drops every observation with a missing cell (complete-case)
	MethodBaseline Method = "baseline"
	// MethodImputed fills missing cells via chained-equations imputation
	MethodImputed Method = "imputed"
)

// String returns the string representation of the method
func (m Method) String() string {
	return string(m)
}

// IsValid checks whether the method is one of the known values
func (m Method) IsValid() bool {
	return m == MethodBaseline || m == MethodImputed
}

// Specification names the regressor set of a fitted model
type Specification int

const (
	// SpecLinear regresses log profit on ETR plus the log controls
	SpecLinear Specification = iota
	// SpecQuadratic adds ETR squared to the linear specification
	SpecQuadratic
)

// String returns the string representation of the specification
func (s Specification) String() string {
	switch s {
	case SpecLinear:
		return "linear"
	case SpecQuadratic:
		return "quadratic"
	default:
		return "unknown"
	}
}

// ImputationOrder controls the per-pass column visiting order of the imputer
type ImputationOrder string

const (
	// OrderAscending visits columns by ascending missing count, ties by
	// column position. Deterministic and seed-independent.
	OrderAscending ImputationOrder = "ascending"
	// OrderRandom reshuffles the column order each pass from the run seed.
	// Used for order-sensitivity checks; still reproducible per seed.
	OrderRandom ImputationOrder = "random"
)

// Default run parameters. MinValue keeps imputed cells above the smallest
// plausible reported value so their logarithms stay defined.
const (
	DefaultMinValue      = 0.1
	DefaultMaxIterations = 20
	DefaultSeed          = 42
	DefaultTolerance     = 1e-3
	DefaultETRUpperBound = 0.5
)

// RunConfig holds the full parameter set of one pipeline run.
// A given dataset plus config reproduces bit-identical results.
type RunConfig struct {
	TaxType cbcr.TaxType `json:"tax_type"`
	Method  Method       `json:"method"`

	// Imputation parameters (ignored for the baseline method)
	MinValue      float64         `json:"min_value"`
	MaxIterations int             `json:"max_iterations"`
	Seed          int64           `json:"seed"`
	Tolerance     float64         `json:"tolerance"`
	Order         ImputationOrder `json:"order"`

	// Admissibility filter ceiling: observations with ETR at or above this
	// are treated as refunds or data errors and dropped.
	ETRUpperBound float64 `json:"etr_upper_bound"`
}

// DefaultRunConfig returns a RunConfig with the reference study parameters
func DefaultRunConfig(taxType cbcr.TaxType, method Method) RunConfig {
	return RunConfig{
		TaxType:       taxType,
		Method:        method,
		MinValue:      DefaultMinValue,
		MaxIterations: DefaultMaxIterations,
		Seed:          DefaultSeed,
		Tolerance:     DefaultTolerance,
		Order:         OrderAscending,
		ETRUpperBound: DefaultETRUpperBound,
	}
}

// Validate checks the configuration for internal consistency
func (c RunConfig) Validate() error {
	if !c.TaxType.IsValid() {
		return fmt.Errorf("invalid tax type: %q", c.TaxType)
	}
	if !c.Method.IsValid() {
		return fmt.Errorf("invalid method: %q", c.Method)
	}
	if c.MinValue <= 0 {
		return fmt.Errorf("min value must be positive: %v", c.MinValue)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive: %d", c.MaxIterations)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive: %v", c.Tolerance)
	}
	if c.ETRUpperBound <= 0 || c.ETRUpperBound > 1 {
		return fmt.Errorf("etr upper bound must be in (0, 1]: %v", c.ETRUpperBound)
	}
	if c.Order != OrderAscending && c.Order != OrderRandom {
		return fmt.Errorf("invalid imputation order: %q", c.Order)
	}
	return nil
}

// Coefficient is one estimated regression parameter
type Coefficient struct {
	Name     string  `json:"name"`
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err"`
	TStat    float64 `json:"t_stat"`
	PValue   float64 `json:"p_value"`
}

// UTest summarizes the turning point of the quadratic specification:
// the ETR at which the fitted profit curve changes direction, and whether
// that point falls inside the sample's observed ETR range.
type UTest struct {
	TurningPoint float64 `json:"turning_point"`
	ETRMin       float64 `json:"etr_min"`
	ETRMax       float64 `json:"etr_max"`
	InRange      bool    `json:"in_range"`
}

// FittedModel is an immutable OLS fit of one specification
type FittedModel struct {
	Spec         Specification `json:"spec"`
	N            int           `json:"n"`
	Coefficients []Coefficient `json:"coefficients"`
	R2           float64       `json:"r2"`
	AdjR2        float64       `json:"adj_r2"`
	UTest        *UTest        `json:"u_test,omitempty"` // quadratic only
}

// Coefficient returns the named coefficient, if present
func (m *FittedModel) Coefficient(name string) (Coefficient, bool) {
	for _, c := range m.Coefficients {
		if c.Name == name {
			return c, true
		}
	}
	return Coefficient{}, false
}

// ImputationReport describes what the imputer did to the dataset.
// Row count never changes; only cell values do.
type ImputationReport struct {
	Rows        int            `json:"rows"`
	Iterations  int            `json:"iterations"`
	Converged   bool           `json:"converged"`
	CellsFilled map[string]int `json:"cells_filled"`
}

// TotalFilled returns the total number of imputed cells
func (r *ImputationReport) TotalFilled() int {
	total := 0
	for _, n := range r.CellsFilled {
		total += n
	}
	return total
}

// RunResult is the per-run summary record consumed by report tooling
type RunResult struct {
	RunID        string            `json:"run_id"`
	Jurisdiction string            `json:"jurisdiction"`
	TaxType      cbcr.TaxType      `json:"tax_type"`
	Method       Method            `json:"method"`
	SampleSize   int               `json:"sample_size"`
	Linear       *FittedModel      `json:"linear"`
	Quadratic    *FittedModel      `json:"quadratic,omitempty"`
	// QuadraticNote records why the quadratic slot is empty when the linear
	// specification fit but the quadratic one could not.
	QuadraticNote string            `json:"quadratic_note,omitempty"`
	Imputation    *ImputationReport `json:"imputation,omitempty"`
}

// Label returns a compact run identifier for sheet names and log lines
func (r *RunResult) Label() string {
	return fmt.Sprintf("%s_%s_%s", r.Jurisdiction, r.TaxType, r.Method)
}
