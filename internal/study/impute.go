package study

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"cbcrcli/internal/cbcr"
	"cbcrcli/internal/errors"
)

// Imputer fills missing cells via chained-equations (round-robin regression)
// estimation. Each pass regresses every column that has missing cells on the
// other numeric columns over the currently-filled matrix, then re-predicts
// that column's missing cells. Passes repeat until the largest cell change
// drops below the tolerance or the iteration cap is reached.
//
// The estimation state (per-column coefficients) lives only inside Impute and
// is discarded once the dataset's cells are filled.
type Imputer struct {
	minValue      float64
	maxIterations int
	tolerance     float64
	order         ImputationOrder
	rng           *rand.Rand
	logger        *slog.Logger
}

// NewImputer creates an imputer from the run configuration
func NewImputer(cfg RunConfig, logger *slog.Logger) *Imputer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Imputer{
		minValue:      cfg.MinValue,
		maxIterations: cfg.MaxIterations,
		tolerance:     cfg.Tolerance,
		order:         cfg.Order,
		rng:           rand.New(rand.NewSource(cfg.Seed)),
		logger:        logger,
	}
}

const numImputed = 5

// numericCells returns pointers to the five numeric cells the imputer and the
// derivation stage operate on, in fixed column positions: profit, the selected
// tax figure, then the three controls.
func numericCells(o *cbcr.Observation, t cbcr.TaxType) [numImputed]*cbcr.Cell {
	tax := &o.TaxAccrued
	if t == cbcr.TaxPaid {
		tax = &o.TaxPaid
	}
	return [numImputed]*cbcr.Cell{
		&o.ProfitBeforeTax,
		tax,
		&o.Employees,
		&o.TangibleAssets,
		&o.RelatedRevenues,
	}
}

func imputedColumnNames(t cbcr.TaxType) [numImputed]string {
	return [numImputed]string{
		cbcr.ColProfitBeforeTax,
		t.Column(),
		cbcr.ColEmployees,
		cbcr.ColTangibleAssets,
		cbcr.ColRelatedRevenues,
	}
}

// Impute fills every missing cell among the five numeric columns in place.
// Row count is invariant: imputation never drops an observation. The result
// is bit-for-bit reproducible for a given dataset and configuration.
func (im *Imputer) Impute(ds *cbcr.Dataset, taxType cbcr.TaxType) (*ImputationReport, error) {
	n := ds.Len()
	names := imputedColumnNames(taxType)

	// Snapshot the matrix and missing mask
	data := make([][numImputed]float64, n)
	miss := make([][numImputed]bool, n)
	for i := range ds.Observations {
		cells := numericCells(&ds.Observations[i], taxType)
		for j, cell := range cells {
			if cell.Observed() {
				data[i][j] = cell.Value
			} else {
				miss[i][j] = true
			}
		}
	}

	// Bootstrap: per-column observed means; a column with nothing observed
	// has no regression target to start from and aborts the run.
	scale := 0.0
	missingRows := make([][]int, numImputed)
	for j := 0; j < numImputed; j++ {
		sum, count := 0.0, 0
		for i := 0; i < n; i++ {
			if miss[i][j] {
				missingRows[j] = append(missingRows[j], i)
				continue
			}
			sum += data[i][j]
			count++
			if abs := math.Abs(data[i][j]); abs > scale {
				scale = abs
			}
		}
		if count == 0 {
			return nil, errors.NewImputationError(
				fmt.Sprintf("column %s has no observed values", names[j]))
		}
		mean := sum / float64(count)
		for _, i := range missingRows[j] {
			data[i][j] = mean
		}
	}
	if scale == 0 {
		scale = 1
	}

	report := &ImputationReport{
		Rows:        n,
		CellsFilled: make(map[string]int, numImputed),
	}
	for j, rows := range missingRows {
		if len(rows) > 0 {
			report.CellsFilled[names[j]] = len(rows)
		}
	}
	if report.TotalFilled() == 0 {
		report.Converged = true
		return report, nil
	}

	// Default visiting order: ascending missing count, ties by position
	order := make([]int, 0, numImputed)
	for j := 0; j < numImputed; j++ {
		if len(missingRows[j]) > 0 {
			order = append(order, j)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(missingRows[order[a]]) < len(missingRows[order[b]])
	})

	threshold := im.tolerance * scale
	converged := false

	for iter := 1; iter <= im.maxIterations; iter++ {
		if im.order == OrderRandom {
			im.rng.Shuffle(len(order), func(a, b int) {
				order[a], order[b] = order[b], order[a]
			})
		}

		maxChange := 0.0
		for _, j := range order {
			change, err := im.estimateColumn(data, miss, j)
			if err != nil {
				return nil, errors.NewImputationError(
					fmt.Sprintf("regression for column %s: %v", names[j], err))
			}
			if change > maxChange {
				maxChange = change
			}
		}

		report.Iterations = iter
		im.logger.Debug("imputation pass complete",
			"iteration", iter,
			"max_change", maxChange,
			"threshold", threshold,
		)

		if maxChange < threshold {
			converged = true
			break
		}
	}
	report.Converged = converged

	// Write the filled cells back into the dataset
	for j, rows := range missingRows {
		for _, i := range rows {
			cells := numericCells(&ds.Observations[i], taxType)
			*cells[j] = cbcr.Num(data[i][j])
		}
	}

	im.logger.Info("imputation complete",
		"rows", n,
		"cells_filled", report.TotalFilled(),
		"iterations", report.Iterations,
		"converged", report.Converged,
	)

	return report, nil
}

// estimateColumn fits column j on the remaining columns over rows where j is
// observed, re-predicts j's missing cells and returns the largest absolute
// change among them.
func (im *Imputer) estimateColumn(data [][numImputed]float64, miss [][numImputed]bool, j int) (float64, error) {
	obsRows := 0
	for i := range data {
		if !miss[i][j] {
			obsRows++
		}
	}

	// Design: intercept plus the other four columns at their current values
	X := mat.NewDense(obsRows, numImputed, nil)
	y := mat.NewVecDense(obsRows, nil)
	r := 0
	for i := range data {
		if miss[i][j] {
			continue
		}
		X.Set(r, 0, 1)
		col := 1
		for k := 0; k < numImputed; k++ {
			if k == j {
				continue
			}
			X.Set(r, col, data[i][k])
			col++
		}
		y.SetVec(r, data[i][j])
		r++
	}

	beta, err := solveLeastSquares(X, y)
	if err != nil {
		return 0, err
	}

	maxChange := 0.0
	for i := range data {
		if !miss[i][j] {
			continue
		}
		pred := beta.AtVec(0)
		col := 1
		for k := 0; k < numImputed; k++ {
			if k == j {
				continue
			}
			pred += beta.AtVec(col) * data[i][k]
			col++
		}
		if pred < im.minValue {
			pred = im.minValue
		}
		if change := math.Abs(pred - data[i][j]); change > maxChange {
			maxChange = change
		}
		data[i][j] = pred
	}

	return maxChange, nil
}
