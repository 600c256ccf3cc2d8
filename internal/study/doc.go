// Package study implements the CbCR profit-shifting analysis pipeline.
//
// The pipeline estimates the relationship between reported profits and the
// effective tax rate (ETR) for one jurisdiction and tax figure, comparing a
// complete-case baseline against chained-equations imputation of the control
// variables.
//
// # Pipeline Stages
//
// A run flows strictly forward through four stages:
//
//  1. Zero-to-missing normalization: reported zeros in the control columns are
//     reclassified as missing so they never reach a logarithm.
//  2. Method branch: listwise deletion (baseline) or round-robin regression
//     imputation of missing cells (imputed).
//  3. Derivation: ETR, ETR squared and log transforms, plus the admissibility
//     filter (positive profit, ETR within [0, bound), positive controls).
//  4. Model fitting: nested OLS specifications of log profit on ETR (linear)
//     and ETR + ETR squared (quadratic), both with log controls.
//
// # Architecture
//
//   - types.go: run configuration, fitted model and result structures
//   - normalize.go: zero-to-missing rewrite and listwise deletion
//   - impute.go: chained-equations missing-value imputation
//   - derive.go: derived fields and the admissibility filter
//   - regress.go: OLS estimation, fit statistics and the U-shape test
//   - analyzer.go: per-run orchestration
//   - persist.go: summary CSV and results workbook output
//
// # Usage Example
//
//	analyzer := study.NewAnalyzer(slog.Default())
//	cfg := study.DefaultRunConfig(cbcr.TaxAccrued, study.MethodImputed)
//	result, err := analyzer.Run(ctx, dataset, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("N=%d linear R2=%.4f\n", result.SampleSize, result.Linear.R2)
//
// Runs are independent: each owns a clone of the loaded dataset, so accrued
// and paid tax figures, and baseline and imputed methods, never share any
// post-filter state.
package study
