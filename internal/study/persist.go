package study

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// SaveSummaryCSV writes the flat per-run summary consumed by report tooling:
// one row per run with sample size, fit quality and the key ETR coefficients.
func SaveSummaryCSV(results []*RunResult, outputPath string) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to save")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"RunID",
		"Jurisdiction",
		"TaxType",
		"Method",
		"SampleSize",
		"Linear_R2",
		"Linear_ETR",
		"Quadratic_R2",
		"Quadratic_ETR",
		"Quadratic_ETR_sq",
		"TurningPoint",
		"TurningPoint_InRange",
		"Imputation_Iterations",
		"Imputation_CellsFilled",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	sorted := sortedResults(results)
	for _, result := range sorted {
		if err := writer.Write(summaryRecord(result)); err != nil {
			return fmt.Errorf("write CSV record for %s: %w", result.Label(), err)
		}
	}

	return nil
}

// sortedResults orders runs by jurisdiction, tax type then method so output
// is stable regardless of how the caller scheduled the grid.
func sortedResults(results []*RunResult) []*RunResult {
	sorted := make([]*RunResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Jurisdiction != sorted[j].Jurisdiction {
			return sorted[i].Jurisdiction < sorted[j].Jurisdiction
		}
		if sorted[i].TaxType != sorted[j].TaxType {
			return sorted[i].TaxType < sorted[j].TaxType
		}
		return sorted[i].Method < sorted[j].Method
	})
	return sorted
}

func summaryRecord(result *RunResult) []string {
	record := []string{
		result.RunID,
		result.Jurisdiction,
		result.TaxType.String(),
		result.Method.String(),
		strconv.Itoa(result.SampleSize),
		formatFloat(result.Linear.R2),
	}

	if c, ok := result.Linear.Coefficient(RegETR); ok {
		record = append(record, formatFloat(c.Estimate))
	} else {
		record = append(record, "")
	}

	if q := result.Quadratic; q != nil {
		record = append(record, formatFloat(q.R2))
		etr, _ := q.Coefficient(RegETR)
		etrSq, _ := q.Coefficient(RegETRSq)
		record = append(record, formatFloat(etr.Estimate), formatFloat(etrSq.Estimate))
		if q.UTest != nil {
			record = append(record, formatFloat(q.UTest.TurningPoint), strconv.FormatBool(q.UTest.InRange))
		} else {
			record = append(record, "", "")
		}
	} else {
		record = append(record, "", "", "", "", "")
	}

	if imp := result.Imputation; imp != nil {
		record = append(record, strconv.Itoa(imp.Iterations), strconv.Itoa(imp.TotalFilled()))
	} else {
		record = append(record, "", "")
	}

	return record
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// SaveWorkbook writes the full results workbook: one sheet per run with the
// coefficient tables for both specifications, fit statistics and the U-test
// line for the quadratic fit.
func SaveWorkbook(results []*RunResult, outputPath string) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to save")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for _, result := range sortedResults(results) {
		if err := writeRunSheet(f, result); err != nil {
			return fmt.Errorf("write sheet for %s: %w", result.Label(), err)
		}
	}

	// Drop the default sheet so the workbook opens on the first run
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	return nil
}

func writeRunSheet(f *excelize.File, result *RunResult) error {
	// Excel sheet names cap at 31 characters
	sheet := result.Label()
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	row := 1
	writeRow := func(values ...interface{}) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := writeRow("Jurisdiction", result.Jurisdiction); err != nil {
		return err
	}
	if err := writeRow("Tax Type", result.TaxType.String()); err != nil {
		return err
	}
	if err := writeRow("Method", result.Method.String()); err != nil {
		return err
	}
	if err := writeRow("Sample Size", result.SampleSize); err != nil {
		return err
	}
	if imp := result.Imputation; imp != nil {
		if err := writeRow("Imputed Cells", imp.TotalFilled(), "Iterations", imp.Iterations, "Converged", imp.Converged); err != nil {
			return err
		}
	}

	models := []*FittedModel{result.Linear, result.Quadratic}
	for _, model := range models {
		if model == nil {
			continue
		}
		if err := writeRow(); err != nil {
			return err
		}
		if err := writeRow(fmt.Sprintf("%s specification", model.Spec), "R2", model.R2, "Adj R2", model.AdjR2, "N", model.N); err != nil {
			return err
		}
		if err := writeRow("Regressor", "Estimate", "Std Err", "t", "P>|t|"); err != nil {
			return err
		}
		for _, c := range model.Coefficients {
			if err := writeRow(c.Name, c.Estimate, c.StdErr, c.TStat, c.PValue); err != nil {
				return err
			}
		}
		if model.UTest != nil {
			inRange := "NO"
			if model.UTest.InRange {
				inRange = "YES"
			}
			if err := writeRow("U-test turning point", model.UTest.TurningPoint, "In ETR range?", inRange); err != nil {
				return err
			}
		}
	}

	if result.QuadraticNote != "" {
		if err := writeRow(); err != nil {
			return err
		}
		if err := writeRow("Quadratic specification skipped", result.QuadraticNote); err != nil {
			return err
		}
	}

	return nil
}
