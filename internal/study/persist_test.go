package study

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cbcrcli/internal/cbcr"
)

func studyResults(t *testing.T) []*RunResult {
	t.Helper()
	analyzer := NewAnalyzer(nil)

	imputed, err := analyzer.Run(context.Background(), patchyControlsDataset(60), DefaultRunConfig(cbcr.TaxAccrued, MethodImputed))
	require.NoError(t, err)

	baseline, err := analyzer.Run(context.Background(), completeCaseDataset(80), DefaultRunConfig(cbcr.TaxPaid, MethodBaseline))
	require.NoError(t, err)

	return []*RunResult{baseline, imputed}
}

func TestSaveSummaryCSV(t *testing.T) {
	results := studyResults(t)
	path := filepath.Join(t.TempDir(), "summary", "study_summary.csv")

	require.NoError(t, SaveSummaryCSV(results, path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus one row per run")

	header := records[0]
	assert.Equal(t, "Jurisdiction", header[1])
	assert.Equal(t, "SampleSize", header[4])

	// Rows are sorted by jurisdiction: DEU before ITA
	assert.Equal(t, "DEU", records[1][1])
	assert.Equal(t, string(MethodImputed), records[1][3])
	assert.Equal(t, "ITA", records[2][1])
	assert.Equal(t, string(MethodBaseline), records[2][3])
}

func TestSaveSummaryCSV_Empty(t *testing.T) {
	err := SaveSummaryCSV(nil, filepath.Join(t.TempDir(), "summary.csv"))
	require.Error(t, err)
}

func TestSaveWorkbook(t *testing.T) {
	results := studyResults(t)
	path := filepath.Join(t.TempDir(), "reports", "study_results.xlsx")

	require.NoError(t, SaveWorkbook(results, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Len(t, sheets, 2)
	assert.Contains(t, sheets, "DEU_accrued_imputed")
	assert.Contains(t, sheets, "ITA_paid_baseline")

	rows, err := f.GetRows("DEU_accrued_imputed")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "Jurisdiction", rows[0][0])
	assert.Equal(t, "DEU", rows[0][1])
}
