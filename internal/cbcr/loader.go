package cbcr

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"cbcrcli/internal/errors"
)

// LoadOptions controls how an extract is read and filtered
type LoadOptions struct {
	// Jurisdiction restricts the dataset to rows whose jurisdiction code
	// (or, for parent-level extracts, parent entity name) matches exactly.
	Jurisdiction string
	// Sheet names the worksheet to read from Excel workbooks.
	// Empty selects the first sheet.
	Sheet string
	// Logger receives load diagnostics; nil falls back to slog.Default().
	Logger *slog.Logger
}

// headerAliases maps raw extract headers onto the canonical column names.
// The public database ships verbose headers; pre-filtered extracts ship the
// short snake_case schema. Both are accepted, matched after trimming.
var headerAliases = map[string]string{
	"jur_code":          ColJurisdiction,
	"jurisdiction_code": ColJurisdiction,
	"Jurisdiction Code": ColJurisdiction,
	"upe_name":          ColJurisdiction,
	"Ultimate Parent Entity": ColJurisdiction,
	"UPE Name":               ColJurisdiction,

	"profit_before_tax":                  ColProfitBeforeTax,
	"Profit Before Tax":                  ColProfitBeforeTax,
	"Profit (Loss) before Income Tax":    ColProfitBeforeTax,
	"tax_accrued":                        ColTaxAccrued,
	"Income Tax Accrued":                 ColTaxAccrued,
	"tax_paid":                           ColTaxPaid,
	"Income Tax Paid":                    ColTaxPaid,
	"employees":                          ColEmployees,
	"Number of Employees":                ColEmployees,
	"tangible_assets":                    ColTangibleAssets,
	"Tangible Assets":                    ColTangibleAssets,
	"Tangible Assets other than Cash and Cash Equivalents": ColTangibleAssets,
	"related_revenues":       ColRelatedRevenues,
	"Related Party Revenues": ColRelatedRevenues,
}

// optional metadata columns carried through when present
const (
	colGroup = "group"
	colYear  = "year"
)

var metadataAliases = map[string]string{
	"mnc":   colGroup,
	"MNC":   colGroup,
	"group": colGroup,
	"year":  colYear,
	"Year":  colYear,
}

// LoadCSV reads a CSV extract, filters to the requested jurisdiction and
// projects the canonical column set. A missing required column is a schema
// error; nothing is written or cached.
func LoadCSV(path string, opts LoadOptions) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // ragged rows are tolerated, short rows read as missing

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV record: %w", err)
		}
		rows = append(rows, record)
	}

	return parseRows(rows, opts)
}

// LoadExcel reads an Excel workbook extract via excelize. The sheet defaults
// to the workbook's first sheet when opts.Sheet is empty.
func LoadExcel(path string, opts LoadOptions) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	return parseRows(rows, opts)
}

// parseRows turns raw header+data rows into a filtered, projected Dataset
func parseRows(rows [][]string, opts LoadOptions) (*Dataset, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if len(rows) == 0 {
		return nil, errors.NewSchemaError(ColJurisdiction)
	}

	columns, metaColumns := mapHeader(rows[0])
	for _, required := range RequiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, errors.NewSchemaError(required)
		}
	}

	ds := &Dataset{Jurisdiction: opts.Jurisdiction}
	skipped := 0

	for _, row := range rows[1:] {
		code := cellAt(row, columns[ColJurisdiction])
		if strings.TrimSpace(code) != opts.Jurisdiction {
			skipped++
			continue
		}

		obs := Observation{
			Jurisdiction:    opts.Jurisdiction,
			ProfitBeforeTax: parseCell(cellAt(row, columns[ColProfitBeforeTax])),
			TaxAccrued:      parseCell(cellAt(row, columns[ColTaxAccrued])),
			TaxPaid:         parseCell(cellAt(row, columns[ColTaxPaid])),
			Employees:       parseCell(cellAt(row, columns[ColEmployees])),
			TangibleAssets:  parseCell(cellAt(row, columns[ColTangibleAssets])),
			RelatedRevenues: parseCell(cellAt(row, columns[ColRelatedRevenues])),
		}
		if idx, ok := metaColumns[colGroup]; ok {
			obs.Group = strings.TrimSpace(cellAt(row, idx))
		}
		if idx, ok := metaColumns[colYear]; ok {
			if y, err := strconv.Atoi(strings.TrimSpace(cellAt(row, idx))); err == nil {
				obs.Year = y
			}
		}

		ds.Observations = append(ds.Observations, obs)
	}

	logger.Info("loaded extract",
		"jurisdiction", opts.Jurisdiction,
		"observations", ds.Len(),
		"rows_other_jurisdictions", skipped,
	)

	return ds, nil
}

// mapHeader resolves raw headers to canonical and metadata column indices.
// The first matching alias wins so jur_code outranks upe_name when both exist.
func mapHeader(header []string) (map[string]int, map[string]int) {
	columns := make(map[string]int)
	meta := make(map[string]int)

	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if canonical, ok := headerAliases[name]; ok {
			if _, taken := columns[canonical]; !taken {
				columns[canonical] = i
			}
			continue
		}
		if canonical, ok := metadataAliases[name]; ok {
			if _, taken := meta[canonical]; !taken {
				meta[canonical] = i
			}
		}
	}

	return columns, meta
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseCell coerces a raw string cell to a numeric Cell. Empty, textual and
// otherwise malformed cells become missing, matching coerce-to-NaN loading.
func parseCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "none") || strings.EqualFold(s, "nan") {
		return Absent()
	}
	// thousands separators show up in hand-exported extracts
	s = strings.ReplaceAll(s, ",", "")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Absent()
	}
	return Num(v)
}
