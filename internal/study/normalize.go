package study

import "cbcrcli/internal/cbcr"

// NormalizeZeros reclassifies exact zeros in the three control columns as
// missing cells. A zero employee count or asset figure is an unreported value
// in this extract, and ln(0) is undefined, so the rewrite has to happen before
// any logarithm is computed and before the imputer sees its regression
// targets. Other columns are untouched; row count never changes.
func NormalizeZeros(ds *cbcr.Dataset) int {
	rewritten := 0
	for i := range ds.Observations {
		o := &ds.Observations[i]
		for _, cell := range []*cbcr.Cell{&o.Employees, &o.TangibleAssets, &o.RelatedRevenues} {
			if cell.Observed() && cell.Value == 0 {
				*cell = cbcr.Absent()
				rewritten++
			}
		}
	}
	return rewritten
}

// DropIncomplete applies listwise deletion: every observation with a missing
// cell in profit, the selected tax figure or any control is removed. This is
// the complete-case baseline the imputed method is compared against.
func DropIncomplete(ds *cbcr.Dataset, taxType cbcr.TaxType) int {
	kept := ds.Observations[:0]
	dropped := 0
	for _, o := range ds.Observations {
		if o.Complete(taxType) {
			kept = append(kept, o)
		} else {
			dropped++
		}
	}
	ds.Observations = kept
	return dropped
}
