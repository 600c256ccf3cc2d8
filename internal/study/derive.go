package study

import (
	"math"

	"cbcrcli/internal/cbcr"
)

// DeriveFields computes the effective tax rate and the log-transformed fields
// for every observation, then applies the admissibility filter in place:
//
//   - any remaining missing cell drops the observation (nothing to model)
//   - profit must be strictly positive (ln undefined otherwise)
//   - ETR must lie in [0, etrUpperBound); rates outside are refunds or errors
//   - every control must be strictly positive before its logarithm
//
// The filter is identical for baseline and imputed runs, which is what makes
// the two methods directly comparable. After this stage the sample size is
// fixed for the remainder of the run. Returns the number of dropped rows.
func DeriveFields(ds *cbcr.Dataset, taxType cbcr.TaxType, etrUpperBound float64) int {
	kept := ds.Observations[:0]
	dropped := 0

	for i := range ds.Observations {
		o := ds.Observations[i]
		if !admit(&o, taxType, etrUpperBound) {
			dropped++
			continue
		}
		kept = append(kept, o)
	}

	ds.Observations = kept
	return dropped
}

// admit populates the derived fields and reports whether the observation
// survives the admissibility filter.
func admit(o *cbcr.Observation, taxType cbcr.TaxType, etrUpperBound float64) bool {
	if !o.Complete(taxType) {
		return false
	}

	profit := o.ProfitBeforeTax.Value
	if profit <= 0 {
		return false
	}

	etr := o.Tax(taxType).Value / profit
	if etr < 0 || etr >= etrUpperBound {
		return false
	}

	employees := o.Employees.Value
	tangible := o.TangibleAssets.Value
	related := o.RelatedRevenues.Value
	if employees <= 0 || tangible <= 0 || related <= 0 {
		return false
	}

	o.ETR = etr
	o.ETRSq = etr * etr
	o.LnProfit = math.Log(profit)
	o.LnEmployees = math.Log(employees)
	o.LnTangibleAssets = math.Log(tangible)
	o.LnRelatedRevenues = math.Log(related)
	return true
}
