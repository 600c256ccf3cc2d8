package cbcr

// Canonical column names for the CbCR extract schema.
// Loaders map raw headers onto these; everything downstream uses them.
const (
	ColJurisdiction    = "jurisdiction_code"
	ColProfitBeforeTax = "profit_before_tax"
	ColTaxAccrued      = "tax_accrued"
	ColTaxPaid         = "tax_paid"
	ColEmployees       = "employees"
	ColTangibleAssets  = "tangible_assets"
	ColRelatedRevenues = "related_revenues"
)

// RequiredColumns lists the columns a usable extract must carry
var RequiredColumns = []string{
	ColJurisdiction,
	ColProfitBeforeTax,
	ColTaxAccrued,
	ColTaxPaid,
	ColEmployees,
	ColTangibleAssets,
	ColRelatedRevenues,
}

// TaxType selects which tax figure feeds the effective tax rate
type TaxType string

const (
	// TaxAccrued uses the income tax accrued column
	TaxAccrued TaxType = "accrued"
	// TaxPaid uses the income tax paid (cash) column
	TaxPaid TaxType = "paid"
)

// String returns the string representation of the tax type
func (t TaxType) String() string {
	return string(t)
}

// Column returns the canonical column name for the tax type
func (t TaxType) Column() string {
	if t == TaxPaid {
		return ColTaxPaid
	}
	return ColTaxAccrued
}

// IsValid checks whether the tax type is one of the known values
func (t TaxType) IsValid() bool {
	return t == TaxAccrued || t == TaxPaid
}

// Cell is a nullable numeric value. A reported zero and an unreported value
// are different things for both log transforms and imputation, so absence is
// tracked explicitly rather than encoded as 0 or NaN.
type Cell struct {
	Value   float64 `json:"value"`
	Missing bool    `json:"missing"`
}

// Num returns a Cell holding an observed value
func Num(v float64) Cell {
	return Cell{Value: v}
}

// Absent returns a missing Cell
func Absent() Cell {
	return Cell{Missing: true}
}

// Observed reports whether the cell holds a reported value
func (c Cell) Observed() bool {
	return !c.Missing
}

// Observation is one multinational-enterprise record for a jurisdiction-year.
// Derived fields are zero until the derivation stage populates them.
type Observation struct {
	Jurisdiction string `json:"jurisdiction"`
	Group        string `json:"group,omitempty"` // ultimate parent entity, when present
	Year         int    `json:"year,omitempty"`

	ProfitBeforeTax Cell `json:"profit_before_tax"`
	TaxAccrued      Cell `json:"tax_accrued"`
	TaxPaid         Cell `json:"tax_paid"`
	Employees       Cell `json:"employees"`
	TangibleAssets  Cell `json:"tangible_assets"`
	RelatedRevenues Cell `json:"related_revenues"`

	// Derived fields, populated by the derivation stage
	ETR               float64 `json:"etr"`
	ETRSq             float64 `json:"etr_sq"`
	LnProfit          float64 `json:"ln_profit"`
	LnEmployees       float64 `json:"ln_employees"`
	LnTangibleAssets  float64 `json:"ln_tangible_assets"`
	LnRelatedRevenues float64 `json:"ln_related_revenues"`
}

// Tax returns the tax cell selected by the tax type
func (o Observation) Tax(t TaxType) Cell {
	if t == TaxPaid {
		return o.TaxPaid
	}
	return o.TaxAccrued
}

// Complete reports whether all core numeric cells are observed for the given
// tax type. Listwise deletion keeps exactly the complete observations.
func (o Observation) Complete(t TaxType) bool {
	return o.ProfitBeforeTax.Observed() &&
		o.Tax(t).Observed() &&
		o.Employees.Observed() &&
		o.TangibleAssets.Observed() &&
		o.RelatedRevenues.Observed()
}

// Dataset is an ordered collection of observations sharing a jurisdiction.
// It is mutated in place through the pipeline stages and must not be modified
// after being handed to the model fitter.
type Dataset struct {
	Jurisdiction string        `json:"jurisdiction"`
	Observations []Observation `json:"observations"`
}

// Len returns the number of observations
func (d *Dataset) Len() int {
	return len(d.Observations)
}

// Clone returns a deep copy of the dataset. Runs over different tax types or
// methods each own their copy so no post-filter state leaks between them.
func (d *Dataset) Clone() *Dataset {
	obs := make([]Observation, len(d.Observations))
	copy(obs, d.Observations)
	return &Dataset{
		Jurisdiction: d.Jurisdiction,
		Observations: obs,
	}
}
