package cbcr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxType(t *testing.T) {
	tests := []struct {
		name    string
		taxType TaxType
		column  string
		valid   bool
	}{
		{"accrued", TaxAccrued, ColTaxAccrued, true},
		{"paid", TaxPaid, ColTaxPaid, true},
		{"unknown", TaxType("deferred"), ColTaxAccrued, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.column, tt.taxType.Column())
			assert.Equal(t, tt.valid, tt.taxType.IsValid())
		})
	}
}

func TestCell(t *testing.T) {
	assert.True(t, Num(3.5).Observed())
	assert.True(t, Num(0).Observed(), "a reported zero is still observed")
	assert.False(t, Absent().Observed())
}

func TestObservation_Complete(t *testing.T) {
	full := Observation{
		ProfitBeforeTax: Num(100),
		TaxAccrued:      Num(25),
		TaxPaid:         Absent(),
		Employees:       Num(10),
		TangibleAssets:  Num(500),
		RelatedRevenues: Num(50),
	}

	assert.True(t, full.Complete(TaxAccrued))
	assert.False(t, full.Complete(TaxPaid), "paid tax is missing")

	noControls := full
	noControls.Employees = Absent()
	assert.False(t, noControls.Complete(TaxAccrued))
}

func TestDataset_Clone(t *testing.T) {
	ds := &Dataset{
		Jurisdiction: "DEU",
		Observations: []Observation{
			{ProfitBeforeTax: Num(100), Employees: Num(5)},
			{ProfitBeforeTax: Num(200), Employees: Absent()},
		},
	}

	clone := ds.Clone()
	clone.Observations[0].ProfitBeforeTax = Num(-1)
	clone.Observations[1].Employees = Num(99)

	assert.Equal(t, 100.0, ds.Observations[0].ProfitBeforeTax.Value, "clone mutation must not leak back")
	assert.True(t, ds.Observations[1].Employees.Missing)
	assert.Equal(t, ds.Jurisdiction, clone.Jurisdiction)
}
