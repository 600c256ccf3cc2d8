// Package cbcr models Country-by-Country Reporting (CbCR) extracts and loads
// them from the tabular formats the public database is distributed in.
//
// A Dataset is an ordered collection of firm-year Observations restricted to a
// single jurisdiction. Each numeric attribute is a nullable Cell so that the
// downstream pipeline can distinguish a reported zero from an unreported value,
// which matters for both log transforms and missing-value imputation.
//
// Loaders accept both the raw public database headers ("Profit (Loss) before
// Income Tax", "Income Tax Accrued", ...) and the short snake_case schema used
// by pre-filtered extracts. A missing required column is a schema error, never
// a silently empty column.
package cbcr
