package study

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"cbcrcli/internal/cbcr"
	"cbcrcli/internal/errors"
)

// Regressor names as they appear in fitted models and reports
const (
	RegIntercept         = "const"
	RegETR               = "ETR"
	RegETRSq             = "ETR_sq"
	RegLnEmployees       = "ln_employees"
	RegLnTangibleAssets  = "ln_tangible_assets"
	RegLnRelatedRevenues = "ln_related_revenues"
)

// svdRankTolerance is the relative singular-value cutoff for the
// rank-deficient fallback path.
const svdRankTolerance = 1e-12

func regressorNames(spec Specification) []string {
	names := []string{RegIntercept, RegETR}
	if spec == SpecQuadratic {
		names = append(names, RegETRSq)
	}
	return append(names, RegLnEmployees, RegLnTangibleAssets, RegLnRelatedRevenues)
}

func regressorValue(o *cbcr.Observation, name string) float64 {
	switch name {
	case RegIntercept:
		return 1
	case RegETR:
		return o.ETR
	case RegETRSq:
		return o.ETRSq
	case RegLnEmployees:
		return o.LnEmployees
	case RegLnTangibleAssets:
		return o.LnTangibleAssets
	case RegLnRelatedRevenues:
		return o.LnRelatedRevenues
	default:
		return 0
	}
}

// FitOLS fits the named specification to a derived, filtered dataset by
// ordinary least squares: log profit on ETR (and ETR squared for the
// quadratic specification) plus the three log controls and an intercept.
//
// The sample must exceed the regressor count by at least one so the fit has a
// residual degree of freedom; anything smaller is an insufficient-data error,
// never a degenerate model. The dataset is not mutated.
func FitOLS(ds *cbcr.Dataset, spec Specification) (*FittedModel, error) {
	names := regressorNames(spec)
	k := len(names)
	n := ds.Len()

	if n < k+1 {
		return nil, errors.NewInsufficientData(n, k)
	}

	X := mat.NewDense(n, k, nil)
	y := mat.NewVecDense(n, nil)
	for i := range ds.Observations {
		o := &ds.Observations[i]
		for col, name := range names {
			X.Set(i, col, regressorValue(o, name))
		}
		y.SetVec(i, o.LnProfit)
	}

	beta, xtxInv, err := fitDesign(X, y)
	if err != nil {
		return nil, fmt.Errorf("fit %s specification: %w", spec, err)
	}

	// Residual statistics
	var yhat mat.VecDense
	yhat.MulVec(X, beta)

	rss := 0.0
	for i := 0; i < n; i++ {
		resid := y.AtVec(i) - yhat.AtVec(i)
		rss += resid * resid
	}

	r2 := 0.0
	if tss := stat.Variance(y.RawVector().Data, nil) * float64(n-1); tss > 0 {
		r2 = 1 - rss/tss
	}

	df := n - k
	sigma2 := rss / float64(df)
	adjR2 := 1 - (1-r2)*float64(n-1)/float64(df)

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	coefficients := make([]Coefficient, k)
	for i, name := range names {
		estimate := beta.AtVec(i)
		variance := sigma2 * xtxInv.At(i, i)
		se := 0.0
		if variance > 0 {
			se = math.Sqrt(variance)
		}
		tStat, pValue := 0.0, 1.0
		if se > 0 {
			tStat = estimate / se
			pValue = 2 * tDist.CDF(-math.Abs(tStat))
		}
		coefficients[i] = Coefficient{
			Name:     name,
			Estimate: estimate,
			StdErr:   se,
			TStat:    tStat,
			PValue:   pValue,
		}
	}

	model := &FittedModel{
		Spec:         spec,
		N:            n,
		Coefficients: coefficients,
		R2:           r2,
		AdjR2:        adjR2,
	}
	if spec == SpecQuadratic {
		model.UTest = computeUTest(ds, model)
	}

	return model, nil
}

// fitDesign solves the normal equations, falling back to a minimum-norm SVD
// solution when the cross-product matrix is singular. It returns the
// coefficient vector and the (pseudo-)inverse of X'X used for standard errors.
func fitDesign(X *mat.Dense, y *mat.VecDense) (*mat.VecDense, *mat.Dense, error) {
	_, k := X.Dims()

	var xtx mat.Dense
	xtx.Mul(X.T(), X)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err == nil {
		var xty mat.VecDense
		xty.MulVec(X.T(), y)
		beta := mat.NewVecDense(k, nil)
		beta.MulVec(&xtxInv, &xty)
		return beta, &xtxInv, nil
	}

	var svd mat.SVD
	if !svd.Factorize(X, mat.SVDThin) {
		return nil, nil, fmt.Errorf("design matrix SVD factorization failed")
	}

	beta := mat.NewVecDense(k, nil)
	if rank := svd.Rank(svdRankTolerance); rank > 0 {
		svd.SolveVecTo(beta, y, rank)
	}

	return beta, pseudoInverseCrossProduct(&svd, k), nil
}

// solveLeastSquares returns the least-squares coefficients for X b ≈ y.
// Shared by the imputer's per-column regressions, where a rank-deficient
// design is expected early on and the minimum-norm solution is acceptable.
func solveLeastSquares(X *mat.Dense, y *mat.VecDense) (*mat.VecDense, error) {
	beta, _, err := fitDesign(X, y)
	return beta, err
}

// pseudoInverseCrossProduct builds pinv(X'X) = V S^-2 V' from a thin SVD of X
func pseudoInverseCrossProduct(svd *mat.SVD, k int) *mat.Dense {
	var v mat.Dense
	svd.VTo(&v)
	s := svd.Values(nil)

	cutoff := 0.0
	if len(s) > 0 {
		cutoff = svdRankTolerance * s[0]
	}

	inv := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			sum := 0.0
			for l := 0; l < len(s); l++ {
				if s[l] <= cutoff {
					continue
				}
				sum += v.At(i, l) * v.At(j, l) / (s[l] * s[l])
			}
			inv.Set(i, j, sum)
		}
	}
	return inv
}

// computeUTest locates the turning point of the quadratic fit, -b1/(2*b2),
// and checks whether it falls inside the sample's observed ETR range. A
// turning point outside the range means the fitted curve is monotonic over
// the data and the U-shape reading is not supported.
func computeUTest(ds *cbcr.Dataset, model *FittedModel) *UTest {
	b1, ok1 := model.Coefficient(RegETR)
	b2, ok2 := model.Coefficient(RegETRSq)
	if !ok1 || !ok2 {
		return nil
	}

	turningPoint := 0.0
	if b2.Estimate != 0 {
		turningPoint = -b1.Estimate / (2 * b2.Estimate)
	}

	etrMin, etrMax := math.Inf(1), math.Inf(-1)
	for i := range ds.Observations {
		etr := ds.Observations[i].ETR
		if etr < etrMin {
			etrMin = etr
		}
		if etr > etrMax {
			etrMax = etr
		}
	}

	return &UTest{
		TurningPoint: turningPoint,
		ETRMin:       etrMin,
		ETRMax:       etrMax,
		InRange:      turningPoint >= etrMin && turningPoint <= etrMax,
	}
}
