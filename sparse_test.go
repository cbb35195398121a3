package gp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newSparseForTest(t *testing.T, approx string, Xu *mat.Dense, sigma float64) (*SparseConjugate, *mat.Dense, []float64) {
	t.Helper()
	X, y := testRegressionData()
	cov, err := NewExpQuad(1, nil, 1.0)
	require.NoError(t, err)

	g, err := New("f", Config{
		X: X, Cov: cov, Sigma: sigma, Observed: y,
		Approx: approx, InducingPoints: Xu,
	}, NewModel())
	require.NoError(t, err)

	sp, ok := g.(*SparseConjugate)
	require.True(t, ok)
	return sp, X, y
}

func TestSparseVFEMatchesFullAtSaturation(t *testing.T) {
	// With the inducing points placed on every training input the VFE
	// bound is tight and must agree with the exact marginal density.
	X, y := testRegressionData()
	cov, err := NewExpQuad(1, nil, 1.0)
	require.NoError(t, err)

	full, err := New("exact", Config{X: X, Cov: cov, Sigma: 0.3, Observed: y}, NewModel())
	require.NoError(t, err)
	sparse, _, _ := newSparseForTest(t, ApproxVFE, X, 0.3)

	lpFull, err := full.LogP(nil)
	require.NoError(t, err)
	lpSparse, err := sparse.LogP(nil)
	require.NoError(t, err)
	assert.InDelta(t, lpFull, lpSparse, 1e-2)
}

func TestSparseFITCAndVFEDiffer(t *testing.T) {
	Xu := mat.NewDense(2, 1, []float64{0.5, 2.5})
	fitc, _, _ := newSparseForTest(t, ApproxFITC, Xu, 0.3)
	vfe, _, _ := newSparseForTest(t, ApproxVFE, Xu, 0.3)

	lpFitc, err := fitc.LogP(nil)
	require.NoError(t, err)
	lpVfe, err := vfe.LogP(nil)
	require.NoError(t, err)

	// With a strict subset of inducing points the heteroscedastic FITC
	// correction and the VFE trace penalty pull in different directions.
	assert.Greater(t, math.Abs(lpFitc-lpVfe), 1e-8)
}

func TestSparseVFEIsLowerBound(t *testing.T) {
	X, y := testRegressionData()
	cov, err := NewExpQuad(1, nil, 1.0)
	require.NoError(t, err)

	full, err := New("exact", Config{X: X, Cov: cov, Sigma: 0.3, Observed: y}, NewModel())
	require.NoError(t, err)

	Xu := mat.NewDense(3, 1, []float64{0.0, 1.5, 3.0})
	sparse, _, _ := newSparseForTest(t, ApproxVFE, Xu, 0.3)

	lpFull, err := full.LogP(nil)
	require.NoError(t, err)
	lpSparse, err := sparse.LogP(nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, lpSparse, lpFull+1e-6)
}

func TestSparseConditionalShapes(t *testing.T) {
	Xu := mat.NewDense(3, 1, []float64{0.0, 1.5, 3.0})
	sp, _, _ := newSparseForTest(t, ApproxFITC, Xu, 0.2)

	Xs := mat.NewDense(4, 1, []float64{0.1, 0.8, 1.9, 2.8})
	mean, cov, err := sp.Conditional(Xs, nil, true)
	require.NoError(t, err)
	assert.Len(t, mean, 4)
	r, c := cov.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 4, c)
}

func TestSparseConditionalInterpolates(t *testing.T) {
	// Saturated inducing points and near-zero noise: the approximate
	// posterior mean passes through the observations.
	X, _ := testRegressionData()
	sp, _, y := newSparseForTest(t, ApproxVFE, X, 0.01)

	mean, _, err := sp.Conditional(X, nil, false)
	require.NoError(t, err)
	assert.InDeltaSlice(t, y, mean, 0.05)
}

func TestSparseObsNoiseInflatesDiagonal(t *testing.T) {
	Xu := mat.NewDense(3, 1, []float64{0.0, 1.5, 3.0})
	sp, _, _ := newSparseForTest(t, ApproxFITC, Xu, 0.5)

	Xs := mat.NewDense(2, 1, []float64{0.7, 2.1})
	_, noisy, err := sp.Conditional(Xs, nil, true)
	require.NoError(t, err)
	_, clean, err := sp.Conditional(Xs, nil, false)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		assert.InDelta(t, 0.25, noisy.At(i, i)-clean.At(i, i), 1e-5)
	}
}

func TestSparsePriorDiagonalIsExact(t *testing.T) {
	// The low-rank prior keeps the exact marginal variances on its
	// diagonal regardless of how coarse the inducing set is.
	Xu := mat.NewDense(2, 1, []float64{0.5, 2.5})
	sp, X, _ := newSparseForTest(t, ApproxVFE, Xu, 0.3)

	_, K, err := sp.Prior(false)
	require.NoError(t, err)
	n, _ := X.Dims()
	for i := 0; i < n; i++ {
		assert.InDelta(t, 1.0, K.At(i, i), 1e-5)
	}

	_, Kn, err := sp.Prior(true)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		assert.InDelta(t, 1.0+0.09, Kn.At(i, i), 1e-5)
	}
}
