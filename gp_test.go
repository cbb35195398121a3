package gp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func testRegressionData() (*mat.Dense, []float64) {
	X := mat.NewDense(6, 1, []float64{0.0, 0.4, 0.9, 1.5, 2.2, 3.0})
	y := make([]float64, 6)
	for i := 0; i < 6; i++ {
		y[i] = math.Sin(X.At(i, 0))
	}
	return X, y
}

func TestNewDispatch(t *testing.T) {
	X, y := testRegressionData()
	cov, err := NewExpQuad(1, nil, 1.0)
	require.NoError(t, err)

	t.Run("latent", func(t *testing.T) {
		model := NewModel()
		g, err := New("f", Config{X: X, Cov: cov}, model)
		require.NoError(t, err)
		assert.Equal(t, KindNonConjugate, g.Kind())
		assert.Equal(t, "f", g.Name())

		reg, ok := model.Var("f")
		assert.True(t, ok)
		assert.Equal(t, g, reg)
		assert.Nil(t, model.Observed("f"))
	})

	t.Run("full conjugate", func(t *testing.T) {
		model := NewModel()
		g, err := New("f", Config{X: X, Cov: cov, Sigma: 0.1, Observed: y}, model)
		require.NoError(t, err)
		assert.Equal(t, KindFullConjugate, g.Kind())
		assert.InDeltaSlice(t, y, model.Observed("f"), 1e-12)
	})

	t.Run("sparse via inducing points", func(t *testing.T) {
		model := NewModel()
		Xu := mat.NewDense(3, 1, []float64{0.0, 1.5, 3.0})
		g, err := New("f", Config{
			X: X, Cov: cov, Sigma: 0.1, Observed: y,
			Approx: ApproxFITC, InducingPoints: Xu,
		}, model)
		require.NoError(t, err)
		assert.Equal(t, KindSparseConjugate, g.Kind())

		sp, ok := g.(*SparseConjugate)
		require.True(t, ok)
		assert.Equal(t, ApproxFITC, sp.Approx())
		assert.Equal(t, Xu, sp.InducingPoints())
	})

	t.Run("sparse via inducing count", func(t *testing.T) {
		model := NewModel()
		g, err := New("f", Config{
			X: X, Cov: cov, Sigma: 0.1, Observed: y,
			NInducing: 3, Seed: 42,
		}, model)
		require.NoError(t, err)

		sp, ok := g.(*SparseConjugate)
		require.True(t, ok)
		// Empty approx selects VFE.
		assert.Equal(t, ApproxVFE, sp.Approx())
		m, d := sp.InducingPoints().Dims()
		assert.Equal(t, 3, m)
		assert.Equal(t, 1, d)
	})

	t.Run("approx name is case-insensitive", func(t *testing.T) {
		model := NewModel()
		Xu := mat.NewDense(3, 1, []float64{0.0, 1.5, 3.0})
		g, err := New("f", Config{
			X: X, Cov: cov, Sigma: 0.1, Observed: y,
			Approx: "fitc", InducingPoints: Xu,
		}, model)
		require.NoError(t, err)
		assert.Equal(t, ApproxFITC, g.(*SparseConjugate).Approx())
	})
}

func TestNewErrors(t *testing.T) {
	X, y := testRegressionData()
	cov, err := NewExpQuad(1, nil, 1.0)
	require.NoError(t, err)

	_, err = New("f", Config{X: X, Cov: cov}, nil)
	assert.ErrorIs(t, err, ErrNilModel)

	_, err = New("f", Config{Cov: cov}, NewModel())
	assert.ErrorIs(t, err, ErrNoInputs)

	_, err = New("f", Config{X: X}, NewModel())
	assert.ErrorIs(t, err, ErrNoCovFunc)

	// Full conjugate without any noise specification.
	_, err = New("f", Config{X: X, Cov: cov, Observed: y}, NewModel())
	assert.ErrorIs(t, err, ErrNoNoise)

	// Sparse without a noise scale.
	Xu := mat.NewDense(2, 1, []float64{0.0, 3.0})
	_, err = New("f", Config{X: X, Cov: cov, Observed: y, InducingPoints: Xu}, NewModel())
	assert.ErrorIs(t, err, ErrNoNoise)

	// Sparse with an unknown approximation name.
	_, err = New("f", Config{
		X: X, Cov: cov, Sigma: 0.1, Observed: y,
		Approx: "DTC", InducingPoints: Xu,
	}, NewModel())
	assert.ErrorIs(t, err, ErrUnknownApprox)

	// Sparse path with neither locations nor a count.
	_, err = New("f", Config{
		X: X, Cov: cov, Sigma: 0.1, Observed: y, Approx: ApproxVFE,
	}, NewModel())
	assert.ErrorIs(t, err, ErrNoInducing)

	// Names are unique within a model.
	model := NewModel()
	_, err = New("f", Config{X: X, Cov: cov, Sigma: 0.1, Observed: y}, model)
	require.NoError(t, err)
	_, err = New("f", Config{X: X, Cov: cov, Sigma: 0.1, Observed: y}, model)
	assert.ErrorIs(t, err, ErrDuplicateVar)
}

func TestFullConjugateConditionalInterpolates(t *testing.T) {
	X, y := testRegressionData()
	cov, err := NewExpQuad(1, nil, 1.0)
	require.NoError(t, err)

	g, err := New("f", Config{X: X, Cov: cov, Sigma: 1e-4, Observed: y}, NewModel())
	require.NoError(t, err)

	// With near-zero noise the posterior mean at the training inputs
	// reproduces the observations and the variance collapses.
	mean, covOut, err := g.Conditional(X, nil, false)
	require.NoError(t, err)
	assert.InDeltaSlice(t, y, mean, 1e-3)
	n, _ := covOut.Dims()
	for i := 0; i < n; i++ {
		assert.Less(t, covOut.At(i, i), 1e-3)
	}
}

func TestFullConjugateLogP(t *testing.T) {
	// One observation, unit kernel variance: the marginal is a scalar
	// Gaussian whose closed form we can write down directly, jitter
	// included.
	X := mat.NewDense(1, 1, []float64{0.0})
	y := []float64{0.7}
	cov, err := NewExpQuad(1, nil, 1.0)
	require.NoError(t, err)

	g, err := New("f", Config{X: X, Cov: cov, Sigma: 0.5, Observed: y}, NewModel())
	require.NoError(t, err)

	v := 1.0 + jitterScale + 0.25
	want := -0.5*math.Log(2.0*math.Pi) - 0.5*math.Log(v) - y[0]*y[0]/(2.0*v)

	got, err := g.LogP(nil)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-9)
}

func TestFullConjugateLogPDecreasesWithMisfit(t *testing.T) {
	X, y := testRegressionData()
	cov, err := NewExpQuad(1, nil, 1.0)
	require.NoError(t, err)

	g, err := New("f", Config{X: X, Cov: cov, Sigma: 0.1, Observed: y}, NewModel())
	require.NoError(t, err)

	good, err := g.LogP(y)
	require.NoError(t, err)

	far := make([]float64, len(y))
	for i, v := range y {
		far[i] = v + 10.0
	}
	bad, err := g.LogP(far)
	require.NoError(t, err)
	assert.Greater(t, good, bad)
}

func TestNonConjugateValue(t *testing.T) {
	X, _ := testRegressionData()
	cov, err := NewExpQuad(1, nil, 1.0)
	require.NoError(t, err)

	model := NewModel()
	g, err := New("f", Config{X: X, Mean: Constant(2.0), Cov: cov}, model)
	require.NoError(t, err)

	nc, ok := g.(*NonConjugate)
	require.True(t, ok)
	assert.Equal(t, "f_rotated_", nc.RotatedName())

	// A zero rotation vector recovers the mean function exactly.
	f, err := nc.Value(make([]float64, 6))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 2, 2, 2, 2, 2}, f, 1e-12)

	_, err = nc.Value([]float64{1.0})
	assert.Error(t, err)
}

func TestNonConjugateConditionalAtTrainingInputs(t *testing.T) {
	X, _ := testRegressionData()
	cov, err := NewExpQuad(1, nil, 1.0)
	require.NoError(t, err)

	g, err := New("f", Config{X: X, Cov: cov}, NewModel())
	require.NoError(t, err)
	nc := g.(*NonConjugate)

	v := []float64{0.3, -0.5, 1.2, 0.0, -0.8, 0.4}

	// Conditioning at the training inputs must return the de-whitened
	// function values themselves, up to jitter.
	f, err := nc.Value(v)
	require.NoError(t, err)
	mean, covOut, err := nc.Conditional(X, v, false)
	require.NoError(t, err)
	assert.InDeltaSlice(t, f, mean, 1e-4)
	n, _ := covOut.Dims()
	for i := 0; i < n; i++ {
		assert.Less(t, covOut.At(i, i), 1e-3)
	}
}

func TestNonConjugateLogP(t *testing.T) {
	X, _ := testRegressionData()
	cov, err := NewExpQuad(1, nil, 1.0)
	require.NoError(t, err)

	g, err := New("f", Config{X: X, Cov: cov}, NewModel())
	require.NoError(t, err)

	lp, err := g.LogP([]float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Zero(t, lp)
}

func TestRandomDrawShape(t *testing.T) {
	X, y := testRegressionData()
	cov, err := NewExpQuad(1, nil, 1.0)
	require.NoError(t, err)

	g, err := New("f", Config{X: X, Cov: cov, Sigma: 0.1, Observed: y}, NewModel())
	require.NoError(t, err)

	Xs := mat.NewDense(3, 1, []float64{0.1, 1.0, 2.5})
	src := rand.NewSource(7)

	draw, err := g.Random(src, Xs, nil, true, false)
	require.NoError(t, err)
	assert.Len(t, draw, 3)

	prior, err := g.Random(src, nil, nil, true, true)
	require.NoError(t, err)
	assert.Len(t, prior, 6)
}

func TestPriorMeanAndCovariance(t *testing.T) {
	X, y := testRegressionData()
	cov, err := NewExpQuad(1, nil, 1.0)
	require.NoError(t, err)

	g, err := New("f", Config{X: X, Mean: Constant(1.5), Cov: cov, Sigma: 0.5, Observed: y}, NewModel())
	require.NoError(t, err)

	mean, K, err := g.Prior(true)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1.5, 1.5, 1.5, 1.5, 1.5, 1.5}, mean, 1e-12)

	// Noise inflates only the diagonal.
	meanNo, Kno, err := g.Prior(false)
	require.NoError(t, err)
	assert.InDeltaSlice(t, mean, meanNo, 1e-12)
	for i := 0; i < 6; i++ {
		assert.InDelta(t, 0.25, K.At(i, i)-Kno.At(i, i), 1e-5)
	}
	assert.InDelta(t, Kno.At(0, 1), K.At(0, 1), 1e-12)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "NonConjugate", KindNonConjugate.String())
	assert.Equal(t, "FullConjugate", KindFullConjugate.String())
	assert.Equal(t, "SparseConjugate", KindSparseConjugate.String())
	assert.Equal(t, "Unknown", Kind(99).String())
}
