package gp

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

//////
// GP variants and the dispatching constructor.
//////

// GP is a Gaussian process random variable. The three variants share this
// contract:
//
//   - Prior returns the mean vector and covariance matrix of the process
//     at the training inputs, stabilized for factorization.
//   - Conditional returns the mean and covariance at new inputs Xs given
//     realized values y. For the non-conjugate variant y carries the
//     whitened rotation vector v instead of observed data; for conjugate
//     variants a nil y falls back to the observed data supplied at
//     construction.
//   - LogP is the marginal log density of y under the variant. The
//     non-conjugate variant contributes zero, since its density lives on
//     the rotation vector owned by the host model.
//   - Random draws one multivariate normal sample from the prior or the
//     conditional.
//
// All operations are pure functions over the construction-time state; a
// GP value is safe to share once built.
type GP interface {
	Kind() Kind
	Name() string
	Prior(obsNoise bool) ([]float64, *mat.Dense, error)
	Conditional(Xs *mat.Dense, y []float64, obsNoise bool) ([]float64, *mat.Dense, error)
	LogP(y []float64) (float64, error)
	Random(src rand.Source, Xs *mat.Dense, y []float64, obsNoise, fromPrior bool) ([]float64, error)
}

// observedCarrier is implemented by the conjugate variants, which keep
// their observed training outputs for conditioning.
type observedCarrier interface {
	observedValues() []float64
}

// New constructs a GP random variable and registers it in the model under
// name. The variant is selected by argument presence, in order:
//
//  1. Observed nil: non-conjugate (latent) GP.
//  2. No Approx, NInducing, or InducingPoints: full conjugate GP.
//     Requires Sigma > 0 or a NoiseCov.
//  3. Otherwise: sparse conjugate GP. Requires Approx to be FITC, VFE, or
//     empty (VFE is selected and logged), plus InducingPoints or a
//     positive NInducing; the latter places inducing points by k-means
//     over the whitened training inputs.
func New(name string, cfg Config, model *Model) (GP, error) {
	if model == nil {
		return nil, ErrNilModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.X == nil {
		return nil, ErrNoInputs
	}
	mean := cfg.Mean
	if mean == nil {
		mean = Zero()
	}
	if cfg.Cov == nil {
		return nil, ErrNoCovFunc
	}

	// Latent function, no observed data.
	if cfg.Observed == nil {
		n, _ := cfg.X.Dims()
		g := &NonConjugate{name: name, X: cfg.X, mean: mean, cov: cfg.Cov, n: n}
		if err := model.register(name, g, nil); err != nil {
			return nil, err
		}
		return g, nil
	}

	// Gaussian likelihood, exact inference.
	if cfg.Approx == "" && cfg.NInducing == 0 && cfg.InducingPoints == nil {
		if cfg.Sigma <= 0 && cfg.NoiseCov == nil {
			return nil, ErrNoNoise
		}
		noise := cfg.NoiseCov
		if noise == nil {
			_, d := cfg.X.Dims()
			var err error
			noise, err = NewWhiteNoise(d, nil, cfg.Sigma)
			if err != nil {
				return nil, err
			}
		}
		g := &FullConjugate{
			name: name, X: cfg.X, mean: mean, cov: cfg.Cov,
			noise: noise, y: cfg.Observed,
		}
		if err := model.register(name, g, cfg.Observed); err != nil {
			return nil, err
		}
		return g, nil
	}

	// Gaussian likelihood, sparse approximation.
	if cfg.Sigma <= 0 {
		return nil, ErrNoNoise
	}
	approx := strings.ToUpper(cfg.Approx)
	if approx == "" {
		approx = ApproxVFE
		logger.Info("using VFE approximation", zap.String("name", name))
	}
	if approx != ApproxFITC && approx != ApproxVFE {
		return nil, fmt.Errorf("%w: got %q", ErrUnknownApprox, cfg.Approx)
	}
	Xu := cfg.InducingPoints
	if Xu == nil {
		if cfg.NInducing <= 0 {
			return nil, ErrNoInducing
		}
		seed := cfg.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		var err error
		Xu, err = kmeansInducing(cfg.X, cfg.NInducing, rand.New(rand.NewSource(seed)))
		if err != nil {
			return nil, err
		}
	}
	g := &SparseConjugate{
		name: name, X: cfg.X, mean: mean, cov: cfg.Cov,
		sigma2: cfg.Sigma * cfg.Sigma, approx: approx,
		Xu: Xu, y: cfg.Observed,
	}
	if err := model.register(name, g, cfg.Observed); err != nil {
		return nil, err
	}
	return g, nil
}

// drawRandom picks the prior or conditional distribution and draws one
// multivariate normal sample from it.
func drawRandom(g GP, src rand.Source, Xs *mat.Dense, y []float64, obsNoise, fromPrior bool) ([]float64, error) {
	var (
		mean []float64
		cov  *mat.Dense
		err  error
	)
	if fromPrior {
		mean, cov, err = g.Prior(obsNoise)
	} else {
		mean, cov, err = g.Conditional(Xs, y, obsNoise)
	}
	if err != nil {
		return nil, err
	}
	return mvnSample(mean, cov, src)
}

//////
// Non-conjugate (latent) variant.
//////

// NonConjugate represents the GP function values directly, for models
// whose likelihood is not Gaussian. The value is parameterized through a
// whitened standard normal vector v of length n:
//
//	f = m(X) + L v,  L = cholesky(stabilize(K(X, X)))
//
// The host sampler infers v; Value recovers f from a realized v, and
// Conditional extends a realized v to new input locations.
type NonConjugate struct {
	name string
	X    *mat.Dense
	mean MeanFunc
	cov  Covariance
	n    int
}

func (g *NonConjugate) Kind() Kind { return KindNonConjugate }

func (g *NonConjugate) Name() string { return g.name }

// RotatedName is the trace variable name of the whitened vector v.
func (g *NonConjugate) RotatedName() string { return g.name + "_rotated_" }

func (g *NonConjugate) Prior(obsNoise bool) ([]float64, *mat.Dense, error) {
	mean := g.mean.Mean(g.X)
	cov := stabilize(g.cov.Full(g.X, nil))
	return mean, cov, nil
}

// Value computes the deterministic transform f = m(X) + L v for a
// realized rotation vector v.
func (g *NonConjugate) Value(v []float64) ([]float64, error) {
	if len(v) != g.n {
		return nil, fmt.Errorf("gp: rotation vector has length %d, want %d", len(v), g.n)
	}
	L, err := cholesky(stabilize(g.cov.Full(g.X, nil)))
	if err != nil {
		return nil, err
	}
	var lv mat.VecDense
	lv.MulVec(L, mat.NewVecDense(g.n, v))
	f := g.mean.Mean(g.X)
	for i := range f {
		f[i] += lv.AtVec(i)
	}
	return f, nil
}

// Conditional computes the GP conditional at Xs. The second argument
// carries the realized rotation vector v, not observed data; observation
// noise does not apply to this variant and obsNoise is ignored.
func (g *NonConjugate) Conditional(Xs *mat.Dense, v []float64, obsNoise bool) ([]float64, *mat.Dense, error) {
	Kxx := g.cov.Full(g.X, nil)
	Kxs := g.cov.Full(g.X, Xs)
	Kss := g.cov.Full(Xs, nil)

	L, err := cholesky(stabilize(Kxx))
	if err != nil {
		return nil, nil, err
	}
	A, err := solveLower(L, Kxs)
	if err != nil {
		return nil, nil, err
	}

	var q mat.Dense
	q.Mul(A.T(), A)
	Kss.Sub(Kss, &q)
	mean := addVecs(g.mean.Mean(Xs), matTVec(A, v))
	return mean, stabilize(Kss), nil
}

// LogP contributes nothing; the density of this variant lives on the
// standard normal rotation vector owned by the host model.
func (g *NonConjugate) LogP(y []float64) (float64, error) { return 0.0, nil }

func (g *NonConjugate) Random(src rand.Source, Xs *mat.Dense, y []float64, obsNoise, fromPrior bool) ([]float64, error) {
	return drawRandom(g, src, Xs, y, obsNoise, fromPrior)
}

//////
// Full conjugate variant.
//////

// FullConjugate is the exact GP regression variant: a Gaussian likelihood
// makes the marginal and the conditional multivariate normals with closed
// forms, computed through a single Cholesky factorization of the noisy
// training covariance.
type FullConjugate struct {
	name  string
	X     *mat.Dense
	mean  MeanFunc
	cov   Covariance
	noise Covariance
	y     []float64
}

func (g *FullConjugate) Kind() Kind { return KindFullConjugate }

func (g *FullConjugate) Name() string { return g.name }

func (g *FullConjugate) observedValues() []float64 { return g.y }

func (g *FullConjugate) Prior(obsNoise bool) ([]float64, *mat.Dense, error) {
	mean := g.mean.Mean(g.X)
	cov := g.cov.Full(g.X, nil)
	if obsNoise {
		cov.Add(cov, g.noise.Full(g.X, nil))
	}
	return mean, stabilize(cov), nil
}

// Conditional computes the posterior mean and covariance at Xs given
// observed outputs y. A nil y uses the observed data supplied at
// construction. With obsNoise the noise covariance at Xs is added to the
// posterior covariance.
func (g *FullConjugate) Conditional(Xs *mat.Dense, y []float64, obsNoise bool) ([]float64, *mat.Dense, error) {
	if y == nil {
		y = g.y
	}
	Kxx := g.cov.Full(g.X, nil)
	Knx := g.noise.Full(g.X, nil)
	Kxs := g.cov.Full(g.X, Xs)
	Kss := g.cov.Full(Xs, nil)

	r := subVecs(y, g.mean.Mean(g.X))
	Kxx = stabilize(Kxx)
	Kxx.Add(Kxx, Knx)
	L, err := cholesky(Kxx)
	if err != nil {
		return nil, nil, err
	}
	A, err := solveLower(L, Kxs)
	if err != nil {
		return nil, nil, err
	}
	V, err := solveLowerVec(L, r)
	if err != nil {
		return nil, nil, err
	}

	mean := addVecs(g.mean.Mean(Xs), matTVec(A, V))
	var q mat.Dense
	q.Mul(A.T(), A)
	Kss.Sub(Kss, &q)
	if obsNoise {
		Kss.Add(Kss, g.noise.Full(Xs, nil))
	}
	return mean, stabilize(Kss), nil
}

// LogP is the exact multivariate normal log density of y with mean m(X)
// and covariance K(X, X) + Kn(X, X), evaluated through the Cholesky
// factor. A nil y uses the observed data supplied at construction.
func (g *FullConjugate) LogP(y []float64) (float64, error) {
	if y == nil {
		y = g.y
	}
	n, _ := g.X.Dims()
	Kxx := stabilize(g.cov.Full(g.X, nil))
	Kxx.Add(Kxx, g.noise.Full(g.X, nil))
	L, err := cholesky(Kxx)
	if err != nil {
		return 0, err
	}
	V, err := solveLowerVec(L, subVecs(y, g.mean.Mean(g.X)))
	if err != nil {
		return 0, err
	}
	return -0.5*float64(n)*log2pi - logDiagSum(L) - 0.5*dot(V, V), nil
}

func (g *FullConjugate) Random(src rand.Source, Xs *mat.Dense, y []float64, obsNoise, fromPrior bool) ([]float64, error) {
	return drawRandom(g, src, Xs, y, obsNoise, fromPrior)
}
