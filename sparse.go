package gp

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

//////
// Sparse conjugate variant (inducing point approximations).
//////

// SparseConjugate approximates exact GP regression through m inducing
// points Xu, reducing the factorization cost from O(n^3) to O(n m^2). Two
// approximations are supported:
//
//   - FITC keeps the exact marginal variances, so the effective noise is
//     heteroscedastic: Lambda_i = max(Kff_ii - Qff_ii, 0) + sigma^2.
//   - VFE uses homoscedastic noise Lambda_i = sigma^2 and adds a trace
//     penalty to the marginal log density, making it a true lower bound
//     on the exact one.
//
// Both share the same conditional algebra, built on the low-rank
// factor A = Luu^-1 Kuf and a Woodbury-style inner factorization of
// B = I + A Lambda^-1 A^T.
type SparseConjugate struct {
	name   string
	X      *mat.Dense
	mean   MeanFunc
	cov    Covariance
	sigma2 float64
	approx string
	Xu     *mat.Dense
	y      []float64
}

func (g *SparseConjugate) Kind() Kind { return KindSparseConjugate }

func (g *SparseConjugate) Name() string { return g.name }

func (g *SparseConjugate) observedValues() []float64 { return g.y }

// Approx reports which approximation the variant was built with, FITC or
// VFE.
func (g *SparseConjugate) Approx() string { return g.approx }

// InducingPoints returns the inducing point locations.
func (g *SparseConjugate) InducingPoints() *mat.Dense { return g.Xu }

// lowRank computes A = Luu^-1 Kuf together with the exact and
// approximate marginal variances Kffd and Qffd.
func (g *SparseConjugate) lowRank() (A *mat.Dense, Kffd, Qffd []float64, Luu *mat.TriDense, err error) {
	Kuu := g.cov.Full(g.Xu, nil)
	Kuf := g.cov.Full(g.Xu, g.X)
	Luu, err = cholesky(stabilize(Kuu))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	A, err = solveLower(Luu, Kuf)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	Kffd = g.cov.Diag(g.X)
	_, n := A.Dims()
	Qffd = make([]float64, n)
	m, _ := A.Dims()
	for j := 0; j < n; j++ {
		s := 0.0
		for i := 0; i < m; i++ {
			a := A.At(i, j)
			s += a * a
		}
		Qffd[j] = s
	}
	return A, Kffd, Qffd, Luu, nil
}

// lambda returns the effective per-point noise variances for the chosen
// approximation.
func (g *SparseConjugate) lambda(Kffd, Qffd []float64) []float64 {
	n := len(Kffd)
	lam := make([]float64, n)
	if g.approx == ApproxFITC {
		for i := 0; i < n; i++ {
			lam[i] = math.Max(Kffd[i]-Qffd[i], 0.0) + g.sigma2
		}
		return lam
	}
	for i := 0; i < n; i++ {
		lam[i] = g.sigma2
	}
	return lam
}

// Prior returns the approximate prior at the training inputs: the
// low-rank covariance Qff with its diagonal restored to the exact
// marginal variances, plus sigma^2 I when obsNoise is set.
func (g *SparseConjugate) Prior(obsNoise bool) ([]float64, *mat.Dense, error) {
	A, Kffd, _, _, err := g.lowRank()
	if err != nil {
		return nil, nil, err
	}
	var Qff mat.Dense
	Qff.Mul(A.T(), A)
	n := len(Kffd)
	for i := 0; i < n; i++ {
		v := Kffd[i]
		if obsNoise {
			v += g.sigma2
		}
		Qff.Set(i, i, v)
	}
	return g.mean.Mean(g.X), stabilize(&Qff), nil
}

// Conditional computes the approximate posterior mean and covariance at
// Xs. A nil y uses the observed data supplied at construction. With
// obsNoise, sigma^2 I is added to the posterior covariance.
func (g *SparseConjugate) Conditional(Xs *mat.Dense, y []float64, obsNoise bool) ([]float64, *mat.Dense, error) {
	if y == nil {
		y = g.y
	}
	A, Kffd, Qffd, Luu, err := g.lowRank()
	if err != nil {
		return nil, nil, err
	}
	lam := g.lambda(Kffd, Qffd)

	m, n := A.Dims()
	Al := mat.NewDense(m, n, nil)
	for j := 0; j < n; j++ {
		inv := 1.0 / lam[j]
		for i := 0; i < m; i++ {
			Al.Set(i, j, A.At(i, j)*inv)
		}
	}
	var B mat.Dense
	B.Mul(Al, A.T())
	for i := 0; i < m; i++ {
		B.Set(i, i, B.At(i, i)+1.0)
	}
	LB, err := cholesky(stabilize(&B))
	if err != nil {
		return nil, nil, err
	}

	r := subVecs(y, g.mean.Mean(g.X))
	rl := make([]float64, n)
	for i := range r {
		rl[i] = r[i] / lam[i]
	}
	c, err := solveLowerVec(LB, matVec(A, rl))
	if err != nil {
		return nil, nil, err
	}

	Kus := g.cov.Full(g.Xu, Xs)
	As, err := solveLower(Luu, Kus)
	if err != nil {
		return nil, nil, err
	}
	w, err := solveUpperVec(LB, c)
	if err != nil {
		return nil, nil, err
	}
	mean := addVecs(g.mean.Mean(Xs), matTVec(As, w))

	C, err := solveLower(LB, As)
	if err != nil {
		return nil, nil, err
	}
	Kss := g.cov.Full(Xs, nil)
	var q, cc mat.Dense
	q.Mul(As.T(), As)
	cc.Mul(C.T(), C)
	Kss.Sub(Kss, &q)
	Kss.Add(Kss, &cc)
	if obsNoise {
		ns, _ := Kss.Dims()
		for i := 0; i < ns; i++ {
			Kss.Set(i, i, Kss.At(i, i)+g.sigma2)
		}
	}
	return mean, stabilize(Kss), nil
}

// LogP is the approximate marginal log density of y. For FITC this is
// the exact density of the FITC model; for VFE it is the variational
// lower bound, including the trace penalty
//
//	(1 / (2 sigma^2)) * (sum(Kffd) - sum(Qffd))
//
// A nil y uses the observed data supplied at construction.
func (g *SparseConjugate) LogP(y []float64) (float64, error) {
	if y == nil {
		y = g.y
	}
	A, Kffd, Qffd, _, err := g.lowRank()
	if err != nil {
		return 0, err
	}
	lam := g.lambda(Kffd, Qffd)
	trace := 0.0
	if g.approx == ApproxVFE {
		sk, sq := 0.0, 0.0
		for i := range Kffd {
			sk += Kffd[i]
			sq += Qffd[i]
		}
		trace = (sk - sq) / (2.0 * g.sigma2)
	}

	m, n := A.Dims()
	Al := mat.NewDense(m, n, nil)
	for j := 0; j < n; j++ {
		inv := 1.0 / lam[j]
		for i := 0; i < m; i++ {
			Al.Set(i, j, A.At(i, j)*inv)
		}
	}
	var B mat.Dense
	B.Mul(Al, A.T())
	for i := 0; i < m; i++ {
		B.Set(i, i, B.At(i, i)+1.0)
	}
	LB, err := cholesky(stabilize(&B))
	if err != nil {
		return 0, err
	}

	r := subVecs(y, g.mean.Mean(g.X))
	rl := make([]float64, n)
	for i := range r {
		rl[i] = r[i] / lam[i]
	}
	c, err := solveLowerVec(LB, matVec(A, rl))
	if err != nil {
		return 0, err
	}

	constant := 0.5 * float64(n) * log2pi
	logdet := logDiagSum(LB)
	for i := range lam {
		logdet += 0.5 * math.Log(lam[i])
	}
	quadratic := 0.5 * (dot(r, rl) - dot(c, c))
	return -(constant + logdet + quadratic + trace), nil
}

func (g *SparseConjugate) Random(src rand.Source, Xs *mat.Dense, y []float64, obsNoise, fromPrior bool) ([]float64, error) {
	return drawRandom(g, src, Xs, y, obsNoise, fromPrior)
}
