package gp

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

//////
// Numerical helpers.
//////

// jitterScale sets the diagonal jitter added before factorization, as a
// fraction of the mean diagonal entry.
const jitterScale = 1e-6

// log2pi is ln(2 pi), the normalization constant of Gaussian densities.
const log2pi = 1.8378770664093453

// stabilize adds jitterScale * (trace(K)/n) to the diagonal of the square
// matrix K, in place, and returns K. Covariance matrices built from short
// lengthscales or near-duplicate points can be numerically semidefinite;
// the jitter keeps their Cholesky factorization from failing. It is
// applied immediately before every factorization in this package.
func stabilize(K *mat.Dense) *mat.Dense {
	n, _ := K.Dims()
	tr := 0.0
	for i := 0; i < n; i++ {
		tr += K.At(i, i)
	}
	jit := jitterScale * tr / float64(n)
	for i := 0; i < n; i++ {
		K.Set(i, i, K.At(i, i)+jit)
	}
	return K
}

// toSym symmetrizes K into the storage the factorization expects. The
// inputs here are covariance matrices, symmetric up to floating point
// error from the elementwise kernel evaluation.
func toSym(K *mat.Dense) *mat.SymDense {
	n, _ := K.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(K.At(i, j)+K.At(j, i)))
		}
	}
	return s
}

// cholesky returns the lower triangular factor L with K = L L^T, or an
// error when K is not positive definite. Callers stabilize K first.
func cholesky(K *mat.Dense) (*mat.TriDense, error) {
	n, _ := K.Dims()
	var chol mat.Cholesky
	if ok := chol.Factorize(toSym(K)); !ok {
		return nil, fmt.Errorf("%w: matrix of order %d is not positive definite", ErrCholesky, n)
	}
	L := mat.NewTriDense(n, mat.Lower, nil)
	chol.LTo(L)
	return L, nil
}

// solveLower solves L A = B for A by forward substitution.
func solveLower(L *mat.TriDense, B mat.Matrix) (*mat.Dense, error) {
	var dst mat.Dense
	if err := L.SolveTo(&dst, false, B); err != nil {
		return nil, fmt.Errorf("gp: lower triangular solve: %w", err)
	}
	return &dst, nil
}

// solveLowerVec solves L x = b for a single right-hand side vector.
func solveLowerVec(L *mat.TriDense, b []float64) ([]float64, error) {
	n := len(b)
	var dst mat.VecDense
	if err := dst.SolveVec(L, mat.NewVecDense(n, b)); err != nil {
		return nil, fmt.Errorf("gp: lower triangular solve: %w", err)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = dst.AtVec(i)
	}
	return out, nil
}

// upperFromLower returns L^T as an upper triangular matrix.
func upperFromLower(L *mat.TriDense) *mat.TriDense {
	n, _ := L.Dims()
	U := mat.NewTriDense(n, mat.Upper, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			U.SetTri(i, j, L.At(j, i))
		}
	}
	return U
}

// solveUpperVec solves L^T x = b by back substitution.
func solveUpperVec(L *mat.TriDense, b []float64) ([]float64, error) {
	n := len(b)
	var dst mat.VecDense
	if err := dst.SolveVec(upperFromLower(L), mat.NewVecDense(n, b)); err != nil {
		return nil, fmt.Errorf("gp: upper triangular solve: %w", err)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = dst.AtVec(i)
	}
	return out, nil
}

// logDiagSum returns the sum of the logs of the diagonal of L, the log
// determinant of a triangular factor.
func logDiagSum(L *mat.TriDense) float64 {
	n, _ := L.Dims()
	s := 0.0
	for i := 0; i < n; i++ {
		s += math.Log(L.At(i, i))
	}
	return s
}

// matTVec computes A^T v.
func matTVec(A *mat.Dense, v []float64) []float64 {
	r, c := A.Dims()
	out := make([]float64, c)
	for j := 0; j < c; j++ {
		s := 0.0
		for i := 0; i < r; i++ {
			s += A.At(i, j) * v[i]
		}
		out[j] = s
	}
	return out
}

// matVec computes A v.
func matVec(A *mat.Dense, v []float64) []float64 {
	r, c := A.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		s := 0.0
		for j := 0; j < c; j++ {
			s += A.At(i, j) * v[j]
		}
		out[i] = s
	}
	return out
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i, v := range a {
		s += v * b[i]
	}
	return s
}

func addVecs(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func subVecs(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// mvnSample draws one sample from a multivariate normal with the given
// mean and covariance. The covariance is stabilized before factorization.
func mvnSample(mean []float64, cov *mat.Dense, src rand.Source) ([]float64, error) {
	normal, ok := distmv.NewNormal(mean, toSym(stabilize(cov)), src)
	if !ok {
		n := len(mean)
		return nil, fmt.Errorf("%w: covariance of order %d is not positive definite", ErrCholesky, n)
	}
	return normal.Rand(nil), nil
}
