package gp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

//////
// Higher-order kernels: input warping and input-dependent lengthscales.
//////

// WarpFunc maps an input batch to a warped input batch. The extra args are
// passed through from the kernel constructor on every call. The returned
// matrix may have a different column count than the input; the base kernel
// is evaluated on whatever the warp produces.
type WarpFunc func(X *mat.Dense, args []float64) *mat.Dense

// LengthscaleFunc maps an input batch to one lengthscale per row.
type LengthscaleFunc func(X *mat.Dense, args []float64) []float64

// WarpedInput evaluates a base kernel on transformed inputs:
//
//	k(x, x') = k_base(w(x), w(x'))
type WarpedInput struct {
	dims
	cov  Covariance
	warp WarpFunc
	args []float64
}

// NewWarpedInput wraps cov so that both input batches pass through warp
// before evaluation. args are forwarded to warp on every call.
func NewWarpedInput(inputDim int, activeDims []int, cov Covariance, warp WarpFunc, args []float64) (*WarpedInput, error) {
	d, err := newDims(inputDim, activeDims)
	if err != nil {
		return nil, err
	}
	if cov == nil {
		return nil, ErrNoCovFunc
	}
	if warp == nil {
		return nil, ErrWarpFunc
	}
	return &WarpedInput{dims: d, cov: cov, warp: warp, args: args}, nil
}

func (k *WarpedInput) Full(X, Xs *mat.Dense) *mat.Dense {
	X, Xs = k.slicePair(X, Xs)
	if Xs == nil {
		return k.cov.Full(k.warp(X, k.args), nil)
	}
	return k.cov.Full(k.warp(X, k.args), k.warp(Xs, k.args))
}

func (k *WarpedInput) Diag(X *mat.Dense) []float64 {
	return k.cov.Diag(k.warp(k.slice(X), k.args))
}

// Gibbs is the Gibbs kernel, a squared exponential generalized to an
// input-dependent lengthscale function l(x):
//
//	k(x, x') = sqrt(2 l(x) l(x') / (l(x)^2 + l(x')^2))
//	           * exp(-(x - x')^2 / (l(x)^2 + l(x')^2))
//
// Only one-dimensional inputs are supported.
type Gibbs struct {
	dims
	lfunc LengthscaleFunc
	args  []float64
}

// NewGibbs builds a Gibbs kernel from a lengthscale function. Construction
// fails for inputs with more than one dimension.
func NewGibbs(inputDim int, activeDims []int, lfunc LengthscaleFunc, args []float64) (*Gibbs, error) {
	d, err := newDims(inputDim, activeDims)
	if err != nil {
		return nil, err
	}
	if inputDim != 1 {
		return nil, ErrGibbsDim
	}
	if lfunc == nil {
		return nil, ErrLengthscaleFunc
	}
	return &Gibbs{dims: d, lfunc: lfunc, args: args}, nil
}

func (k *Gibbs) Full(X, Xs *mat.Dense) *mat.Dense {
	X, Xs = k.slicePair(X, Xs)
	rx := k.lfunc(X, k.args)
	rz := rx
	if Xs != nil {
		rz = k.lfunc(Xs, k.args)
	}
	// Unscaled squared distance between the raw inputs; the lengthscale
	// lives in the denominator of the exponent instead.
	r2 := squareDist(X, Xs)
	n, m := r2.Dims()
	out := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		li := rx[i]
		for j := 0; j < m; j++ {
			lj := rz[j]
			denom := li*li + lj*lj
			out.Set(i, j, math.Sqrt(2.0*li*lj/denom)*math.Exp(-r2.At(i, j)/denom))
		}
	}
	return out
}

// Diag is one everywhere: at zero distance the prefactor and the
// exponential both collapse to one.
func (k *Gibbs) Diag(X *mat.Dense) []float64 {
	n, _ := X.Dims()
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.0
	}
	return out
}
