package gp

import "gonum.org/v1/gonum/mat"

// MeanFunc is the mean function of a Gaussian process, evaluated over an
// input batch with one value per row.
type MeanFunc interface {
	Mean(X *mat.Dense) []float64
}

type zeroMean struct{}

// Zero returns the zero mean function, the default for every GP variant.
func Zero() MeanFunc { return zeroMean{} }

func (zeroMean) Mean(X *mat.Dense) []float64 {
	n, _ := X.Dims()
	return make([]float64, n)
}

type constantMean struct {
	c float64
}

// Constant returns a mean function with the same value everywhere.
func Constant(c float64) MeanFunc { return constantMean{c: c} }

func (m constantMean) Mean(X *mat.Dense) []float64 {
	n, _ := X.Dims()
	out := make([]float64, n)
	for i := range out {
		out[i] = m.c
	}
	return out
}

type linearMean struct {
	coeffs    []float64
	intercept float64
}

// LinearMean returns the mean function X . coeffs + intercept. The
// coefficient count must match the input column count at evaluation time.
func LinearMean(coeffs []float64, intercept float64) MeanFunc {
	cc := make([]float64, len(coeffs))
	copy(cc, coeffs)
	return linearMean{coeffs: cc, intercept: intercept}
}

func (m linearMean) Mean(X *mat.Dense) []float64 {
	n, d := X.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := m.intercept
		for j := 0; j < d; j++ {
			v += X.At(i, j) * m.coeffs[j]
		}
		out[i] = v
	}
	return out
}
