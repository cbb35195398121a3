package gp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

//////
// Non-stationary kernel families: white noise, linear, polynomial.
//////

// WhiteNoise is the white noise covariance function, sigma^2 on the
// diagonal and zero everywhere else. Points from two different batches are
// never correlated, so the cross covariance between X and a distinct Xs is
// the zero matrix.
type WhiteNoise struct {
	dims
	sigma float64
}

// NewWhiteNoise builds a white noise kernel with standard deviation sigma.
func NewWhiteNoise(inputDim int, activeDims []int, sigma float64) (*WhiteNoise, error) {
	d, err := newDims(inputDim, activeDims)
	if err != nil {
		return nil, err
	}
	return &WhiteNoise{dims: d, sigma: sigma}, nil
}

func (k *WhiteNoise) Full(X, Xs *mat.Dense) *mat.Dense {
	n, _ := X.Dims()
	if Xs == nil {
		out := mat.NewDense(n, n, nil)
		s2 := k.sigma * k.sigma
		for i := 0; i < n; i++ {
			out.Set(i, i, s2)
		}
		return out
	}
	m, _ := Xs.Dims()
	return mat.NewDense(n, m, nil)
}

func (k *WhiteNoise) Diag(X *mat.Dense) []float64 {
	n, _ := X.Dims()
	out := make([]float64, n)
	s2 := k.sigma * k.sigma
	for i := range out {
		out[i] = s2
	}
	return out
}

// Linear is the linear (dot product) kernel about a center c:
//
//	k(x, x') = (x - c) . (x' - c)
type Linear struct {
	dims
	c []float64
}

// NewLinear builds a linear kernel. The center c may be a single scalar or
// one value per input dimension.
func NewLinear(inputDim int, activeDims []int, c ...float64) (*Linear, error) {
	d, err := newDims(inputDim, activeDims)
	if err != nil {
		return nil, err
	}
	if len(c) != 1 && len(c) != inputDim {
		return nil, ErrCenter
	}
	cc := make([]float64, len(c))
	copy(cc, c)
	return &Linear{dims: d, c: cc}, nil
}

// center subtracts c from each row of the already sliced X.
func (k *Linear) center(X *mat.Dense) *mat.Dense {
	n, d := X.Dims()
	out := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			c := k.c[0]
			if len(k.c) > 1 {
				c = k.c[j]
			}
			out.Set(i, j, X.At(i, j)-c)
		}
	}
	return out
}

func (k *Linear) Full(X, Xs *mat.Dense) *mat.Dense {
	X, Xs = k.slicePair(X, Xs)
	Xc := k.center(X)
	var out mat.Dense
	if Xs == nil {
		out.Mul(Xc, Xc.T())
	} else {
		out.Mul(Xc, k.center(Xs).T())
	}
	return &out
}

func (k *Linear) Diag(X *mat.Dense) []float64 {
	Xc := k.center(k.slice(X))
	return rowNormsSq(Xc)
}

// Polynomial raises the linear kernel plus an offset to an integer-like
// power d:
//
//	k(x, x') = ((x - c) . (x' - c) + offset)^d
type Polynomial struct {
	Linear
	degree float64
	offset float64
}

// NewPolynomial builds a polynomial kernel of the given degree and offset
// about the center c.
func NewPolynomial(inputDim int, activeDims []int, degree, offset float64, c ...float64) (*Polynomial, error) {
	lin, err := NewLinear(inputDim, activeDims, c...)
	if err != nil {
		return nil, err
	}
	return &Polynomial{Linear: *lin, degree: degree, offset: offset}, nil
}

func (k *Polynomial) Full(X, Xs *mat.Dense) *mat.Dense {
	return mapMatrix(k.Linear.Full(X, Xs), func(v float64) float64 {
		return math.Pow(v+k.offset, k.degree)
	})
}

func (k *Polynomial) Diag(X *mat.Dense) []float64 {
	d := k.Linear.Diag(X)
	for i, v := range d {
		d[i] = math.Pow(v+k.offset, k.degree)
	}
	return d
}
