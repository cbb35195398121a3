package gp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

//////
// Stationary kernel families.
//////

// distFloor is added under the square root of the Euclidean distance so
// that the gradient of the distance stays finite when two points coincide.
const distFloor = 1e-12

// stationary holds the state shared by kernels that depend only on the
// scaled distance between their inputs: the dimension bookkeeping and a
// lengthscale per dimension (or a single scalar broadcast over all of
// them). Concrete families embed it and supply the closed form over the
// distance it computes.
type stationary struct {
	dims
	lengthscales []float64
}

func newStationary(inputDim int, activeDims []int, lengthscales []float64) (stationary, error) {
	d, err := newDims(inputDim, activeDims)
	if err != nil {
		return stationary{}, err
	}
	if len(lengthscales) != 1 && len(lengthscales) != inputDim {
		return stationary{}, ErrLengthscales
	}
	for _, l := range lengthscales {
		if l <= 0 {
			return stationary{}, ErrLengthscales
		}
	}
	ls := make([]float64, len(lengthscales))
	copy(ls, lengthscales)
	return stationary{dims: d, lengthscales: ls}, nil
}

// Lengthscales returns the configured lengthscales.
func (s stationary) Lengthscales() []float64 { return s.lengthscales }

// scale divides each column of X by its lengthscale. X must already be
// sliced to the active dimensions.
func (s stationary) scale(X *mat.Dense) *mat.Dense {
	n, c := X.Dims()
	out := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			l := s.lengthscales[0]
			if len(s.lengthscales) > 1 {
				l = s.lengthscales[j]
			}
			out.Set(i, j, X.At(i, j)/l)
		}
	}
	return out
}

// squareDist computes the matrix of pairwise squared Euclidean distances
// between the rows of X and Xs (Xs nil means Xs = X). Entries are clipped
// at zero to absorb the negative values floating point cancellation can
// produce for near-identical points.
func squareDist(X, Xs *mat.Dense) *mat.Dense {
	n, _ := X.Dims()
	x2 := rowNormsSq(X)
	ref, z2, m := X, x2, n
	if Xs != nil {
		ref = Xs
		z2 = rowNormsSq(Xs)
		m, _ = Xs.Dims()
	}
	var cross mat.Dense
	cross.Mul(X, ref.T())
	out := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			v := x2[i] + z2[j] - 2*cross.At(i, j)
			if v < 0 {
				v = 0
			}
			out.Set(i, j, v)
		}
	}
	return out
}

func rowNormsSq(X *mat.Dense) []float64 {
	n, c := X.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		s := 0.0
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			s += v * v
		}
		out[i] = s
	}
	return out
}

// dist2 slices, scales and returns pairwise squared distances.
func (s stationary) dist2(X, Xs *mat.Dense) *mat.Dense {
	X, Xs = s.slicePair(X, Xs)
	X = s.scale(X)
	if Xs != nil {
		Xs = s.scale(Xs)
	}
	return squareDist(X, Xs)
}

// dist returns pairwise Euclidean distances with the gradient floor applied.
func (s stationary) dist(X, Xs *mat.Dense) *mat.Dense {
	r2 := s.dist2(X, Xs)
	n, m := r2.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			r2.Set(i, j, math.Sqrt(r2.At(i, j)+distFloor))
		}
	}
	return r2
}

// Diag of any stationary kernel is one everywhere: zero distance from a
// point to itself.
func (s stationary) Diag(X *mat.Dense) []float64 {
	n, _ := X.Dims()
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.0
	}
	return out
}

func mapMatrix(m *mat.Dense, f func(float64) float64) *mat.Dense {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, f(m.At(i, j)))
		}
	}
	return m
}

// ExpQuad is the exponentiated quadratic kernel, also known as the squared
// exponential or radial basis function kernel:
//
//	k(x, x') = exp(-r2 / 2)
//
// where r2 is the squared distance scaled by the lengthscales.
type ExpQuad struct {
	stationary
}

// NewExpQuad builds an exponentiated quadratic kernel. Lengthscales may be
// a single scalar or one value per input dimension.
func NewExpQuad(inputDim int, activeDims []int, lengthscales ...float64) (*ExpQuad, error) {
	s, err := newStationary(inputDim, activeDims, lengthscales)
	if err != nil {
		return nil, err
	}
	return &ExpQuad{stationary: s}, nil
}

func (k *ExpQuad) Full(X, Xs *mat.Dense) *mat.Dense {
	return mapMatrix(k.dist2(X, Xs), func(r2 float64) float64 {
		return math.Exp(-0.5 * r2)
	})
}

// RatQuad is the rational quadratic kernel:
//
//	k(x, x') = (1 + r2 / (2 alpha))^(-alpha)
//
// a scale mixture of exponentiated quadratics; alpha controls the mixture
// width and recovers ExpQuad as alpha grows.
type RatQuad struct {
	stationary
	alpha float64
}

// NewRatQuad builds a rational quadratic kernel with mixture parameter alpha.
func NewRatQuad(inputDim int, activeDims []int, alpha float64, lengthscales ...float64) (*RatQuad, error) {
	s, err := newStationary(inputDim, activeDims, lengthscales)
	if err != nil {
		return nil, err
	}
	return &RatQuad{stationary: s, alpha: alpha}, nil
}

func (k *RatQuad) Full(X, Xs *mat.Dense) *mat.Dense {
	return mapMatrix(k.dist2(X, Xs), func(r2 float64) float64 {
		return math.Pow(1.0+0.5*r2/k.alpha, -k.alpha)
	})
}

// Matern52 is the Matern kernel with smoothness 5/2:
//
//	k(x, x') = (1 + sqrt(5) r + 5 r^2 / 3) exp(-sqrt(5) r)
type Matern52 struct {
	stationary
}

// NewMatern52 builds a Matern 5/2 kernel.
func NewMatern52(inputDim int, activeDims []int, lengthscales ...float64) (*Matern52, error) {
	s, err := newStationary(inputDim, activeDims, lengthscales)
	if err != nil {
		return nil, err
	}
	return &Matern52{stationary: s}, nil
}

func (k *Matern52) Full(X, Xs *mat.Dense) *mat.Dense {
	sqrt5 := math.Sqrt(5.0)
	return mapMatrix(k.dist(X, Xs), func(r float64) float64 {
		return (1.0 + sqrt5*r + 5.0/3.0*r*r) * math.Exp(-sqrt5*r)
	})
}

// Matern32 is the Matern kernel with smoothness 3/2:
//
//	k(x, x') = (1 + sqrt(3) r) exp(-sqrt(3) r)
type Matern32 struct {
	stationary
}

// NewMatern32 builds a Matern 3/2 kernel.
func NewMatern32(inputDim int, activeDims []int, lengthscales ...float64) (*Matern32, error) {
	s, err := newStationary(inputDim, activeDims, lengthscales)
	if err != nil {
		return nil, err
	}
	return &Matern32{stationary: s}, nil
}

func (k *Matern32) Full(X, Xs *mat.Dense) *mat.Dense {
	sqrt3 := math.Sqrt(3.0)
	return mapMatrix(k.dist(X, Xs), func(r float64) float64 {
		return (1.0 + sqrt3*r) * math.Exp(-sqrt3*r)
	})
}

// Exponential is the exponential kernel, which uses the Euclidean rather
// than the squared distance:
//
//	k(x, x') = exp(-r / 2)
type Exponential struct {
	stationary
}

// NewExponential builds an exponential kernel.
func NewExponential(inputDim int, activeDims []int, lengthscales ...float64) (*Exponential, error) {
	s, err := newStationary(inputDim, activeDims, lengthscales)
	if err != nil {
		return nil, err
	}
	return &Exponential{stationary: s}, nil
}

func (k *Exponential) Full(X, Xs *mat.Dense) *mat.Dense {
	return mapMatrix(k.dist(X, Xs), func(r float64) float64 {
		return math.Exp(-0.5 * r)
	})
}

// Cosine is the cosine kernel:
//
//	k(x, x') = cos(pi r)
type Cosine struct {
	stationary
}

// NewCosine builds a cosine kernel.
func NewCosine(inputDim int, activeDims []int, lengthscales ...float64) (*Cosine, error) {
	s, err := newStationary(inputDim, activeDims, lengthscales)
	if err != nil {
		return nil, err
	}
	return &Cosine{stationary: s}, nil
}

func (k *Cosine) Full(X, Xs *mat.Dense) *mat.Dense {
	return mapMatrix(k.dist(X, Xs), func(r float64) float64 {
		return math.Cos(math.Pi * r)
	})
}
