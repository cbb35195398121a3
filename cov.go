package gp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

//////
// Covariance function abstraction and kernel algebra.
//////

// Covariance is a kernel function evaluated over batches of input points.
// X and Xs hold one point per row. Full returns the |X| x |Xs| matrix of
// pairwise kernel values; a nil Xs means Xs = X and the result is the
// symmetric Gram matrix. Diag returns only k(x, x) for each row of X,
// computed without forming the full matrix.
//
// Implementations slice their active dimensions out of the inputs on every
// call, so kernels operating on disjoint column subsets can be combined
// over a shared wide input matrix.
type Covariance interface {
	// InputDim reports the number of input columns the kernel reads.
	InputDim() int

	// ActiveDims reports which columns of the input the kernel reads.
	ActiveDims() []int

	// Full evaluates the covariance matrix between X and Xs.
	// Xs may be nil, in which case the result is K(X, X).
	Full(X, Xs *mat.Dense) *mat.Dense

	// Diag evaluates only the diagonal of K(X, X).
	Diag(X *mat.Dense) []float64
}

// dims carries the input dimension bookkeeping shared by every kernel:
// the expected number of feature columns and the indices of the columns
// the kernel actually reads.
type dims struct {
	inputDim   int
	activeDims []int
}

func newDims(inputDim int, activeDims []int) (dims, error) {
	if inputDim < 1 {
		return dims{}, ErrInputDim
	}
	if activeDims == nil {
		activeDims = make([]int, inputDim)
		for i := range activeDims {
			activeDims[i] = i
		}
	} else if len(activeDims) != inputDim {
		return dims{}, fmt.Errorf("%w: got %d active dims for input dim %d",
			ErrActiveDims, len(activeDims), inputDim)
	}
	return dims{inputDim: inputDim, activeDims: activeDims}, nil
}

func (d dims) InputDim() int { return d.inputDim }

func (d dims) ActiveDims() []int { return d.activeDims }

// slice selects the active columns of X. Evaluating on an input that lacks
// a selected column panics, matching the dimension mismatch behavior of the
// underlying matrix library.
func (d dims) slice(X *mat.Dense) *mat.Dense {
	n, c := X.Dims()
	identity := c == d.inputDim
	for i, a := range d.activeDims {
		if a != i {
			identity = false
			break
		}
	}
	if identity {
		return X
	}
	out := mat.NewDense(n, d.inputDim, nil)
	for i := 0; i < n; i++ {
		for j, a := range d.activeDims {
			out.Set(i, j, X.At(i, a))
		}
	}
	return out
}

// slicePair applies slice to X and, when present, Xs.
func (d dims) slicePair(X, Xs *mat.Dense) (*mat.Dense, *mat.Dense) {
	if Xs == nil {
		return d.slice(X), nil
	}
	return d.slice(X), d.slice(Xs)
}

//////
// Combinations: sums and products of kernels, constants and arrays.
//////

type termKind int

const (
	termKernel termKind = iota
	termScalar
	termVector
	termMatrix
)

// Term is one operand of a Sum or Prod. The operand universe is closed:
// a kernel, a scalar, a vector (a diagonal-like array, broadcast across
// rows in full evaluation), or a constant matrix.
type Term struct {
	kind   termKind
	cov    Covariance
	scalar float64
	vector []float64
	matrix *mat.Dense
}

// Kern wraps a covariance function as a combination operand.
func Kern(k Covariance) Term { return Term{kind: termKernel, cov: k} }

// Scalar wraps a constant as a combination operand.
func Scalar(v float64) Term { return Term{kind: termScalar, scalar: v} }

// Vector wraps a one-dimensional array as a combination operand. In full
// evaluation entry j applies to column j; in diagonal evaluation the
// entries apply elementwise.
func Vector(v []float64) Term { return Term{kind: termVector, vector: v} }

// Matrix wraps a constant matrix as a combination operand. In diagonal
// evaluation only its diagonal participates.
func Matrix(m *mat.Dense) Term { return Term{kind: termMatrix, matrix: m} }

type combOp int

const (
	opAdd combOp = iota
	opProd
)

// Combination is an ordered sequence of operands reduced with a single
// binary operator, either addition or multiplication. Nesting a
// combination of the same operator flattens its operand list into the
// outer one at construction time; mixed-operator nesting stays nested.
type Combination struct {
	dims
	op    combOp
	terms []Term
}

// Sum builds the elementwise sum of the given operands.
// At least one operand must be a kernel; the combination takes its input
// dimension from the widest kernel operand.
func Sum(terms ...Term) (*Combination, error) {
	return newCombination(opAdd, terms)
}

// Prod builds the elementwise product of the given operands, under the
// same rules as Sum.
func Prod(terms ...Term) (*Combination, error) {
	return newCombination(opProd, terms)
}

func newCombination(op combOp, terms []Term) (*Combination, error) {
	flat := make([]Term, 0, len(terms))
	maxDim := 0
	for _, t := range terms {
		if t.kind == termKernel {
			if t.cov == nil {
				return nil, ErrNoCovFunc
			}
			if c, ok := t.cov.(*Combination); ok && c.op == op {
				flat = append(flat, c.terms...)
			} else {
				flat = append(flat, t)
			}
			if t.cov.InputDim() > maxDim {
				maxDim = t.cov.InputDim()
			}
			continue
		}
		flat = append(flat, t)
	}
	if maxDim == 0 {
		return nil, ErrEmptyCombination
	}
	d, err := newDims(maxDim, nil)
	if err != nil {
		return nil, err
	}
	return &Combination{dims: d, op: op, terms: flat}, nil
}

// Terms returns the flattened operand list.
func (c *Combination) Terms() []Term { return c.terms }

func (c *Combination) combine(acc, v float64) float64 {
	if c.op == opAdd {
		return acc + v
	}
	return acc * v
}

// Full evaluates the combination over X and Xs. Kernel operands evaluate
// themselves (each applying its own active dimension slicing), constant
// operands broadcast, and the results reduce left to right.
func (c *Combination) Full(X, Xs *mat.Dense) *mat.Dense {
	rows, _ := X.Dims()
	cols := rows
	if Xs != nil {
		cols, _ = Xs.Dims()
	}
	out := mat.NewDense(rows, cols, nil)
	for idx, t := range c.terms {
		c.applyFull(out, t, X, Xs, idx == 0)
	}
	return out
}

func (c *Combination) applyFull(out *mat.Dense, t Term, X, Xs *mat.Dense, first bool) {
	rows, cols := out.Dims()
	set := func(i, j int, v float64) {
		if first {
			out.Set(i, j, v)
		} else {
			out.Set(i, j, c.combine(out.At(i, j), v))
		}
	}
	switch t.kind {
	case termKernel:
		m := t.cov.Full(X, Xs)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				set(i, j, m.At(i, j))
			}
		}
	case termScalar:
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				set(i, j, t.scalar)
			}
		}
	case termVector:
		if len(t.vector) != cols {
			panic(fmt.Sprintf("gp: vector term length %d does not match %d columns",
				len(t.vector), cols))
		}
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				set(i, j, t.vector[j])
			}
		}
	case termMatrix:
		r, cc := t.matrix.Dims()
		if r != rows || cc != cols {
			panic(fmt.Sprintf("gp: matrix term is %dx%d, want %dx%d", r, cc, rows, cols))
		}
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				set(i, j, t.matrix.At(i, j))
			}
		}
	}
}

// Diag evaluates only the diagonal of the combination. Every matrix-valued
// operand is reduced to its diagonal before combining, so off-diagonal
// entries never reach a diagonal-only request.
func (c *Combination) Diag(X *mat.Dense) []float64 {
	n, _ := X.Dims()
	out := make([]float64, n)
	for idx, t := range c.terms {
		c.applyDiag(out, t, X, idx == 0)
	}
	return out
}

func (c *Combination) applyDiag(out []float64, t Term, X *mat.Dense, first bool) {
	n := len(out)
	set := func(i int, v float64) {
		if first {
			out[i] = v
		} else {
			out[i] = c.combine(out[i], v)
		}
	}
	switch t.kind {
	case termKernel:
		d := t.cov.Diag(X)
		for i := 0; i < n; i++ {
			set(i, d[i])
		}
	case termScalar:
		for i := 0; i < n; i++ {
			set(i, t.scalar)
		}
	case termVector:
		if len(t.vector) != n {
			panic(fmt.Sprintf("gp: vector term length %d does not match %d rows",
				len(t.vector), n))
		}
		for i := 0; i < n; i++ {
			set(i, t.vector[i])
		}
	case termMatrix:
		r, cc := t.matrix.Dims()
		if r != n || cc != n {
			panic(fmt.Sprintf("gp: matrix term is %dx%d, want %dx%d", r, cc, n, n))
		}
		for i := 0; i < n; i++ {
			set(i, t.matrix.At(i, i))
		}
	}
}
