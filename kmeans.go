package gp

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//////
// Inducing point initialization.
//////

// kmeansMaxIter bounds Lloyd iterations; the placement only seeds the
// sparse approximation, so full convergence is not required.
const kmeansMaxIter = 100

// kmeansInducing places m inducing points by k-means over the training
// inputs. The columns are whitened by their standard deviation first so
// that the squared Euclidean objective treats every dimension alike, and
// the resulting centroids are scaled back before returning. Centroids are
// seeded from a random permutation of the rows; a cluster that empties
// out is reseeded to the point farthest from its centroid.
func kmeansInducing(X *mat.Dense, m int, rnd *rand.Rand) (*mat.Dense, error) {
	n, d := X.Dims()
	if m <= 0 || m > n {
		return nil, fmt.Errorf("gp: cannot place %d inducing points over %d inputs", m, n)
	}

	scales := make([]float64, d)
	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, X)
		s := stat.StdDev(col, nil)
		if s == 0 {
			s = 1.0
		}
		scales[j] = s
	}
	W := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			W.Set(i, j, X.At(i, j)/scales[j])
		}
	}

	centroids := mat.NewDense(m, d, nil)
	for i, p := range rnd.Perm(n)[:m] {
		centroids.SetRow(i, W.RawRowView(p))
	}

	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}
	counts := make([]int, m)
	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			best, bestDist := 0, floats.Distance(W.RawRowView(i), centroids.RawRowView(0), 2)
			for c := 1; c < m; c++ {
				if dist := floats.Distance(W.RawRowView(i), centroids.RawRowView(c), 2); dist < bestDist {
					best, bestDist = c, dist
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		centroids.Zero()
		for c := range counts {
			counts[c] = 0
		}
		for i := 0; i < n; i++ {
			c := assign[i]
			counts[c]++
			for j := 0; j < d; j++ {
				centroids.Set(c, j, centroids.At(c, j)+W.At(i, j))
			}
		}
		for c := 0; c < m; c++ {
			if counts[c] == 0 {
				continue
			}
			inv := 1.0 / float64(counts[c])
			for j := 0; j < d; j++ {
				centroids.Set(c, j, centroids.At(c, j)*inv)
			}
		}
		for c := 0; c < m; c++ {
			if counts[c] == 0 {
				centroids.SetRow(c, W.RawRowView(farthestRow(W, centroids, assign)))
			}
		}
	}

	Xu := mat.NewDense(m, d, nil)
	for c := 0; c < m; c++ {
		for j := 0; j < d; j++ {
			Xu.Set(c, j, centroids.At(c, j)*scales[j])
		}
	}
	return Xu, nil
}

// farthestRow returns the index of the row of W farthest from its
// assigned centroid, used to reseed an emptied cluster.
func farthestRow(W, centroids *mat.Dense, assign []int) int {
	n, _ := W.Dims()
	worst, worstDist := 0, -1.0
	for i := 0; i < n; i++ {
		dist := floats.Distance(W.RawRowView(i), centroids.RawRowView(assign[i]), 2)
		if dist > worstDist {
			worst, worstDist = i, dist
		}
	}
	return worst
}
