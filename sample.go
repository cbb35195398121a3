package gp

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

//////
// Posterior predictive sampling.
//////

// SampleGP draws posterior predictive GP realizations at the inputs
// XValues, one per randomly chosen trace point. For a non-conjugate GP
// each trace point must carry the whitened rotation vector under the
// variable's rotated name; conjugate GPs condition on their observed
// data instead. Rows of the returned matrix are individual draws.
//
// Opts controls the draw count (zero means one per trace point),
// whether observation noise enters the predictive covariance, prior
// versus conditional sampling, the progress bar, and the seed (zero
// seeds from the clock). Cancelling ctx stops the loop between draws
// and returns the rows collected so far with a nil error; if no draw
// completed the matrix is nil.
func SampleGP(ctx context.Context, trace Trace, g GP, XValues *mat.Dense, opts SampleOpts) (*mat.Dense, error) {
	if g == nil {
		return nil, ErrNilModel
	}
	if XValues == nil && !opts.FromPrior {
		return nil, ErrNoInputs
	}
	if len(trace) == 0 {
		return nil, fmt.Errorf("%w: empty trace", ErrSampleCount)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	n := opts.NSamples
	if n == 0 {
		n = len(trace)
	}
	if n > len(trace) {
		return nil, fmt.Errorf("%w: requested %d draws from a trace of length %d", ErrSampleCount, n, len(trace))
	}

	seed := opts.RandomSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(trace))[:n]

	var bar *progressbar.ProgressBar
	if opts.ProgressBar {
		bar = progressbar.Default(int64(n), "sampling gp")
	}

	nonConj, isNonConj := g.(*NonConjugate)
	var samples [][]float64
	for _, idx := range indices {
		select {
		case <-ctx.Done():
			logger.Debug("sampling interrupted",
				zap.String("name", g.Name()),
				zap.Int("collected", len(samples)),
				zap.Int("requested", n))
			return assemble(samples), nil
		default:
		}

		var y []float64
		if isNonConj {
			v, ok := trace[idx][nonConj.RotatedName()]
			if !ok {
				return nil, fmt.Errorf("%w: %q not in trace point", ErrMissingVar, nonConj.RotatedName())
			}
			y = v
		} else if oc, ok := g.(observedCarrier); ok {
			y = oc.observedValues()
		}

		draw, err := g.Random(rnd, XValues, y, opts.ObsNoise, opts.FromPrior)
		if err != nil {
			return nil, err
		}
		samples = append(samples, draw)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return assemble(samples), nil
}

// assemble stacks the collected draws row-wise, or returns nil when
// nothing was collected.
func assemble(samples [][]float64) *mat.Dense {
	if len(samples) == 0 {
		return nil
	}
	out := mat.NewDense(len(samples), len(samples[0]), nil)
	for i, row := range samples {
		out.SetRow(i, row)
	}
	return out
}
