// Package gp provides Gaussian process regression building blocks: a
// composable covariance function algebra, mean functions, three inference
// variants, and a posterior predictive sampler.
//
// # Features
//
// The package includes the following key features:
//
//   - Covariance Algebra: Kernels compose through Sum and Prod, mix with
//     scalars, vectors, and precomputed matrices, and restrict themselves
//     to selected input columns via active dimensions
//   - Stationary Families: Squared exponential, rational quadratic,
//     Matern 5/2 and 3/2, exponential, and cosine kernels with per
//     dimension lengthscales
//   - Non-stationary Kernels: White noise, linear, polynomial, warped
//     input, and the Gibbs kernel with an input-dependent lengthscale
//   - Three Inference Variants: A whitened latent GP for non-Gaussian
//     likelihoods, exact conjugate regression, and sparse approximations
//     (FITC and VFE) over inducing points
//   - Inducing Point Placement: Automatic k-means initialization over
//     whitened inputs when explicit locations are not given
//   - Posterior Predictive Sampling: Draws over new inputs from a trace of
//     posterior parameter values, with context cancellation and an
//     optional progress bar
//   - Numerical Robustness: Trace-scaled jitter before every Cholesky
//     factorization and clipped distance computations
//
// # Building a model
//
// Variables are registered in a Model and selected by argument presence:
//
//	model := gp.NewModel()
//	cov, _ := gp.NewExpQuad(1, nil, 1.0)
//	g, err := gp.New("f", gp.Config{
//	    X:        X,
//	    Cov:      cov,
//	    Sigma:    0.1,
//	    Observed: y,
//	}, model)
//
// Omitting Observed yields the latent (non-conjugate) variant; supplying
// inducing points or their count yields a sparse approximation:
//
//	g, err := gp.New("f", gp.Config{
//	    X:         X,
//	    Cov:       cov,
//	    Sigma:     0.1,
//	    Observed:  y,
//	    Approx:    gp.ApproxFITC,
//	    NInducing: 20,
//	}, model)
//
// # Sampling
//
// SampleGP turns a trace of posterior draws into function realizations at
// new inputs:
//
//	samples, err := gp.SampleGP(ctx, trace, g, Xnew, gp.DefaultSampleOpts())
//
// Each row of the returned matrix is one draw. Cancelling the context
// stops the loop between draws and returns what was collected so far.
package gp
