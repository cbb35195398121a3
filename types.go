package gp

import (
	"errors"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

//////
// Const, vars, types.
//////

// Kind identifies the inference strategy a GP value was constructed with.
// It is determined once, by New, from the arguments present in the Config,
// and never changes afterwards.
type Kind int

const (
	// KindNonConjugate is a latent GP with no observed data. The function
	// values are represented through a whitened (non-centered) standard
	// normal vector; see NonConjugate.
	KindNonConjugate Kind = iota

	// KindFullConjugate is an exact GP with a Gaussian likelihood. All
	// marginal and conditional quantities have closed forms.
	KindFullConjugate

	// KindSparseConjugate is a low-rank GP approximation (FITC or VFE)
	// built on a set of inducing points.
	KindSparseConjugate
)

// String returns a human-readable name for the variant kind.
func (k Kind) String() string {
	switch k {
	case KindNonConjugate:
		return "NonConjugate"
	case KindFullConjugate:
		return "FullConjugate"
	case KindSparseConjugate:
		return "SparseConjugate"
	default:
		return "Unknown"
	}
}

// Approximation names accepted by Config.Approx. Matching is
// case-insensitive; an empty Approx on the sparse path selects VFE.
const (
	ApproxFITC = "FITC"
	ApproxVFE  = "VFE"
)

// Construction and evaluation errors. All of them are fatal and reported
// immediately; numerical trouble (near-singular covariance matrices,
// negative squared distances from floating point error) is instead absorbed
// locally by jitter and clipping and never surfaces as an error.
var (
	// ErrNilModel is returned when New is called without a model to
	// register the variable in.
	ErrNilModel = errors.New("gp: a model must be provided")

	// ErrNoInputs is returned when the training inputs X are missing.
	ErrNoInputs = errors.New("gp: training inputs X must be provided")

	// ErrNoCovFunc is returned when no covariance function is given.
	ErrNoCovFunc = errors.New("gp: a covariance function must be specified")

	// ErrNoNoise is returned when a full conjugate GP is requested without
	// a noise standard deviation or a noise covariance function.
	ErrNoNoise = errors.New("gp: must provide a value or a prior for the noise variance")

	// ErrUnknownApprox is returned for an approximation name other than
	// FITC or VFE. The sparse variant never falls back silently.
	ErrUnknownApprox = errors.New("gp: FITC and VFE are the implemented GP approximations")

	// ErrNoInducing is returned when the sparse path is selected but
	// neither inducing point locations nor their count were given.
	ErrNoInducing = errors.New("gp: must specify inducing points or an inducing point count")

	// ErrInputDim is returned for a non-positive kernel input dimension.
	ErrInputDim = errors.New("gp: input dimension must be positive")

	// ErrActiveDims is returned when the active dimension list does not
	// have exactly input dimension entries.
	ErrActiveDims = errors.New("gp: length of active dims must match input dim")

	// ErrLengthscales is returned when lengthscales are empty, negative,
	// or neither scalar nor one per input dimension.
	ErrLengthscales = errors.New("gp: lengthscales must be a positive scalar or one per dimension")

	// ErrCenter is returned when the linear kernel center is empty or
	// neither scalar nor one per input dimension.
	ErrCenter = errors.New("gp: center must be a scalar or one per dimension")

	// ErrWarpFunc is returned when a warped input kernel is built without
	// a warp function.
	ErrWarpFunc = errors.New("gp: warp function must be non-nil")

	// ErrLengthscaleFunc is returned when a Gibbs kernel is built without
	// a lengthscale function.
	ErrLengthscaleFunc = errors.New("gp: lengthscale function must be non-nil")

	// ErrGibbsDim is returned when a Gibbs kernel is requested for inputs
	// with more than one dimension.
	ErrGibbsDim = errors.New("gp: the Gibbs kernel supports one-dimensional inputs only")

	// ErrEmptyCombination is returned when a Sum or Prod has no kernel
	// term to take its dimensions from.
	ErrEmptyCombination = errors.New("gp: combination requires at least one kernel term")

	// ErrCholesky is returned when a covariance matrix cannot be
	// factorized even after jitter stabilization.
	ErrCholesky = errors.New("gp: cholesky factorization failed")

	// ErrSampleCount is returned when more posterior predictive samples
	// are requested than there are trace entries to draw from. Sampling is
	// without replacement, so the request cannot be honored.
	ErrSampleCount = errors.New("gp: requested more samples than trace entries")

	// ErrDuplicateVar is returned when a variable name is registered twice
	// in the same model.
	ErrDuplicateVar = errors.New("gp: variable name already registered in model")

	// ErrMissingVar is returned when a trace point does not contain a
	// value the sampler needs.
	ErrMissingVar = errors.New("gp: trace point is missing a required variable")
)

// Config holds every argument accepted by the GP constructor. Which fields
// must be set depends on the variant being requested; New applies the
// decision table documented on it and reports a construction error when a
// required field is missing.
type Config struct {
	// X holds the training inputs, one row per point (n x d).
	X *mat.Dense

	// Mean is the mean function of the process. Nil selects Zero().
	Mean MeanFunc

	// Cov is the covariance function of the process. Required.
	Cov Covariance

	// NoiseCov is the covariance function of the noise process. Only
	// consulted by the full conjugate variant; ignored by approximations.
	NoiseCov Covariance

	// Sigma is the observation noise standard deviation. A value greater
	// than zero counts as provided; when NoiseCov is nil it builds a
	// white noise covariance with this standard deviation.
	Sigma float64

	// Approx selects the sparse approximation, ApproxFITC or ApproxVFE.
	// Empty selects VFE when the sparse path is taken.
	Approx string

	// NInducing asks for this many inducing points to be placed by
	// k-means on the whitened training inputs. Ignored when
	// InducingPoints is set.
	NInducing int

	// InducingPoints holds explicit inducing point locations (m x d).
	InducingPoints *mat.Dense

	// Observed holds the observed outputs y. Nil selects the
	// non-conjugate (latent) variant.
	Observed []float64

	// Seed drives the k-means initialization of inducing points.
	// Zero means derive a seed from the current time.
	Seed uint64

	// Logger receives construction-time messages, such as the
	// approximation that was selected. Nil selects a no-op logger.
	Logger *zap.Logger
}

// SampleOpts controls SampleGP.
type SampleOpts struct {
	// NSamples is the number of posterior predictive samples to draw.
	// Zero means one per trace entry. Values larger than the trace length
	// are an error, never a silent resample with replacement.
	NSamples int

	// ObsNoise includes observation noise in the drawn covariance.
	// Ignored by the non-conjugate variant.
	ObsNoise bool

	// FromPrior draws from the GP prior instead of the conditional.
	FromPrior bool

	// ProgressBar displays a progress bar while sampling.
	ProgressBar bool

	// RandomSeed seeds the sampler. Zero means derive a seed from the
	// current time.
	RandomSeed uint64

	// Logger receives sampler messages. Nil selects a no-op logger.
	Logger *zap.Logger
}

// DefaultSampleOpts returns the default sampler options: one sample per
// trace entry, observation noise included, conditional (not prior) draws,
// and no progress bar.
func DefaultSampleOpts() SampleOpts {
	return SampleOpts{
		NSamples:    0,
		ObsNoise:    true,
		FromPrior:   false,
		ProgressBar: false,
	}
}
