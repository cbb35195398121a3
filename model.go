package gp

// Model is the registry of named GP random variables and their observed
// outputs. It stands in for the host probabilistic model: variables are
// registered under the name passed to New, and the sampler looks up
// observed data for conjugate variables by that name. The model is always
// threaded explicitly; there is no ambient global context.
type Model struct {
	vars     map[string]GP
	observed map[string][]float64
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		vars:     make(map[string]GP),
		observed: make(map[string][]float64),
	}
}

func (m *Model) register(name string, g GP, observed []float64) error {
	if _, ok := m.vars[name]; ok {
		return ErrDuplicateVar
	}
	m.vars[name] = g
	if observed != nil {
		y := make([]float64, len(observed))
		copy(y, observed)
		m.observed[name] = y
	}
	return nil
}

// Var returns the GP registered under name, if any.
func (m *Model) Var(name string) (GP, bool) {
	g, ok := m.vars[name]
	return g, ok
}

// Observed returns the observed outputs registered under name, or nil for
// a latent variable.
func (m *Model) Observed(name string) []float64 {
	return m.observed[name]
}

// Point holds the realized parameter values of a single posterior draw,
// keyed by variable name.
type Point map[string][]float64

// Trace is an ordered collection of posterior draws, indexable by integer.
type Trace []Point
