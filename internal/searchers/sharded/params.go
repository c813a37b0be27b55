package sharded

import (
	"github.com/janpfeifer/stackGo/internal/ai"
	"github.com/janpfeifer/stackGo/internal/parameters"
	"github.com/pkg/errors"
)

// NewFromParams builds a Searcher from a user configuration string parsed by
// the parameters package. Accepted keys:
//
//	style=ucb|sampled   search style (default ucb)
//	c_explore=<float>   exploration constant of the UCB select (default 1.1)
//	temperature=<float> sampling temperature of the sampled select (default 1.0)
//	load_factor=<int>   concurrent traversals seeded per worker (default 6)
//	seed=<int>          fixed RNG seed, for reproducible runs
func NewFromParams(scorer ai.Scorer, params parameters.Params) (*Searcher, error) {
	s := New(scorer)

	styleName, err := parameters.PopParamOr(params, "style", "ucb")
	if err != nil {
		return nil, err
	}
	switch styleName {
	case "ucb":
		s.style = StyleUCB
	case "sampled":
		s.style = StyleSampled
	default:
		return nil, errors.Errorf("unknown search style %q, valid values are \"ucb\" and \"sampled\"", styleName)
	}

	if s.cExplore, err = parameters.PopParamOr(params, "c_explore", s.cExplore); err != nil {
		return nil, err
	}
	if s.cExplore < 0 {
		return nil, errors.Errorf("c_explore must not be negative, got %g", s.cExplore)
	}
	if s.temperature, err = parameters.PopParamOr(params, "temperature", s.temperature); err != nil {
		return nil, err
	}
	if s.temperature <= 0 {
		return nil, errors.Errorf("temperature must be positive, got %g", s.temperature)
	}
	if s.loadFactor, err = parameters.PopParamOr(params, "load_factor", s.loadFactor); err != nil {
		return nil, err
	}
	if s.loadFactor <= 0 {
		return nil, errors.Errorf("load_factor must be positive, got %d", s.loadFactor)
	}
	seed, err := parameters.PopParamOr(params, "seed", 0)
	if err != nil {
		return nil, err
	}
	if seed != 0 {
		s.WithSeed(uint64(seed))
	}

	for key, value := range params {
		return nil, errors.Errorf("unknown parameter %q (=%q) for the sharded searcher", key, value)
	}
	return s, nil
}
