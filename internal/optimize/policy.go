package optimize

import (
	"errors"

	"FinSim/internal/domain/models"
)

// Policy names accepted by Options.Policy.
const (
	PolicyBrute      = "brute"
	PolicyCoordinate = "coordinate"
	PolicyHalving    = "halving"
)

var (
	ErrEmptySpace      = errors.New("optimize: empty search space")
	ErrBadDimension    = errors.New("optimize: invalid dimension bounds")
	ErrUnknownPolicy   = errors.New("optimize: unknown policy")
	ErrSearchExhausted = errors.New("optimize: no candidate produced a score")
)

// candidate is one proposed evaluation: a parameter assignment, the data
// budget to evaluate it at, and its global iteration index.
type candidate struct {
	iteration int
	params    models.Params
	budget    float64
}

// patienceScope tells the driver at which granularity Options.Patience
// applies for a policy.
type patienceScope int

const (
	// scopeEval: every evaluation counts (brute force).
	scopeEval patienceScope = iota
	// scopeBatch: one proposal batch counts once (halving rungs).
	scopeBatch
	// scopeSelf: the policy tracks its own stopping unit (coordinate
	// search counts full dimension cycles) and returns an empty batch
	// when it runs out.
	scopeSelf
)

// policy proposes the next batch of candidates given everything evaluated so
// far. An empty batch means the policy is done. The three search strategies
// are tagged variants behind this one interface so a single driver loop runs
// them all.
type policy interface {
	next(h *history) []candidate
	patienceScope() patienceScope
}

func newPolicy(space Space, names []string, opts *Options) (policy, error) {
	switch opts.Policy {
	case PolicyBrute, "":
		return newBrutePolicy(space, names, opts), nil
	case PolicyCoordinate:
		return newCoordinatePolicy(space, names, opts), nil
	case PolicyHalving:
		return newHalvingPolicy(space, names, opts), nil
	default:
		return nil, ErrUnknownPolicy
	}
}
