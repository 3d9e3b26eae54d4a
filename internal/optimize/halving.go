package optimize

import (
	"math"
	"sort"

	"FinSim/internal/domain/models"
)

const maxBudgetPct = 100.0

// halvingPolicy runs successive halving over the data budget, bracket by
// bracket. A bracket opens with a fresh cohort scored on a reduced slice of
// the series, then each following rung keeps the top 1/eta of the cohort and
// re-evaluates the survivors on eta times more data, until the final rung
// runs at the full series. After a bracket finishes the next one opens with
// a smaller cohort at a larger initial budget, down to a last bracket that
// scores its whole cohort at the full series, so the search hedges between
// aggressive early halving and plain full-budget sampling.
type halvingPolicy struct {
	space Space
	names []string
	ints  map[string]bool
	seed  int64
	eta   float64

	maxIter   int
	sMax      int
	bracket   int
	rung      int
	proposed  int
	lastStart int
	lastCount int
	started   bool
	done      bool
}

func newHalvingPolicy(space Space, names []string, opts *Options) *halvingPolicy {
	p := &halvingPolicy{
		space:   space,
		names:   names,
		ints:    opts.intSet(),
		seed:    opts.Seed,
		eta:     opts.Eta,
		maxIter: opts.MaxIter,
	}

	// The deepest bracket follows from how far the budget can shrink;
	// every later bracket trades one halving rung for a larger starting
	// budget.
	p.sMax = int(math.Floor(math.Log(maxBudgetPct/opts.MinBudget) / math.Log(p.eta)))
	if p.sMax < 0 {
		p.sMax = 0
	}
	p.bracket = p.sMax
	return p
}

// budgetAt derives a rung's data percentage inside the current bracket, so
// the bracket's final rung lands on exactly 100.
func (p *halvingPolicy) budgetAt(rung int) float64 {
	return maxBudgetPct / math.Pow(p.eta, float64(p.bracket-rung))
}

// cohortFor sizes bracket s: deeper brackets open wider, and the cohort
// shrinks until the whole bracket fits inside the remaining evaluation cap.
func (p *halvingPolicy) cohortFor(s int) int {
	n := int(math.Ceil(float64(p.sMax+1) / float64(s+1) * math.Pow(p.eta, float64(s))))
	if n < 1 {
		n = 1
	}
	for n > 1 && p.bracketCost(n, s) > p.maxIter-p.proposed {
		n--
	}
	return n
}

// bracketCost is the total number of evaluations bracket s costs for a given
// starting cohort, counting the lone survivor's re-runs on later rungs.
func (p *halvingPolicy) bracketCost(n, s int) int {
	total := 0
	for i := 0; i <= s; i++ {
		total += n
		if n > 1 {
			n = int(math.Ceil(float64(n) / p.eta))
		}
	}
	return total
}

func (p *halvingPolicy) patienceScope() patienceScope { return scopeBatch }

func (p *halvingPolicy) next(h *history) []candidate {
	if p.done {
		return nil
	}
	if !p.started {
		p.started = true
		return p.openBracket()
	}

	if p.rung < p.bracket {
		if survivors := p.promote(h); len(survivors) > 0 {
			p.rung++
			return p.rerun(survivors)
		}
	}
	for p.bracket > 0 {
		p.bracket--
		p.rung = 0
		if batch := p.openBracket(); len(batch) > 0 {
			return batch
		}
	}
	p.done = true
	return nil
}

// openBracket samples a fresh cohort for the current bracket at its smallest
// budget.
func (p *halvingPolicy) openBracket() []candidate {
	if p.maxIter-p.proposed <= 0 {
		return nil
	}
	cohort := p.cohortFor(p.bracket)
	batch := make([]candidate, 0, cohort)
	p.lastStart = p.proposed
	for i := 0; i < cohort; i++ {
		iter := p.proposed
		rng := rngFor(p.seed, iter)
		batch = append(batch, candidate{
			iteration: iter,
			params:    samplePoint(rng, p.space, p.names, p.ints),
			budget:    p.budgetAt(0),
		})
		p.proposed++
	}
	p.lastCount = len(batch)
	return batch
}

// rerun schedules the survivors of the previous rung at the current rung's
// budget.
func (p *halvingPolicy) rerun(survivors []models.Params) []candidate {
	batch := make([]candidate, 0, len(survivors))
	p.lastStart = p.proposed
	for _, s := range survivors {
		batch = append(batch, candidate{
			iteration: p.proposed,
			params:    s.Clone(),
			budget:    p.budgetAt(p.rung),
		})
		p.proposed++
	}
	p.lastCount = len(batch)
	return batch
}

// promote collects the previous rung's results and keeps the top 1/eta.
// Failed candidates rank behind every scored one, and equal scores keep
// iteration order so promotion is stable across worker scheduling.
func (p *halvingPolicy) promote(h *history) []models.Params {
	var rung []models.TrialRecord
	for _, t := range h.trials {
		if t.Iteration >= p.lastStart && t.Iteration < p.lastStart+p.lastCount {
			rung = append(rung, t)
		}
	}
	if len(rung) == 0 {
		return nil
	}

	sort.SliceStable(rung, func(i, j int) bool {
		a, b := rung[i], rung[j]
		if a.Failed != b.Failed {
			return !a.Failed
		}
		if a.Failed {
			return a.Iteration < b.Iteration
		}
		if a.Score != b.Score {
			return h.betterThan(a.Score, b.Score)
		}
		return a.Iteration < b.Iteration
	})

	keep := int(math.Ceil(float64(len(rung)) / p.eta))
	if keep > len(rung) {
		keep = len(rung)
	}
	out := make([]models.Params, 0, keep)
	for _, t := range rung[:keep] {
		if t.Failed {
			break
		}
		out = append(out, t.Params)
	}
	return out
}
