package optimize

// brutePolicy draws uniform assignments across the space: continuous
// dimensions uniformly within bounds, discrete ones uniformly over the list,
// integer parameters over the inclusive integer range. Each candidate's
// generator derives from (seed, iteration), so the draw sequence is fixed no
// matter how trials are scheduled.
type brutePolicy struct {
	space     Space
	names     []string
	ints      map[string]bool
	seed      int64
	batchSize int
	maxIter   int
	proposed  int
}

func newBrutePolicy(space Space, names []string, opts *Options) *brutePolicy {
	return &brutePolicy{
		space:     space,
		names:     names,
		ints:      opts.intSet(),
		seed:      opts.Seed,
		batchSize: opts.Workers,
		maxIter:   opts.MaxIter,
		proposed:  0,
	}
}

func (p *brutePolicy) patienceScope() patienceScope { return scopeEval }

func (p *brutePolicy) next(_ *history) []candidate {
	remaining := p.maxIter - p.proposed
	if remaining <= 0 {
		return nil
	}
	n := p.batchSize
	if n > remaining {
		n = remaining
	}

	batch := make([]candidate, 0, n)
	for i := 0; i < n; i++ {
		iter := p.proposed
		rng := rngFor(p.seed, iter)
		batch = append(batch, candidate{
			iteration: iter,
			params:    samplePoint(rng, p.space, p.names, p.ints),
			budget:    100,
		})
		p.proposed++
	}
	return batch
}
