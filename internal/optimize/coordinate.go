package optimize

import (
	"math"

	"FinSim/internal/domain/models"
)

// coordinatePolicy walks the dimensions one at a time in sorted-name order.
// Each batch scans a grid along the current dimension while the other
// coordinates stay pinned at the incumbent. After every full cycle the scan
// window around each continuous coordinate halves, so the search tightens
// toward a local optimum. The policy tracks its own stopping unit: full
// cycles without improvement.
type coordinatePolicy struct {
	space    Space
	names    []string
	ints     map[string]bool
	grid     int
	patience int

	incumbent models.Params
	window    map[string]float64
	dimIdx    int
	proposed  int
	started   bool

	cycleStartBest float64
	cycleStartHas  bool
	badCycles      int
	done           bool
	reason         string
}

func newCoordinatePolicy(space Space, names []string, opts *Options) *coordinatePolicy {
	return &coordinatePolicy{
		space:    space,
		names:    names,
		ints:     opts.intSet(),
		grid:     opts.CoordinateGrid,
		patience: opts.Patience,
	}
}

func (p *coordinatePolicy) patienceScope() patienceScope { return scopeSelf }

func (p *coordinatePolicy) stopReason() string { return p.reason }

func (p *coordinatePolicy) next(h *history) []candidate {
	if p.done {
		return nil
	}
	if !p.started {
		p.started = true
		p.initIncumbent()
	} else {
		if h.hasBest {
			p.incumbent = h.best.Params.Clone()
		}
		p.dimIdx++
		if p.dimIdx >= len(p.names) {
			p.dimIdx = 0
			p.endCycle(h)
			if p.done {
				return nil
			}
		}
	}
	return p.scan(p.names[p.dimIdx])
}

// initIncumbent starts the walk at interval midpoints and first choices, with
// a scan window covering each full interval.
func (p *coordinatePolicy) initIncumbent() {
	p.incumbent = make(models.Params, len(p.names))
	p.window = make(map[string]float64, len(p.names))
	for _, name := range p.names {
		d := p.space[name]
		if d.discrete() {
			p.incumbent[name] = clampDim(d.Choices[0], d, p.ints[name])
			continue
		}
		p.incumbent[name] = clampDim((d.Low+d.High)/2, d, p.ints[name])
		p.window[name] = (d.High - d.Low) / 2
	}
}

func (p *coordinatePolicy) endCycle(h *history) {
	improved := h.hasBest && (!p.cycleStartHas || h.betterThan(h.best.Score, p.cycleStartBest))
	if improved {
		p.badCycles = 0
	} else {
		p.badCycles++
		if p.patience > 0 && p.badCycles >= p.patience {
			p.done = true
			p.reason = StoppedPatience
			return
		}
	}
	p.cycleStartHas = h.hasBest
	p.cycleStartBest = h.best.Score

	collapsed := true
	for _, name := range p.names {
		d := p.space[name]
		if d.discrete() {
			continue
		}
		p.window[name] /= 2
		if p.window[name] > 1e-12*(d.High-d.Low) {
			collapsed = false
		}
	}
	// Once every continuous window is gone the grid repeats itself, and a
	// space of only discrete dimensions repeats after one cycle.
	if collapsed {
		p.done = true
		p.reason = StoppedExhausted
	}
}

// scan proposes the grid batch along one dimension. Duplicate values, which
// integer rounding and bound clamping produce, collapse to a single
// candidate so the incumbent is never re-evaluated twice in a batch.
func (p *coordinatePolicy) scan(name string) []candidate {
	d := p.space[name]
	isInt := p.ints[name]

	var values []float64
	if d.discrete() {
		for _, c := range d.Choices {
			values = append(values, clampDim(c, d, isInt))
		}
	} else {
		center := p.incumbent[name]
		w := p.window[name]
		lo := math.Max(center-w, d.Low)
		hi := math.Min(center+w, d.High)
		if p.grid <= 1 || hi == lo {
			values = append(values, clampDim(center, d, isInt))
		} else {
			step := (hi - lo) / float64(p.grid-1)
			for i := 0; i < p.grid; i++ {
				values = append(values, clampDim(lo+float64(i)*step, d, isInt))
			}
		}
	}

	seen := make(map[float64]bool, len(values))
	batch := make([]candidate, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		params := p.incumbent.Clone()
		params[name] = v
		batch = append(batch, candidate{
			iteration: p.proposed,
			params:    params,
			budget:    100,
		})
		p.proposed++
	}
	return batch
}
