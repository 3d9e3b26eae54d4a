package optimize

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"FinSim/internal/domain/models"
)

// Dimension is one axis of a search space: either a continuous (Low, High)
// interval or an explicit candidate list.
type Dimension struct {
	Low     float64   `json:"low,omitempty"`
	High    float64   `json:"high,omitempty"`
	Choices []float64 `json:"choices,omitempty"`
}

// Interval builds a continuous dimension.
func Interval(low, high float64) Dimension {
	return Dimension{Low: low, High: high}
}

// Choice builds a discrete dimension from an explicit list.
func Choice(values ...float64) Dimension {
	return Dimension{Choices: values}
}

func (d Dimension) discrete() bool { return len(d.Choices) > 0 }

// Space maps parameter names to their dimensions. One Space instance belongs
// to one search run.
type Space map[string]Dimension

// Names returns parameter names in sorted order. Every piece of the
// optimizer iterates dimensions through this, never through the map, so
// sampling order is deterministic.
func (s Space) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Space) validate() error {
	if len(s) == 0 {
		return ErrEmptySpace
	}
	for name, d := range s {
		if d.discrete() {
			continue
		}
		if math.IsNaN(d.Low) || math.IsNaN(d.High) || d.High <= d.Low {
			return fmt.Errorf("%w: %q has bounds (%v, %v)", ErrBadDimension, name, d.Low, d.High)
		}
	}
	return nil
}

// sampleDim draws one value from a dimension. Integer interval dimensions
// draw uniformly over the inclusive integer range; integer choices round
// whatever the list holds.
func sampleDim(rng *rand.Rand, d Dimension, isInt bool) float64 {
	if d.discrete() {
		v := d.Choices[rng.Intn(len(d.Choices))]
		if isInt {
			return math.Round(v)
		}
		return v
	}
	if isInt {
		lo := int64(math.Ceil(d.Low))
		hi := int64(math.Floor(d.High))
		if hi < lo {
			hi = lo
		}
		return float64(lo + rng.Int63n(hi-lo+1))
	}
	return d.Low + rng.Float64()*(d.High-d.Low)
}

// samplePoint draws a full assignment, iterating dimensions in sorted order.
func samplePoint(rng *rand.Rand, space Space, names []string, ints map[string]bool) models.Params {
	p := make(models.Params, len(names))
	for _, name := range names {
		p[name] = sampleDim(rng, space[name], ints[name])
	}
	return p
}

// clampDim forces a value back into a dimension, rounding integers and
// snapping discrete dimensions to the nearest choice.
func clampDim(v float64, d Dimension, isInt bool) float64 {
	if d.discrete() {
		best := d.Choices[0]
		for _, c := range d.Choices[1:] {
			if math.Abs(c-v) < math.Abs(best-v) {
				best = c
			}
		}
		v = best
	} else {
		if v < d.Low {
			v = d.Low
		}
		if v > d.High {
			v = d.High
		}
	}
	if isInt {
		v = math.Round(v)
	}
	return v
}
