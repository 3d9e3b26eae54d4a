package optimize

import (
	"math"

	"FinSim/internal/domain/models"
)

// worstScore is the score a failed trial records: the worst representable
// value for the configured direction. MaxFloat64 instead of Inf keeps the
// history JSON-serializable for external reporting.
func worstScore(greater bool) float64 {
	if greater {
		return -math.MaxFloat64
	}
	return math.MaxFloat64
}

// history accumulates trial records in iteration order and tracks the
// incumbent best. Records are immutable once appended.
type history struct {
	trials  []models.TrialRecord
	best    models.TrialRecord
	hasBest bool
	greater bool
}

func newHistory(greater bool) *history {
	return &history{greater: greater}
}

func (h *history) len() int { return len(h.trials) }

func (h *history) betterThan(score, incumbent float64) bool {
	if h.greater {
		return score > incumbent
	}
	return score < incumbent
}

// record appends a trial and reports whether it strictly improved the best.
// Ties keep the incumbent: since records arrive in iteration order, the
// first-found candidate wins regardless of worker completion order.
func (h *history) record(t models.TrialRecord) bool {
	h.trials = append(h.trials, t)
	if t.Failed {
		return false
	}
	if !h.hasBest || h.betterThan(t.Score, h.best.Score) {
		h.best = t
		h.hasBest = true
		return true
	}
	return false
}

func (h *history) outcome(stopped string) *models.SearchOutcome {
	out := &models.SearchOutcome{
		History:   h.trials,
		Evaluated: len(h.trials),
		Stopped:   stopped,
	}
	if h.hasBest {
		out.BestScore = h.best.Score
		out.BestParams = h.best.Params.Clone()
	}
	return out
}
