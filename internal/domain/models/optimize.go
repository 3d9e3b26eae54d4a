package models

// Params is one assignment of the searched parameters.
type Params map[string]float64

// Clone returns an independent copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// TrialRecord is one evaluated candidate, immutable once appended to the
// history. Iteration is the proposal index, so true ordering is always
// reconstructable regardless of completion order under concurrent dispatch.
type TrialRecord struct {
	Iteration int     `json:"iteration"`
	Params    Params  `json:"params"`
	Score     float64 `json:"score"`
	// Budget is the data percentage the candidate was evaluated at
	// (successive halving evaluates early rungs on a reduced window).
	Budget float64 `json:"budget"`
	Failed bool    `json:"failed"`
}

// SearchOutcome is the result of one optimizer run.
type SearchOutcome struct {
	BestScore  float64       `json:"best_score"`
	BestParams Params        `json:"best_params"`
	History    []TrialRecord `json:"history"`
	Evaluated  int           `json:"evaluated"`
	Stopped    string        `json:"stopped"` // "max_iter", "patience", "exhausted_space", "cancelled"
}
