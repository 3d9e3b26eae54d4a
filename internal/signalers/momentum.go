package signalers

import (
	"fmt"

	"FinSim/internal/domain/models"
)

// Momentum scales exposure with the close-to-close return over a lookback
// window. Parameters: "lookback" in bars and "scale", the return multiple
// mapped to full exposure. Output is clamped to [-1, 1].
type Momentum struct{}

func NewMomentum() *Momentum { return &Momentum{} }

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) Signals(bars []models.Bar, params models.Params) ([]float64, error) {
	lookback := intParam(params, "lookback", 20)
	scale := params["scale"]
	if scale == 0 {
		scale = 10
	}
	if lookback < 1 {
		return nil, fmt.Errorf("momentum: lookback must be positive, got %d", lookback)
	}

	out := make([]float64, len(bars))
	for i := lookback; i < len(bars); i++ {
		prev := bars[i-lookback].Close
		if prev == 0 {
			continue
		}
		v := (bars[i].Close/prev - 1) * scale
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = v
	}
	return out, nil
}
