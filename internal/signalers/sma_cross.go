package signalers

import (
	"fmt"

	"FinSim/internal/domain/models"
)

// SMACross is a moving average crossover generator. It goes fully long when
// the fast average is above the slow one and flat otherwise. Parameters:
// "fast" and "slow" window lengths in bars.
type SMACross struct{}

func NewSMACross() *SMACross { return &SMACross{} }

func (s *SMACross) Name() string { return "sma_cross" }

func (s *SMACross) Signals(bars []models.Bar, params models.Params) ([]float64, error) {
	fast := intParam(params, "fast", 10)
	slow := intParam(params, "slow", 30)
	if fast < 1 || slow < 1 {
		return nil, fmt.Errorf("sma_cross: windows must be positive, got fast=%d slow=%d", fast, slow)
	}
	if fast >= slow {
		return nil, fmt.Errorf("sma_cross: fast window %d must be below slow window %d", fast, slow)
	}

	out := make([]float64, len(bars))
	var fastSum, slowSum float64
	for i, b := range bars {
		fastSum += b.Close
		slowSum += b.Close
		if i >= fast {
			fastSum -= bars[i-fast].Close
		}
		if i >= slow {
			slowSum -= bars[i-slow].Close
		}
		if i+1 < slow {
			continue
		}
		if fastSum/float64(fast) > slowSum/float64(slow) {
			out[i] = 1
		}
	}
	return out, nil
}

func intParam(p models.Params, name string, def int) int {
	v, ok := p[name]
	if !ok {
		return def
	}
	return int(v)
}
