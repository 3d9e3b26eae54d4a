package usecase

import (
	"fmt"
	"sync"

	"FinSim/internal/domain/models"
)

// Signaler turns a bar series and a parameter assignment into one target
// position fraction per bar, in [-1, 1]. Implementations live outside the
// core; deployments register whatever generators they ship.
type Signaler interface {
	Name() string
	Signals(bars []models.Bar, params models.Params) ([]float64, error)
}

// SignalerRegistry resolves generators by name for optimization jobs.
type SignalerRegistry struct {
	mu  sync.RWMutex
	byN map[string]Signaler
}

func NewSignalerRegistry() *SignalerRegistry {
	return &SignalerRegistry{byN: make(map[string]Signaler)}
}

// Register adds a generator. Re-registering a name replaces the previous one.
func (r *SignalerRegistry) Register(s Signaler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byN[s.Name()] = s
}

func (r *SignalerRegistry) Get(name string) (Signaler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byN[name]
	if !ok {
		return nil, fmt.Errorf("unknown signaler %q", name)
	}
	return s, nil
}

// Names lists registered generators for discovery endpoints.
func (r *SignalerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byN))
	for n := range r.byN {
		names = append(names, n)
	}
	return names
}
