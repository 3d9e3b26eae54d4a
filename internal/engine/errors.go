package engine

import "errors"

// Fatal pre-run validation errors. All of them fire before any bar is
// processed; a run never leaves a half-written ledger behind.
var (
	ErrShapeMismatch = errors.New("engine: bars and signals length mismatch")
	ErrInvalidSignal = errors.New("engine: signal outside [-1, 1]")
	ErrBadCommission = errors.New("engine: commission rate outside [0, 1)")
	ErrBadCapital    = errors.New("engine: initial capital must be positive")
	ErrEmptySeries   = errors.New("engine: empty bar series")
)
