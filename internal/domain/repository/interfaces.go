package repository

import (
	"context"
	"time"

	"FinSim/internal/domain/models"
)

// BarStore provides read-only access to historical OHLCV bars. Loading and
// parsing of raw files is an external concern; the core only ever reads an
// already-ingested, ascending series.
type BarStore interface {
	GetBars(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Bar, error)
	GetLatestNBars(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Bar, error)
}

// TrialSink receives optimizer progress for external reporting (Kafka topic,
// webhook, live websocket). Sinks are side-effect only: a failing sink never
// alters search state.
type TrialSink interface {
	Trial(ctx context.Context, jobID string, t models.TrialRecord)
	Done(ctx context.Context, jobID string, out *models.SearchOutcome, runErr error)
}

// Metrics abstracts the Prometheus recorder.
type Metrics interface {
	RecordBacktest(symbol string, seconds float64)
	RecordBankruptRun(symbol string)
	RecordTrial(policy string, seconds float64)
	RecordTrialFailure(policy string)
	RecordBestScore(policy string, score float64)
	RecordError(kind string)
}
