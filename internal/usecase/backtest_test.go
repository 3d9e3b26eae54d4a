package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"FinSim/internal/domain/models"
	domrepo "FinSim/internal/domain/repository"
)

type stubBarStore struct {
	bars []models.Bar
	err  error
}

func (s *stubBarStore) GetBars(_ context.Context, _ string, _, _ time.Time, _ domrepo.Timeframe) ([]models.Bar, error) {
	return s.bars, s.err
}

func (s *stubBarStore) GetLatestNBars(_ context.Context, _ string, n int, _ domrepo.Timeframe) ([]models.Bar, error) {
	if s.err != nil {
		return nil, s.err
	}
	if n >= len(s.bars) {
		return s.bars, nil
	}
	return s.bars[len(s.bars)-n:], nil
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counts: make(map[string]int)}
}

func (m *countingMetrics) bump(k string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[k]++
}

func (m *countingMetrics) get(k string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[k]
}

func (m *countingMetrics) RecordBacktest(string, float64)  { m.bump("backtest") }
func (m *countingMetrics) RecordBankruptRun(string)        { m.bump("bankrupt") }
func (m *countingMetrics) RecordTrial(string, float64)     { m.bump("trial") }
func (m *countingMetrics) RecordTrialFailure(string)       { m.bump("trial_failure") }
func (m *countingMetrics) RecordBestScore(string, float64) {}
func (m *countingMetrics) RecordError(string)              { m.bump("error") }

// constSignaler emits params["expo"] on every bar.
type constSignaler struct{}

func (constSignaler) Name() string { return "const" }

func (constSignaler) Signals(bars []models.Bar, params models.Params) ([]float64, error) {
	out := make([]float64, len(bars))
	for i := range out {
		out[i] = params["expo"]
	}
	return out, nil
}

func risingBars(n int) []models.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = models.Bar{
			OpenTime:  start.Add(time.Duration(i) * time.Minute),
			CloseTime: start.Add(time.Duration(i+1) * time.Minute),
			Symbol:    "BTCUSDT",
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    10,
		}
	}
	return bars
}

func testDefaults() BacktestDefaults {
	return BacktestDefaults{
		InitialCapital: 10000,
		CommissionRate: 0.001,
		DataPercentage: 100,
	}
}

func TestBacktestRunWithDirectSignals(t *testing.T) {
	store := &stubBarStore{bars: risingBars(50)}
	metrics := newCountingMetrics()
	uc := NewBacktestUseCase(store, NewSignalerRegistry(), metrics, testDefaults())

	signals := make([]float64, 50)
	for i := range signals {
		signals[i] = 0.5
	}
	res, err := uc.Run(context.Background(), RunBacktestParams{
		Symbol:  "BTCUSDT",
		LatestN: 50,
		Signals: signals,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Bars != 50 {
		t.Errorf("Bars = %d, want 50", res.Bars)
	}
	if res.Report.TotalReturn <= 0 {
		t.Errorf("constant long exposure in an uptrend should profit, got total return %v", res.Report.TotalReturn)
	}
	if metrics.get("backtest") != 1 {
		t.Errorf("backtest metric recorded %d times, want 1", metrics.get("backtest"))
	}
}

func TestBacktestRunWithRegisteredSignaler(t *testing.T) {
	store := &stubBarStore{bars: risingBars(50)}
	registry := NewSignalerRegistry()
	registry.Register(constSignaler{})
	uc := NewBacktestUseCase(store, registry, newCountingMetrics(), testDefaults())

	res, err := uc.Run(context.Background(), RunBacktestParams{
		Symbol:   "BTCUSDT",
		LatestN:  50,
		Signaler: "const",
		Params:   models.Params{"expo": 1},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Result.EquityCurve) != 50 {
		t.Errorf("equity curve has %d points, want 50", len(res.Result.EquityCurve))
	}
}

func TestBacktestRunUnknownSignaler(t *testing.T) {
	uc := NewBacktestUseCase(&stubBarStore{bars: risingBars(10)}, NewSignalerRegistry(), newCountingMetrics(), testDefaults())
	_, err := uc.Run(context.Background(), RunBacktestParams{
		Symbol:   "BTCUSDT",
		LatestN:  10,
		Signaler: "nope",
	})
	if err == nil {
		t.Fatal("expected error for unknown signaler")
	}
}

func TestBacktestRunDataPercentageTruncates(t *testing.T) {
	store := &stubBarStore{bars: risingBars(100)}
	uc := NewBacktestUseCase(store, NewSignalerRegistry(), newCountingMetrics(), testDefaults())

	signals := make([]float64, 50)
	res, err := uc.Run(context.Background(), RunBacktestParams{
		Symbol:         "BTCUSDT",
		LatestN:        100,
		Signals:        signals,
		DataPercentage: 50,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Bars != 50 {
		t.Errorf("Bars = %d after 50%% truncation of 100, want 50", res.Bars)
	}
}

func TestBacktestRunRejectsInvertedRange(t *testing.T) {
	uc := NewBacktestUseCase(&stubBarStore{}, NewSignalerRegistry(), newCountingMetrics(), testDefaults())
	_, err := uc.Run(context.Background(), RunBacktestParams{
		Symbol: "BTCUSDT",
		From:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatal("expected error when from > to")
	}
}
