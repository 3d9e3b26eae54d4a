package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"FinSim/internal/domain/models"
	"FinSim/internal/optimize"
	pkgcache "FinSim/pkg/cache"
)

type recordingSink struct {
	mu     sync.Mutex
	trials []models.TrialRecord
	done   chan struct{}
	out    *models.SearchOutcome
	err    error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{})}
}

func (s *recordingSink) Trial(_ context.Context, _ string, t models.TrialRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trials = append(s.trials, t)
}

func (s *recordingSink) Done(_ context.Context, _ string, out *models.SearchOutcome, err error) {
	s.mu.Lock()
	s.out = out
	s.err = err
	s.mu.Unlock()
	close(s.done)
}

func (s *recordingSink) trialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trials)
}

func newOptimizeUC(store *stubBarStore, metrics *countingMetrics) *OptimizeUseCase {
	registry := NewSignalerRegistry()
	registry.Register(constSignaler{})
	return NewOptimizeUseCase(store, registry, metrics, testDefaults())
}

func TestOptimizeRunBruteSearch(t *testing.T) {
	metrics := newCountingMetrics()
	uc := newOptimizeUC(&stubBarStore{bars: risingBars(60)}, metrics)
	sink := newRecordingSink()

	out, err := uc.Run(context.Background(), "job-1", OptimizeParams{
		Symbol:   "BTCUSDT",
		LatestN:  60,
		Signaler: "const",
		Space:    optimize.Space{"expo": optimize.Interval(0, 1)},
		Metric:   MetricTotalReturn,
		Policy:   optimize.PolicyBrute,
		MaxIter:  8,
		Seed:     7,
		Workers:  2,
	}, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Evaluated != 8 {
		t.Errorf("Evaluated = %d, want 8", out.Evaluated)
	}
	if out.BestScore <= 0 {
		t.Errorf("best total return in an uptrend should be positive, got %v", out.BestScore)
	}
	if sink.trialCount() != 8 {
		t.Errorf("sink saw %d trials, want 8", sink.trialCount())
	}
	select {
	case <-sink.done:
	default:
		t.Error("sink never received Done")
	}
	if metrics.get("trial") != 8 {
		t.Errorf("trial metric recorded %d times, want 8", metrics.get("trial"))
	}
}

func TestOptimizeRunReproducible(t *testing.T) {
	run := func() *models.SearchOutcome {
		uc := newOptimizeUC(&stubBarStore{bars: risingBars(60)}, newCountingMetrics())
		out, err := uc.Run(context.Background(), "job-r", OptimizeParams{
			Symbol:   "BTCUSDT",
			LatestN:  60,
			Signaler: "const",
			Space:    optimize.Space{"expo": optimize.Interval(0, 1)},
			Metric:   MetricTotalReturn,
			MaxIter:  6,
			Seed:     99,
			Workers:  3,
		})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return out
	}

	a, b := run(), run()
	if a.BestScore != b.BestScore {
		t.Fatalf("same seed produced different best scores: %v vs %v", a.BestScore, b.BestScore)
	}
	for i := range a.History {
		if a.History[i].Params["expo"] != b.History[i].Params["expo"] {
			t.Fatalf("trial %d sampled different params across runs", i)
		}
	}
}

func TestOptimizeRunUnknownSignaler(t *testing.T) {
	uc := newOptimizeUC(&stubBarStore{bars: risingBars(10)}, newCountingMetrics())
	_, err := uc.Run(context.Background(), "job-x", OptimizeParams{
		Symbol:   "BTCUSDT",
		LatestN:  10,
		Signaler: "missing",
		Space:    optimize.Space{"expo": optimize.Interval(0, 1)},
	})
	if err == nil {
		t.Fatal("expected error for unregistered signaler")
	}
}

func TestOptimizeRunUnknownMetric(t *testing.T) {
	uc := newOptimizeUC(&stubBarStore{bars: risingBars(10)}, newCountingMetrics())
	_, err := uc.Run(context.Background(), "job-m", OptimizeParams{
		Symbol:   "BTCUSDT",
		LatestN:  10,
		Signaler: "const",
		Space:    optimize.Space{"expo": optimize.Interval(0, 1)},
		Metric:   "bogus",
	})
	if err == nil {
		t.Fatal("expected error for unknown metric")
	}
}

func TestOptimizeScoreCacheHit(t *testing.T) {
	metrics := newCountingMetrics()
	uc := newOptimizeUC(&stubBarStore{bars: risingBars(60)}, metrics)
	uc.SetScoreCache(pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(100)), time.Minute)

	p := OptimizeParams{
		Symbol:   "BTCUSDT",
		LatestN:  60,
		Signaler: "const",
		Space:    optimize.Space{"expo": optimize.Choice(0.5)},
		Metric:   MetricTotalReturn,
		MaxIter:  4,
		Seed:     1,
	}
	out, err := uc.Run(context.Background(), "job-c", p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// A single-point space makes every trial after the first a cache hit,
	// so all four must agree.
	for i, tr := range out.History {
		if tr.Score != out.History[0].Score {
			t.Errorf("trial %d score %v differs from first %v", i, tr.Score, out.History[0].Score)
		}
	}
}
