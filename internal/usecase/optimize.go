package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"FinSim/internal/domain/models"
	domrepo "FinSim/internal/domain/repository"
	"FinSim/internal/engine"
	"FinSim/internal/optimize"
	"FinSim/internal/perf"
	pkgcache "FinSim/pkg/cache"
	applogger "FinSim/pkg/logger"

	"github.com/shopspring/decimal"
)

// Score metrics an optimization can target.
const (
	MetricSharpe       = "sharpe"
	MetricTotalReturn  = "total_return"
	MetricAnnualReturn = "annual_return"
	MetricMaxDrawdown  = "max_drawdown"
)

// OptimizeUseCase assembles the objective for a registered signaler and
// drives a parameter search over it.
type OptimizeUseCase struct {
	store    domrepo.BarStore
	registry *SignalerRegistry
	cache    pkgcache.Service
	metrics  domrepo.Metrics
	l        *applogger.Logger

	defaults BacktestDefaults
	scoreTTL time.Duration
}

func NewOptimizeUseCase(store domrepo.BarStore, registry *SignalerRegistry, metrics domrepo.Metrics, d BacktestDefaults) *OptimizeUseCase {
	return &OptimizeUseCase{
		store:    store,
		registry: registry,
		metrics:  metrics,
		defaults: d,
		scoreTTL: 30 * time.Minute,
	}
}

// SetLogger injects a structured logger.
func (uc *OptimizeUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

// SetScoreCache enables memoization of objective evaluations. Safe to leave
// unset; every trial is then computed fresh.
func (uc *OptimizeUseCase) SetScoreCache(c pkgcache.Service, ttl time.Duration) {
	uc.cache = c
	if ttl > 0 {
		uc.scoreTTL = ttl
	}
}

type OptimizeParams struct {
	Symbol    string
	From      time.Time
	To        time.Time
	LatestN   int
	Timeframe domrepo.Timeframe

	Signaler  string
	Space     optimize.Space
	IntParams []string
	Metric    string

	Policy    string
	MaxIter   int
	Patience  int
	Seed      int64
	Workers   int
	Eta       float64
	MinBudget float64

	InitialCapital float64
	CommissionRate float64
	DataPercentage float64
}

// EffectivePolicy is the policy the search will actually run: the explicit
// request, or brute force when the request leaves it blank.
func (p OptimizeParams) EffectivePolicy() string {
	if p.Policy == "" {
		return optimize.PolicyBrute
	}
	return p.Policy
}

// Run executes one search. Trial progress and the final outcome fan out to
// the given sinks; sink failures never affect the search itself.
func (uc *OptimizeUseCase) Run(ctx context.Context, jobID string, p OptimizeParams, sinks ...domrepo.TrialSink) (*models.SearchOutcome, error) {
	signaler, err := uc.registry.Get(p.Signaler)
	if err != nil {
		return nil, err
	}
	metric := p.Metric
	if metric == "" {
		metric = MetricSharpe
	}
	greater, err := metricDirection(metric)
	if err != nil {
		return nil, err
	}

	bars, err := uc.loadBars(ctx, p)
	if err != nil {
		return nil, err
	}
	pct := p.DataPercentage
	if pct <= 0 {
		pct = uc.defaults.DataPercentage
	}
	bars = models.TruncateBars(bars, pct)

	capital := p.InitialCapital
	if capital <= 0 {
		capital = uc.defaults.InitialCapital
	}
	commission := p.CommissionRate
	if commission == 0 {
		commission = uc.defaults.CommissionRate
	}
	cfg := engine.NewConfig(capital, commission)
	if uc.defaults.BankruptcyFloor > 0 {
		cfg.BankruptcyFloor = decimal.NewFromFloat(uc.defaults.BankruptcyFloor)
	}

	policy := p.EffectivePolicy()
	worst := math.MaxFloat64
	if greater {
		worst = -math.MaxFloat64
	}

	objective := func(ctx context.Context, params models.Params, budgetPct float64) (float64, error) {
		start := time.Now()
		key := uc.scoreKey(p, metric, params, budgetPct, len(bars))
		if uc.cache != nil {
			var cached float64
			if err := uc.cache.Get(ctx, key, &cached); err == nil {
				uc.metrics.RecordTrial(policy, time.Since(start).Seconds())
				return cached, nil
			}
		}

		window := models.TruncateBars(bars, budgetPct)
		signals, err := signaler.Signals(window, params)
		if err != nil {
			uc.metrics.RecordTrialFailure(policy)
			return 0, fmt.Errorf("signaler %q: %w", p.Signaler, err)
		}
		res, err := engine.Run(window, signals, cfg)
		if err != nil {
			uc.metrics.RecordTrialFailure(policy)
			return 0, err
		}
		if res.Diagnostics.Bankrupt {
			uc.metrics.RecordBankruptRun(p.Symbol)
		}
		report := perf.Analyze(res.EquityCurve, res.Trades, capital, res.Diagnostics)
		score, err := scoreFromReport(report, metric)
		if err != nil {
			uc.metrics.RecordTrialFailure(policy)
			return 0, err
		}

		if uc.cache != nil {
			if err := uc.cache.Set(ctx, key, score, uc.scoreTTL); err != nil && uc.l != nil {
				uc.l.Warn("score cache set error", applogger.Error(err))
			}
		}
		uc.metrics.RecordTrial(policy, time.Since(start).Seconds())
		return score, nil
	}

	opts := optimize.Options{
		Policy:          policy,
		MaxIter:         p.MaxIter,
		Seed:            p.Seed,
		IntParams:       p.IntParams,
		Patience:        p.Patience,
		GreaterIsBetter: greater,
		Workers:         p.Workers,
		Eta:             p.Eta,
		MinBudget:       p.MinBudget,
		Callback: func(iteration int, params models.Params, score float64, best models.TrialRecord) {
			// The worst representable value is exactly how failed
			// trials are encoded in the history.
			t := models.TrialRecord{
				Iteration: iteration,
				Params:    params,
				Score:     score,
				Failed:    score == worst,
			}
			uc.metrics.RecordBestScore(policy, best.Score)
			for _, s := range sinks {
				s.Trial(ctx, jobID, t)
			}
		},
	}

	if uc.l != nil {
		uc.l.Info("search started",
			applogger.String("job_id", jobID),
			applogger.String("policy", policy),
			applogger.String("signaler", p.Signaler),
			applogger.String("metric", metric),
			applogger.Int("bars", len(bars)),
			applogger.Int64("seed", p.Seed),
		)
	}

	out, runErr := optimize.Search(ctx, objective, p.Space, opts)
	for _, s := range sinks {
		s.Done(ctx, jobID, out, runErr)
	}
	if runErr != nil {
		if uc.l != nil {
			uc.l.Error("search failed", applogger.String("job_id", jobID), applogger.Error(runErr))
		}
		return out, runErr
	}
	if uc.l != nil {
		uc.l.Info("search done",
			applogger.String("job_id", jobID),
			applogger.String("stopped", out.Stopped),
			applogger.Int("evaluated", out.Evaluated),
			applogger.Any("best_params", out.BestParams),
		)
	}
	return out, nil
}

func (uc *OptimizeUseCase) loadBars(ctx context.Context, p OptimizeParams) ([]models.Bar, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	tf := domrepo.NormalizeTimeframe(string(p.Timeframe))
	if p.LatestN > 0 {
		bars, err := uc.store.GetLatestNBars(ctx, p.Symbol, p.LatestN, tf)
		if err != nil {
			uc.metrics.RecordError("bar_store")
			return nil, fmt.Errorf("load bars: %w", err)
		}
		return bars, nil
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	bars, err := uc.store.GetBars(ctx, p.Symbol, p.From, p.To, tf)
	if err != nil {
		uc.metrics.RecordError("bar_store")
		return nil, fmt.Errorf("load bars: %w", err)
	}
	return bars, nil
}

// scoreKey builds a deterministic memoization key for one evaluation. The
// bar count pins the key to the loaded window, so a refreshed series never
// serves stale scores.
func (uc *OptimizeUseCase) scoreKey(p OptimizeParams, metric string, params models.Params, budgetPct float64, nBars int) string {
	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, n := range names {
		fmt.Fprintf(&sb, "%s=%.17g;", n, params[n])
	}
	raw := pkgcache.GenerateKeyWithParams("optimize:score",
		p.Signaler, p.Symbol, string(p.Timeframe), metric, nBars,
		fmt.Sprintf("%.6f", budgetPct), sb.String(),
	)
	return pkgcache.GenerateKey("optimize:score", pkgcache.HashKey(raw))
}

func metricDirection(metric string) (bool, error) {
	switch metric {
	case MetricSharpe, MetricTotalReturn, MetricAnnualReturn:
		return true, nil
	case MetricMaxDrawdown:
		return false, nil
	default:
		return false, fmt.Errorf("unknown metric %q", metric)
	}
}

func scoreFromReport(r models.PerformanceReport, metric string) (float64, error) {
	switch metric {
	case MetricSharpe:
		if !r.SharpeDefined {
			return 0, fmt.Errorf("sharpe undefined for flat equity curve")
		}
		return r.Sharpe, nil
	case MetricTotalReturn:
		return r.TotalReturn, nil
	case MetricAnnualReturn:
		return r.AnnualReturn, nil
	case MetricMaxDrawdown:
		return r.MaxDrawdown, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", metric)
	}
}
