package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"FinSim/internal/domain/models"
	domrepo "FinSim/internal/domain/repository"
	"FinSim/internal/engine"
	"FinSim/internal/perf"
	applogger "FinSim/pkg/logger"
)

// BacktestUseCase loads bars, runs the accounting engine and analyzes the
// resulting trajectory.
type BacktestUseCase struct {
	store    domrepo.BarStore
	registry *SignalerRegistry
	metrics  domrepo.Metrics
	l        *applogger.Logger

	defaultCapital    float64
	defaultCommission float64
	defaultDataPct    float64
	bankruptcyFloor   float64
}

// BacktestDefaults carries the config-level fallbacks applied when a request
// leaves a knob unset.
type BacktestDefaults struct {
	InitialCapital  float64
	CommissionRate  float64
	DataPercentage  float64
	BankruptcyFloor float64
}

func NewBacktestUseCase(store domrepo.BarStore, registry *SignalerRegistry, metrics domrepo.Metrics, d BacktestDefaults) *BacktestUseCase {
	return &BacktestUseCase{
		store:             store,
		registry:          registry,
		metrics:           metrics,
		defaultCapital:    d.InitialCapital,
		defaultCommission: d.CommissionRate,
		defaultDataPct:    d.DataPercentage,
		bankruptcyFloor:   d.BankruptcyFloor,
	}
}

// SetLogger injects a structured logger.
func (uc *BacktestUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

type RunBacktestParams struct {
	Symbol    string
	From      time.Time
	To        time.Time
	LatestN   int
	Timeframe domrepo.Timeframe

	// Signaler plus Params generates the signal series; alternatively the
	// caller supplies Signals directly, one per bar.
	Signaler string
	Params   models.Params
	Signals  []float64

	InitialCapital float64
	CommissionRate float64
	DataPercentage float64
}

type RunBacktestResult struct {
	Symbol    string                   `json:"symbol"`
	Timeframe string                   `json:"timeframe"`
	Bars      int                      `json:"bars"`
	Result    *models.BacktestResult   `json:"result"`
	Report    models.PerformanceReport `json:"report"`
}

func (uc *BacktestUseCase) Run(ctx context.Context, p RunBacktestParams) (*RunBacktestResult, error) {
	start := time.Now()
	bars, err := uc.loadBars(ctx, p)
	if err != nil {
		return nil, err
	}

	capital := p.InitialCapital
	if capital <= 0 {
		capital = uc.defaultCapital
	}
	commission := p.CommissionRate
	if commission == 0 {
		commission = uc.defaultCommission
	}
	pct := p.DataPercentage
	if pct <= 0 {
		pct = uc.defaultDataPct
	}
	bars = models.TruncateBars(bars, pct)

	signals := p.Signals
	if p.Signaler != "" {
		sig, err := uc.registry.Get(p.Signaler)
		if err != nil {
			return nil, err
		}
		signals, err = sig.Signals(bars, p.Params)
		if err != nil {
			return nil, fmt.Errorf("signaler %q: %w", p.Signaler, err)
		}
	}

	cfg := engine.NewConfig(capital, commission)
	if uc.bankruptcyFloor > 0 {
		cfg.BankruptcyFloor = decimal.NewFromFloat(uc.bankruptcyFloor)
	}
	res, err := engine.Run(bars, signals, cfg)
	if err != nil {
		uc.metrics.RecordError("backtest_engine")
		return nil, fmt.Errorf("run backtest: %w", err)
	}
	report := perf.Analyze(res.EquityCurve, res.Trades, capital, res.Diagnostics)

	uc.metrics.RecordBacktest(p.Symbol, time.Since(start).Seconds())
	if res.Diagnostics.Bankrupt {
		uc.metrics.RecordBankruptRun(p.Symbol)
	}
	if uc.l != nil {
		uc.l.Info("backtest done",
			applogger.String("symbol", p.Symbol),
			applogger.Int("bars", len(bars)),
			applogger.Int("trades", len(res.Trades)),
			applogger.Bool("bankrupt", res.Diagnostics.Bankrupt),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}

	return &RunBacktestResult{
		Symbol:    p.Symbol,
		Timeframe: string(p.Timeframe),
		Bars:      len(bars),
		Result:    res,
		Report:    report,
	}, nil
}

func (uc *BacktestUseCase) loadBars(ctx context.Context, p RunBacktestParams) ([]models.Bar, error) {
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
