package perf

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"FinSim/internal/domain/models"
)

func curveOf(start time.Time, step time.Duration, equities ...float64) []models.EquityPoint {
	out := make([]models.EquityPoint, len(equities))
	for i, e := range equities {
		out[i] = models.EquityPoint{
			Time:   start.Add(time.Duration(i) * step),
			Equity: decimal.NewFromFloat(e),
		}
	}
	return out
}

func trade(pnl, entry, qty float64) models.MatchedTrade {
	return models.MatchedTrade{
		EntryPrice:  decimal.NewFromFloat(entry),
		ExitPrice:   decimal.NewFromFloat(entry),
		Quantity:    decimal.NewFromFloat(qty),
		RealizedPnL: decimal.NewFromFloat(pnl),
	}
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFlatCurveHasNoVolatility(t *testing.T) {
	rep := Analyze(curveOf(t0, time.Minute, 10000, 10000, 10000), nil, 10000, models.Diagnostics{})

	if rep.TotalReturn != 0 {
		t.Fatalf("total return %v, want 0", rep.TotalReturn)
	}
	if rep.AnnualVolatility != 0 {
		t.Fatalf("volatility %v, want 0", rep.AnnualVolatility)
	}
	if rep.SharpeDefined {
		t.Fatalf("sharpe must be undefined at zero volatility")
	}
	if rep.MaxDrawdown != 0 {
		t.Fatalf("drawdown %v, want 0", rep.MaxDrawdown)
	}
}

func TestEmptyLedgerSentinel(t *testing.T) {
	rep := Analyze(curveOf(t0, time.Minute, 10000, 10100), nil, 10000, models.Diagnostics{})

	if rep.Trades.HasTrades {
		t.Fatalf("HasTrades true for empty ledger")
	}
	if rep.Trades.Count != 0 {
		t.Fatalf("count %d, want 0", rep.Trades.Count)
	}
	if math.IsNaN(rep.Trades.WinRate) || rep.Trades.WinRate != 0 {
		t.Fatalf("win rate must stay at the zero sentinel, got %v", rep.Trades.WinRate)
	}
}

func TestEqualWeightedWinRate(t *testing.T) {
	// A tiny and a huge profitable round-trip each add exactly one to
	// the numerator; one loser drags the rate to 2/3.
	trades := []models.MatchedTrade{
		trade(0.05, 100, 0.01),
		trade(500, 100, 10.0),
		trade(-3, 100, 1.0),
	}
	rep := Analyze(curveOf(t0, time.Minute, 10000, 10100), trades, 10000, models.Diagnostics{})

	if !rep.Trades.HasTrades {
		t.Fatalf("expected trades")
	}
	if want := 2.0 / 3.0; math.Abs(rep.Trades.WinRate-want) > 1e-12 {
		t.Fatalf("win rate %v, want %v", rep.Trades.WinRate, want)
	}
	if rep.Trades.MaxProfit != 500 {
		t.Fatalf("max profit %v, want 500", rep.Trades.MaxProfit)
	}
	if rep.Trades.MaxLoss != -3 {
		t.Fatalf("max loss %v, want -3", rep.Trades.MaxLoss)
	}
}

func TestMaxDrawdown(t *testing.T) {
	rep := Analyze(curveOf(t0, time.Minute, 10000, 12000, 9000, 11000), nil, 10000, models.Diagnostics{})
	if want := 0.25; math.Abs(rep.MaxDrawdown-want) > 1e-12 {
		t.Fatalf("mdd %v, want %v", rep.MaxDrawdown, want)
	}
}

func TestAnnualizationFromObservedSpan(t *testing.T) {
	// 10% over one quarter annualizes to (1.1)^4 - 1 whatever the bar
	// granularity; here the quarter is sampled with four daily-ish bars.
	quarter := 365 * 24 * time.Hour / 4
	rep := Analyze(curveOf(t0, quarter/3, 10000, 10500, 10800, 11000), nil, 10000, models.Diagnostics{})

	if math.Abs(rep.AnnualMultiplier-4) > 1e-9 {
		t.Fatalf("annual multiplier %v, want 4", rep.AnnualMultiplier)
	}
	want := math.Pow(1.1, 4) - 1
	if math.Abs(rep.AnnualReturn-want) > 1e-9 {
		t.Fatalf("annual return %v, want %v", rep.AnnualReturn, want)
	}
	if math.Abs(rep.BarsPerYear-12) > 1e-9 {
		t.Fatalf("bars per year %v, want 12", rep.BarsPerYear)
	}
	if !rep.SharpeDefined {
		t.Fatalf("sharpe should be defined on a moving curve")
	}
}

func TestDeadTime(t *testing.T) {
	curve := curveOf(t0, time.Minute, 10000, 5000, 0, 0)
	diag := models.Diagnostics{Bankrupt: true, FirstBankruptAt: t0.Add(2 * time.Minute)}

	rep := Analyze(curve, nil, 10000, diag)
	if rep.DeadTime != 2*time.Minute {
		t.Fatalf("dead time %v, want 2m", rep.DeadTime)
	}

	solvent := Analyze(curveOf(t0, time.Minute, 10000, 10100, 10200), nil, 10000, models.Diagnostics{})
	if solvent.DeadTime != 2*time.Minute {
		t.Fatalf("solvent dead time %v, want full span 2m", solvent.DeadTime)
	}
}
