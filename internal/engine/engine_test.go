package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"FinSim/internal/domain/models"
)

func mkBars(closes []float64) []models.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		open := start.Add(time.Duration(i) * time.Minute)
		bars[i] = models.Bar{
			OpenTime:  open,
			CloseTime: open.Add(time.Minute),
			Symbol:    "BTCUSDT",
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1,
		}
	}
	return bars
}

func f64(d decimal.Decimal) float64 { return d.InexactFloat64() }

func TestValidationErrors(t *testing.T) {
	bars := mkBars([]float64{100, 101})

	if _, err := Run(bars, []float64{0}, NewConfig(10000, 0.001)); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if _, err := Run(bars, []float64{0, 1.5}, NewConfig(10000, 0.001)); !errors.Is(err, ErrInvalidSignal) {
		t.Fatalf("expected ErrInvalidSignal, got %v", err)
	}
	if _, err := Run(bars, []float64{0, math.NaN()}, NewConfig(10000, 0.001)); !errors.Is(err, ErrInvalidSignal) {
		t.Fatalf("expected ErrInvalidSignal for NaN, got %v", err)
	}
	if _, err := Run(bars, []float64{0, 0}, NewConfig(10000, 1.0)); !errors.Is(err, ErrBadCommission) {
		t.Fatalf("expected ErrBadCommission, got %v", err)
	}
	if _, err := Run(bars, []float64{0, 0}, NewConfig(0, 0.001)); !errors.Is(err, ErrBadCapital) {
		t.Fatalf("expected ErrBadCapital, got %v", err)
	}
	if _, err := Run(nil, nil, NewConfig(10000, 0.001)); !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
}

func TestAllZeroSignalsFlatCurve(t *testing.T) {
	bars := mkBars([]float64{100, 110, 90, 120, 80})
	signals := make([]float64, len(bars))

	res, err := Run(bars, signals, NewConfig(10000, 0))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.EquityCurve) != len(bars) {
		t.Fatalf("curve length %d, want %d", len(res.EquityCurve), len(bars))
	}
	for i, p := range res.EquityCurve {
		if !p.Equity.Equal(decimal.NewFromInt(10000)) {
			t.Fatalf("bar %d: equity %s, want 10000", i, p.Equity)
		}
	}
	if len(res.Trades) != 0 || len(res.Fills) != 0 {
		t.Fatalf("expected no activity, got %d trades %d fills", len(res.Trades), len(res.Fills))
	}
}

func TestSellWithoutPositionIsNoOp(t *testing.T) {
	bars := mkBars([]float64{100, 110, 120})
	res, err := Run(bars, []float64{-1, -0.5, 0}, NewConfig(5000, 0.001))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Fills) != 0 {
		t.Fatalf("expected no fills, got %d", len(res.Fills))
	}
	if res.Diagnostics.IgnoredSells != 2 {
		t.Fatalf("ignored sells = %d, want 2", res.Diagnostics.IgnoredSells)
	}
	if !res.EquityCurve[2].Equity.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("equity drifted: %s", res.EquityCurve[2].Equity)
	}
}

func TestLotSumInvariantEveryBar(t *testing.T) {
	bars := mkBars([]float64{100, 105, 103, 110, 95, 101, 99, 120, 118, 122})
	signals := []float64{0.5, 0.2, -0.3, 0.4, -1, 0.7, -0.25, 0.1, -0.6, -1}

	_, err := run(bars, signals, NewConfig(10000, 0.001), func(bar int, held, lotTotal decimal.Decimal) {
		if !held.Equal(lotTotal) {
			t.Fatalf("bar %d: held %s != lot total %s", bar, held, lotTotal)
		}
		if held.IsNegative() {
			t.Fatalf("bar %d: negative holdings %s", bar, held)
		}
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestReferenceScenario(t *testing.T) {
	// initial_capital=10000, commission=0.001, closes [100,110,105,120],
	// signals [1,0,0,-1]: full buy at 100, full sell at 120.
	bars := mkBars([]float64{100, 110, 105, 120})
	res, err := Run(bars, []float64{1, 0, 0, -1}, NewConfig(10000, 0.001))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(res.Fills) != 2 {
		t.Fatalf("fills = %d, want 2", len(res.Fills))
	}
	buy := res.Fills[0]
	if buy.Side != "BUY" {
		t.Fatalf("first fill side %s", buy.Side)
	}
	if q := f64(buy.Quantity); math.Abs(q-99.9) > 0.01 {
		t.Fatalf("buy quantity %v, want ~99.9", q)
	}
	if res.Diagnostics.ClippedBuys != 1 {
		t.Fatalf("clipped buys = %d, want 1 (full-balance buy must clip for commission)", res.Diagnostics.ClippedBuys)
	}
	if buy.CashAfter.IsNegative() {
		t.Fatalf("cash went negative after clipped buy: %s", buy.CashAfter)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(res.Trades))
	}
	tr := res.Trades[0]
	if !tr.EntryPrice.Equal(decimal.NewFromInt(100)) || !tr.ExitPrice.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("entry/exit = %s/%s, want 100/120", tr.EntryPrice, tr.ExitPrice)
	}
	if !tr.RealizedPnL.IsPositive() {
		t.Fatalf("realized pnl %s, want > 0", tr.RealizedPnL)
	}

	// Final equity is the net sell proceeds (plus the sub-cent cash
	// residue the clip rounding leaves behind).
	sell := res.Fills[1]
	netProceeds := sell.Notional.Sub(sell.Commission).Add(buy.CashAfter)
	final := res.EquityCurve[len(res.EquityCurve)-1].Equity
	if !final.Equal(netProceeds) {
		t.Fatalf("final equity %s != net proceeds %s", final, netProceeds)
	}
	if math.Abs(f64(final)-11976.02) > 0.05 {
		t.Fatalf("final equity %v, want ~11976.02", f64(final))
	}
}

func TestCommissionExactness(t *testing.T) {
	bars := mkBars([]float64{100, 102, 99, 104, 101, 108})
	signals := []float64{0.6, -0.5, 0.3, -1, 0.8, -1}
	rate := decimal.NewFromFloat(0.0015)

	res, err := Run(bars, signals, NewConfig(10000, 0.0015))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	totalNotional := decimal.Zero
	totalCommission := decimal.Zero
	for _, f := range res.Fills {
		totalNotional = totalNotional.Add(f.Notional)
		totalCommission = totalCommission.Add(f.Commission)
	}
	if want := totalNotional.Mul(rate); !totalCommission.Equal(want) {
		t.Fatalf("commissions %s != rate * notionals %s", totalCommission, want)
	}

	// Fully closed position: per-trade commission shares add back up to
	// the per-fill totals.
	matchedFees := decimal.Zero
	for _, tr := range res.Trades {
		matchedFees = matchedFees.Add(tr.Commissions)
	}
	diff := matchedFees.Sub(totalCommission).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(1e-10)) {
		t.Fatalf("matched-trade fees %s != fill commissions %s", matchedFees, totalCommission)
	}
}

func TestDeterminismBitIdentical(t *testing.T) {
	bars := mkBars([]float64{100, 101, 99, 103, 97, 105, 102, 110})
	signals := []float64{0.4, -0.2, 0.5, -0.7, 0.9, -0.1, 0.2, -1}
	cfg := NewConfig(25000, 0.00075)

	a, err := Run(bars, signals, cfg)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := Run(bars, signals, cfg)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(a.EquityCurve) != len(b.EquityCurve) || len(a.Trades) != len(b.Trades) {
		t.Fatalf("shape mismatch between runs")
	}
	for i := range a.EquityCurve {
		if a.EquityCurve[i].Equity.String() != b.EquityCurve[i].Equity.String() {
			t.Fatalf("equity[%d] differs: %s vs %s", i, a.EquityCurve[i].Equity, b.EquityCurve[i].Equity)
		}
	}
	for i := range a.Trades {
		if a.Trades[i].RealizedPnL.String() != b.Trades[i].RealizedPnL.String() ||
			a.Trades[i].Quantity.String() != b.Trades[i].Quantity.String() {
			t.Fatalf("trade[%d] differs", i)
		}
	}
}

func TestBankruptcyDiagnostics(t *testing.T) {
	// A brutal commission rate and constant churn drain equity through
	// fees alone; prices never move.
	closes := make([]float64, 400)
	signals := make([]float64, 400)
	for i := range closes {
		closes[i] = 100
		if i%2 == 0 {
			signals[i] = 1
		} else {
			signals[i] = -1
		}
	}
	cfg := NewConfig(10000, 0.2)
	cfg.BankruptcyFloor = decimal.NewFromInt(1)

	res, err := Run(mkBars(closes), signals, cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Diagnostics.Bankrupt {
		t.Fatalf("expected bankruptcy flag")
	}
	if res.Diagnostics.MaxConsecutiveBankruptBars <= 0 {
		t.Fatalf("consecutive bankrupt bars = %d, want > 0", res.Diagnostics.MaxConsecutiveBankruptBars)
	}
	if res.Diagnostics.FirstBankruptAt.IsZero() {
		t.Fatalf("first bankrupt timestamp not set")
	}
}
