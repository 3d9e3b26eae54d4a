// Package engine turns a per-bar signal sequence and a price series into a
// continuous cash/position/equity trajectory with FIFO trade matching.
//
// The recurrence is strictly sequential: bar i trades at bar i's close and
// its resulting state feeds bar i+1, so a single run cannot be parallelized.
// All ledger arithmetic is decimal, which makes results over thousands of
// bars bit-identical for identical inputs.
package engine

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"FinSim/internal/domain/models"
)

// Config holds the accounting parameters of one run.
type Config struct {
	InitialCapital decimal.Decimal
	CommissionRate decimal.Decimal
	// BankruptcyFloor marks a bar bankrupt once equity falls to or below
	// it. Zero value means the default floor of 0.
	BankruptcyFloor decimal.Decimal
}

// NewConfig builds a Config from plain float inputs.
func NewConfig(initialCapital, commissionRate float64) Config {
	return Config{
		InitialCapital: decimal.NewFromFloat(initialCapital),
		CommissionRate: decimal.NewFromFloat(commissionRate),
	}
}

var one = decimal.NewFromInt(1)

// Run executes the bar recurrence over the full series.
//
// A positive signal buys signal*equity worth at the close, clipped so the
// commission-inclusive notional never exceeds cash (the clip rule is
// qty = cash / (close * (1 + rate)), rounded down at 12 decimal places).
// A negative signal sells |signal| of the current holdings; selling
// with zero holdings is a silent no-op. A matched trade is emitted per entry
// lot a sell consumes, strictly FIFO.
func Run(bars []models.Bar, signals []float64, cfg Config) (*models.BacktestResult, error) {
	return run(bars, signals, cfg, nil)
}

// inspectFunc observes ledger state after each bar. Tests use it to assert
// the lot-sum invariant at every bar boundary.
type inspectFunc func(bar int, held, lotTotal decimal.Decimal)

func run(bars []models.Bar, signals []float64, cfg Config, inspect inspectFunc) (*models.BacktestResult, error) {
	if err := validate(bars, signals, cfg); err != nil {
		return nil, err
	}

	rate := cfg.CommissionRate
	floor := cfg.BankruptcyFloor
	cash := cfg.InitialCapital
	held := decimal.Zero

	var lots lotQueue
	res := &models.BacktestResult{
		EquityCurve: make([]models.EquityPoint, 0, len(bars)),
	}

	consecBankrupt := 0
	for i := range bars {
		bar := &bars[i]
		closePx := decimal.NewFromFloat(bar.Close)
		sig := signals[i]

		switch {
		case sig > 0:
			equity := cash.Add(held.Mul(closePx))
			qty := decimal.NewFromFloat(sig).Mul(equity).Div(closePx)
			// Deterministic clip rule: the affordable quantity is
			// cash/(close*(1+rate)) rounded down at 12 decimal
			// places, so the commission-inclusive cost never
			// exceeds cash.
			affordable := cash.Div(closePx.Mul(one.Add(rate))).RoundDown(12)
			if qty.GreaterThan(affordable) {
				qty = affordable
				res.Diagnostics.ClippedBuys++
			}
			if qty.IsPositive() {
				notional := qty.Mul(closePx)
				commission := notional.Mul(rate)
				cash = cash.Sub(notional).Sub(commission)
				held = held.Add(qty)
				lots.push(models.Lot{
					Quantity:   qty,
					Price:      closePx,
					Time:       bar.OpenTime,
					Commission: commission,
				})
				res.Fills = append(res.Fills, models.Fill{
					Time:       bar.OpenTime,
					Side:       "BUY",
					Price:      closePx,
					Quantity:   qty,
					Notional:   notional,
					Commission: commission,
					CashAfter:  cash,
				})
			}

		case sig < 0:
			if held.IsZero() {
				res.Diagnostics.IgnoredSells++
				break
			}
			qty := decimal.NewFromFloat(-sig).Mul(held)
			if qty.GreaterThan(held) {
				qty = held
			}
			if qty.IsPositive() {
				notional := qty.Mul(closePx)
				commission := notional.Mul(rate)
				cash = cash.Add(notional).Sub(commission)
				held = held.Sub(qty)
				res.Trades = append(res.Trades, lots.consume(qty, closePx, commission, bar.OpenTime)...)
				res.Fills = append(res.Fills, models.Fill{
					Time:       bar.OpenTime,
					Side:       "SELL",
					Price:      closePx,
					Quantity:   qty,
					Notional:   notional,
					Commission: commission,
					CashAfter:  cash,
				})
			}
		}

		equity := cash.Add(held.Mul(closePx))
		res.EquityCurve = append(res.EquityCurve, models.EquityPoint{
			Time:   bar.OpenTime,
			Equity: equity,
		})

		if equity.LessThanOrEqual(floor) {
			if !res.Diagnostics.Bankrupt {
				res.Diagnostics.Bankrupt = true
				res.Diagnostics.FirstBankruptAt = bar.OpenTime
			}
			res.Diagnostics.BankruptBars++
			consecBankrupt++
			if consecBankrupt > res.Diagnostics.MaxConsecutiveBankruptBars {
				res.Diagnostics.MaxConsecutiveBankruptBars = consecBankrupt
			}
		} else {
			consecBankrupt = 0
		}

		if inspect != nil {
			inspect(i, held, lots.totalQuantity())
		}
	}

	return res, nil
}

func validate(bars []models.Bar, signals []float64, cfg Config) error {
	if len(bars) == 0 {
		return ErrEmptySeries
	}
	if len(bars) != len(signals) {
		return fmt.Errorf("%w: %d bars, %d signals", ErrShapeMismatch, len(bars), len(signals))
	}
	if !cfg.InitialCapital.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrBadCapital, cfg.InitialCapital)
	}
	if cfg.CommissionRate.IsNegative() || cfg.CommissionRate.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: got %s", ErrBadCommission, cfg.CommissionRate)
	}
	for i, s := range signals {
		if math.IsNaN(s) || s < -1 || s > 1 {
			return fmt.Errorf("%w: signal[%d] = %v", ErrInvalidSignal, i, s)
		}
	}
	return nil
}
