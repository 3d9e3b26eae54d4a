// Package perf derives the read-only performance report from an equity curve
// and a matched-trade ledger.
//
// Annualization scales by the series' observed timestamp span (365-day
// year), never by a trading-calendar constant, so minute bars and daily bars
// both report correctly.
package perf

import (
	"math"
	"time"

	"FinSim/internal/domain/models"
)

const secondsPerYear = 365 * 24 * 3600.0

// Analyze computes the performance snapshot for one finished run. Undefined
// ratios (zero volatility, empty ledger) report explicit sentinels instead
// of NaN or silent zeros.
func Analyze(curve []models.EquityPoint, trades []models.MatchedTrade, initialCapital float64, diag models.Diagnostics) models.PerformanceReport {
	rep := models.PerformanceReport{
		InitialCapital: initialCapital,
	}
	if len(curve) == 0 {
		return rep
	}

	final := curve[len(curve)-1].Equity.InexactFloat64()
	rep.FinalCapital = final
	rep.TotalReturn = final/initialCapital - 1

	span := curve[len(curve)-1].Time.Sub(curve[0].Time)
	if span > 0 && len(curve) > 1 {
		spanSeconds := span.Seconds()
		rep.TimeSpanDays = spanSeconds / (24 * 3600)
		rep.AnnualMultiplier = secondsPerYear / spanSeconds
		rep.BarsPerYear = float64(len(curve)-1) * rep.AnnualMultiplier
		rep.AnnualReturn = math.Pow(1+rep.TotalReturn, rep.AnnualMultiplier) - 1

		returns := barReturns(curve)
		vol := stdev(returns) * math.Sqrt(rep.BarsPerYear)
		rep.AnnualVolatility = vol
		if vol > 0 {
			rep.Sharpe = rep.AnnualReturn / vol
			rep.SharpeDefined = true
		}
	}

	rep.MaxDrawdown = maxDrawdown(curve)
	rep.Trades = tradeStats(trades)
	rep.DeadTime = deadTime(curve, diag)
	return rep
}

func barReturns(curve []models.EquityPoint) []float64 {
	out := make([]float64, 0, len(curve)-1)
	prev := curve[0].Equity.InexactFloat64()
	for _, p := range curve[1:] {
		cur := p.Equity.InexactFloat64()
		if prev != 0 {
			out = append(out, cur/prev-1)
		} else {
			out = append(out, 0)
		}
		prev = cur
	}
	return out
}

// stdev returns the sample standard deviation.
func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// maxDrawdown is the largest peak-to-trough decline as a positive fraction.
func maxDrawdown(curve []models.EquityPoint) float64 {
	peak := curve[0].Equity.InexactFloat64()
	mdd := 0.0
	for _, p := range curve {
		eq := p.Equity.InexactFloat64()
		if eq > peak {
			peak = eq
		}
		if peak > 0 {
			if dd := (peak - eq) / peak; dd > mdd {
				mdd = dd
			}
		}
	}
	return mdd
}

func tradeStats(trades []models.MatchedTrade) models.TradeStats {
	st := models.TradeStats{Count: len(trades)}
	if len(trades) == 0 {
		return st
	}
	st.HasTrades = true

	wins := 0
	sumPnL := 0.0
	sumCost := 0.0
	maxWin := math.Inf(-1)
	maxLoss := math.Inf(1)
	for _, tr := range trades {
		pnl := tr.RealizedPnL.InexactFloat64()
		sumPnL += pnl
		sumCost += tr.EntryPrice.Mul(tr.Quantity).InexactFloat64()
		st.TotalCommissions += tr.Commissions.InexactFloat64()
		// Equal weighting: a 0.01-unit round-trip and a 10-unit one
		// each count exactly once.
		if pnl > 0 {
			wins++
		}
		if pnl > maxWin {
			maxWin = pnl
		}
		if pnl < maxLoss {
			maxLoss = pnl
		}
	}

	st.WinRate = float64(wins) / float64(len(trades))
	st.AvgProfit = sumPnL / float64(len(trades))
	if sumCost > 0 {
		st.AvgProfitPct = sumPnL / sumCost
	}
	st.MaxProfit = maxWin
	st.MaxLoss = maxLoss
	return st
}

// deadTime is the span from curve start to the first bankrupt bar, or the
// whole span when the run stayed solvent.
func deadTime(curve []models.EquityPoint, diag models.Diagnostics) time.Duration {
	start := curve[0].Time
	if diag.Bankrupt && !diag.FirstBankruptAt.IsZero() {
		return diag.FirstBankruptAt.Sub(start)
	}
	return curve[len(curve)-1].Time.Sub(start)
}
