package models

import "time"

// TradeStats holds the matched-trade statistics of a report. The block is
// only meaningful when HasTrades is true; an empty ledger reports the
// explicit sentinel instead of zeros.
type TradeStats struct {
	HasTrades bool `json:"has_trades"`
	Count     int  `json:"count"`
	// WinRate is equal-weighted: wins / count, where each matched trade
	// contributes exactly one regardless of its quantity.
	WinRate          float64 `json:"win_rate"`
	AvgProfit        float64 `json:"avg_profit"`
	AvgProfitPct     float64 `json:"avg_profit_pct"` // sum(pnl)/sum(entry cost)
	MaxProfit        float64 `json:"max_profit"`
	MaxLoss          float64 `json:"max_loss"`
	TotalCommissions float64 `json:"total_commissions"`
}

// PerformanceReport is the read-only metrics snapshot derived once per run.
type PerformanceReport struct {
	InitialCapital   float64 `json:"initial_capital"`
	FinalCapital     float64 `json:"final_capital"`
	TotalReturn      float64 `json:"total_return"`
	AnnualReturn     float64 `json:"annual_return"`
	AnnualVolatility float64 `json:"annual_volatility"`
	// Sharpe is only meaningful when SharpeDefined is true; zero
	// volatility reports the sentinel rather than dividing.
	Sharpe        float64 `json:"sharpe"`
	SharpeDefined bool    `json:"sharpe_defined"`
	MaxDrawdown   float64 `json:"max_drawdown"`

	Trades TradeStats `json:"trades"`

	// Annualization inputs, derived from the observed timestamp span so
	// sub-daily bars scale correctly.
	TimeSpanDays     float64 `json:"time_span_days"`
	AnnualMultiplier float64 `json:"annual_multiplier"`
	BarsPerYear      float64 `json:"bars_per_year"`

	// DeadTime is the span from the start of the curve to the first
	// bankrupt bar, or the whole span when the run stayed solvent.
	DeadTime time.Duration `json:"dead_time_ns"`
}
