package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is a quantity of the asset acquired by one buy fill, tracked for FIFO
// consumption. Quantity and Commission shrink as later sells consume it; the
// entry price and timestamp never change.
type Lot struct {
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Time       time.Time
	Commission decimal.Decimal
}

// MatchedTrade is a buy-to-sell pairing produced when a sell fill consumes a
// lot (wholly or in part). It is the atomic unit of win-rate statistics:
// every matched trade counts as one, regardless of quantity.
type MatchedTrade struct {
	EntryPrice  decimal.Decimal `json:"entry_price"`
	ExitPrice   decimal.Decimal `json:"exit_price"`
	Quantity    decimal.Decimal `json:"quantity"`
	EntryTime   time.Time       `json:"entry_time"`
	ExitTime    time.Time       `json:"exit_time"`
	GrossPnL    decimal.Decimal `json:"gross_pnl"`
	Commissions decimal.Decimal `json:"commissions"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
}

// EquityPoint is one sample of the equity trajectory:
// equity = cash + quantity_held * close.
type EquityPoint struct {
	Time   time.Time       `json:"time"`
	Equity decimal.Decimal `json:"equity"`
}

// Fill is one executed order, kept for external reporting.
type Fill struct {
	Time       time.Time       `json:"time"`
	Side       string          `json:"side"` // "BUY" or "SELL"
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	Notional   decimal.Decimal `json:"notional"`
	Commission decimal.Decimal `json:"commission"`
	CashAfter  decimal.Decimal `json:"cash_after"`
}

// Diagnostics collects the non-fatal events of one accounting run.
type Diagnostics struct {
	// Bankrupt is set once equity touches the bankruptcy floor.
	Bankrupt bool `json:"bankrupt"`
	// BankruptBars counts every bar spent at or below the floor.
	BankruptBars int `json:"bankrupt_bars"`
	// MaxConsecutiveBankruptBars is the longest uninterrupted run of
	// bankrupt bars, the figure an optimizer penalizes.
	MaxConsecutiveBankruptBars int `json:"max_consecutive_bankrupt_bars"`
	// FirstBankruptAt is the open time of the first bankrupt bar.
	FirstBankruptAt time.Time `json:"first_bankrupt_at,omitempty"`
	// ClippedBuys counts buys reduced to the affordable quantity because
	// notional plus commission exceeded cash.
	ClippedBuys int `json:"clipped_buys"`
	// IgnoredSells counts sell signals received with zero holdings.
	IgnoredSells int `json:"ignored_sells"`
}

// BacktestResult is everything one accounting run produces.
type BacktestResult struct {
	EquityCurve []EquityPoint  `json:"equity_curve"`
	Trades      []MatchedTrade `json:"trades"`
	Fills       []Fill         `json:"fills"`
	Diagnostics Diagnostics    `json:"diagnostics"`
}
