package models

import "time"

// Bar is one fixed-interval OHLCV record. Bars arrive pre-sorted ascending by
// open time; gaps in the series pass through unmodified.
type Bar struct {
	OpenTime  time.Time
	CloseTime time.Time
	Symbol    string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// TruncateBars keeps the leading pct percent of the series, the train/test
// split used by backtests and as the resource axis of successive halving.
// pct outside (0,100] returns the series unchanged.
func TruncateBars(bars []Bar, pct float64) []Bar {
	if pct <= 0 || pct >= 100 {
		return bars
	}
	n := int(float64(len(bars)) * pct / 100.0)
	if n < 1 {
		n = 1
	}
	return bars[:n]
}
