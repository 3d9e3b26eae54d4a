package repository

// Timeframe identifies the bar interval of a candle series.
type Timeframe string

const (
	TF1s Timeframe = "1s"
	TF1m Timeframe = "1m"
	TF5m Timeframe = "5m"
	TF1h Timeframe = "1h"
	TF1d Timeframe = "1d"
)

// DefaultTimeframe is used when a request leaves the interval unset.
const DefaultTimeframe = TF1m

// IsValidTimeframe reports whether tf names a supported interval.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1s, TF1m, TF5m, TF1h, TF1d:
		return true
	}
	return false
}

// NormalizeTimeframe maps a raw string to a supported Timeframe, falling
// back to the default for empty or unknown values.
func NormalizeTimeframe(s string) Timeframe {
	tf := Timeframe(s)
	if !IsValidTimeframe(tf) {
		return DefaultTimeframe
	}
	return tf
}
