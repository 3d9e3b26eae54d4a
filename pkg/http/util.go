package http

import (
	"time"

	xutil "FinSim/pkg/util"
)

// ParseIntDefault parses a query parameter as int, falling back to def when
// empty or malformed.
func ParseIntDefault(s string, def int) int { return xutil.ParseIntDefault(s, def) }

// ParseTimeDefault parses a query parameter as RFC3339 or unix seconds,
// falling back to def.
func ParseTimeDefault(s string, def time.Time) time.Time { return xutil.ParseTimeDefault(s, def) }
