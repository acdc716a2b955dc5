// Package normalize implements the lossy canonicalization pass for the
// backtest spec family. It accepts an envelope that may be missing
// fields, carry wrong types, or use human-friendly shorthand, and
// produces best-effort canonical output plus an assumptions log naming
// every inferred default or coercion. It never rejects; hard rejection
// belongs to the validator, which runs after.
package normalize

// The lookup tables below are constructed once and never mutated.

// timeframeAliases maps human-friendly timeframe spellings to canonical
// values.
var timeframeAliases = map[string]string{
	"1m":      "1m",
	"1min":    "1m",
	"1minute": "1m",
	"3m":      "3m",
	"3min":    "3m",
	"5m":      "5m",
	"5min":    "5m",
	"15m":     "15m",
	"15min":   "15m",
	"30m":     "30m",
	"30min":   "30m",
	"60m":     "1h",
	"1h":      "1h",
	"1hr":     "1h",
	"hourly":  "1h",
	"2h":      "2h",
	"4h":      "4h",
	"8h":      "8h",
	"12h":     "12h",
	"1d":      "1d",
	"daily":   "1d",
	"3d":      "3d",
	"1w":      "1w",
	"weekly":  "1w",
	"1mo":     "1M",
	"1month":  "1M",
	"1mth":    "1M",
}

// lookbackDaysByTimeframe sizes the default backtest window: shorter for
// fine-grained candles, longer for daily and above.
var lookbackDaysByTimeframe = map[string]int{
	"1m":  60,
	"3m":  60,
	"5m":  90,
	"15m": 120,
	"30m": 180,
	"1h":  365,
	"2h":  365,
	"4h":  365,
	"8h":  365,
	"12h": 365,
	"1d":  730,
	"3d":  730,
	"1w":  1095,
	"1M":  1460,
}

// timeframeMinutes converts a timeframe to bar length, used to turn
// intervalMs shorthand into every_n_bars.
var timeframeMinutes = map[string]int{
	"1m":  1,
	"3m":  3,
	"5m":  5,
	"15m": 15,
	"30m": 30,
	"1h":  60,
	"2h":  120,
	"4h":  240,
	"8h":  480,
	"12h": 720,
	"1d":  1440,
	"3d":  4320,
	"1w":  10080,
	"1M":  43200,
}

// entryOrderAliases canonicalize order type casing, including the
// exchange-native time-in-force names.
var entryOrderAliases = map[string]string{
	"market": "market",
	"limit":  "limit",
	"ioc":    "Ioc",
	"gtc":    "Gtc",
	"alo":    "Alo",
}

const (
	defaultTimeframe    = "1h"
	defaultLookbackDays = 180
)
