// Package indicator provides technical indicator calculations over whole
// price histories.
//
// Every indicator owns one output Line that is recomputed in full on each
// Feed call. Outputs always have the same length as their inputs; only the
// valid-start index advances as indicators are chained, so a value read with
// At is either meaningful or reported absent.
package indicator

// Indicator is the interface for all technical indicators.
type Indicator interface {
	Series

	// Name returns the indicator name (e.g., "SMA_20", "EMA_9").
	Name() string
}

// Windowed is a single-input indicator with a lookback window.
type Windowed interface {
	Indicator

	// Feed recomputes the output from src.
	Feed(src Source)

	// Period returns the window length.
	Period() int
}

func name(kind string, period int) string {
	return kind + "_" + itoa(period)
}

// itoa converts int to string without importing strconv.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	buf := [20]byte{}
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
