package indicator

import "fmt"

// Source is anything a downstream indicator can bulk-read from.
// Inner returns the full backing buffer and the first valid index. All sources
// fed in one backtest share the same buffer length; values before the valid
// index are placeholders and must never be read as data.
type Source interface {
	Inner() ([]float64, int)
}

// Series is a Source with checked random access.
type Series interface {
	Source

	// At returns the value at index and true, or false when index is before
	// the valid start or past the end of the series.
	At(index int) (float64, bool)

	// Len returns the buffer length (valid or not).
	Len() int
}

// Line is a fixed-length float64 series with a valid-start index.
// It is the output buffer of every indicator and the container for raw
// price columns.
type Line struct {
	data  []float64
	start int
}

// NewLine wraps raw values as a fully valid line (start = 0).
// The slice is used as-is, not copied.
func NewLine(values []float64) *Line {
	return &Line{data: values}
}

func (l *Line) Inner() ([]float64, int) { return l.data, l.start }
func (l *Line) Len() int                { return len(l.data) }

// Start returns the first valid index.
func (l *Line) Start() int { return l.start }

func (l *Line) At(index int) (float64, bool) {
	if index < l.start || index < 0 || index >= len(l.data) {
		return 0, false
	}
	return l.data[index], true
}

// reset prepares the buffer for a full recompute of n values starting at
// start. The first feed allocates; later feeds must keep the same length.
func (l *Line) reset(n, start int) {
	switch {
	case l.data == nil:
		l.data = make([]float64, n)
	case len(l.data) != n:
		panic(fmt.Sprintf("indicator: series length changed from %d to %d", len(l.data), n))
	default:
		clear(l.data)
	}
	l.start = start
}

// sameLen panics unless every source has length n.
func sameLen(n int, srcs ...[]float64) {
	for _, s := range srcs {
		if len(s) != n {
			panic(fmt.Sprintf("indicator: input length mismatch (%d != %d)", len(s), n))
		}
	}
}

// mustPeriod enforces the minimum window length for windowed indicators.
func mustPeriod(name string, period int) {
	if period < minPeriod {
		panic(fmt.Sprintf("indicator: %s period must be >= %d, got %d", name, minPeriod, period))
	}
}

const minPeriod = 2
