package indicator

// EMA calculates Exponential Moving Average.
// The first value is the SMA of the first period inputs; after that
// EMA = (price - prev) * k + prev with k = 2 / (period + 1), the same
// evaluation order TA-Lib uses so results match it bit for bit.
type EMA struct {
	Line
	period     int
	multiplier float64
}

// NewEMA creates a new EMA indicator with the given period (>= 2).
func NewEMA(period int) *EMA {
	mustPeriod("EMA", period)
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return name("EMA", e.period) }
func (e *EMA) Period() int  { return e.period }

func (e *EMA) Feed(src Source) {
	in, inStart := src.Inner()
	start := inStart + e.period - 1
	e.reset(len(in), start)
	if start >= len(in) {
		return
	}

	// SMA seed
	var sum float64
	for _, v := range in[inStart : start+1] {
		sum += v
	}
	prev := sum / float64(e.period)
	e.data[start] = prev

	k := e.multiplier
	for i := start + 1; i < len(in); i++ {
		prev = (in[i]-prev)*k + prev
		e.data[i] = prev
	}
}
