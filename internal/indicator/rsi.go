package indicator

// RSI calculates the Relative Strength Index using Wilder's smoothing method.
// The first value needs period price changes, so it lands at src start + period.
type RSI struct {
	Line
	period int
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	mustPeriod("RSI", period)
	return &RSI{period: period}
}

func (r *RSI) Name() string { return name("RSI", r.period) }
func (r *RSI) Period() int  { return r.period }

func (r *RSI) Feed(src Source) {
	in, inStart := src.Inner()
	start := inStart + r.period
	r.reset(len(in), start)
	if start >= len(in) {
		return
	}

	p := float64(r.period)
	var avgGain, avgLoss float64

	// Accumulation phase: build initial averages
	for i := inStart + 1; i <= start; i++ {
		gain, loss := split(in[i] - in[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= p
	avgLoss /= p
	r.data[start] = rsiValue(avgGain, avgLoss)

	for i := start + 1; i < len(in); i++ {
		gain, loss := split(in[i] - in[i-1])
		// Wilder's smoothing: avgGain = (prevAvgGain * (period-1) + gain) / period
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		r.data[i] = rsiValue(avgGain, avgLoss)
	}
}

func split(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
