package indicator

// SMMA calculates Smoothed Moving Average (Wilder-style smoothing).
// First value is SMA(period), then SMMA = (prev*(period-1) + price) / period.
type SMMA struct {
	Line
	period int
}

// NewSMMA creates a new SMMA indicator with the given period (>= 2).
func NewSMMA(period int) *SMMA {
	mustPeriod("SMMA", period)
	return &SMMA{period: period}
}

func (s *SMMA) Name() string { return name("SMMA", s.period) }
func (s *SMMA) Period() int  { return s.period }

func (s *SMMA) Feed(src Source) {
	in, inStart := src.Inner()
	start := inStart + s.period - 1
	s.reset(len(in), start)
	if start >= len(in) {
		return
	}

	p := float64(s.period)
	var sum float64
	for _, v := range in[inStart : start+1] {
		sum += v
	}
	cur := sum / p
	s.data[start] = cur
	for i := start + 1; i < len(in); i++ {
		cur = (cur*(p-1) + in[i]) / p
		s.data[i] = cur
	}
}
