package indicator

// SMA calculates Simple Moving Average over a trailing window.
// Uses a running sum so the whole series is O(n).
type SMA struct {
	Line
	period int
}

// NewSMA creates a new SMA indicator with the given period (>= 2).
func NewSMA(period int) *SMA {
	mustPeriod("SMA", period)
	return &SMA{period: period}
}

func (s *SMA) Name() string { return name("SMA", s.period) }
func (s *SMA) Period() int  { return s.period }

// Feed recomputes the SMA over src. The first valid output is at
// src start + period - 1.
func (s *SMA) Feed(src Source) {
	in, inStart := src.Inner()
	start := inStart + s.period - 1
	s.reset(len(in), start)
	if start >= len(in) {
		return
	}

	p := float64(s.period)
	var sum float64
	for _, v := range in[inStart:start] {
		sum += v
	}
	out := s.data
	for i := start; i < len(in); i++ {
		sum += in[i]
		out[i] = sum / p
		// Subtract the oldest value leaving the window
		sum -= in[i-s.period+1]
	}
}
