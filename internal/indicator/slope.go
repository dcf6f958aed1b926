package indicator

// Slope is the linear regression slope of the last period samples,
// fitting x[t] against t = 0..period-1 with ordinary least squares.
// Each output index is computed independently of the others.
type Slope struct {
	Line
	period int
}

// NewSlope creates a linear-regression slope indicator (period >= 2).
func NewSlope(period int) *Slope {
	mustPeriod("SLOPE", period)
	return &Slope{period: period}
}

func (s *Slope) Name() string { return name("SLOPE", s.period) }
func (s *Slope) Period() int  { return s.period }

func (s *Slope) Feed(src Source) {
	in, inStart := src.Inner()
	start := inStart + s.period - 1
	s.reset(len(in), start)
	if start >= len(in) {
		return
	}

	n := float64(s.period)
	sumX := n * (n - 1) * 0.5
	sumXSqr := n * (n - 1) * (2*n - 1) / 6
	divisor := n*sumXSqr - sumX*sumX

	for i := start; i < len(in); i++ {
		window := in[i-s.period+1 : i+1]
		var sumY, sumXY float64
		for t, y := range window {
			sumY += y
			sumXY += float64(t) * y
		}
		s.data[i] = (n*sumXY - sumX*sumY) / divisor
	}
}
