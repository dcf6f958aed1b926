package indicator

// Mom is momentum: x[i] - x[i-period].
type Mom struct {
	Line
	period int
}

// NewMom creates a momentum indicator (period >= 2).
func NewMom(period int) *Mom {
	mustPeriod("MOM", period)
	return &Mom{period: period}
}

func (m *Mom) Name() string { return name("MOM", m.period) }
func (m *Mom) Period() int  { return m.period }

// Feed recomputes momentum; the first valid output is at src start + period.
func (m *Mom) Feed(src Source) {
	in, inStart := src.Inner()
	start := inStart + m.period
	m.reset(len(in), start)
	if start >= len(in) {
		return
	}
	out, prev := m.data[start:], in[inStart:]
	for i, v := range in[start:] {
		out[i] = v - prev[i]
	}
}
