package indicator

import "math"

// Min is the elementwise minimum of two series, valid where both are.
type Min struct {
	Line
}

func NewMin() *Min { return &Min{} }

func (m *Min) Name() string { return "MIN" }

func (m *Min) Feed(a, b Source) {
	pairwise(&m.Line, a, b, math.Min)
}
