package indicator

import "math"

// Max is the elementwise maximum of two series, valid where both are.
type Max struct {
	Line
}

func NewMax() *Max { return &Max{} }

func (m *Max) Name() string { return "MAX" }

func (m *Max) Feed(a, b Source) {
	pairwise(&m.Line, a, b, math.Max)
}

// pairwise writes fn(a[i], b[i]) into dst for every index where both inputs
// are valid.
func pairwise(dst *Line, a, b Source, fn func(x, y float64) float64) {
	bufA, startA := a.Inner()
	bufB, startB := b.Inner()
	n := len(bufA)
	sameLen(n, bufB)

	start := max(startA, startB)
	dst.reset(n, start)
	if start >= n {
		return
	}
	xs, ys, out := bufA[start:], bufB[start:], dst.data[start:]
	for i := range out {
		out[i] = fn(xs[i], ys[i])
	}
}
