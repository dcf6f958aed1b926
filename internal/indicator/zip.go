package indicator

// Zip combines any number of equal-length sources elementwise with fn.
// It is the building block for strategy-specific signal lines that would
// otherwise each need their own indicator type.
type Zip struct {
	Line
	name string
	fn   func(vals []float64) float64
}

// NewZip creates an elementwise combinator. fn receives one value per source,
// in the order passed to Feed; the slice is reused between calls.
func NewZip(name string, fn func(vals []float64) float64) *Zip {
	return &Zip{name: name, fn: fn}
}

func (z *Zip) Name() string { return z.name }

// Feed recomputes the output, valid where every source is valid.
func (z *Zip) Feed(srcs ...Source) {
	if len(srcs) == 0 {
		panic("indicator: zip needs at least one source")
	}
	bufs := make([][]float64, len(srcs))
	start := 0
	for i, s := range srcs {
		buf, st := s.Inner()
		bufs[i] = buf
		start = max(start, st)
	}
	n := len(bufs[0])
	sameLen(n, bufs[1:]...)

	z.reset(n, start)
	vals := make([]float64, len(bufs))
	for i := start; i < n; i++ {
		for j, buf := range bufs {
			vals[j] = buf[i]
		}
		z.data[i] = z.fn(vals)
	}
}
