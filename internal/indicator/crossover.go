package indicator

// CrossOver detects a crossing a over b.
// Output is +1 on the bar where a moves above b, -1 where it moves below,
// 0 otherwise. Equal values emit 0 and keep the previous direction, so a
// touch-and-return is not a cross.
//
// The scan is sequential: the last nonzero direction is carried across the
// whole series and seeded from the bar just before the first output.
type CrossOver struct {
	Line
}

func NewCrossOver() *CrossOver { return &CrossOver{} }

func (c *CrossOver) Name() string { return "CROSSOVER" }

// Feed recomputes the cross signal. The first valid output is one bar after
// both inputs are valid.
func (c *CrossOver) Feed(a, b Source) {
	bufA, startA := a.Inner()
	bufB, startB := b.Inner()
	n := len(bufA)
	sameLen(n, bufB)

	start := max(startA, startB) + 1
	c.reset(n, start)
	if start >= n {
		return
	}

	dir := direction(bufA[start-1], bufB[start-1])
	for i := start; i < n; i++ {
		x, y := bufA[i], bufB[i]
		if x == y {
			continue
		}
		next := int8(-1)
		if x > y {
			next = 1
		}
		switch {
		case dir < 0 && next > 0:
			c.data[i] = 1
		case dir > 0 && next < 0:
			c.data[i] = -1
		}
		dir = next
	}
}

func direction(a, b float64) int8 {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}
