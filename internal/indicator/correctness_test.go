package indicator

import (
	"math"
	"testing"
)

// ────────────────────────────────────────────────────────────
// Helper
// ────────────────────────────────────────────────────────────

// src is a raw input series with an explicit valid start.
type src struct {
	data  []float64
	start int
}

func (s src) Inner() ([]float64, int) { return s.data, s.start }

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// assertSeries checks validity and values of every index. Use math.NaN() in
// want for indexes that must be absent.
func assertSeries(t *testing.T, label string, s Series, want []float64) {
	t.Helper()
	if s.Len() != len(want) {
		t.Fatalf("%s: len=%d, want %d", label, s.Len(), len(want))
	}
	for i, w := range want {
		v, ok := s.At(i)
		if math.IsNaN(w) {
			if ok {
				t.Errorf("%s[%d]: got %.6f, want absent", label, i, v)
			}
			continue
		}
		if !ok {
			t.Errorf("%s[%d]: absent, want %.6f", label, i, w)
			continue
		}
		assertClose(t, label, v, w, 1e-9)
	}
}

func mustPanic(t *testing.T, label string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", label)
		}
	}()
	fn()
}

var nan = math.NaN()

// ────────────────────────────────────────────────────────────
// Line
// ────────────────────────────────────────────────────────────

func TestLine_At(t *testing.T) {
	l := NewLine([]float64{1, 2, 3})
	if v, ok := l.At(0); !ok || v != 1 {
		t.Errorf("At(0) = %v, %v", v, ok)
	}
	if _, ok := l.At(3); ok {
		t.Error("At(3) past end should be absent")
	}
	if _, ok := l.At(-1); ok {
		t.Error("At(-1) should be absent")
	}
	buf, start := l.Inner()
	if len(buf) != 3 || start != 0 {
		t.Errorf("Inner() = %v, %d", buf, start)
	}
}

// ────────────────────────────────────────────────────────────
// SMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMA_Period2(t *testing.T) {
	sma := NewSMA(2)
	sma.Feed(src{data: []float64{1, 2, 3, 4, 5}})
	if sma.Start() != 1 {
		t.Errorf("start=%d, want 1", sma.Start())
	}
	assertSeries(t, "SMA(2)", sma, []float64{nan, 1.5, 2.5, 3.5, 4.5})
}

func TestSMA_OffsetInput(t *testing.T) {
	// Input valid from index 1: window of 3 first fills at index 3.
	sma := NewSMA(3)
	sma.Feed(src{data: []float64{1, 2, 1, 2, 1}, start: 1})
	if sma.Start() != 3 {
		t.Errorf("start=%d, want 3", sma.Start())
	}
	v, ok := sma.At(3)
	if !ok || v != 1.6666666666666667 {
		t.Errorf("At(3) = %v, %v; want 1.6666666666666667", v, ok)
	}
	assertSeries(t, "SMA(3)", sma, []float64{nan, nan, nan, 5.0 / 3, 4.0 / 3})
}

func TestSMA_Correctness_Period3(t *testing.T) {
	// Prices: 100, 102, 104, 103, 105
	// SMA after candle 3: (100+102+104)/3 = 102.0000
	// SMA after candle 4: (102+104+103)/3 = 103.0000
	// SMA after candle 5: (104+103+105)/3 = 104.0000
	sma := NewSMA(3)
	sma.Feed(src{data: []float64{100, 102, 104, 103, 105}})
	assertSeries(t, "SMA(3)", sma, []float64{nan, nan, 102, 103, 104})
}

func TestSMA_NotEnoughData(t *testing.T) {
	sma := NewSMA(5)
	sma.Feed(src{data: []float64{1, 2, 3}})
	assertSeries(t, "SMA(5)", sma, []float64{nan, nan, nan})
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_Correctness_Period3(t *testing.T) {
	// EMA(3): multiplier = 2/(3+1) = 0.5
	// Seed: (100+102+104)/3 = 102.0 (SMA seed)
	// Candle 4: EMA = 103*0.5 + 102.0*0.5 = 102.5
	// Candle 5: EMA = 105*0.5 + 102.5*0.5 = 103.75
	ema := NewEMA(3)
	ema.Feed(src{data: []float64{100, 102, 104, 103, 105}})
	if ema.Start() != 2 {
		t.Errorf("start=%d, want 2", ema.Start())
	}
	assertSeries(t, "EMA(3)", ema, []float64{nan, nan, 102, 102.5, 103.75})
}

func TestEMA_Correctness_Period5(t *testing.T) {
	mult := 2.0 / 6.0
	prices := []float64{44, 44.25, 44.50, 43.75, 44.50, 44.25, 44.00}
	seed := (44.0 + 44.25 + 44.50 + 43.75 + 44.50) / 5.0
	e6 := 44.25*mult + seed*(1-mult)
	e7 := 44.00*mult + e6*(1-mult)

	ema := NewEMA(5)
	ema.Feed(src{data: prices})
	v, _ := ema.At(4)
	assertClose(t, "EMA(5) seed", v, seed, 1e-9)
	v, _ = ema.At(5)
	assertClose(t, "EMA(5) candle 6", v, e6, 1e-9)
	v, _ = ema.At(6)
	assertClose(t, "EMA(5) candle 7", v, e7, 1e-9)
}

func TestEMA_SeedSkipsWarmup(t *testing.T) {
	// Placeholders before the input start must not leak into the seed.
	ema := NewEMA(2)
	ema.Feed(src{data: []float64{999, 999, 2, 4, 6}, start: 2})
	assertSeries(t, "EMA(2)", ema, []float64{nan, nan, nan, 3, 3 + (6-3)*2.0/3.0})
}

// ────────────────────────────────────────────────────────────
// SMMA / RSI Correctness
// ────────────────────────────────────────────────────────────

func TestSMMA_Correctness_Period3(t *testing.T) {
	// Candle 1-3: seed = (100+102+104)/3 = 102.0
	// Candle 4: SMMA = (102.0 * 2 + 103) / 3 = 102.3333
	// Candle 5: SMMA = (102.3333 * 2 + 105) / 3 = 103.2222
	smma := NewSMMA(3)
	smma.Feed(src{data: []float64{100, 102, 104, 103, 105}})
	v, _ := smma.At(3)
	assertClose(t, "SMMA(3) candle 4", v, 102.3333, 0.0001)
	v, _ = smma.At(4)
	assertClose(t, "SMMA(3) candle 5", v, 103.2222, 0.0001)
}

func TestRSI_Alternating(t *testing.T) {
	// changes: +1, -1 → avg gain 0.5, avg loss 0.5 → RSI 50
	// +1: gain (0.5+1)/2=0.75, loss 0.25 → RS 3 → 75
	// -1: gain 0.375, loss 0.625 → RS 0.6 → 37.5
	rsi := NewRSI(2)
	rsi.Feed(src{data: []float64{10, 11, 10, 11, 10}})
	if rsi.Start() != 2 {
		t.Errorf("start=%d, want 2", rsi.Start())
	}
	assertSeries(t, "RSI(2)", rsi, []float64{nan, nan, 50, 75, 37.5})
}

func TestRSI_OnlyGains(t *testing.T) {
	rsi := NewRSI(3)
	rsi.Feed(src{data: []float64{1, 2, 3, 4, 5}})
	assertSeries(t, "RSI(3)", rsi, []float64{nan, nan, nan, 100, 100})
}

// ────────────────────────────────────────────────────────────
// Slope / Momentum
// ────────────────────────────────────────────────────────────

func TestSlope_Linear(t *testing.T) {
	// x[t] = 2t + 1 has slope 2 over any window.
	data := make([]float64, 8)
	for i := range data {
		data[i] = 2*float64(i) + 1
	}
	slope := NewSlope(4)
	slope.Feed(src{data: data})
	assertSeries(t, "SLOPE(4)", slope, []float64{nan, nan, nan, 2, 2, 2, 2, 2})
}

func TestSlope_Window(t *testing.T) {
	// Window {1, 3, 2}: t̄=1, ȳ=2, Σ(t-t̄)(y-ȳ) = (-1)(-1)+0+(1)(0) = 1, Σ(t-t̄)² = 2
	slope := NewSlope(3)
	slope.Feed(src{data: []float64{0, 1, 3, 2}, start: 1})
	if slope.Start() != 3 {
		t.Errorf("start=%d, want 3", slope.Start())
	}
	assertSeries(t, "SLOPE(3)", slope, []float64{nan, nan, nan, 0.5})
}

func TestMom_Period2(t *testing.T) {
	mom := NewMom(2)
	mom.Feed(src{data: []float64{1, 1, 2, 3, 5, 8, 13}})
	assertSeries(t, "MOM(2)", mom, []float64{nan, nan, 1, 2, 3, 5, 8})
	buf, start := mom.Inner()
	if start != 2 || buf[0] != 0 || buf[1] != 0 {
		t.Errorf("placeholders = %v start=%d, want zeros and start 2", buf[:2], start)
	}
}

// ────────────────────────────────────────────────────────────
// Max / Min
// ────────────────────────────────────────────────────────────

func TestMax_StartAndRefeed(t *testing.T) {
	d1 := src{data: []float64{1, 1, 1, 1}, start: 1}
	d2 := src{data: []float64{2, 2, 2, 2}}
	m := NewMax()
	m.Feed(d1, d2)
	if m.Start() != 1 {
		t.Errorf("start=%d, want 1", m.Start())
	}
	if _, ok := m.At(0); ok {
		t.Error("At(0) should be absent")
	}
	if v, ok := m.At(1); !ok || v != 2 {
		t.Errorf("At(1) = %v, %v; want 2", v, ok)
	}

	d3 := src{data: []float64{3, 3, 3, 3}}
	m.Feed(d1, d3)
	buf, _ := m.Inner()
	want := []float64{0, 3, 3, 3}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buffer = %v, want %v", buf, want)
		}
	}
}

func TestMin_Elementwise(t *testing.T) {
	m := NewMin()
	m.Feed(src{data: []float64{1, 5, 3}}, src{data: []float64{4, 2, 3}})
	assertSeries(t, "MIN", m, []float64{1, 2, 3})
}

// ────────────────────────────────────────────────────────────
// CrossOver
// ────────────────────────────────────────────────────────────

func TestCrossOver_Sequence(t *testing.T) {
	a := src{data: []float64{0.1, 0.3, 0.2, 0.3, 0.5, 0.6}}
	b := src{data: []float64{0, 0.1, 0.4, 0.5, 0.5, 0.3}, start: 1}
	c := NewCrossOver()
	c.Feed(a, b)

	if c.Len() != 6 {
		t.Fatalf("len=%d, want 6", c.Len())
	}
	if c.Start() != 2 {
		t.Errorf("start=%d, want 2", c.Start())
	}
	// index 1 seeds a>b. Index 2 a drops below b (-1), index 4 is a tie
	// (no update), index 5 a rises above b again (+1).
	buf, _ := c.Inner()
	want := []float64{0, 0, -1, 0, 0, 1}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buffer = %v, want %v", buf, want)
		}
	}
}

func TestCrossOver_FirstComputableBar(t *testing.T) {
	// The cross happens between index 0 and 1; seeding from index 0 catches it.
	c := NewCrossOver()
	c.Feed(src{data: []float64{1, 3}}, src{data: []float64{2, 2}})
	if v, ok := c.At(1); !ok || v != 1 {
		t.Errorf("At(1) = %v, %v; want 1", v, ok)
	}
}

func TestCrossOver_TieKeepsDirection(t *testing.T) {
	// above → tie → above is not a cross; above → tie → below is.
	c := NewCrossOver()
	c.Feed(src{data: []float64{2, 1, 2, 1, 0}}, src{data: []float64{1, 1, 1, 1, 1}})
	assertSeries(t, "CROSSOVER", c, []float64{nan, 0, 0, 0, -1})
}

// ────────────────────────────────────────────────────────────
// Framework properties
// ────────────────────────────────────────────────────────────

func TestWindowed_LengthAndValidity(t *testing.T) {
	prices := []float64{5, 4, 6, 7, 3, 8, 9, 2, 4, 6, 5, 7}
	base := src{data: prices, start: 1}
	for _, ind := range []Windowed{
		NewSMA(3), NewEMA(3), NewSMMA(3), NewRSI(3), NewSlope(3), NewMom(3),
	} {
		ind.Feed(base)
		if ind.Len() != len(prices) {
			t.Errorf("%s: len=%d, want %d", ind.Name(), ind.Len(), len(prices))
		}
		_, start := ind.Inner()
		for i := range prices {
			if _, ok := ind.At(i); ok != (i >= start) {
				t.Errorf("%s: At(%d) ok=%v with start=%d", ind.Name(), i, ok, start)
			}
		}
	}
}

func TestValidStartPropagation(t *testing.T) {
	base := src{data: make([]float64, 20), start: 2}
	cases := []struct {
		ind  Windowed
		want int
	}{
		{NewSMA(4), 5},
		{NewEMA(4), 5},
		{NewSMMA(4), 5},
		{NewSlope(4), 5},
		{NewMom(4), 6},
		{NewRSI(4), 6},
	}
	for _, tc := range cases {
		tc.ind.Feed(base)
		if _, start := tc.ind.Inner(); start != tc.want {
			t.Errorf("%s: start=%d, want %d", tc.ind.Name(), start, tc.want)
		}
	}
}

func TestChainedIndicators(t *testing.T) {
	closes := NewLine([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	fast := NewSMA(2)
	slow := NewEMA(3)
	fast.Feed(closes)
	slow.Feed(fast) // starts at 1 + 3 - 1 = 3
	slope := NewSlope(2)
	slope.Feed(slow) // starts at 3 + 2 - 1 = 4
	cross := NewCrossOver()
	cross.Feed(fast, slope) // starts at max(1, 4) + 1 = 5

	for _, tc := range []struct {
		s    Source
		want int
	}{{fast, 1}, {slow, 3}, {slope, 4}, {cross, 5}} {
		buf, start := tc.s.Inner()
		if start != tc.want || len(buf) != 8 {
			t.Errorf("start=%d len=%d, want start %d len 8", start, len(buf), tc.want)
		}
	}
	// A linear input stays linear through SMA and EMA, slope 1.
	v, ok := slope.At(7)
	if !ok {
		t.Fatal("slope At(7) absent")
	}
	assertClose(t, "chained slope", v, 1, 1e-9)
}

func TestRefeed_Idempotent(t *testing.T) {
	in := src{data: []float64{3, 1, 4, 1, 5, 9, 2, 6}}
	ema := NewEMA(3)
	ema.Feed(in)
	first, _ := ema.Inner()
	snapshot := append([]float64(nil), first...)

	ema.Feed(in)
	second, _ := ema.Inner()
	for i := range snapshot {
		if snapshot[i] != second[i] {
			t.Fatalf("refeed changed index %d: %v != %v", i, snapshot[i], second[i])
		}
	}
}

func TestRefeed_LengthMismatchPanics(t *testing.T) {
	sma := NewSMA(2)
	sma.Feed(src{data: []float64{1, 2, 3}})
	mustPanic(t, "refeed", func() { sma.Feed(src{data: []float64{1, 2, 3, 4}}) })
}

func TestInputLengthMismatchPanics(t *testing.T) {
	mustPanic(t, "max", func() {
		NewMax().Feed(src{data: []float64{1, 2}}, src{data: []float64{1}})
	})
	mustPanic(t, "crossover", func() {
		NewCrossOver().Feed(src{data: []float64{1, 2}}, src{data: []float64{1, 2, 3}})
	})
}

func TestPeriodBelowMinimumPanics(t *testing.T) {
	mustPanic(t, "SMA(1)", func() { NewSMA(1) })
	mustPanic(t, "EMA(0)", func() { NewEMA(0) })
	mustPanic(t, "MOM(1)", func() { NewMom(1) })
	mustPanic(t, "SLOPE(-3)", func() { NewSlope(-3) })
}

func TestZip(t *testing.T) {
	z := NewZip("SPREAD", func(v []float64) float64 { return v[0] - v[1] + v[2] })
	z.Feed(
		src{data: []float64{5, 6, 7, 8}},
		src{data: []float64{1, 1, 1, 1}, start: 2},
		src{data: []float64{0, 10, 20, 30}, start: 1},
	)
	if z.Name() != "SPREAD" {
		t.Errorf("name=%s", z.Name())
	}
	assertSeries(t, "SPREAD", z, []float64{nan, nan, 26, 37})
}
