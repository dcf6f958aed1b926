// Package data holds the in-memory price history a backtest replays.
package data

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"replaytrader/internal/indicator"
	"replaytrader/internal/model"
)

// Columns are parallel arrays, one entry per bar, oldest first.
// Time, Open and Close are required. High and Low default to the bar's
// open/close envelope and Volume to zero when omitted.
type Columns struct {
	Time   []time.Time
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// Feed is a loaded price history with a replay cursor.
// Price lines are always fully valid (start 0).
type Feed struct {
	times  []time.Time
	Open   *indicator.Line
	High   *indicator.Line
	Low    *indicator.Line
	Close  *indicator.Line
	Volume *indicator.Line

	offset int
}

// New validates cols and builds a feed. The slices are owned by the feed afterwards.
func New(cols Columns) (*Feed, error) {
	n := len(cols.Time)
	if len(cols.Open) != n || len(cols.Close) != n {
		return nil, fmt.Errorf("data columns: time=%d open=%d close=%d must have equal length",
			n, len(cols.Open), len(cols.Close))
	}
	for name, col := range map[string][]float64{"high": cols.High, "low": cols.Low, "volume": cols.Volume} {
		if col != nil && len(col) != n {
			return nil, fmt.Errorf("data columns: %s has %d rows, want %d", name, len(col), n)
		}
	}

	if cols.High == nil {
		cols.High = make([]float64, n)
		for i := range cols.High {
			cols.High[i] = math.Max(cols.Open[i], cols.Close[i])
		}
	}
	if cols.Low == nil {
		cols.Low = make([]float64, n)
		for i := range cols.Low {
			cols.Low[i] = math.Min(cols.Open[i], cols.Close[i])
		}
	}
	if cols.Volume == nil {
		cols.Volume = make([]float64, n)
	}

	return &Feed{
		times:  cols.Time,
		Open:   indicator.NewLine(cols.Open),
		High:   indicator.NewLine(cols.High),
		Low:    indicator.NewLine(cols.Low),
		Close:  indicator.NewLine(cols.Close),
		Volume: indicator.NewLine(cols.Volume),
	}, nil
}

// FromCandles converts stored paise candles into a feed ordered by timestamp.
// Forming candles are skipped.
func FromCandles(candles []model.TFCandle) (*Feed, error) {
	done := make([]model.TFCandle, 0, len(candles))
	for _, c := range candles {
		if !c.Forming {
			done = append(done, c)
		}
	}
	if len(done) == 0 {
		return nil, errors.New("data: no completed candles")
	}
	sort.SliceStable(done, func(i, j int) bool { return done[i].TS.Before(done[j].TS) })

	cols := Columns{
		Time:   make([]time.Time, len(done)),
		Open:   make([]float64, len(done)),
		High:   make([]float64, len(done)),
		Low:    make([]float64, len(done)),
		Close:  make([]float64, len(done)),
		Volume: make([]float64, len(done)),
	}
	for i, c := range done {
		if i > 0 && c.TS.Equal(done[i-1].TS) {
			return nil, fmt.Errorf("data: duplicate candle at %s for %s", c.TS.Format(time.RFC3339), c.Key())
		}
		cols.Time[i] = c.TS
		cols.Open[i] = model.PaiseToPrice(c.Open)
		cols.High[i] = model.PaiseToPrice(c.High)
		cols.Low[i] = model.PaiseToPrice(c.Low)
		cols.Close[i] = model.PaiseToPrice(c.Close)
		cols.Volume[i] = float64(c.Volume)
	}
	return New(cols)
}

// Len returns the number of bars.
func (f *Feed) Len() int { return len(f.times) }

// Offset returns the index of the bar being replayed.
func (f *Feed) Offset() int { return f.offset }

// Seek moves the replay cursor. Only the engine should call it.
func (f *Feed) Seek(i int) {
	if i < 0 || i >= len(f.times) {
		panic(fmt.Sprintf("data: seek %d out of range [0, %d)", i, len(f.times)))
	}
	f.offset = i
}

// TimeAt returns the timestamp of bar i.
func (f *Feed) TimeAt(i int) (time.Time, bool) {
	if i < 0 || i >= len(f.times) {
		return time.Time{}, false
	}
	return f.times[i], true
}

// Time returns the timestamp of the current bar.
func (f *Feed) Time() time.Time {
	t, _ := f.TimeAt(f.offset)
	return t
}

// PositionValue marks size units at the current bar's close.
func (f *Feed) PositionValue(size int64) float64 {
	c, ok := f.Close.At(f.offset)
	if !ok {
		return 0
	}
	return float64(size) * c
}

// Candles converts the feed back to storage candles for one series.
// Prices are rounded to the nearest paisa; TS is the bar time in UTC.
func (f *Feed) Candles(exchange, token string, tf int) []model.TFCandle {
	out := make([]model.TFCandle, f.Len())
	for i := range out {
		o, _ := f.Open.At(i)
		h, _ := f.High.At(i)
		l, _ := f.Low.At(i)
		c, _ := f.Close.At(i)
		v, _ := f.Volume.At(i)
		out[i] = model.TFCandle{
			Token:    token,
			Exchange: exchange,
			TF:       tf,
			TS:       f.times[i].UTC(),
			Open:     model.PriceToPaise(o),
			High:     model.PriceToPaise(h),
			Low:      model.PriceToPaise(l),
			Close:    model.PriceToPaise(c),
			Volume:   int64(math.Round(v)),
			Count:    1,
		}
	}
	return out
}
