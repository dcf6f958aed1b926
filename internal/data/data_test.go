package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"replaytrader/internal/model"
)

func TestNew_LengthMismatch(t *testing.T) {
	_, err := New(Columns{
		Time:  make([]time.Time, 3),
		Open:  []float64{1, 2, 3},
		Close: []float64{1, 2},
	})
	if err == nil {
		t.Fatal("expected error for mismatched columns")
	}

	_, err = New(Columns{
		Time:  make([]time.Time, 2),
		Open:  []float64{1, 2},
		Close: []float64{1, 2},
		High:  []float64{1},
	})
	if err == nil {
		t.Fatal("expected error for short high column")
	}
}

func TestNew_Defaults(t *testing.T) {
	f, err := New(Columns{
		Time:  make([]time.Time, 2),
		Open:  []float64{10, 12},
		Close: []float64{11, 9},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if h, _ := f.High.At(1); h != 12 {
		t.Errorf("high[1] = %v, want 12", h)
	}
	if l, _ := f.Low.At(0); l != 10 {
		t.Errorf("low[0] = %v, want 10", l)
	}
	if v, ok := f.Volume.At(0); !ok || v != 0 {
		t.Errorf("volume[0] = %v, %v", v, ok)
	}
	if _, start := f.Close.Inner(); start != 0 {
		t.Errorf("close start = %d, want 0", start)
	}
}

func TestFeed_Cursor(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	f, err := New(Columns{
		Time:  []time.Time{t0, t0.Add(time.Hour)},
		Open:  []float64{1, 2},
		Close: []float64{3, 4},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.Seek(1)
	if f.Offset() != 1 || !f.Time().Equal(t0.Add(time.Hour)) {
		t.Errorf("offset=%d time=%v", f.Offset(), f.Time())
	}
	if got := f.PositionValue(-5); got != -20 {
		t.Errorf("PositionValue(-5) = %v, want -20", got)
	}
	if _, ok := f.TimeAt(2); ok {
		t.Error("TimeAt(2) should be absent")
	}

	defer func() {
		if recover() == nil {
			t.Error("Seek past end should panic")
		}
	}()
	f.Seek(2)
}

func TestFromCandles(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 3, 45, 0, 0, time.UTC)
	candles := []model.TFCandle{
		{Token: "2885", Exchange: "NSE", TF: 60, TS: t0.Add(time.Minute), Open: 10100, High: 10300, Low: 10000, Close: 10250, Volume: 7},
		{Token: "2885", Exchange: "NSE", TF: 60, TS: t0, Open: 10000, High: 10150, Low: 9950, Close: 10100, Volume: 5},
		{Token: "2885", Exchange: "NSE", TF: 60, TS: t0.Add(2 * time.Minute), Open: 1, Close: 1, Forming: true},
	}
	f, err := FromCandles(candles)
	if err != nil {
		t.Fatalf("FromCandles: %v", err)
	}
	if f.Len() != 2 {
		t.Fatalf("len = %d, want 2 (forming skipped)", f.Len())
	}
	if ts, _ := f.TimeAt(0); !ts.Equal(t0) {
		t.Errorf("bars not sorted: first ts %v", ts)
	}
	if o, _ := f.Open.At(0); o != 100 {
		t.Errorf("open[0] = %v, want 100", o)
	}
	if c, _ := f.Close.At(1); c != 102.5 {
		t.Errorf("close[1] = %v, want 102.5", c)
	}

	if _, err := FromCandles(candles[2:]); err == nil {
		t.Error("expected error when only forming candles")
	}
	dup := []model.TFCandle{candles[0], candles[0]}
	if _, err := FromCandles(dup); err == nil {
		t.Error("expected error for duplicate timestamps")
	}
}

const orclCSV = `Date,Open,High,Low,Close,Adj Close,Volume
2023-01-03,88.39,89.00,87.01,88.45,87.56,6891200

2023-01-04,88.85,89.98,88.25,89.66,88.76,8014700
2023-01-05, 89.48,89.89,88.54,89.05,88.16,5752800
`

func TestCSVLoader_Date(t *testing.T) {
	l := &CSVLoader{TimeField: "date", TimeType: TimeDate, Layout: "2006-01-02"}
	f, err := l.LoadString(orclCSV)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("len = %d, want 3", f.Len())
	}
	if ts, _ := f.TimeAt(2); !ts.Equal(time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("time[2] = %v", ts)
	}
	if o, _ := f.Open.At(2); o != 89.48 {
		t.Errorf("open[2] = %v, want 89.48", o)
	}
	if v, _ := f.Volume.At(1); v != 8014700 {
		t.Errorf("volume[1] = %v", v)
	}
}

func TestCSVLoader_MillisecondReverse(t *testing.T) {
	in := "TS,open,close\n1700000060000,2,3\n1700000000000,1,2\n"
	l := &CSVLoader{TimeField: "ts", TimeType: TimeMillisecond, Reverse: true}
	f, err := l.LoadString(in)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	if ts, _ := f.TimeAt(0); ts.Unix() != 1700000000 {
		t.Errorf("time[0] = %v, want oldest first", ts)
	}
	if c, _ := f.Close.At(1); c != 3 {
		t.Errorf("close[1] = %v, want 3", c)
	}
}

func TestCSVLoader_Errors(t *testing.T) {
	cases := []struct {
		name   string
		loader CSVLoader
		in     string
		want   string
	}{
		{"no time field", CSVLoader{TimeType: TimeSecond}, "t,open,close\n1,1,1\n", "time field"},
		{"no time type", CSVLoader{TimeField: "t"}, "t,open,close\n1,1,1\n", "time type"},
		{"no layout", CSVLoader{TimeField: "t", TimeType: TimeDate}, "t,open,close\n1,1,1\n", "layout"},
		{"missing column", CSVLoader{TimeField: "time", TimeType: TimeSecond}, "t,open,close\n1,1,1\n", "missing time"},
		{"missing close", CSVLoader{TimeField: "t", TimeType: TimeSecond}, "t,open\n1,1\n", "open or close"},
		{"bad time", CSVLoader{TimeField: "t", TimeType: TimeSecond}, "t,open,close\nx,1,1\n", "row 1"},
		{"bad price", CSVLoader{TimeField: "t", TimeType: TimeSecond}, "t,open,close\n1,1,1\n2,1,nope\n", "row 2"},
		{"empty", CSVLoader{TimeField: "t", TimeType: TimeSecond}, "", "header"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.loader.LoadString(tc.in)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestCSVLoader_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")
	if err := os.WriteFile(path, []byte("time,open,close\n1700000000,1.5,1.6\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := &CSVLoader{TimeField: "TIME", TimeType: TimeSecond}
	f, err := l.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if f.Len() != 1 {
		t.Errorf("len = %d", f.Len())
	}
	if _, err := l.LoadFile(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseTimeType(t *testing.T) {
	for in, want := range map[string]TimeType{
		"second": TimeSecond, "MS": TimeMillisecond, "date": TimeDate, " Datetime ": TimeDatetime,
	} {
		got, err := ParseTimeType(in)
		if err != nil || got != want {
			t.Errorf("ParseTimeType(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseTimeType("weekly"); err == nil {
		t.Error("expected error")
	}
}

func TestFeed_CandlesRoundTrip(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 3, 45, 0, 0, time.UTC)
	f, err := New(Columns{
		Time:   []time.Time{t0, t0.Add(time.Minute)},
		Open:   []float64{101.25, 102},
		High:   []float64{103.005, 102.5},
		Low:    []float64{100, 101.1},
		Close:  []float64{102, 101.9},
		Volume: []float64{1500, 900},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	candles := f.Candles("NSE", "2885", 60)
	if len(candles) != 2 {
		t.Fatalf("got %d candles", len(candles))
	}
	c := candles[0]
	if c.Open != 10125 || c.Close != 10200 || c.Low != 10000 || c.Volume != 1500 {
		t.Errorf("candle 0 = %+v", c)
	}
	if c.StreamKey() != "candle:60s:NSE:2885" || !c.TS.Equal(t0) {
		t.Errorf("candle 0 key=%s ts=%v", c.StreamKey(), c.TS)
	}

	back, err := FromCandles(candles)
	if err != nil {
		t.Fatalf("FromCandles: %v", err)
	}
	if v, _ := back.Close.At(1); v != 101.9 {
		t.Errorf("close after round trip = %v, want 101.9", v)
	}
}
