package redis

import (
	"context"
	"testing"
	"time"

	"replaytrader/internal/model"

	"github.com/alicebob/miniredis/v2"
)

func TestDecodeEntry(t *testing.T) {
	c := model.TFCandle{Token: "2885", Exchange: "NSE", TF: 60, TS: time.Unix(1_700_000_000, 0).UTC(), Open: 1, High: 3, Low: 1, Close: 2}
	got, ok := decodeEntry(map[string]interface{}{"data": string(c.JSON())})
	if !ok {
		t.Fatal("expected entry to decode")
	}
	if got.Close != 2 || !got.TS.Equal(c.TS) {
		t.Errorf("decoded %+v", got)
	}

	c.Forming = true
	if _, ok := decodeEntry(map[string]interface{}{"data": string(c.JSON())}); ok {
		t.Error("forming candle should be skipped")
	}
	if _, ok := decodeEntry(map[string]interface{}{"data": "{bad"}); ok {
		t.Error("bad JSON should be skipped")
	}
	if _, ok := decodeEntry(map[string]interface{}{"other": "x"}); ok {
		t.Error("missing data field should be skipped")
	}
}

func TestAddArgs(t *testing.T) {
	c := model.TFCandle{Token: "2885", Exchange: "NSE", TF: 300, TS: time.Unix(1_700_000_000, 0)}
	args := addArgs(&c, 0)
	if args.Stream != "candle:300s:NSE:2885" {
		t.Errorf("stream=%s", args.Stream)
	}
	if args.ID != "1700000000000-0" {
		t.Errorf("id=%s", args.ID)
	}
	if args.Approx {
		t.Error("no trim expected when MaxLen is 0")
	}
	if !addArgs(&c, 500).Approx {
		t.Error("approximate trim expected when MaxLen is set")
	}
}

func minuteCandles(token string, from, n int) []model.TFCandle {
	var out []model.TFCandle
	for i := from; i < from+n; i++ {
		out = append(out, model.TFCandle{
			Token:    token,
			Exchange: "NSE",
			TF:       60,
			TS:       time.Unix(int64(1_700_000_000+60*i), 0).UTC(),
			Close:    int64(100 + i),
		})
	}
	return out
}

func TestWriterReader_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	w, err := New(WriterConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	in := minuteCandles("2885", 0, 3)
	forming := in[2]
	forming.TS = forming.TS.Add(time.Minute)
	forming.Forming = true
	if n, err := w.WriteTFCandles(ctx, append(in, forming)); err != nil || n != 3 {
		t.Fatalf("WriteTFCandles n=%d err=%v", n, err)
	}
	last, err := w.LastTimestamp(ctx, "NSE", "2885", 60)
	if err != nil || last != 1_700_000_120 {
		t.Errorf("LastTimestamp = %d, %v", last, err)
	}

	r, err := NewReader(ReaderConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()
	got, err := r.LoadTFCandles(ctx, "NSE", "2885", 60)
	if err != nil {
		t.Fatalf("LoadTFCandles: %v", err)
	}
	if len(got) != 3 || got[2].Close != 102 {
		t.Errorf("got %+v", got)
	}
}

func TestWriter_OverlappingWriteAppendsOnlyTail(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	w, err := New(WriterConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if n, err := w.WriteTFCandles(ctx, minuteCandles("2885", 0, 2)); err != nil || n != 2 {
		t.Fatalf("first write n=%d err=%v", n, err)
	}
	// Same two bars again plus one new one, unordered with a duplicate.
	again := minuteCandles("2885", 0, 3)
	again = append([]model.TFCandle{again[2]}, again...)
	n, err := w.WriteTFCandles(ctx, again)
	if err != nil || n != 1 {
		t.Fatalf("overlapping write n=%d err=%v, want 1 added", n, err)
	}
	if n, err := w.WriteTFCandles(ctx, minuteCandles("2885", 0, 3)); err != nil || n != 0 {
		t.Fatalf("repeat write n=%d err=%v, want nothing added", n, err)
	}

	r, err := NewReader(ReaderConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()
	got, err := r.LoadTFCandles(ctx, "NSE", "2885", 60)
	if err != nil {
		t.Fatalf("LoadTFCandles: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("stream holds %d candles, want 3", len(got))
	}
	for i, c := range got {
		if c.Close != int64(100+i) {
			t.Errorf("candle %d close=%d", i, c.Close)
		}
	}
}

func TestWriter_ResetAndEmptyStream(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	w, err := New(WriterConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if last, err := w.LastTimestamp(ctx, "NSE", "1594", 60); err != nil || last != 0 {
		t.Errorf("empty stream LastTimestamp = %d, %v", last, err)
	}
	if _, err := w.WriteTFCandles(ctx, minuteCandles("1594", 0, 2)); err != nil {
		t.Fatalf("WriteTFCandles: %v", err)
	}
	if err := w.Reset(ctx, "NSE", "1594", 60); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if n, err := w.WriteTFCandles(ctx, minuteCandles("1594", 0, 2)); err != nil || n != 2 {
		t.Errorf("write after reset n=%d err=%v", n, err)
	}
}

func TestAfter(t *testing.T) {
	cs := minuteCandles("x", 0, 4)
	ptrs := []*model.TFCandle{&cs[3], &cs[1], &cs[2], &cs[1], &cs[0]}
	got := after(ptrs, cs[1].TS.UnixMilli())
	if len(got) != 2 || got[0] != &cs[2] || got[1] != &cs[3] {
		t.Errorf("after = %v", got)
	}
	if len(after(ptrs, -1)) != 4 {
		t.Error("empty stream should take every distinct candle")
	}
}

var _ model.CandleSource = (*Reader)(nil)
var _ model.CandleSink = (*Writer)(nil)
