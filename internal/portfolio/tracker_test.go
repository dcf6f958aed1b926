package portfolio

import (
	"math"
	"testing"
	"time"

	"replaytrader/internal/broker"
	"replaytrader/internal/data"
)

type fee float64

func (f fee) Commission(int64, float64) float64   { return float64(f) }
func (fee) OnOrder(*broker.Order, *broker.Broker) {}
func (fee) OnTrade(*broker.Trade, *broker.Broker) {}

func feedOf(t *testing.T, opens, closes []float64) *data.Feed {
	t.Helper()
	t0 := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	times := make([]time.Time, len(opens))
	for i := range times {
		times[i] = t0.Add(time.Duration(i) * time.Minute)
	}
	f, err := data.New(data.Columns{Time: times, Open: opens, Close: closes})
	if err != nil {
		t.Fatalf("data.New: %v", err)
	}
	return f
}

func TestTracker_BreakevenIsNeitherWinNorLoss(t *testing.T) {
	feed := feedOf(t, []float64{10, 10, 10}, []float64{10, 10, 10})
	b := broker.New(100)
	tr := NewTracker(b.InitialCash())
	b.Observe(tr)

	for i := 0; i < feed.Len(); i++ {
		feed.Seek(i)
		switch i {
		case 0:
			b.Buy(1, feed, fee(0))
		case 1:
			b.Sell(1, feed, fee(0))
		}
	}

	s := tr.Stats()
	if s.ClosedTrades != 1 || s.Breakeven != 1 || s.Wins != 0 || s.Losses != 0 {
		t.Fatalf("stats = %+v", s)
	}
	if s.GrossLoss != 0 || s.ProfitFactor() != 0 || s.WinRate() != 0 {
		t.Errorf("loss=%v pf=%v winrate=%v", s.GrossLoss, s.ProfitFactor(), s.WinRate())
	}
}

func TestTracker_WinsLossesAndFactor(t *testing.T) {
	// Trade 1: long 1 at 10, out at 14 (+4). Trade 2: long 1 at 12, out at 10 (-2).
	feed := feedOf(t,
		[]float64{9, 10, 14, 12, 10},
		[]float64{9, 10, 14, 12, 10},
	)
	b := broker.New(100)
	tr := NewTracker(b.InitialCash())
	b.Observe(tr)

	actions := map[int]func(){
		0: func() { b.Buy(1, feed, fee(0)) },
		1: func() { b.Sell(1, feed, fee(0)) },
		2: func() { b.Buy(1, feed, fee(0)) },
		3: func() { b.Sell(1, feed, fee(0)) },
	}
	for i := 0; i < feed.Len(); i++ {
		feed.Seek(i)
		if fn, ok := actions[i]; ok {
			fn()
		}
		tr.OnBar(i, feed, b)
	}

	s := tr.Stats()
	if s.Fills != 4 || s.ClosedTrades != 2 || s.Wins != 1 || s.Losses != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if s.NetPnL != 2 || s.GrossProfit != 4 || s.GrossLoss != 2 {
		t.Errorf("pnl: net=%v profit=%v loss=%v", s.NetPnL, s.GrossProfit, s.GrossLoss)
	}
	if pf := s.ProfitFactor(); pf != 2 {
		t.Errorf("ProfitFactor=%v, want 2", pf)
	}
	if wr := s.WinRate(); wr != 50 {
		t.Errorf("WinRate=%v, want 50", wr)
	}
	if s.Bars != 5 || s.Equity != 102 {
		t.Errorf("bars=%d equity=%v, want 5 and 102", s.Bars, s.Equity)
	}

	closed := tr.ClosedTrades()
	if len(closed) != 2 || !closed[1].OpenedAt.Before(closed[1].ClosedAt) {
		t.Errorf("closed trades = %+v", closed)
	}
	fills := tr.Fills()
	if fills[0].Side != "BUY" || fills[0].Price != 10 || fills[0].Position != 1 {
		t.Errorf("first fill = %+v", fills[0])
	}
	fills[0].Price = -1
	if tr.Fills()[0].Price != 10 {
		t.Error("Fills must return a copy")
	}
}

func TestTracker_Drawdown(t *testing.T) {
	feed := feedOf(t,
		[]float64{100, 100, 100, 100},
		[]float64{100, 120, 90, 110},
	)
	b := broker.New(1000)
	tr := NewTracker(b.InitialCash())
	b.Observe(tr)

	feed.Seek(0)
	b.Buy(1, feed, fee(0)) // fills at 100
	for i := 0; i < feed.Len(); i++ {
		feed.Seek(i)
		tr.OnBar(i, feed, b)
	}
	// Equity marks: 1000, 1020, 990, 1010.
	s := tr.Stats()
	if s.PeakEquity != 1020 || s.MaxDrawdown != 30 {
		t.Errorf("peak=%v maxDD=%v, want 1020 and 30", s.PeakEquity, s.MaxDrawdown)
	}
	if math.Abs(s.DrawdownPct-30.0/1020*100) > 1e-9 {
		t.Errorf("DrawdownPct=%v", s.DrawdownPct)
	}
}

func TestStats_EmptyRatios(t *testing.T) {
	var s Stats
	if s.WinRate() != 0 || s.ProfitFactor() != 0 {
		t.Error("empty stats should report zero ratios")
	}
	s.GrossProfit = 5
	if !math.IsInf(s.ProfitFactor(), 1) {
		t.Error("profits with no losses should be +Inf")
	}
}
