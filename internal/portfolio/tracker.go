// Package portfolio follows a running backtest from the outside: it records
// fills and closed trades reported by the broker and marks equity once per bar.
package portfolio

import (
	"math"
	"sync"
	"time"

	"replaytrader/internal/broker"
	"replaytrader/internal/data"
)

// Fill is a completed order as seen by the tracker.
type Fill struct {
	OrderID    string    `json:"order_id"`
	Side       string    `json:"side"`
	Size       int64     `json:"size"`
	Price      float64   `json:"price"`
	Commission float64   `json:"commission"`
	Position   int64     `json:"position"` // net position after the fill
	Cash       float64   `json:"cash"`     // cash after the fill
	FilledAt   time.Time `json:"filled_at"`
}

// ClosedTrade is one finished P&L window.
type ClosedTrade struct {
	OpenedAt time.Time `json:"opened_at"`
	ClosedAt time.Time `json:"closed_at"`
	PnL      float64   `json:"pnl"`
	PnLComm  float64   `json:"pnl_comm"`
}

// Stats is a point-in-time summary.
type Stats struct {
	Bars         int     `json:"bars"`
	Fills        int     `json:"fills"`
	ClosedTrades int     `json:"closed_trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Breakeven    int     `json:"breakeven"` // net P&L exactly zero
	GrossPnL     float64 `json:"gross_pnl"`
	NetPnL       float64 `json:"net_pnl"`
	Commission   float64 `json:"commission"`
	GrossProfit  float64 `json:"gross_profit"` // sum of winning net P&L
	GrossLoss    float64 `json:"gross_loss"`   // sum of losing net P&L, positive
	Equity       float64 `json:"equity"`
	PeakEquity   float64 `json:"peak_equity"`
	MaxDrawdown  float64 `json:"max_drawdown"`     // absolute
	DrawdownPct  float64 `json:"max_drawdown_pct"` // 0-100, relative to the peak it fell from
}

// WinRate returns wins / closed trades in percent.
func (s Stats) WinRate() float64 {
	if s.ClosedTrades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.ClosedTrades) * 100
}

// ProfitFactor returns gross profit / gross loss; +Inf with no losses.
func (s Stats) ProfitFactor() float64 {
	if s.GrossLoss == 0 {
		if s.GrossProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return s.GrossProfit / s.GrossLoss
}

// Tracker is a broker observer that also marks equity per bar.
// Safe for concurrent readers while the replay writes.
type Tracker struct {
	mu     sync.RWMutex
	fills  []Fill
	closed []ClosedTrade
	stats  Stats

	openedAt time.Time
}

// NewTracker creates a tracker starting from the broker's initial cash.
func NewTracker(initialCash float64) *Tracker {
	return &Tracker{
		fills:  make([]Fill, 0, 500),
		closed: make([]ClosedTrade, 0, 100),
		stats:  Stats{Equity: initialCash, PeakEquity: initialCash},
	}
}

func (t *Tracker) OnOrder(o *broker.Order, b *broker.Broker) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.fills = append(t.fills, Fill{
		OrderID:    o.ID,
		Side:       o.Side.String(),
		Size:       o.ExeSize,
		Price:      o.ExePrice,
		Commission: o.Commission,
		Position:   b.PositionSize(),
		Cash:       b.Cash(),
		FilledAt:   o.CompletedAt,
	})
	t.stats.Fills++
	t.stats.Commission += o.Commission
}

func (t *Tracker) OnTrade(tr *broker.Trade, _ *broker.Broker) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch tr.Status {
	case broker.TradeOpen:
		t.openedAt = tr.At
	case broker.TradeClosed:
		t.closed = append(t.closed, ClosedTrade{
			OpenedAt: t.openedAt,
			ClosedAt: tr.At,
			PnL:      tr.PnL,
			PnLComm:  tr.PnLComm,
		})
		s := &t.stats
		s.ClosedTrades++
		s.GrossPnL += tr.PnL
		s.NetPnL += tr.PnLComm
		switch {
		case tr.PnLComm > 0:
			s.Wins++
			s.GrossProfit += tr.PnLComm
		case tr.PnLComm < 0:
			s.Losses++
			s.GrossLoss -= tr.PnLComm
		default:
			s.Breakeven++
		}
	}
}

// OnBar marks equity at bar i's close and updates the drawdown.
func (t *Tracker) OnBar(i int, feed *data.Feed, b *broker.Broker) {
	equity := b.Value(feed)

	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.stats
	s.Bars = i + 1
	s.Equity = equity
	if equity > s.PeakEquity {
		s.PeakEquity = equity
	}
	if dd := s.PeakEquity - equity; dd > s.MaxDrawdown {
		s.MaxDrawdown = dd
		if s.PeakEquity > 0 {
			s.DrawdownPct = dd / s.PeakEquity * 100
		}
	}
}

// Stats returns the current summary.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// Fills returns a snapshot of all fills.
func (t *Tracker) Fills() []Fill {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cp := make([]Fill, len(t.fills))
	copy(cp, t.fills)
	return cp
}

// ClosedTrades returns a snapshot of all closed trades.
func (t *Tracker) ClosedTrades() []ClosedTrade {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cp := make([]ClosedTrade, len(t.closed))
	copy(cp, t.closed)
	return cp
}
