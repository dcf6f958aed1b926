package strategy

import (
	"log"

	"replaytrader/internal/broker"
	"replaytrader/internal/data"
	"replaytrader/internal/indicator"
)

// PriceAboveSMA goes long when flat and the close is above its SMA, and
// exits when the close drops below it.
type PriceAboveSMA struct {
	Base
	FeeModel

	size int64
	sma  *indicator.SMA

	closedPnLComm float64
}

func NewPriceAboveSMA(period int, size int64) *PriceAboveSMA {
	return &PriceAboveSMA{
		size:     size,
		sma:      indicator.NewSMA(period),
		FeeModel: FeeModel{Rate: 0.001},
	}
}

func (s *PriceAboveSMA) Name() string { return "Price_Above_" + s.sma.Name() }

func (s *PriceAboveSMA) Feed(feed *data.Feed) {
	s.sma.Feed(feed.Close)
}

func (s *PriceAboveSMA) Next(i int, feed *data.Feed, b *broker.Broker) {
	price, ok := feed.Close.At(i)
	if !ok {
		return
	}
	avg, ok := s.sma.At(i)
	if !ok {
		return
	}

	switch {
	case b.IsPositionEmpty() && price > avg:
		b.Buy(s.size, feed, s)
	case b.PositionSize() > 0 && price < avg:
		b.Sell(b.PositionSize(), feed, s)
	}
}

func (s *PriceAboveSMA) OnTrade(t *broker.Trade, _ *broker.Broker) {
	if t.IsClosed() {
		s.closedPnLComm += t.PnLComm
		log.Printf("[strategy] %s: trade closed gross=%.2f net=%.2f", s.Name(), t.PnL, t.PnLComm)
	}
}

// ClosedPnLComm is the net P&L of all closed trades so far.
func (s *PriceAboveSMA) ClosedPnLComm() float64 { return s.closedPnLComm }
