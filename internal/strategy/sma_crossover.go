package strategy

import (
	"log"

	"replaytrader/internal/broker"
	"replaytrader/internal/data"
	"replaytrader/internal/indicator"
)

// SMACrossover implements a simple SMA crossover strategy that is always in
// the market once the first cross has happened.
//
// Buy signal: fast SMA crosses above slow SMA (golden cross)
// Sell signal: fast SMA crosses below slow SMA (death cross)
//
// A signal against an open position reverses it in one order, so the broker
// closes the old trade and opens the new one from the same fill.
//
// Optional RSI filter prevents buying when overbought (>70)
// or selling when oversold (<30).
type SMACrossover struct {
	Base
	FeeModel

	name string
	qty  int64

	fast  *indicator.SMA
	slow  *indicator.SMA
	cross *indicator.CrossOver

	// RSI filter (optional)
	rsiEnabled bool
	rsi        *indicator.RSI
}

// NewSMACrossover creates a new SMA crossover strategy.
// fastPeriod < slowPeriod (e.g., 9 and 21).
// qty is the number of units per entry.
func NewSMACrossover(fastPeriod, slowPeriod int, qty int64, enableRSI bool, rsiPeriod int) *SMACrossover {
	s := &SMACrossover{
		name:       "SMA_Crossover",
		qty:        qty,
		fast:       indicator.NewSMA(fastPeriod),
		slow:       indicator.NewSMA(slowPeriod),
		cross:      indicator.NewCrossOver(),
		rsiEnabled: enableRSI,
		FeeModel:   FeeModel{Rate: 0.0003, Min: 20},
	}
	if enableRSI {
		s.rsi = indicator.NewRSI(rsiPeriod)
	}
	return s
}

func (s *SMACrossover) Name() string {
	return s.name
}

func (s *SMACrossover) Feed(feed *data.Feed) {
	s.fast.Feed(feed.Close)
	s.slow.Feed(feed.Close)
	s.cross.Feed(s.fast, s.slow)
	if s.rsiEnabled {
		s.rsi.Feed(feed.Close)
	}
}

func (s *SMACrossover) Next(i int, feed *data.Feed, b *broker.Broker) {
	sig, ok := s.cross.At(i)
	if !ok || sig == 0 {
		return
	}

	var lastRSI float64
	if s.rsiEnabled {
		// Before RSI warms up, crosses pass unfiltered.
		lastRSI, ok = s.rsi.At(i)
		if !ok {
			lastRSI = 50
		}
	}

	pos := b.PositionSize()

	// Golden cross: fast crosses above slow
	if sig > 0 && pos <= 0 {
		if s.rsiEnabled && lastRSI > 70 {
			log.Printf("[strategy] %s: golden cross filtered by RSI %.1f > 70", s.name, lastRSI)
			return
		}
		b.Buy(s.qty-pos, feed, s)
		return
	}

	// Death cross: fast crosses below slow
	if sig < 0 && pos >= 0 {
		if s.rsiEnabled && lastRSI < 30 {
			log.Printf("[strategy] %s: death cross filtered by RSI %.1f < 30", s.name, lastRSI)
			return
		}
		b.Sell(s.qty+pos, feed, s)
	}
}
