package strategy

import (
	"log"
	"math"
	"time"

	"replaytrader/internal/broker"
	"replaytrader/internal/data"
	"replaytrader/internal/indicator"
	"replaytrader/internal/markethours"
)

// TunnelParams configures the EMA tunnel strategy.
type TunnelParams struct {
	FastPeriod        int     // fast tunnel EMA
	SlowPeriod        int     // slow tunnel EMA
	FilterPeriod      int     // filter EMA crossing the tunnel edges
	SlopePeriod       int     // slope window over the slow tunnel
	LongPeriod        int     // higher-timeframe EMA
	LongSlopePeriod   int     // slope window over the higher-timeframe EMA
	SecondOrderPeriod int     // momentum window over the slope
	SlopeThreshold    float64 // |slope| must exceed this to trade
	ProfitTake        float64 // e.g. 0.004 = +0.4%
	StopLoss          float64 // e.g. -0.002 = -0.2%

	Size           int64
	Session        *markethours.Session
	PreCloseWindow time.Duration // flatten and stop entering this close to the session close
}

// DefaultTunnelParams returns the hourly-bar settings.
func DefaultTunnelParams() TunnelParams {
	return TunnelParams{
		FastPeriod:        144,
		SlowPeriod:        169,
		FilterPeriod:      12,
		SlopePeriod:       50,
		LongPeriod:        144 * 4,
		LongSlopePeriod:   50 * 4,
		SecondOrderPeriod: 4,
		SlopeThreshold:    1e-6,
		ProfitTake:        0.4 / 100,
		StopLoss:          -0.2 / 100,
		PreCloseWindow:    time.Hour,
	}
}

// Tunnel trades a filter EMA breaking out of a fast/slow EMA tunnel.
//
// Entry: the filter crosses above the upper tunnel edge (long) or below the
// lower edge (short) while the slow tunnel is sloped. Exit: stop loss, or
// profit take once the slope's momentum and the higher-timeframe slope both
// turn against the position. Entries are only made while the session is
// open; positions are flattened before the close and no entries are made in
// that window.
type Tunnel struct {
	Base
	FeeModel

	p TunnelParams

	fast, slow, filter *indicator.EMA
	upper              *indicator.Max
	lower              *indicator.Min
	slope              *indicator.Slope
	long               *indicator.EMA
	longSlope          *indicator.Slope
	secondOrder        *indicator.Mom
	crossUpper         *indicator.CrossOver
	crossLower         *indicator.CrossOver
	signal             *indicator.Zip // +1 long, -1 short, 0 none
	exit               *indicator.Zip // +1 long exit confirmed, -1 short exit confirmed

	entryPrice float64
}

func NewTunnel(p TunnelParams) *Tunnel {
	t := &Tunnel{
		p:           p,
		FeeModel:    FeeModel{Rate: 0.00002, Min: 2},
		fast:        indicator.NewEMA(p.FastPeriod),
		slow:        indicator.NewEMA(p.SlowPeriod),
		filter:      indicator.NewEMA(p.FilterPeriod),
		upper:       indicator.NewMax(),
		lower:       indicator.NewMin(),
		slope:       indicator.NewSlope(p.SlopePeriod),
		long:        indicator.NewEMA(p.LongPeriod),
		longSlope:   indicator.NewSlope(p.LongSlopePeriod),
		secondOrder: indicator.NewMom(p.SecondOrderPeriod),
		crossUpper:  indicator.NewCrossOver(),
		crossLower:  indicator.NewCrossOver(),
	}
	t.signal = indicator.NewZip("TUNNEL_SIGNAL", func(v []float64) float64 {
		up, down, slope := v[0], v[1], v[2]
		switch {
		case math.Abs(slope) <= p.SlopeThreshold:
			return 0
		case up > 0:
			return 1
		case down < 0:
			return -1
		}
		return 0
	})
	t.exit = indicator.NewZip("TUNNEL_EXIT", func(v []float64) float64 {
		accel, trend := v[0], v[1]
		switch {
		case accel < 0 && trend < 0:
			return 1
		case accel > 0 && trend > 0:
			return -1
		}
		return 0
	})
	return t
}

func (t *Tunnel) Name() string { return "Tunnel" }

func (t *Tunnel) Feed(feed *data.Feed) {
	t.fast.Feed(feed.Close)
	t.slow.Feed(feed.Close)
	t.filter.Feed(feed.Close)
	t.upper.Feed(t.fast, t.slow)
	t.lower.Feed(t.fast, t.slow)
	t.slope.Feed(t.slow)
	t.long.Feed(feed.Close)
	t.longSlope.Feed(t.long)
	t.secondOrder.Feed(t.slope)
	t.crossUpper.Feed(t.filter, t.upper)
	t.crossLower.Feed(t.filter, t.lower)
	t.signal.Feed(t.crossUpper, t.crossLower, t.slope)
	t.exit.Feed(t.secondOrder, t.longSlope)
}

func (t *Tunnel) Next(i int, feed *data.Feed, b *broker.Broker) {
	at, ok := feed.TimeAt(i)
	if !ok {
		return
	}
	price, ok := feed.Close.At(i)
	if !ok {
		return
	}
	sig, ok := t.signal.At(i)
	if !ok {
		return
	}
	exit, ok := t.exit.At(i)
	if !ok {
		return
	}
	preClose := t.p.Session.IsPreClose(at, t.p.PreCloseWindow)

	pos := b.PositionSize()
	if pos == 0 {
		switch {
		case preClose || !t.p.Session.IsOpen(at):
		case sig > 0:
			log.Printf("[strategy] %s: %s long signal at %.6f", t.Name(), at.Format(time.RFC3339), price)
			b.Buy(t.p.Size, feed, t)
		case sig < 0:
			log.Printf("[strategy] %s: %s short signal at %.6f", t.Name(), at.Format(time.RFC3339), price)
			b.Sell(t.p.Size, feed, t)
		}
		return
	}

	long := pos > 0
	dir := 1.0
	if !long {
		dir = -1
	}
	r := dir * (price/t.entryPrice - 1)
	confirmed := (long && exit > 0) || (!long && exit < 0)

	switch {
	case r >= t.p.ProfitTake && confirmed:
		log.Printf("[strategy] %s: %s profit take %.3f%%", t.Name(), at.Format(time.RFC3339), r*100)
	case r <= t.p.StopLoss:
		log.Printf("[strategy] %s: %s stop loss %.3f%%", t.Name(), at.Format(time.RFC3339), r*100)
	case preClose:
		log.Printf("[strategy] %s: %s session close upcoming, flatten", t.Name(), at.Format(time.RFC3339))
	default:
		return
	}
	t.flatten(pos, feed, b)
}

func (t *Tunnel) flatten(pos int64, feed *data.Feed, b *broker.Broker) {
	if pos > 0 {
		b.Sell(pos, feed, t)
	} else {
		b.Buy(-pos, feed, t)
	}
}

// OnTrade records the entry price of each new position.
func (t *Tunnel) OnTrade(tr *broker.Trade, b *broker.Broker) {
	if tr.IsOpen() {
		t.entryPrice = b.Position().OriginPrice
	}
}
