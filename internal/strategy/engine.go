// Package strategy defines the contract between the replay engine and trading
// logic, plus the built-in strategies.
//
// A Strategy precomputes its indicators once over the whole history in Feed,
// then decides per bar in Next by reading values at the current index only.
// Orders go through the broker, which calls back into the strategy for
// commission and lifecycle events.
package strategy

import (
	"fmt"
	"math"
	"strings"

	"replaytrader/internal/broker"
	"replaytrader/internal/data"
	"replaytrader/internal/markethours"
)

// Strategy is the interface that all trading strategies must implement.
type Strategy interface {
	broker.Listener

	// Name returns the unique name of the strategy.
	Name() string

	OnStart(feed *data.Feed, b *broker.Broker)

	// Feed computes every indicator over the full history. Called once.
	Feed(feed *data.Feed)

	// Next is called for each bar index in ascending order.
	Next(i int, feed *data.Feed, b *broker.Broker)

	OnFinish(feed *data.Feed, b *broker.Broker)
}

// Base provides no-op lifecycle callbacks. It has no Commission method;
// each strategy supplies its own fee model.
type Base struct{}

func (Base) OnStart(*data.Feed, *broker.Broker)    {}
func (Base) OnFinish(*data.Feed, *broker.Broker)   {}
func (Base) OnOrder(*broker.Order, *broker.Broker) {}
func (Base) OnTrade(*broker.Trade, *broker.Broker) {}

// FeeModel charges a proportional commission with a floor.
type FeeModel struct {
	Rate float64 // fraction of notional, e.g. 0.001 = 0.1%
	Min  float64
}

func (f FeeModel) Commission(size int64, price float64) float64 {
	return math.Max(math.Abs(float64(size))*price*f.Rate, f.Min)
}

// Config selects and parameterizes a built-in strategy.
type Config struct {
	Name    string // "sma", "crossover", "tunnel"
	Size    int64
	Fees    FeeModel
	Session *markethours.Session // required by "tunnel"
}

// New builds a built-in strategy by name.
func New(cfg Config) (Strategy, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("strategy %s: size must be positive, got %d", cfg.Name, cfg.Size)
	}
	switch strings.ToLower(cfg.Name) {
	case "sma", "price_above_sma":
		s := NewPriceAboveSMA(15, cfg.Size)
		s.FeeModel = cfg.Fees
		return s, nil
	case "crossover", "sma_crossover":
		s := NewSMACrossover(9, 21, cfg.Size, true, 14)
		s.FeeModel = cfg.Fees
		return s, nil
	case "tunnel":
		if cfg.Session == nil {
			return nil, fmt.Errorf("strategy tunnel: session required")
		}
		p := DefaultTunnelParams()
		p.Size = cfg.Size
		p.Session = cfg.Session
		s := NewTunnel(p)
		s.FeeModel = cfg.Fees
		return s, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", cfg.Name)
}
