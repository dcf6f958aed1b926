// Package engine drives one backtest: a strategy, a broker and a price feed
// replayed bar by bar on a single goroutine.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"replaytrader/internal/broker"
	"replaytrader/internal/data"
	"replaytrader/internal/logger"
	"replaytrader/internal/strategy"
)

// State is the engine lifecycle state.
type State int

const (
	Created State = iota
	Started
	Stepping
	Finished
)

func (s State) String() string {
	switch s {
	case Started:
		return "started"
	case Stepping:
		return "stepping"
	case Finished:
		return "finished"
	}
	return "created"
}

// BarObserver is called after the strategy has handled each bar.
type BarObserver interface {
	OnBar(i int, feed *data.Feed, b *broker.Broker)
}

// Engine replays a feed through a strategy exactly once.
type Engine struct {
	feed     *data.Feed
	strategy strategy.Strategy
	broker   *broker.Broker

	observers []BarObserver
	state     State
}

// New wires a run. Observers registered on the broker receive order and
// trade events; use Watch for per-bar callbacks.
func New(feed *data.Feed, s strategy.Strategy, b *broker.Broker) *Engine {
	return &Engine{feed: feed, strategy: s, broker: b}
}

// Watch registers a per-bar observer. Must be called before Run.
func (e *Engine) Watch(o BarObserver) {
	e.observers = append(e.observers, o)
}

func (e *Engine) State() State           { return e.state }
func (e *Engine) Broker() *broker.Broker { return e.broker }
func (e *Engine) Feed() *data.Feed       { return e.feed }

// Run executes OnStart, Feed, Next for every bar in order, then OnFinish.
// ctx only carries the run ID for logging; a run is never cancelled halfway.
// Panics if the engine has already run.
func (e *Engine) Run(ctx context.Context) {
	if e.state != Created {
		panic(fmt.Sprintf("engine: Run called in state %s", e.state))
	}
	attrs := logger.LogWithRun(ctx)
	begin := time.Now()

	e.state = Started
	slog.Info("backtest started", append(attrs,
		slog.String("strategy", e.strategy.Name()),
		slog.Int("bars", e.feed.Len()),
		slog.Float64("cash", e.broker.Cash()),
	)...)
	e.strategy.OnStart(e.feed, e.broker)
	e.strategy.Feed(e.feed)

	e.state = Stepping
	for i := 0; i < e.feed.Len(); i++ {
		e.feed.Seek(i)
		e.strategy.Next(i, e.feed, e.broker)
		for _, o := range e.observers {
			o.OnBar(i, e.feed, e.broker)
		}
	}

	e.strategy.OnFinish(e.feed, e.broker)
	e.state = Finished
	slog.Info("backtest finished", append(attrs,
		slog.Int64("orders", e.broker.Orders()),
		slog.Float64("cash", e.broker.Cash()),
		slog.Int64("position", e.broker.PositionSize()),
		slog.Float64("value", e.Value()),
		slog.Duration("elapsed", time.Since(begin)),
	)...)
}

// Value is cash plus the position marked at the current bar's close.
func (e *Engine) Value() float64 {
	return e.broker.Value(e.feed)
}
