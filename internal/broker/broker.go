// Package broker simulates order execution and single-position accounting
// against a historical price feed.
//
// Market orders placed while bar i is replayed fill at the open of bar i+1,
// or at the close of bar i when i is the last bar. Every completed order
// updates cash and the net position and drives the trade state machine,
// which reports Open and Closed transitions to the listener.
package broker

import (
	"fmt"
	"log/slog"
	"time"

	"replaytrader/internal/data"
)

// Observer is notified of completed orders and trade transitions.
// Callbacks run synchronously on the replay goroutine.
type Observer interface {
	OnOrder(o *Order, b *Broker)
	OnTrade(t *Trade, b *Broker)
}

// Listener is the strategy side of an order: it prices commission and
// receives the same notifications as an Observer, before any observer.
type Listener interface {
	Observer

	// Commission returns the fee for size units at price. Must be >= 0.
	Commission(size int64, price float64) float64
}

// Broker owns the cash balance, the net position and the current trade.
// Not safe for concurrent use.
type Broker struct {
	initialCash float64
	cash        float64
	position    Position
	trade       Trade
	orderSeq    int64
	observers   []Observer
}

// New creates a broker with the starting cash balance.
func New(cash float64) *Broker {
	return &Broker{initialCash: cash, cash: cash}
}

// Observe registers an observer for every later order and trade event.
func (b *Broker) Observe(o Observer) {
	b.observers = append(b.observers, o)
}

func (b *Broker) Cash() float64        { return b.cash }
func (b *Broker) InitialCash() float64 { return b.initialCash }
func (b *Broker) Position() Position   { return b.position }
func (b *Broker) PositionSize() int64  { return b.position.Size }
func (b *Broker) IsPositionEmpty() bool {
	return b.position.Size == 0
}

// Trade returns a copy of the current trade window.
func (b *Broker) Trade() Trade { return b.trade }

// Orders returns how many orders have been completed.
func (b *Broker) Orders() int64 { return b.orderSeq }

// Value is cash plus the position marked at the feed's current close.
func (b *Broker) Value(feed *data.Feed) float64 {
	return b.cash + feed.PositionValue(b.position.Size)
}

// Buy submits a market buy of size units. Panics if size <= 0.
func (b *Broker) Buy(size int64, feed *data.Feed, l Listener) *Order {
	return b.submit(Buy, size, feed, l)
}

// Sell submits a market sell of size units. Panics if size <= 0.
func (b *Broker) Sell(size int64, feed *data.Feed, l Listener) *Order {
	return b.submit(Sell, size, feed, l)
}

func (b *Broker) submit(side Side, size int64, feed *data.Feed, l Listener) *Order {
	i := feed.Offset()
	b.orderSeq++
	order := newOrder(b.orderSeq, side, size, feed.Time())

	// Next bar's open, or this bar's close at the end of history.
	price, ok := feed.Open.At(i + 1)
	if !ok {
		price, _ = feed.Close.At(i)
	}
	at, ok := feed.TimeAt(i + 1)
	if !ok {
		at = feed.Time()
	}
	order.ExePrice = price
	order.ExeSize = order.Size

	b.complete(order, l, at)
	return order
}

func (b *Broker) complete(order *Order, l Listener, at time.Time) {
	deal := order.DealSize()
	order.Cost = float64(deal) * order.ExePrice
	b.cash -= order.Cost
	order.Commission = l.Commission(order.ExeSize, order.ExePrice)
	if order.Commission < 0 {
		panic(fmt.Sprintf("broker: negative commission %f for order %s", order.Commission, order.ID))
	}
	b.cash -= order.Commission

	pre := b.position.apply(deal, order.ExePrice)
	post := b.position.Size

	order.Status = OrderCompleted
	order.CompletedAt = at
	slog.Debug("order filled",
		"order_id", order.ID,
		"side", order.Side.String(),
		"size", order.ExeSize,
		"price", order.ExePrice,
		"commission", order.Commission,
		"position", post,
		"cash", b.cash,
	)
	l.OnOrder(order, b)
	for _, o := range b.observers {
		o.OnOrder(order, b)
	}

	b.book(order, pre, post, at, l)
}

// book runs the trade state machine for one completed order.
func (b *Broker) book(order *Order, pre, post int64, at time.Time, l Listener) {
	if b.trade.Status == TradeUninit && pre != 0 {
		panic(fmt.Sprintf("broker: position %d has no open trade", pre))
	}

	pnl := -order.Cost
	pnlComm := pnl - order.Commission

	switch {
	case b.trade.Status == TradeUninit:
		b.trade = Trade{Status: TradeOpen, At: at, PnL: pnl, PnLComm: pnlComm}
		b.notify(l)

	case post == 0:
		b.trade.PnL += pnl
		b.trade.PnLComm += pnlComm
		b.trade.Status = TradeClosed
		b.trade.At = at
		b.notify(l)
		b.trade = Trade{}

	case flipped(pre, post):
		deal := float64(abs(post - pre))
		closing := float64(abs(pre)) / deal
		opening := float64(abs(post)) / deal

		b.trade.PnL += pnl * closing
		b.trade.PnLComm += pnlComm * closing
		b.trade.Status = TradeClosed
		b.trade.At = at
		b.notify(l)

		b.trade = Trade{Status: TradeOpen, At: at, PnL: pnl * opening, PnLComm: pnlComm * opening}
		b.notify(l)

	default:
		b.trade.PnL += pnl
		b.trade.PnLComm += pnlComm
	}
}

func (b *Broker) notify(l Listener) {
	t := b.trade
	l.OnTrade(&t, b)
	for _, o := range b.observers {
		ot := b.trade
		o.OnTrade(&ot, b)
	}
}
