package broker

import (
	"fmt"
	"time"
)

// Side is the order direction.
type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// OrderStatus is the order lifecycle state.
type OrderStatus int

const (
	OrderCreated OrderStatus = iota
	OrderCompleted
)

func (s OrderStatus) String() string {
	if s == OrderCompleted {
		return "COMPLETE"
	}
	return "CREATED"
}

// Order is a market order. Orders are created and completed within a single
// Buy/Sell call; listeners receive them read-only.
type Order struct {
	ID          string      `json:"order_id"`
	Side        Side        `json:"side"`
	Size        int64       `json:"size"` // requested, always > 0
	Status      OrderStatus `json:"status"`
	ExeSize     int64       `json:"exe_size"`
	ExePrice    float64     `json:"exe_price"`
	Cost        float64     `json:"cost"` // signed: deal size × exe price
	Commission  float64     `json:"commission"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt time.Time   `json:"completed_at"`
}

func newOrder(seq int64, side Side, size int64, at time.Time) *Order {
	if size <= 0 {
		panic(fmt.Sprintf("broker: order size must be greater than zero, got %d", size))
	}
	return &Order{
		ID:        fmt.Sprintf("BT-%d", seq),
		Side:      side,
		Size:      size,
		CreatedAt: at,
	}
}

func (o *Order) IsBuy() bool { return o.Side == Buy }

// DealSize is the executed size signed by side.
func (o *Order) DealSize() int64 { return int64(o.Side) * o.ExeSize }
