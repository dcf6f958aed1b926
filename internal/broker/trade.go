package broker

import "time"

// TradeStatus is the state of the realized-P&L window.
type TradeStatus int

const (
	TradeUninit TradeStatus = iota
	TradeOpen
	TradeClosed
)

func (s TradeStatus) String() string {
	switch s {
	case TradeOpen:
		return "OPEN"
	case TradeClosed:
		return "CLOSED"
	}
	return "UNINIT"
}

// Trade accumulates cash flow from the fill that leaves flat until the fill
// that returns to flat (or flips). PnL is the sum of -cost of the fills in the
// window; PnLComm also subtracts their commission.
type Trade struct {
	Status  TradeStatus `json:"status"`
	At      time.Time   `json:"at"` // time of the last Open/Closed transition
	PnL     float64     `json:"pnl"`
	PnLComm float64     `json:"pnl_comm"`
}

func (t *Trade) IsOpen() bool   { return t.Status == TradeOpen }
func (t *Trade) IsClosed() bool { return t.Status == TradeClosed }
