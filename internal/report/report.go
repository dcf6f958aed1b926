// Package report turns a finished (or running) backtest into a summary for
// the terminal, the /api/v1/report endpoint and CSV export.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"replaytrader/internal/broker"
	"replaytrader/internal/data"
	"replaytrader/internal/notification"
	"replaytrader/internal/portfolio"

	"github.com/shopspring/decimal"
)

// Input is everything a summary is built from.
type Input struct {
	RunID    string
	Strategy string
	Source   string
	Feed     *data.Feed
	Broker   *broker.Broker
	Stats    portfolio.Stats
}

// Summary is a rounded, presentation-ready view of a run.
// Money is rounded to cents and ratios to two decimals.
type Summary struct {
	RunID    string    `json:"run_id"`
	Strategy string    `json:"strategy"`
	Source   string    `json:"source"`
	Bars     int       `json:"bars"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`

	InitialCash decimal.Decimal `json:"initial_cash"`
	FinalCash   decimal.Decimal `json:"final_cash"`
	Value       decimal.Decimal `json:"value"`
	ReturnPct   decimal.Decimal `json:"return_pct"`
	Position    int64           `json:"position"`
	Orders      int64           `json:"orders"`

	ClosedTrades int              `json:"closed_trades"`
	Wins         int              `json:"wins"`
	Losses       int              `json:"losses"`
	Breakeven    int              `json:"breakeven"`
	WinRate      decimal.Decimal  `json:"win_rate"`
	ProfitFactor *decimal.Decimal `json:"profit_factor"` // nil when there are no losing trades
	GrossPnL     decimal.Decimal  `json:"gross_pnl"`
	NetPnL       decimal.Decimal  `json:"net_pnl"`
	Commission   decimal.Decimal  `json:"commission"`
	MaxDrawdown  decimal.Decimal  `json:"max_drawdown"`
	DrawdownPct  decimal.Decimal  `json:"max_drawdown_pct"`
}

func money(v float64) decimal.Decimal { return decimal.NewFromFloat(v).Round(2) }

// Build summarizes a run. Value marks the position at the feed's current bar.
func Build(in Input) Summary {
	b := in.Broker
	s := in.Stats

	sum := Summary{
		RunID:        in.RunID,
		Strategy:     in.Strategy,
		Source:       in.Source,
		Bars:         in.Feed.Len(),
		InitialCash:  money(b.InitialCash()),
		FinalCash:    money(b.Cash()),
		Value:        money(b.Value(in.Feed)),
		Position:     b.PositionSize(),
		Orders:       b.Orders(),
		ClosedTrades: s.ClosedTrades,
		Wins:         s.Wins,
		Losses:       s.Losses,
		Breakeven:    s.Breakeven,
		WinRate:      money(s.WinRate()),
		GrossPnL:     money(s.GrossPnL),
		NetPnL:       money(s.NetPnL),
		Commission:   money(s.Commission),
		MaxDrawdown:  money(s.MaxDrawdown),
		DrawdownPct:  money(s.DrawdownPct),
	}
	if in.Feed.Len() > 0 {
		sum.From, _ = in.Feed.TimeAt(0)
		sum.To, _ = in.Feed.TimeAt(in.Feed.Len() - 1)
	}
	if init := decimal.NewFromFloat(b.InitialCash()); !init.IsZero() {
		sum.ReturnPct = decimal.NewFromFloat(b.Value(in.Feed)).Sub(init).
			Div(init).Mul(decimal.NewFromInt(100)).Round(2)
	}
	if pf := s.ProfitFactor(); !math.IsInf(pf, 0) {
		d := money(pf)
		sum.ProfitFactor = &d
	}
	return sum
}

func (s Summary) rows() [][2]string {
	pf := "inf"
	if s.ProfitFactor != nil {
		pf = s.ProfitFactor.StringFixed(2)
	}
	return [][2]string{
		{"Run", shorten(s.RunID, 20)},
		{"Strategy", s.Strategy},
		{"Source", s.Source},
		{"Bars", strconv.Itoa(s.Bars)},
		{"Initial cash", s.InitialCash.StringFixed(2)},
		{"Final cash", s.FinalCash.StringFixed(2)},
		{"Position", strconv.FormatInt(s.Position, 10)},
		{"Value", s.Value.StringFixed(2)},
		{"Return %", s.ReturnPct.StringFixed(2)},
		{"Orders", strconv.FormatInt(s.Orders, 10)},
		{"Closed trades", strconv.Itoa(s.ClosedTrades)},
		{"Win rate %", s.WinRate.StringFixed(2)},
		{"Profit factor", pf},
		{"Net P&L", s.NetPnL.StringFixed(2)},
		{"Commission", s.Commission.StringFixed(2)},
		{"Max drawdown", s.MaxDrawdown.StringFixed(2) + " (" + s.DrawdownPct.StringFixed(2) + "%)"},
	}
}

// Print writes the summary box.
func (s Summary) Print(w io.Writer) {
	rows := s.rows()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔══════════════════════════════════════╗")
	fmt.Fprintln(w, "║        BACKTEST COMPLETE             ║")
	fmt.Fprintln(w, "╠══════════════════════════════════════╣")
	for _, r := range rows {
		fmt.Fprintf(w, "║  %-14s %-20s ║\n", r[0]+":", shorten(r[1], 20))
	}
	fmt.Fprintln(w, "╚══════════════════════════════════════╝")
}

// Alert is the run-finished notification; losing runs are warnings.
func (s Summary) Alert() notification.Alert {
	level := notification.AlertInfo
	if s.NetPnL.IsNegative() {
		level = notification.AlertWarning
	}
	a := notification.Alert{
		Level: level,
		RunID: s.RunID,
		Title: fmt.Sprintf("backtest finished: %s on %s", s.Strategy, s.Source),
		Message: fmt.Sprintf("net P&L %s over %d bars, %d closed trades, win rate %s%%, max drawdown %s (%s%%), value %s",
			s.NetPnL.StringFixed(2), s.Bars, s.ClosedTrades, s.WinRate.StringFixed(2),
			s.MaxDrawdown.StringFixed(2), s.DrawdownPct.StringFixed(2), s.Value.StringFixed(2)),
	}
	for _, r := range s.rows()[1:] { // the run ID travels separately
		a.Fields = append(a.Fields, notification.Field{Name: r[0], Value: r[1]})
	}
	return a
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// tradesHeader is shared by both row kinds; the leading section column says
// which columns a row fills ("fill" or "trade"), the rest are left empty.
var tradesHeader = []string{
	"section", "order_id", "side", "size", "price", "commission", "position", "cash",
	"at", "opened_at", "pnl", "pnl_comm",
}

// WriteTradesCSV exports fills, then closed trades, as one rectangular CSV.
// Fill rows are stamped at the fill time, trade rows at the close.
func WriteTradesCSV(w io.Writer, fills []portfolio.Fill, trades []portfolio.ClosedTrade) error {
	cw := csv.NewWriter(w)
	write := func(rec ...string) {
		// csv.Writer keeps the first error; checked by Error below.
		_ = cw.Write(rec)
	}

	write(tradesHeader...)
	for _, f := range fills {
		write("fill", f.OrderID, f.Side,
			strconv.FormatInt(f.Size, 10),
			decimal.NewFromFloat(f.Price).String(),
			money(f.Commission).StringFixed(2),
			strconv.FormatInt(f.Position, 10),
			money(f.Cash).StringFixed(2),
			f.FilledAt.Format(time.RFC3339),
			"", "", "",
		)
	}
	for _, t := range trades {
		write("trade", "", "", "", "", "", "", "",
			t.ClosedAt.Format(time.RFC3339),
			t.OpenedAt.Format(time.RFC3339),
			money(t.PnL).StringFixed(2),
			money(t.PnLComm).StringFixed(2),
		)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write trades csv: %w", err)
	}
	return nil
}
