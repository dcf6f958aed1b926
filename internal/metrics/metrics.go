package metrics

import (
	"time"

	"replaytrader/internal/broker"
	"replaytrader/internal/data"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for a backtest process.
// Each instance owns its registry so several runs (and tests) never collide.
type Metrics struct {
	Registry *prometheus.Registry

	BarsTotal       prometheus.Counter
	OrdersTotal     *prometheus.CounterVec // labels: side
	TradesTotal     *prometheus.CounterVec // labels: status
	CommissionTotal prometheus.Counter
	FilledVolume    *prometheus.CounterVec // labels: side

	Cash           prometheus.Gauge
	PositionSize   prometheus.Gauge
	PortfolioValue prometheus.Gauge
	LastTradePnL   prometheus.Gauge

	RunDuration prometheus.Histogram
	BarDuration prometheus.Histogram

	// HTTP surface
	HTTPRequestsTotal   *prometheus.CounterVec   // labels: method, path, status
	HTTPRequestDuration *prometheus.HistogramVec // labels: method, path

	lastBar time.Time
}

// NewMetrics creates and registers all Prometheus metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		BarsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_bars_total",
			Help: "Total bars replayed",
		}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_orders_total",
			Help: "Completed orders (by side)",
		}, []string{"side"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_trades_total",
			Help: "Trade state transitions (by status)",
		}, []string{"status"}),
		CommissionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_commission_total",
			Help: "Commission paid across all fills",
		}),
		FilledVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_filled_volume_total",
			Help: "Executed quantity (by side)",
		}, []string{"side"}),

		Cash: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtest_cash",
			Help: "Broker cash after the last bar",
		}),
		PositionSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtest_position_size",
			Help: "Signed net position after the last bar",
		}),
		PortfolioValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtest_portfolio_value",
			Help: "Cash plus position marked at the current close",
		}),
		LastTradePnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtest_last_trade_pnl_comm",
			Help: "Net P&L of the most recently closed trade",
		}),

		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_run_duration_seconds",
			Help:    "Wall time of a full replay",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		BarDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_bar_duration_seconds",
			Help:    "Wall time between consecutive bar callbacks",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backtest_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"method", "path"}),
	}

	m.Registry.MustRegister(
		m.BarsTotal,
		m.OrdersTotal,
		m.TradesTotal,
		m.CommissionTotal,
		m.FilledVolume,
		m.Cash,
		m.PositionSize,
		m.PortfolioValue,
		m.LastTradePnL,
		m.RunDuration,
		m.BarDuration,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// OnOrder counts a completed order.
func (m *Metrics) OnOrder(o *broker.Order, b *broker.Broker) {
	side := o.Side.String()
	m.OrdersTotal.WithLabelValues(side).Inc()
	m.FilledVolume.WithLabelValues(side).Add(float64(o.ExeSize))
	m.CommissionTotal.Add(o.Commission)
	m.Cash.Set(b.Cash())
	m.PositionSize.Set(float64(b.PositionSize()))
}

// OnTrade counts a trade transition.
func (m *Metrics) OnTrade(t *broker.Trade, _ *broker.Broker) {
	m.TradesTotal.WithLabelValues(t.Status.String()).Inc()
	if t.IsClosed() {
		m.LastTradePnL.Set(t.PnLComm)
	}
}

// OnBar updates the per-bar gauges.
func (m *Metrics) OnBar(_ int, feed *data.Feed, b *broker.Broker) {
	now := time.Now()
	if !m.lastBar.IsZero() {
		m.BarDuration.Observe(now.Sub(m.lastBar).Seconds())
	}
	m.lastBar = now

	m.BarsTotal.Inc()
	m.Cash.Set(b.Cash())
	m.PositionSize.Set(float64(b.PositionSize()))
	m.PortfolioValue.Set(b.Value(feed))
}

// ObserveRun records the wall time of a finished replay.
func (m *Metrics) ObserveRun(d time.Duration) {
	m.RunDuration.Observe(d.Seconds())
}
