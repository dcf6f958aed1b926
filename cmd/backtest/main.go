// cmd/backtest replays one instrument's history through a strategy and a
// simulated broker, then prints a summary.
//
// Configuration comes from the environment (see config.Load); flags override it.
//
// Usage:
//
//	go run ./cmd/backtest --source=csv --csv=data/nifty.csv --strategy=crossover
//	go run ./cmd/backtest --source=sqlite --db=data/candles.db --token=2885 --tf=300 --listen=:9090 --hold
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"replaytrader/config"
	"replaytrader/internal/broker"
	"replaytrader/internal/engine"
	"replaytrader/internal/gateway"
	"replaytrader/internal/indicator"
	"replaytrader/internal/logger"
	"replaytrader/internal/markethours"
	"replaytrader/internal/metrics"
	"replaytrader/internal/notification"
	"replaytrader/internal/portfolio"
	"replaytrader/internal/report"
	"replaytrader/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg := config.Load()

	// Flags
	flag.StringVar(&cfg.Source, "source", cfg.Source, "Data source: csv, sqlite or redis")
	flag.StringVar(&cfg.CSVPath, "csv", cfg.CSVPath, "CSV file for --source=csv")
	flag.StringVar(&cfg.SQLitePath, "db", cfg.SQLitePath, "Path to SQLite database")
	flag.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address")
	flag.StringVar(&cfg.Exchange, "exchange", cfg.Exchange, "Exchange of the stored series")
	flag.StringVar(&cfg.Token, "token", cfg.Token, "Instrument token of the stored series")
	flag.IntVar(&cfg.TF, "tf", cfg.TF, "Timeframe in seconds")
	flag.Float64Var(&cfg.InitialCash, "cash", cfg.InitialCash, "Initial cash")
	flag.Float64Var(&cfg.CommissionRate, "commission", cfg.CommissionRate, "Commission as a fraction of notional")
	flag.StringVar(&cfg.Strategy, "strategy", cfg.Strategy, "Strategy: sma, crossover or tunnel")
	flag.Int64Var(&cfg.Size, "size", cfg.Size, "Order size")
	flag.StringVar(&cfg.Session, "session", cfg.Session, "Market session: nse or fx")
	flag.StringVar(&cfg.Indicators, "indicators", cfg.Indicators, "Extra indicator readout: TYPE:PERIOD,...")
	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "Serve /metrics, /healthz, /api/v1/report and /api/v1/ws on this address")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	flag.StringVar(&cfg.NotifyWebhookURL, "notify", cfg.NotifyWebhookURL, "POST the run-finished alert to this webhook")
	tradesPath := flag.String("trades", "", "Write fills and closed trades to this CSV file")
	hold := flag.Bool("hold", false, "Keep the HTTP server up after the run until interrupted")
	barEvery := flag.Int("bar-every", 1, "Broadcast one bar event per N bars on the WebSocket feed (0=off)")
	list := flag.Bool("list", false, "List the series stored in the SQLite database and exit")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[backtest] invalid config: %v", err)
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}
	logger.InitWriter(os.Stderr, "backtest", level)

	runID := logger.NewRunID()
	ctx, cancel := context.WithCancel(logger.WithRunID(context.Background(), runID))
	defer cancel()

	if *list {
		if err := listSeries(ctx, cfg.SQLitePath, os.Stdout); err != nil {
			log.Fatalf("[backtest] %v", err)
		}
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Strategy
	var session *markethours.Session
	if cfg.Session != "" {
		if session, err = markethours.ByName(cfg.Session); err != nil {
			log.Fatalf("[backtest] %v", err)
		}
	}
	strat, err := strategy.New(strategy.Config{
		Name:    cfg.Strategy,
		Size:    cfg.Size,
		Fees:    strategy.FeeModel{Rate: cfg.CommissionRate, Min: cfg.MinCommission},
		Session: session,
	})
	if err != nil {
		log.Fatalf("[backtest] strategy: %v", err)
	}

	// Observers
	health := metrics.NewHealthStatus(runID, cfg.Source)
	m := metrics.NewMetrics()
	hub := gateway.NewHub(runID, 4096)
	hub.BarEvery = *barEvery

	b := broker.New(cfg.InitialCash)
	tracker := portfolio.NewTracker(b.InitialCash())
	b.Observe(tracker)
	b.Observe(m)
	b.Observe(hub)

	var final atomic.Pointer[report.Summary]

	var srv *metrics.Server
	if cfg.ListenAddr != "" {
		router := metrics.NewRouter(metrics.RouterConfig{
			Metrics: m,
			Health:  health,
			WS:      hub.HandleWS,
			Report: func() any {
				if s := final.Load(); s != nil {
					return s
				}
				return map[string]any{"run_id": runID, "state": "running", "stats": tracker.Stats()}
			},
		})
		srv = metrics.NewServer(cfg.ListenAddr, router)
		srv.Start()
	}

	// Data
	feed, err := loadFeed(ctx, cfg, health)
	if err != nil {
		log.Fatalf("[backtest] load %s: %v", cfg.Source, err)
	}
	health.SetBars(feed.Len())
	if session != nil && feed.Len() > 0 {
		first, _ := feed.TimeAt(0)
		last, _ := feed.TimeAt(feed.Len() - 1)
		log.Printf("[backtest] first bar %s: %s", first.Format(time.RFC3339), session.StatusString(first))
		log.Printf("[backtest] last bar %s: %s", last.Format(time.RFC3339), session.StatusString(last))
	}

	eng := engine.New(feed, strat, b)
	eng.Watch(tracker)
	eng.Watch(m)
	eng.Watch(hub)

	health.SetState(engine.Stepping.String())
	begin := time.Now()
	eng.Run(ctx)
	m.ObserveRun(time.Since(begin))
	health.SetState(eng.State().String())

	summary := report.Build(report.Input{
		RunID:    runID,
		Strategy: strat.Name(),
		Source:   cfg.Source,
		Feed:     feed,
		Broker:   b,
		Stats:    tracker.Stats(),
	})
	final.Store(&summary)
	hub.Broadcast("summary", feed.Time(), summary)
	summary.Print(os.Stdout)

	notifier := notification.New(notification.Config{
		WebhookURL:       cfg.NotifyWebhookURL,
		TelegramBotToken: cfg.TelegramBotToken,
		TelegramChatID:   cfg.TelegramChatID,
	})
	notifyCtx, stopNotify := context.WithTimeout(ctx, 15*time.Second)
	if err := notifier.Send(notifyCtx, summary.Alert()); err != nil {
		log.Printf("[backtest] notify: %v", err)
	}
	stopNotify()

	if cfg.Indicators != "" {
		if err := printIndicators(cfg.Indicators, feed.Close, feed.Len()-1); err != nil {
			log.Printf("[backtest] indicators: %v", err)
		}
	}

	if *tradesPath != "" {
		if err := writeTrades(*tradesPath, tracker); err != nil {
			log.Fatalf("[backtest] %v", err)
		}
		log.Printf("[backtest] trades written to %s", *tradesPath)
	}

	if srv != nil {
		log.Printf("[backtest] ws: %d events published, %d clients connected", hub.Seq(), hub.ClientCount())
		if *hold {
			log.Printf("[backtest] run finished, serving on %s until interrupted", cfg.ListenAddr)
			<-ctx.Done()
		}
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		srv.Stop(shutdownCtx)
		stop()
	}
}

// printIndicators prints the configured indicators' readings at the last bar.
func printIndicators(specs string, src indicator.Source, last int) error {
	configs, err := indicator.ParseSpecs(specs)
	if err != nil {
		return err
	}
	ind, err := indicator.NewEngine(configs)
	if err != nil {
		return err
	}
	ind.Feed(src)
	for i, v := range ind.Values(last) {
		if v.Ready {
			fmt.Printf("  %-10s %.4f\n", v.Name, v.Value)
			continue
		}
		_, start := ind.Indicators()[i].Inner()
		fmt.Printf("  %-10s (warming up, valid from bar %d)\n", v.Name, start)
	}
	return nil
}

func writeTrades(path string, t *portfolio.Tracker) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WriteTradesCSV(f, t.Fills(), t.ClosedTrades()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
