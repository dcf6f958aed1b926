package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"replaytrader/config"
	"replaytrader/internal/data"
	"replaytrader/internal/metrics"
	"replaytrader/internal/model"
	redisstore "replaytrader/internal/store/redis"
	sqlitestore "replaytrader/internal/store/sqlite"
)

// loadFeed reads the configured history into memory and records source
// health along the way.
func loadFeed(ctx context.Context, cfg *config.Config, health *metrics.HealthStatus) (*data.Feed, error) {
	if cfg.Source == "csv" {
		tt, err := data.ParseTimeType(cfg.CSVTimeType)
		if err != nil {
			return nil, err
		}
		loader := &data.CSVLoader{
			TimeField: cfg.CSVTimeField,
			TimeType:  tt,
			Layout:    cfg.CSVTimeLayout,
			Reverse:   cfg.CSVReverse,
		}
		return loader.LoadFile(cfg.CSVPath)
	}

	var src model.CandleSource
	switch cfg.Source {
	case "sqlite":
		r, err := sqlitestore.NewReader(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		health.CheckSQLite(ctx, r.DB())
		src = r
	case "redis":
		r, err := redisstore.NewReader(redisstore.ReaderConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			return nil, err
		}
		health.CheckRedis(ctx, r.Client())
		src = r
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
	defer src.Close()

	candles, err := src.LoadTFCandles(ctx, cfg.Exchange, cfg.Token, cfg.TF)
	if err != nil {
		health.SetSourceOK(false)
		return nil, err
	}
	return data.FromCandles(candles)
}

// listSeries prints every series stored in the SQLite database.
func listSeries(ctx context.Context, dbPath string, w io.Writer) error {
	r, err := sqlitestore.NewReader(dbPath)
	if err != nil {
		return err
	}
	defer r.Close()

	series, err := r.ListSeries(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%-8s %-12s %6s %8s  %-20s  %s\n", "EXCHANGE", "TOKEN", "TF", "BARS", "FIRST", "LAST")
	for _, s := range series {
		fmt.Fprintf(w, "%-8s %-12s %6d %8d  %-20s  %s\n", s.Exchange, s.Token, s.TF, s.Count,
			s.First.Format(time.RFC3339), s.Last.Format(time.RFC3339))
	}
	return nil
}
