package model

import "context"

// ── Storage Port Interfaces ──
// These interfaces decouple the backtest from concrete storage implementations
// (Redis, SQLite). Each implementation satisfies one or more of them.

// CandleSource loads the full, completed history of one instrument and TF,
// oldest first.
type CandleSource interface {
	LoadTFCandles(ctx context.Context, exchange, token string, tf int) ([]TFCandle, error)

	// Close releases underlying resources.
	Close() error
}

// CandleSink persists completed TF candles keyed by series and bar time.
// Writing a key that is already stored never duplicates it: table stores
// replace the row, append-only streams keep the stored entry.
type CandleSink interface {
	// WriteTFCandles returns how many candles were stored by this call.
	WriteTFCandles(ctx context.Context, candles []TFCandle) (int, error)

	// LastTimestamp returns the unix-second time of the newest stored candle
	// of a series, or 0 when there is none.
	LastTimestamp(ctx context.Context, exchange, token string, tf int) (int64, error)

	// Close releases underlying resources.
	Close() error
}
