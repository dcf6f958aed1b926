package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"replaytrader/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to stored TF candles for replay.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadTFCandles reads TF candles from the candles_tf table for a given
// exchange:token and TF with fromTS <= ts < toTS (unix seconds; toTS <= 0
// means no upper bound). Results are ordered by timestamp ascending for
// correct replay order.
func (r *Reader) ReadTFCandles(ctx context.Context, exchange, token string, tf int, fromTS, toTS int64) ([]model.TFCandle, error) {
	if toTS <= 0 {
		toTS = 1<<63 - 1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT token, exchange, tf, ts, open, high, low, close, volume, count
		FROM candles_tf
		WHERE exchange = ? AND token = ? AND tf = ? AND ts >= ? AND ts < ?
		ORDER BY ts ASC
	`, exchange, token, tf, fromTS, toTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles_tf: %w", err)
	}
	defer rows.Close()

	var candles []model.TFCandle
	for rows.Next() {
		var c model.TFCandle
		var tsUnix int64
		var volume sql.NullInt64
		var count sql.NullInt64
		if err := rows.Scan(&c.Token, &c.Exchange, &c.TF, &tsUnix, &c.Open, &c.High, &c.Low, &c.Close, &volume, &count); err != nil {
			return nil, fmt.Errorf("sqlite scan candles_tf: %w", err)
		}
		c.TS = time.Unix(tsUnix, 0).UTC()
		c.Volume = volume.Int64
		c.Count = int(count.Int64)
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// LoadTFCandles reads the full history of one series.
func (r *Reader) LoadTFCandles(ctx context.Context, exchange, token string, tf int) ([]model.TFCandle, error) {
	return r.ReadTFCandles(ctx, exchange, token, tf, 0, 0)
}

// Series describes one stored exchange:token:tf history.
type Series struct {
	Exchange string    `json:"exchange"`
	Token    string    `json:"token"`
	TF       int       `json:"tf"`
	Count    int       `json:"count"`
	First    time.Time `json:"first"`
	Last     time.Time `json:"last"`
}

// ListSeries returns every stored series with its bar count and time range.
func (r *Reader) ListSeries(ctx context.Context) ([]Series, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT exchange, token, tf, COUNT(*), MIN(ts), MAX(ts)
		FROM candles_tf
		GROUP BY exchange, token, tf
		ORDER BY exchange, token, tf
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite list series: %w", err)
	}
	defer rows.Close()

	var out []Series
	for rows.Next() {
		var s Series
		var first, last int64
		if err := rows.Scan(&s.Exchange, &s.Token, &s.TF, &s.Count, &first, &last); err != nil {
			return nil, fmt.Errorf("sqlite scan series: %w", err)
		}
		s.First = time.Unix(first, 0).UTC()
		s.Last = time.Unix(last, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
