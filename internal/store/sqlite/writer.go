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

const defaultBatchSize = 500

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath    string // path to SQLite database file, e.g. "data/candles.db"
	BatchSize int    // rows per transaction, default 500
}

// Writer imports TF candles with transaction batching.
type Writer struct {
	db        *sql.DB
	batchSize int
}

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db, batchSize: batch}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles_tf (
			token      TEXT    NOT NULL,
			exchange   TEXT    NOT NULL,
			tf         INTEGER NOT NULL,
			ts         INTEGER NOT NULL,
			open       INTEGER NOT NULL,
			high       INTEGER NOT NULL,
			low        INTEGER NOT NULL,
			close      INTEGER NOT NULL,
			volume     INTEGER,
			count      INTEGER,
			PRIMARY KEY (exchange, token, tf, ts)
		);
	`)
	return err
}

// WriteTFCandles upserts candles in batched transactions and returns how
// many rows were written. Forming candles are skipped.
func (w *Writer) WriteTFCandles(ctx context.Context, candles []model.TFCandle) (int, error) {
	written := 0
	for start := 0; start < len(candles); start += w.batchSize {
		end := min(start+w.batchSize, len(candles))
		begin := time.Now()
		n, err := w.insertTFBatch(ctx, candles[start:end])
		if err != nil {
			return written, fmt.Errorf("sqlite insert candles_tf: %w", err)
		}
		written += n
		log.Printf("[sqlite] committed %d TF candles in %v", n, time.Since(begin))
	}
	return written, nil
}

// insertTFBatch inserts a batch of TF candles in a single transaction.
func (w *Writer) insertTFBatch(ctx context.Context, candles []model.TFCandle) (int, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles_tf (token, exchange, tf, ts, open, high, low, close, volume, count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, c := range candles {
		if c.Forming {
			continue
		}
		_, err := stmt.ExecContext(ctx, c.Token, c.Exchange, c.TF, c.TS.Unix(), c.Open, c.High, c.Low, c.Close, c.Volume, c.Count)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		n++
	}

	return n, tx.Commit()
}

// LastTimestamp returns the last stored candle timestamp for a series.
// Returns 0 if no candles exist.
func (w *Writer) LastTimestamp(ctx context.Context, exchange, token string, tf int) (int64, error) {
	var ts sql.NullInt64
	err := w.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM candles_tf WHERE exchange = ? AND token = ? AND tf = ?`,
		exchange, token, tf,
	).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("sqlite last ts: %w", err)
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
