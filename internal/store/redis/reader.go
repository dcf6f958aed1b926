package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"replaytrader/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const pageSize = 1000

// ReaderConfig configures the Redis reader.
type ReaderConfig struct {
	Addr     string
	Password string
	DB       int
}

// Reader loads TF candle history from Redis Streams.
type Reader struct {
	client *goredis.Client
}

// NewReader creates a new Redis Reader and pings the server.
func NewReader(cfg ReaderConfig) (*Reader, error) {
	client, err := dial(cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, err
	}
	log.Printf("[redis-reader] connected to %s", cfg.Addr)
	return &Reader{client: client}, nil
}

func dial(addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// LoadTFCandles reads the whole candle:{tf}s:{exchange}:{token} stream in
// pages of XRANGE. Entries without a decodable "data" field and forming
// candles are skipped.
func (r *Reader) LoadTFCandles(ctx context.Context, exchange, token string, tf int) ([]model.TFCandle, error) {
	stream := model.StreamKey(tf, exchange, token)
	var out []model.TFCandle
	start := "-"
	skipped := 0
	for {
		msgs, err := r.client.XRangeN(ctx, stream, start, "+", pageSize).Result()
		if err != nil {
			return nil, fmt.Errorf("xrange %s from %s: %w", stream, start, err)
		}
		for _, msg := range msgs {
			tfc, ok := decodeEntry(msg.Values)
			if !ok {
				skipped++
				continue
			}
			out = append(out, tfc)
		}
		if len(msgs) < pageSize {
			break
		}
		start = "(" + msgs[len(msgs)-1].ID
	}
	if skipped > 0 {
		log.Printf("[redis-reader] %s: skipped %d unusable entries", stream, skipped)
	}
	return out, nil
}

// decodeEntry parses a stream entry written by Writer.
func decodeEntry(values map[string]interface{}) (model.TFCandle, bool) {
	var tfc model.TFCandle
	data, ok := values["data"].(string)
	if !ok {
		return tfc, false
	}
	if err := json.Unmarshal([]byte(data), &tfc); err != nil {
		return tfc, false
	}
	if tfc.Forming {
		return tfc, false
	}
	return tfc, true
}

// Client returns the underlying Redis client for health checks.
func (r *Reader) Client() *goredis.Client { return r.client }

// Close closes the Redis client.
func (r *Reader) Close() error {
	return r.client.Close()
}
