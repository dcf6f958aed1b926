package redis

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"replaytrader/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	// MaxLen caps each stream (approximate trim). 0 keeps everything.
	MaxLen int64
}

// Writer appends TF candles to their Redis Streams.
type Writer struct {
	client *goredis.Client
	maxLen int64
}

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client, err := dial(cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, err
	}
	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Writer{client: client, maxLen: cfg.MaxLen}, nil
}

// WriteTFCandles XADDs completed candles to their streams in one pipeline.
// Streams are append-only and keyed by bar time, so candles at or before a
// stream's newest entry are already stored and are skipped; re-importing an
// overlapping history appends only the new tail. The count is the number of
// entries actually added.
func (w *Writer) WriteTFCandles(ctx context.Context, candles []model.TFCandle) (int, error) {
	var keys []string
	byStream := map[string][]*model.TFCandle{}
	for i := range candles {
		tfc := &candles[i]
		if tfc.Forming {
			continue
		}
		key := tfc.StreamKey()
		if _, ok := byStream[key]; !ok {
			keys = append(keys, key)
		}
		byStream[key] = append(byStream[key], tfc)
	}

	pipe := w.client.Pipeline()
	queued, skipped := 0, 0
	for _, key := range keys {
		top, err := w.topMillis(ctx, key)
		if err != nil {
			return 0, err
		}
		fresh := after(byStream[key], top)
		skipped += len(byStream[key]) - len(fresh)
		for _, tfc := range fresh {
			pipe.XAdd(ctx, addArgs(tfc, w.maxLen))
		}
		queued += len(fresh)
	}
	if skipped > 0 {
		log.Printf("[redis] skipped %d TF candles already in their streams", skipped)
	}
	if queued == 0 {
		return 0, nil
	}

	cmds, err := pipe.Exec(ctx)
	n := 0
	for _, cmd := range cmds {
		if cmd.Err() == nil {
			n++
		}
	}
	if err != nil {
		return n, fmt.Errorf("redis TF candle pipeline: %d of %d added: %w", n, queued, err)
	}
	log.Printf("[redis] appended %d TF candles", n)
	return n, nil
}

// after returns the candles newer than topMs in time order, one per
// millisecond stamp (first wins).
func after(candles []*model.TFCandle, topMs int64) []*model.TFCandle {
	sorted := make([]*model.TFCandle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TS.Before(sorted[j].TS) })

	out := sorted[:0]
	last := topMs
	for _, tfc := range sorted {
		ms := tfc.TS.UnixMilli()
		if ms <= last {
			continue
		}
		out = append(out, tfc)
		last = ms
	}
	return out
}

// topMillis returns the millisecond part of the stream's newest entry ID,
// or -1 for an empty or missing stream.
func (w *Writer) topMillis(ctx context.Context, key string) (int64, error) {
	msgs, err := w.client.XRevRangeN(ctx, key, "+", "-", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("redis top of %s: %w", key, err)
	}
	if len(msgs) == 0 {
		return -1, nil
	}
	ms, err := strconv.ParseInt(strings.SplitN(msgs[0].ID, "-", 2)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis top of %s: bad entry ID %q", key, msgs[0].ID)
	}
	return ms, nil
}

// LastTimestamp returns the unix-second time of the newest candle in a
// series stream, or 0 when the stream is empty.
func (w *Writer) LastTimestamp(ctx context.Context, exchange, token string, tf int) (int64, error) {
	ms, err := w.topMillis(ctx, model.StreamKey(tf, exchange, token))
	if err != nil || ms < 0 {
		return 0, err
	}
	return ms / 1000, nil
}

// Reset deletes the stream of one series.
func (w *Writer) Reset(ctx context.Context, exchange, token string, tf int) error {
	return w.client.Del(ctx, model.StreamKey(tf, exchange, token)).Err()
}

func addArgs(tfc *model.TFCandle, maxLen int64) *goredis.XAddArgs {
	return &goredis.XAddArgs{
		Stream: tfc.StreamKey(),
		MaxLen: maxLen,
		Approx: maxLen > 0,
		ID:     fmt.Sprintf("%d-0", tfc.TS.UnixMilli()),
		Values: map[string]interface{}{
			"data": string(tfc.JSON()),
		},
	}
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
