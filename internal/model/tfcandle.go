package model

import (
	"encoding/json"
	"time"
)

// TFCandle is one OHLCV bar of a fixed timeframe as it is stored in SQLite
// and Redis streams. TF is the timeframe duration in seconds (e.g., 60 = 1 minute).
// All prices are in paise (int64) to avoid floating-point drift in storage;
// the replay converts them to float64 rupees once, at load time.
type TFCandle struct {
	Token    string    `json:"token"`
	Exchange string    `json:"exchange"`
	TF       int       `json:"tf"`     // timeframe in seconds
	TS       time.Time `json:"ts"`     // bucket start time (UTC, TF-aligned)
	Open     int64     `json:"open"`   // paise
	High     int64     `json:"high"`   // paise
	Low      int64     `json:"low"`    // paise
	Close    int64     `json:"close"`  // paise
	Volume   int64     `json:"volume"` // cumulative quantity
	Count    int       `json:"count"`  // number of source rows merged
	// Forming is true if the bucket was still open when it was written.
	// Replays skip forming candles.
	Forming bool `json:"forming"`
}

// Key returns "exchange:token".
func (c *TFCandle) Key() string {
	return c.Exchange + ":" + c.Token
}

// StreamKey returns the Redis stream key: "candle:{TF}s:{exchange}:{token}".
func (c *TFCandle) StreamKey() string {
	return StreamKey(c.TF, c.Exchange, c.Token)
}

// StreamKey builds the Redis stream key for an instrument and timeframe.
func StreamKey(tf int, exchange, token string) string {
	return "candle:" + Itoa(tf) + "s:" + exchange + ":" + token
}

// JSON returns the JSON-encoded TF candle.
func (c *TFCandle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
