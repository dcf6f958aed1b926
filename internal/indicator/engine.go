package indicator

import (
	"fmt"
	"strconv"
	"strings"
)

// IndicatorConfig specifies a single indicator to compute.
type IndicatorConfig struct {
	Type   string // "SMA", "EMA", "SMMA", "RSI", "SLOPE", "MOM"
	Period int
}

// Value is one named indicator reading at a bar.
type Value struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Ready bool    `json:"ready"` // false before the indicator's valid start
}

// Engine computes a configured set of single-input indicators over one
// source. Not safe for concurrent use.
type Engine struct {
	configs    []IndicatorConfig
	indicators []Windowed
}

// NewEngine creates an indicator engine. Unknown types are rejected here so
// a bad config never reaches a run.
func NewEngine(configs []IndicatorConfig) (*Engine, error) {
	inds := make([]Windowed, 0, len(configs))
	for _, cfg := range configs {
		ind, err := Build(cfg)
		if err != nil {
			return nil, err
		}
		inds = append(inds, ind)
	}
	return &Engine{configs: configs, indicators: inds}, nil
}

// Build creates the indicator described by cfg.
func Build(cfg IndicatorConfig) (Windowed, error) {
	if cfg.Period < minPeriod {
		return nil, fmt.Errorf("indicator %s: period %d below minimum %d", cfg.Type, cfg.Period, minPeriod)
	}
	switch strings.ToUpper(cfg.Type) {
	case "SMA":
		return NewSMA(cfg.Period), nil
	case "EMA":
		return NewEMA(cfg.Period), nil
	case "SMMA":
		return NewSMMA(cfg.Period), nil
	case "RSI":
		return NewRSI(cfg.Period), nil
	case "SLOPE":
		return NewSlope(cfg.Period), nil
	case "MOM":
		return NewMom(cfg.Period), nil
	}
	return nil, fmt.Errorf("unknown indicator type %q", cfg.Type)
}

// Feed recomputes every indicator from src.
func (e *Engine) Feed(src Source) {
	for _, ind := range e.indicators {
		ind.Feed(src)
	}
}

// Indicators returns the configured indicators in config order.
func (e *Engine) Indicators() []Windowed {
	return e.indicators
}

// Values returns every indicator's reading at index, in config order.
func (e *Engine) Values(index int) []Value {
	out := make([]Value, 0, len(e.indicators))
	for _, ind := range e.indicators {
		v, ok := ind.At(index)
		out = append(out, Value{Name: ind.Name(), Value: v, Ready: ok})
	}
	return out
}

// ParseSpecs parses "TYPE:PERIOD,..." (e.g. "SMA:20,EMA:9").
func ParseSpecs(s string) ([]IndicatorConfig, error) {
	var configs []IndicatorConfig
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tokens := strings.SplitN(part, ":", 2)
		if len(tokens) != 2 {
			return nil, fmt.Errorf("indicator spec %q: want TYPE:PERIOD", part)
		}
		period, err := strconv.Atoi(strings.TrimSpace(tokens[1]))
		if err != nil {
			return nil, fmt.Errorf("indicator spec %q: %w", part, err)
		}
		configs = append(configs, IndicatorConfig{
			Type:   strings.ToUpper(strings.TrimSpace(tokens[0])),
			Period: period,
		})
	}
	return configs, nil
}
