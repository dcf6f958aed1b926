package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"BACKTEST_SOURCE", "TF", "INITIAL_CASH", "CSV_REVERSE", "STRATEGY", "ORDER_SIZE"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.Source != "csv" || c.TF != 60 || c.InitialCash != 100000 || c.Strategy != "sma" || c.Size != 1 {
		t.Errorf("defaults = %+v", c)
	}
	if c.CSVReverse {
		t.Error("CSV_REVERSE should default to false")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BACKTEST_SOURCE", "SQLite")
	t.Setenv("TF", "300")
	t.Setenv("INITIAL_CASH", "2500.5")
	t.Setenv("CSV_REVERSE", "true")
	t.Setenv("COMMISSION_RATE", "not-a-number")

	c := Load()
	if c.Source != "sqlite" || c.TF != 300 || c.InitialCash != 2500.5 || !c.CSVReverse {
		t.Errorf("overrides = %+v", c)
	}
	if c.CommissionRate != 0.0003 {
		t.Errorf("malformed COMMISSION_RATE should fall back, got %g", c.CommissionRate)
	}
}

func TestValidate(t *testing.T) {
	c := Load()
	c.Source = "parquet"
	c.TF = 0
	c.InitialCash = -1
	c.Size = 0
	err := c.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"BACKTEST_SOURCE", "TF must be positive", "INITIAL_CASH", "ORDER_SIZE"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}

	c = Load()
	c.Source = "redis"
	c.Token = ""
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "TOKEN") {
		t.Errorf("redis without token: %v", err)
	}
}
