package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// TimeType says how the time column is encoded.
type TimeType int

const (
	TimeUnknown     TimeType = iota
	TimeSecond               // unix seconds
	TimeMillisecond          // unix milliseconds
	TimeDate                 // date string, parsed with Layout at 00:00 UTC
	TimeDatetime             // datetime string, parsed with Layout as UTC
)

// ParseTimeType maps a config value ("second", "millisecond", "date",
// "datetime") to a TimeType.
func ParseTimeType(s string) (TimeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "second", "s", "unix":
		return TimeSecond, nil
	case "millisecond", "ms", "unixms":
		return TimeMillisecond, nil
	case "date":
		return TimeDate, nil
	case "datetime":
		return TimeDatetime, nil
	}
	return TimeUnknown, fmt.Errorf("unknown csv time type %q", s)
}

// CSVLoader maps a header-bearing CSV file onto Columns.
// Field names are matched case-insensitively after trimming.
type CSVLoader struct {
	TimeField string
	TimeType  TimeType
	Layout    string // Go time layout for TimeDate / TimeDatetime

	OpenField   string // default "open"
	CloseField  string // default "close"
	HighField   string // default "high"
	LowField    string // default "low"
	VolumeField string // default "volume"

	// Reverse flips rows for files stored newest first.
	Reverse bool
}

func (l *CSVLoader) check() error {
	if strings.TrimSpace(l.TimeField) == "" {
		return errors.New("csv: time field not configured")
	}
	switch l.TimeType {
	case TimeUnknown:
		return errors.New("csv: time type not configured")
	case TimeDate, TimeDatetime:
		if l.Layout == "" {
			return errors.New("csv: time layout required for date/datetime time type")
		}
	}
	return nil
}

// LoadFile reads path and builds a feed.
func (l *CSVLoader) LoadFile(path string) (*Feed, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv open %s: %w", path, err)
	}
	defer f.Close()
	return l.Load(f)
}

// LoadString builds a feed from CSV text.
func (l *CSVLoader) LoadString(s string) (*Feed, error) {
	return l.Load(strings.NewReader(s))
}

// Load reads CSV rows from r. Blank lines are skipped.
func (l *CSVLoader) Load(r io.Reader) (*Feed, error) {
	if err := l.check(); err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("csv: missing header line")
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}

	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	col := func(field, def string) int {
		if field == "" {
			field = def
		}
		if i, ok := idx[strings.ToLower(strings.TrimSpace(field))]; ok {
			return i
		}
		return -1
	}
	timeIdx := col(l.TimeField, "")
	if timeIdx < 0 {
		return nil, fmt.Errorf("csv: header missing time field %q", l.TimeField)
	}
	openIdx, closeIdx := col(l.OpenField, "open"), col(l.CloseField, "close")
	if openIdx < 0 || closeIdx < 0 {
		return nil, errors.New("csv: header missing open or close field")
	}
	highIdx, lowIdx, volIdx := col(l.HighField, "high"), col(l.LowField, "low"), col(l.VolumeField, "volume")

	var cols Columns
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", row, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		ts, err := l.parseTime(field(rec, timeIdx))
		if err != nil {
			return nil, fmt.Errorf("csv row %d: time: %w", row, err)
		}
		cols.Time = append(cols.Time, ts)

		for _, c := range []struct {
			idx int
			dst *[]float64
		}{
			{openIdx, &cols.Open}, {closeIdx, &cols.Close},
			{highIdx, &cols.High}, {lowIdx, &cols.Low}, {volIdx, &cols.Volume},
		} {
			if c.idx < 0 {
				continue
			}
			v, err := strconv.ParseFloat(field(rec, c.idx), 64)
			if err != nil {
				return nil, fmt.Errorf("csv row %d: %w", row, err)
			}
			*c.dst = append(*c.dst, v)
		}
	}

	if l.Reverse {
		reverse(cols.Time)
		for _, s := range [][]float64{cols.Open, cols.Close, cols.High, cols.Low, cols.Volume} {
			reverse(s)
		}
	}
	return New(cols)
}

func (l *CSVLoader) parseTime(v string) (time.Time, error) {
	switch l.TimeType {
	case TimeSecond:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(n, 0).UTC(), nil
	case TimeMillisecond:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(n).UTC(), nil
	case TimeDate:
		t, err := time.Parse(l.Layout, v)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	case TimeDatetime:
		return time.Parse(l.Layout, v)
	}
	return time.Time{}, errors.New("time type not configured")
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
