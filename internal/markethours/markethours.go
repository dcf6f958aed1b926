// Package markethours answers session questions for bar timestamps:
// trading days, the daily close, and whether a bar falls in the window
// right before it.
package markethours

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// Session describes one venue's trading day in its local time zone.
// When the open and close times are equal the session trades around the
// clock on trading days and the close marks the day boundary.
type Session struct {
	Name        string
	Location    *time.Location
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int

	holidays map[string]bool // "2006-01-02" in Location
}

// NSE is the Indian cash session: 9:15 AM – 3:30 PM IST, Mon–Fri, excluding holidays.
func NSE() *Session {
	s := &Session{
		Name:        "NSE",
		Location:    IST,
		OpenHour:    9,
		OpenMinute:  15,
		CloseHour:   15,
		CloseMinute: 30,
	}
	for _, h := range nseHolidays2026 {
		s.AddHoliday(2026, h.month, h.day)
	}
	return s
}

// NewYorkFX is the spot FX day, rolling at 5:00 PM New York time (DST-aware).
func NewYorkFX() *Session {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(fmt.Sprintf("markethours: load America/New_York: %v", err))
	}
	return &Session{
		Name:        "FX",
		Location:    ny,
		OpenHour:    17,
		OpenMinute:  0,
		CloseHour:   17,
		CloseMinute: 0,
	}
}

// ByName returns a built-in session ("nse", "fx").
func ByName(name string) (*Session, error) {
	switch name {
	case "nse", "NSE":
		return NSE(), nil
	case "fx", "FX", "newyork":
		return NewYorkFX(), nil
	}
	return nil, fmt.Errorf("unknown session %q", name)
}

// AddHoliday marks a local date as closed.
func (s *Session) AddHoliday(year int, month time.Month, day int) {
	if s.holidays == nil {
		s.holidays = map[string]bool{}
	}
	s.holidays[s.dateKey(year, month, day)] = true
}

// IsHoliday returns true if the local date of t is a holiday.
func (s *Session) IsHoliday(t time.Time) bool {
	lt := t.In(s.Location)
	return s.holidays[s.dateKey(lt.Year(), lt.Month(), lt.Day())]
}

// IsWeekday returns true if t is Mon–Fri in local time.
func (s *Session) IsWeekday(t time.Time) bool {
	wd := t.In(s.Location).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func (s *Session) IsTradingDay(t time.Time) bool {
	return s.IsWeekday(t) && !s.IsHoliday(t)
}

// IsOpen returns true if t falls within trading hours on a trading day.
func (s *Session) IsOpen(t time.Time) bool {
	if !s.IsTradingDay(t) {
		return false
	}
	open, close := s.OpenHour*60+s.OpenMinute, s.CloseHour*60+s.CloseMinute
	if open == close {
		return true
	}
	lt := t.In(s.Location)
	hm := lt.Hour()*60 + lt.Minute()
	return hm >= open && hm < close
}

// TodayClose returns the close on the local date of t.
func (s *Session) TodayClose(t time.Time) time.Time {
	lt := t.In(s.Location)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), s.CloseHour, s.CloseMinute, 0, 0, s.Location)
}

// TimeUntilClose returns the duration until today's close, or 0 once past it.
func (s *Session) TimeUntilClose(t time.Time) time.Duration {
	d := s.TodayClose(t).Sub(t)
	if d < 0 {
		return 0
	}
	return d
}

// IsPreClose reports whether t lies in [close-window, close) of a trading
// day. Weekends and holidays have no close to run up to.
func (s *Session) IsPreClose(t time.Time, window time.Duration) bool {
	if !s.IsTradingDay(t) {
		return false
	}
	d := s.TodayClose(t).Sub(t)
	return d > 0 && d <= window
}

// NextOpen returns the next session open strictly after t.
func (s *Session) NextOpen(t time.Time) time.Time {
	lt := t.In(s.Location)
	d := time.Date(lt.Year(), lt.Month(), lt.Day(), s.OpenHour, s.OpenMinute, 0, 0, s.Location)
	for i := 0; i < 15; i++ { // weekends + holiday runs
		if d.After(t) && s.IsTradingDay(d) {
			return d
		}
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// StatusString returns a human-readable session status.
func (s *Session) StatusString(t time.Time) string {
	if s.IsOpen(t) {
		return fmt.Sprintf("%s open, closes in %s", s.Name, fmtDur(s.TimeUntilClose(t)))
	}
	next := s.NextOpen(t).In(s.Location)
	return fmt.Sprintf("%s closed, opens %s %s (%s)",
		s.Name, next.Weekday().String()[:3], next.Format("15:04"), fmtDur(next.Sub(t)))
}

func (s *Session) dateKey(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 0, 0, 0, 0, s.Location).Format("2006-01-02")
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
