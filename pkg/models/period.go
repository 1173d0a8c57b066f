package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is a calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// String formats the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Before reports whether p is earlier than o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// ParsePeriod accepts YYYY-MM or MM/YYYY.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	var yearStr, monthStr string
	switch {
	case strings.Contains(s, "-"):
		parts := strings.SplitN(s, "-", 2)
		yearStr, monthStr = parts[0], parts[1]
	case strings.Contains(s, "/"):
		parts := strings.SplitN(s, "/", 2)
		monthStr, yearStr = parts[0], parts[1]
	default:
		return Period{}, fmt.Errorf("invalid period %q", s)
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1900 {
		return Period{}, fmt.Errorf("invalid period year in %q", s)
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return Period{}, fmt.Errorf("invalid period month in %q", s)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// MarshalText implements encoding.TextMarshaler so periods can key JSON maps.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
