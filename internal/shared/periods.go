package shared

import (
	"fmt"
	"time"
)

// Period is a calendar month. Every summary, budget and report uses the same
// boundary convention: Start is the first day, End is the last day, both
// inclusive, compared at date granularity.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod accepts the YYYY-MM form.
func ParsePeriod(value string) (Period, error) {
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return Period{}, Validation("period", fmt.Sprintf("expected YYYY-MM, got %q", value))
	}
	return PeriodOf(t), nil
}

// Validate checks the year and month range.
func (p Period) Validate() error {
	if p.Year < 1900 || p.Year > 9999 {
		return Validation("period", "year out of range")
	}
	if p.Month < time.January || p.Month > time.December {
		return Validation("period", "month out of range")
	}
	return nil
}

// Start returns the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the period.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// Contains reports whether the date of t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// Prev returns the preceding period.
func (p Period) Prev() Period {
	return PeriodOf(p.Start().AddDate(0, -1, 0))
}

// String renders YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
