package report

import (
	"fmt"
	"strings"
	"time"
)

const ISO = "2006-01-02"

// Default reporting period.
const (
	DefaultStartDate = "2025-05-22"
	DefaultEndDate   = "2025-05-27"
)

// DateRange is an inclusive range of calendar dates. The zero value is not valid, use
// NewDateRange.
type DateRange struct {
	start time.Time
	end   time.Time
}

// NewDateRange parses the start and end dates as YYYY-MM-DD and checks that start is not
// after end.
func NewDateRange(start, end string) (DateRange, error) {
	from, err := time.Parse(ISO, strings.TrimSpace(start))
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date '%v' (%w)", start, err)
	}

	to, err := time.Parse(ISO, strings.TrimSpace(end))
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date '%v' (%w)", end, err)
	}

	if to.Before(from) {
		return DateRange{}, fmt.Errorf("invalid date range - end date %v precedes start date %v", end, start)
	}

	return DateRange{start: from, end: to}, nil
}

// DefaultDateRange returns the default reporting period.
func DefaultDateRange() DateRange {
	dr, _ := NewDateRange(DefaultStartDate, DefaultEndDate)

	return dr
}

func (r DateRange) Start() string {
	return r.start.Format(ISO)
}

func (r DateRange) End() string {
	return r.end.Format(ISO)
}

func (r DateRange) IsZero() bool {
	return r.start.IsZero() && r.end.IsZero()
}

func (r DateRange) String() string {
	return fmt.Sprintf("%v..%v", r.Start(), r.End())
}
