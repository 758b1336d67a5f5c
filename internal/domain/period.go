package domain

import (
	"fmt"
	"time"
)

// Month identifies one calendar month of reanalysis data.
type Month struct {
	Year  int
	Month time.Month
}

// String formats the month as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Start returns the first instant of the month in UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Months expands years × months into chronological order.
func Months(years, months []int) []Month {
	out := make([]Month, 0, len(years)*len(months))
	for _, y := range years {
		for _, m := range months {
			out = append(out, Month{Year: y, Month: time.Month(m)})
		}
	}
	return out
}
