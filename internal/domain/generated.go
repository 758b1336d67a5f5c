package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MonthlyEnergy is the energy generated in one month.
type MonthlyEnergy struct {
	Month Month
	GWh   float64
}

var monthLayouts = []string{"2006-01", "Jan 2006", "January 2006", "2006-01-02"}

// ParseMonth parses a month written as YYYY-MM, "Jan 2006", "January 2006" or
// a date within the month.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Month{Year: t.Year(), Month: t.Month()}, nil
		}
	}
	return Month{}, fmt.Errorf("parse month %q", s)
}

// ErrNoGeneratedEnergy is returned when a generation file holds no monthly
// values.
var ErrNoGeneratedEnergy = errors.New("no generated energy values")

// ParseGeneratedEnergy reads monthly net generation from a CSV whose first
// column is the month and second column the generation in GWh (thousand
// MWh). Rows that do not start with a month, such as titles, headers and
// source notes of the EIA electricity data browser export, are ignored, as
// are months without a value. The result is in chronological order.
func ParseGeneratedEnergy(r io.Reader) ([]MonthlyEnergy, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	seen := make(map[Month]bool)
	var out []MonthlyEnergy
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read generated energy line %d: %w", line, err)
		}
		if len(row) < 2 {
			continue
		}
		m, err := ParseMonth(strings.TrimPrefix(row[0], "\ufeff"))
		if err != nil {
			continue
		}
		gwh := parseFloatOrNaN(strings.ReplaceAll(strings.TrimSpace(row[1]), ",", ""))
		if math.IsNaN(gwh) {
			continue
		}
		if seen[m] {
			return nil, fmt.Errorf("generated energy line %d: duplicate month %s", line, m)
		}
		seen[m] = true
		out = append(out, MonthlyEnergy{Month: m, GWh: gwh})
	}
	if len(out) == 0 {
		return nil, ErrNoGeneratedEnergy
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month.Start().Before(out[j].Month.Start())
	})
	return out, nil
}

// FormatGeneratedEnergy renders values in the layout ParseGeneratedEnergy
// reads.
func FormatGeneratedEnergy(w io.Writer, values []MonthlyEnergy) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"month", "gwh"}); err != nil {
		return err
	}
	for _, v := range values {
		if err := cw.Write([]string{v.Month.String(), strconv.FormatFloat(v.GWh, 'f', 3, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
