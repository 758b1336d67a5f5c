package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Turbine is a single USWTDB record.
type Turbine struct {
	CaseID         int64
	State          string
	County         string
	ProjectName    string
	ProjectYear    float64 // NaN if unknown
	Manufacturer   string
	Model          string
	CapacityKW     float64 // NaN if unknown
	HubHeightM     float64 // NaN if unknown
	RotorDiameterM float64 // NaN if unknown
	Lon            float64
	Lat            float64
}

// Location returns the turbine position.
func (t Turbine) Location() Location {
	return Location{Lat: t.Lat, Lon: t.Lon}
}

// ActiveIn reports whether the turbine was commissioned in or before year.
// Turbines without a commissioning year count as always active.
func (t Turbine) ActiveIn(year int) bool {
	return math.IsNaN(t.ProjectYear) || int(t.ProjectYear) <= year
}

// Location is a WGS-84 latitude/longitude pair in degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ErrNoTurbines is returned when a turbine file has a header but no usable rows.
var ErrNoTurbines = errors.New("no turbines")

var requiredColumns = []string{"case_id", "xlong", "ylat"}

// ParseTurbines reads a USWTDB CSV. Columns are matched by header name so the
// column order of different database versions does not matter. Rows without
// coordinates or with an invalid case_id are left out and counted in rejected.
func ParseTurbines(r io.Reader) (turbines []Turbine, rejected int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read turbine header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, 0, fmt.Errorf("turbine file is missing column %q", name)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, 0, fmt.Errorf("read turbine line %d: %w", line, err)
		}

		lon := parseFloatOrNaN(field(row, "xlong"))
		lat := parseFloatOrNaN(field(row, "ylat"))
		caseID, idErr := strconv.ParseInt(field(row, "case_id"), 10, 64)
		if math.IsNaN(lon) || math.IsNaN(lat) || idErr != nil {
			rejected++
			continue
		}

		turbines = append(turbines, Turbine{
			CaseID:         caseID,
			State:          field(row, "t_state"),
			County:         field(row, "t_county"),
			ProjectName:    field(row, "p_name"),
			ProjectYear:    parseFloatOrNaN(field(row, "p_year")),
			Manufacturer:   field(row, "t_manu"),
			Model:          field(row, "t_model"),
			CapacityKW:     parseFloatOrNaN(field(row, "t_cap")),
			HubHeightM:     parseFloatOrNaN(field(row, "t_hh")),
			RotorDiameterM: parseFloatOrNaN(field(row, "t_rd")),
			Lon:            lon,
			Lat:            lat,
		})
	}

	if len(turbines) == 0 {
		return nil, rejected, ErrNoTurbines
	}
	return turbines, rejected, nil
}

// parseFloatOrNaN parses s, returning NaN for empty or malformed values.
// Sentinels like "-9999" used by older USWTDB releases are treated as unknown.
func parseFloatOrNaN(s string) float64 {
	if s == "" || strings.EqualFold(s, "NA") || strings.EqualFold(s, "nan") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v == -9999 {
		return math.NaN()
	}
	return v
}

// Locations returns the position of every turbine, in input order.
func Locations(turbines []Turbine) []Location {
	locs := make([]Location, len(turbines))
	for i, t := range turbines {
		locs[i] = t.Location()
	}
	return locs
}
