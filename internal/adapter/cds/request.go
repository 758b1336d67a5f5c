package cds

import (
	"fmt"

	"github.com/couchcryptid/wind-repower-usa/internal/domain"
)

// Dataset is the ERA5 product holding hourly single-level fields.
const Dataset = "reanalysis-era5-single-levels"

// WindVariables are the ERA5 wind components at 10 m and 100 m.
var WindVariables = []string{
	"100m_u_component_of_wind",
	"100m_v_component_of_wind",
	"10m_u_component_of_wind",
	"10m_v_component_of_wind",
}

// Request selects one month of hourly data over an area.
type Request struct {
	Variables []string
	Month     domain.Month
	Area      domain.BoundingBox
}

// payload is the JSON body of a retrieve call.
type payload struct {
	ProductType string   `json:"product_type"`
	Format      string   `json:"format"`
	Variable    []string `json:"variable"`
	Year        string   `json:"year"`
	Month       string   `json:"month"`
	Day         []string `json:"day"`
	Time        []string `json:"time"`
	Area        string   `json:"area"`
}

func (r Request) payload() payload {
	days := make([]string, 31)
	for i := range days {
		days[i] = fmt.Sprintf("%02d", i+1)
	}
	hours := make([]string, 24)
	for i := range hours {
		hours[i] = fmt.Sprintf("%02d:00", i)
	}
	return payload{
		ProductType: "reanalysis",
		Format:      "netcdf",
		Variable:    r.Variables,
		Year:        fmt.Sprintf("%04d", r.Month.Year),
		Month:       fmt.Sprintf("%02d", int(r.Month.Month)),
		Day:         days,
		Time:        hours,
		Area:        r.Area.CDSArea(),
	}
}

// FileName is the monthly download name.
func FileName(m domain.Month) string {
	return fmt.Sprintf("wind_velocity_usa_%s.nc", m)
}
