// Package domain models the wind turbine fleet of the USA and the quantities
// derived from it: wind speeds at hub height, simulated generation, minimum
// turbine spacing, optimal locations for new turbines and repowering potential.
//
// # Data Sources
//
// Turbine sites come from the United States Wind Turbine Database (USWTDB), a
// CSV published by USGS. One row per turbine; the columns used here are:
//
//	case_id   unique turbine id
//	t_state   state abbreviation          t_county  county name
//	p_name    project name                p_year    commissioning year
//	t_manu    manufacturer                t_model   turbine model
//	t_cap     rated capacity [kW]         t_hh      hub height [m]
//	t_rd      rotor diameter [m]          xlong     longitude [deg]
//	ylat      latitude [deg]
//
// Empty numeric cells mean "unknown" and are kept as NaN. Rows without
// coordinates cannot be placed on the wind grid; [ParseTurbines] skips and
// counts them.
//
// Wind fields come from ERA5 single-level reanalysis, hourly, 0.25° grid. The
// eastward (u) and northward (v) components are downloaded at 10 m and 100 m.
//
// # Wind Speed at Hub Height
//
// The 100 m wind speed is extrapolated to hub height with the power law
//
//	w(h) = w100 · (h / 100)^α,   α = ln(w100 / w10) / ln(100 / 10)
//
// The shear exponent α falls back to 1/7 when either speed is zero or the
// result is not finite.
//
// # Power Curves
//
// Turbine models are described by rated power, cut-in, rated and cut-out wind
// speed. Between cut-in and rated speed the output follows a cubic ramp:
//
//	P(v) = P_r · (v³ − v_in³) / (v_r³ − v_in³)
//
// Existing turbines use the GE 1.5-77 curve scaled to their rated capacity.
//
// # Spacing
//
// Turbines in a park need a minimum distance of a few rotor diameters. A
// "distance factor" f means a spacing of f · rotor diameter. Factor 0 is the
// 1:1 replacement scenario without any spacing constraint. Distances are great
// circle distances on a sphere of radius [EarthRadiusKM].
package domain
