package stage

import (
	"context"
	"fmt"

	"github.com/couchcryptid/wind-repower-usa/internal/domain"
)

// CalcOptimalLocations clusters the turbine locations and selects the optimal
// locations of every new model and distance factor, including the factor 0
// baseline. Spacing is stretched along each turbine's prevailing wind.
func (s *Stages) CalcOptimalLocations(ctx context.Context) error {
	turbines, err := s.LoadTurbines()
	if err != nil {
		return err
	}
	st, err := s.Store()
	if err != nil {
		return err
	}

	prevailing, err := st.PrevailingWind(ctx)
	if err != nil {
		return err
	}
	if len(prevailing) != len(turbines) {
		return fmt.Errorf("%d prevailing wind directions for %d turbines, rerun calc_wind_speed", len(prevailing), len(turbines))
	}

	locations := domain.Locations(turbines)
	models := domain.NewTurbineModels()
	factors := s.cfg.ScenarioFactors()
	threshold := domain.ClusterThresholdKM(models, factors, s.cfg.AlongWindRatio)
	clusters := domain.CalcClusters(locations, threshold)
	if err := st.SaveClusters(ctx, clusters); err != nil {
		return err
	}
	s.logger.Info("clusters calculated", "threshold_km", threshold, "clusters", len(domain.GroupByCluster(clusters)))

	scenarios := 0
	for _, m := range models {
		power, err := st.EnergyPerLocation(ctx, m.FileName)
		if err != nil {
			return err
		}
		for _, factor := range factors {
			if err := ctx.Err(); err != nil {
				return err
			}
			spacing := domain.Spacing{
				CrosswindKM:    m.MinDistanceKM(factor),
				AlongWindRatio: s.cfg.AlongWindRatio,
				PrevailingRad:  prevailing,
			}
			optimal, err := domain.CalcOptimalLocations(locations, clusters, power, spacing)
			if err != nil {
				return err
			}
			if err := st.SaveOptimalLocations(ctx, m.FileName, factor, optimal); err != nil {
				return err
			}
			s.logger.Info("optimal locations", "model", m.FileName, "distance_factor", factor, "selected", count(optimal))
			scenarios++
		}
	}
	return s.finish(ctx, "calc_optimal_locations", scenarios)
}

// CalcRepowerPotential builds the repowering curve of every new model and
// distance factor, including the factor 0 baseline, from the stored optimal
// locations.
func (s *Stages) CalcRepowerPotential(ctx context.Context) error {
	turbines, err := s.LoadTurbines()
	if err != nil {
		return err
	}
	st, err := s.Store()
	if err != nil {
		return err
	}

	clusters, err := st.Clusters(ctx)
	if err != nil {
		return err
	}
	existing, err := st.EnergyPerLocation(ctx, domain.ExistingModelName)
	if err != nil {
		return err
	}

	scenarios := 0
	for _, m := range domain.NewTurbineModels() {
		power, err := st.EnergyPerLocation(ctx, m.FileName)
		if err != nil {
			return err
		}
		for _, factor := range s.cfg.ScenarioFactors() {
			optimal, err := st.OptimalLocations(ctx, m.FileName, factor, len(turbines))
			if err != nil {
				return err
			}
			steps, err := domain.CalcRepowerPotential(domain.RepowerInput{
				Clusters:        clusters,
				IsOptimal:       optimal,
				ExistingPowerKW: existing,
				NewPowerKW:      power,
			})
			if err != nil {
				return err
			}
			if err := st.SaveRepowerPotential(ctx, m.FileName, factor, steps); err != nil {
				return err
			}
			last := steps[len(steps)-1]
			s.logger.Info("repower potential", "model", m.FileName, "distance_factor", factor,
				"steps", len(steps), "final_gwh_per_year", last.PowerGeneration)
			scenarios++
		}
	}
	return s.finish(ctx, "calc_repower_potential", scenarios)
}

// CalcMinDistances stores the distance from each turbine to its nearest
// neighbour.
func (s *Stages) CalcMinDistances(ctx context.Context) error {
	turbines, err := s.LoadTurbines()
	if err != nil {
		return err
	}
	distances := domain.CalcMinDistances(domain.Locations(turbines))

	st, err := s.Store()
	if err != nil {
		return err
	}
	if err := st.SaveMinDistances(ctx, turbines, distances); err != nil {
		return err
	}
	return s.finish(ctx, "calc_min_distances", len(turbines))
}

func count(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
