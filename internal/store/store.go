// Package store persists calculation results in SQLite so that later stages,
// figures and validation can read what earlier stages produced.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/couchcryptid/wind-repower-usa/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNoResults is returned when a stage reads results that were never written.
var ErrNoResults = errors.New("no results stored")

const batchSize = 500

// Store is the result database.
type Store struct {
	db *gorm.DB
}

// Open creates or opens the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open result store %s: %w", path, err)
	}
	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("migrate result store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// replace deletes the rows matched by scope and inserts rows in one
// transaction.
func replace[T any](ctx context.Context, db *gorm.DB, scope func(*gorm.DB) *gorm.DB, rows []T) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var zero T
		if err := scope(tx).Delete(&zero).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, batchSize).Error
	})
}

func all(tx *gorm.DB) *gorm.DB {
	return tx.Where("1 = 1")
}

func scenario(model string, factor float64) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("model = ? AND distance_factor = ?", model, factor)
	}
}

// SaveMinDistances replaces all minimum distances. NaN is stored as NULL.
func (s *Store) SaveMinDistances(ctx context.Context, turbines []domain.Turbine, distancesKM []float64) error {
	if len(turbines) != len(distancesKM) {
		return fmt.Errorf("save min distances: %d turbines, %d distances", len(turbines), len(distancesKM))
	}
	rows := make([]MinDistance, len(distancesKM))
	for i, d := range distancesKM {
		rows[i] = MinDistance{TurbineIndex: i, CaseID: turbines[i].CaseID}
		if !math.IsNaN(d) {
			v := d
			rows[i].DistanceKM = &v
		}
	}
	if err := replace(ctx, s.db, all, rows); err != nil {
		return fmt.Errorf("save min distances: %w", err)
	}
	return nil
}

// MinDistances returns distances ordered by turbine index, NaN where no
// neighbour exists.
func (s *Store) MinDistances(ctx context.Context) ([]float64, error) {
	var rows []MinDistance
	if err := s.db.WithContext(ctx).Order("turbine_index").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load min distances: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("min distances: %w", ErrNoResults)
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = math.NaN()
		if r.DistanceKM != nil {
			out[i] = *r.DistanceKM
		}
	}
	return out, nil
}

// SaveSimulatedEnergy replaces the monthly generation series.
func (s *Store) SaveSimulatedEnergy(ctx context.Context, rows []SimulatedEnergy) error {
	if err := replace(ctx, s.db, all, rows); err != nil {
		return fmt.Errorf("save simulated energy: %w", err)
	}
	return nil
}

// SimulatedEnergy returns the monthly series in chronological order.
func (s *Store) SimulatedEnergy(ctx context.Context) ([]SimulatedEnergy, error) {
	var rows []SimulatedEnergy
	if err := s.db.WithContext(ctx).Order("month").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load simulated energy: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("simulated energy: %w", ErrNoResults)
	}
	return rows, nil
}

// SaveEnergyPerLocation replaces the mean power of one model at every location.
func (s *Store) SaveEnergyPerLocation(ctx context.Context, model string, meanPowerKW []float64) error {
	rows := make([]EnergyPerLocation, len(meanPowerKW))
	for i, p := range meanPowerKW {
		rows[i] = EnergyPerLocation{Model: model, TurbineIndex: i, MeanPowerKW: p}
	}
	byModel := func(tx *gorm.DB) *gorm.DB { return tx.Where("model = ?", model) }
	if err := replace(ctx, s.db, byModel, rows); err != nil {
		return fmt.Errorf("save energy per location %s: %w", model, err)
	}
	return nil
}

// EnergyPerLocation returns the mean power of a model ordered by location.
func (s *Store) EnergyPerLocation(ctx context.Context, model string) ([]float64, error) {
	var rows []EnergyPerLocation
	if err := s.db.WithContext(ctx).Where("model = ?", model).Order("turbine_index").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load energy per location %s: %w", model, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("energy per location %s: %w", model, ErrNoResults)
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.MeanPowerKW
	}
	return out, nil
}

// SaveClusters replaces the cluster assignment.
func (s *Store) SaveClusters(ctx context.Context, clusters []int) error {
	rows := make([]Cluster, len(clusters))
	for i, c := range clusters {
		rows[i] = Cluster{TurbineIndex: i, Cluster: c}
	}
	if err := replace(ctx, s.db, all, rows); err != nil {
		return fmt.Errorf("save clusters: %w", err)
	}
	return nil
}

// Clusters returns the cluster id of every location.
func (s *Store) Clusters(ctx context.Context) ([]int, error) {
	var rows []Cluster
	if err := s.db.WithContext(ctx).Order("turbine_index").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load clusters: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("clusters: %w", ErrNoResults)
	}
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Cluster
	}
	return out, nil
}

// SaveOptimalLocations replaces the selected locations of one scenario.
func (s *Store) SaveOptimalLocations(ctx context.Context, model string, factor float64, isOptimal []bool) error {
	var rows []OptimalLocation
	for i, ok := range isOptimal {
		if ok {
			rows = append(rows, OptimalLocation{Model: model, DistanceFactor: factor, TurbineIndex: i})
		}
	}
	if err := replace(ctx, s.db, scenario(model, factor), rows); err != nil {
		return fmt.Errorf("save optimal locations %s/%g: %w", model, factor, err)
	}
	return nil
}

// OptimalLocations expands the stored selection of a scenario to n locations.
func (s *Store) OptimalLocations(ctx context.Context, model string, factor float64, n int) ([]bool, error) {
	var rows []OptimalLocation
	if err := scenario(model, factor)(s.db.WithContext(ctx)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load optimal locations %s/%g: %w", model, factor, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("optimal locations %s/%g: %w", model, factor, ErrNoResults)
	}
	out := make([]bool, n)
	for _, r := range rows {
		if r.TurbineIndex < 0 || r.TurbineIndex >= n {
			return nil, fmt.Errorf("optimal location index %d out of range for %d locations", r.TurbineIndex, n)
		}
		out[r.TurbineIndex] = true
	}
	return out, nil
}

// SaveRepowerPotential replaces the curve of one scenario.
func (s *Store) SaveRepowerPotential(ctx context.Context, model string, factor float64, steps []domain.RepowerStep) error {
	rows := make([]RepowerPotential, len(steps))
	for i, st := range steps {
		rows[i] = RepowerPotential{
			Model:           model,
			DistanceFactor:  factor,
			Step:            i,
			NumNewTurbines:  st.NumNewTurbines,
			NumTurbines:     st.NumTurbines,
			PowerGeneration: st.PowerGeneration,
		}
	}
	if err := replace(ctx, s.db, scenario(model, factor), rows); err != nil {
		return fmt.Errorf("save repower potential %s/%g: %w", model, factor, err)
	}
	return nil
}

// RepowerPotentials returns every stored curve step ordered by scenario and
// step.
func (s *Store) RepowerPotentials(ctx context.Context) ([]RepowerPotential, error) {
	var rows []RepowerPotential
	err := s.db.WithContext(ctx).Order("model").Order("distance_factor").Order("step").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load repower potentials: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("repower potentials: %w", ErrNoResults)
	}
	return rows, nil
}

// SavePrevailingWind replaces the prevailing direction of every turbine. NaN
// is stored as NULL.
func (s *Store) SavePrevailingWind(ctx context.Context, directionsRad []float64) error {
	rows := make([]PrevailingWind, len(directionsRad))
	for i, d := range directionsRad {
		rows[i] = PrevailingWind{TurbineIndex: i}
		if !math.IsNaN(d) {
			v := d
			rows[i].DirectionRad = &v
		}
	}
	if err := replace(ctx, s.db, all, rows); err != nil {
		return fmt.Errorf("save prevailing wind: %w", err)
	}
	return nil
}

// PrevailingWind returns directions ordered by turbine index, NaN where no
// wind data existed.
func (s *Store) PrevailingWind(ctx context.Context) ([]float64, error) {
	var rows []PrevailingWind
	if err := s.db.WithContext(ctx).Order("turbine_index").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load prevailing wind: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("prevailing wind: %w", ErrNoResults)
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = math.NaN()
		if r.DirectionRad != nil {
			out[i] = *r.DirectionRad
		}
	}
	return out, nil
}

// SaveWindRose replaces the wind rose. hours holds one value per sector.
func (s *Store) SaveWindRose(ctx context.Context, hours []float64) error {
	rows := make([]WindRoseSector, len(hours))
	for i, h := range hours {
		rows[i] = WindRoseSector{Sector: i, CenterRad: domain.SectorCenter(i), TurbineHours: h}
	}
	if err := replace(ctx, s.db, all, rows); err != nil {
		return fmt.Errorf("save wind rose: %w", err)
	}
	return nil
}

// WindRose returns the sectors in order.
func (s *Store) WindRose(ctx context.Context) ([]WindRoseSector, error) {
	var rows []WindRoseSector
	if err := s.db.WithContext(ctx).Order("sector").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load wind rose: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("wind rose: %w", ErrNoResults)
	}
	return rows, nil
}

// RecordStage stamps the completion of a stage with the domain clock.
func (s *Store) RecordStage(ctx context.Context, stage string, items int) error {
	run := StageRun{Stage: stage, Items: items, FinishedAt: domain.Now()}
	if err := s.db.WithContext(ctx).Save(&run).Error; err != nil {
		return fmt.Errorf("record stage %s: %w", stage, err)
	}
	return nil
}

// StageRuns lists stage completions by name.
func (s *Store) StageRuns(ctx context.Context) ([]StageRun, error) {
	var rows []StageRun
	if err := s.db.WithContext(ctx).Order("stage").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load stage runs: %w", err)
	}
	return rows, nil
}
