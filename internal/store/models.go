package store

import "time"

// MinDistance is the distance from a turbine to its closest neighbour. A nil
// distance means the turbine has no neighbour.
type MinDistance struct {
	TurbineIndex int `gorm:"primaryKey;autoIncrement:false"`
	CaseID       int64
	DistanceKM   *float64
}

// SimulatedEnergy is the simulated generation of the existing fleet in one
// month.
type SimulatedEnergy struct {
	Month string `gorm:"primaryKey"` // YYYY-MM
	GWh   float64
}

// TableName keeps the table name singular.
func (SimulatedEnergy) TableName() string { return "simulated_energy" }

// EnergyPerLocation is the mean power of a model placed at a turbine location.
type EnergyPerLocation struct {
	Model        string `gorm:"primaryKey"`
	TurbineIndex int    `gorm:"primaryKey;autoIncrement:false"`
	MeanPowerKW  float64
}

// Cluster assigns a turbine location to a cluster.
type Cluster struct {
	TurbineIndex int `gorm:"primaryKey;autoIncrement:false"`
	Cluster      int `gorm:"index"`
}

// OptimalLocation marks a location selected for a new turbine.
type OptimalLocation struct {
	Model          string  `gorm:"primaryKey"`
	DistanceFactor float64 `gorm:"primaryKey"`
	TurbineIndex   int     `gorm:"primaryKey;autoIncrement:false"`
}

// RepowerPotential is one step of a repowering curve.
type RepowerPotential struct {
	Model           string  `gorm:"primaryKey"`
	DistanceFactor  float64 `gorm:"primaryKey"`
	Step            int     `gorm:"primaryKey;autoIncrement:false"`
	NumNewTurbines  int
	NumTurbines     int
	PowerGeneration float64 // GWh per year
}

// PrevailingWind is the most frequent 100 m wind direction at a turbine in
// radians, counter-clockwise from east. A nil direction means no wind data.
type PrevailingWind struct {
	TurbineIndex int `gorm:"primaryKey;autoIncrement:false"`
	DirectionRad *float64
}

// TableName keeps the table name singular.
func (PrevailingWind) TableName() string { return "prevailing_wind" }

// WindRoseSector is the number of turbine hours whose wind pointed into one
// direction sector, summed over all turbines.
type WindRoseSector struct {
	Sector       int `gorm:"primaryKey;autoIncrement:false"`
	CenterRad    float64
	TurbineHours float64
}

// StageRun records the last completion of a calculation stage.
type StageRun struct {
	Stage      string `gorm:"primaryKey"`
	Items      int
	FinishedAt time.Time
}

func allModels() []any {
	return []any{
		&MinDistance{},
		&SimulatedEnergy{},
		&EnergyPerLocation{},
		&Cluster{},
		&OptimalLocation{},
		&RepowerPotential{},
		&PrevailingWind{},
		&WindRoseSector{},
		&StageRun{},
	}
}
