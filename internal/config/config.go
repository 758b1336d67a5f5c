package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// TurbinesFileName is the USWTDB release the pipeline is calibrated on.
const TurbinesFileName = "uswtdb_v1_3_20190107.csv"

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	WorkDir    string `validate:"required"`
	DataDir    string `validate:"required"`
	FiguresDir string `validate:"required"`
	LogLevel   string `validate:"oneof=debug info warn error"`
	LogFormat  string `validate:"oneof=json text"`

	HTTPAddr        string
	ShutdownTimeout time.Duration
	MetricsTextfile string

	// USWTDB download.
	TurbinesURL string        `validate:"required,url"`
	HTTPTimeout time.Duration `validate:"gt=0"`

	// ERA5 download via the Copernicus Climate Data Store.
	CDSURL           string
	CDSKey           string
	CDSRCPath        string
	CDSPollInterval  time.Duration `validate:"gt=0"`
	CDSStallTimeout  time.Duration `validate:"gt=0"`
	DownloadAttempts int           `validate:"min=1,max=20"`
	Years            []int         `validate:"required,dive,min=1940,max=2100"`
	Months           []int         `validate:"required,dive,min=1,max=12"`

	// Turbine spacing in rotor diameters. AlongWindRatio stretches the
	// spacing in the prevailing wind direction.
	DistanceFactors []float64 `validate:"required,dive,gte=0"`
	AlongWindRatio  float64   `validate:"gte=1,lte=10"`

	// Monthly generated wind energy for comparison with the simulation.
	// Empty means the default location under DataDir.
	GeneratedEnergyPath string

	// External tools.
	Python        string `validate:"required"`
	NotebookGlob  string `validate:"required"`
	CleanDirs     []string
	SlidesDir     string
	SlidesCommand []string `validate:"required"`
	LintCommand   []string `validate:"required"`

	// Run event publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	ScheduleInterval time.Duration `validate:"gt=0"`
}

// TurbinesFile is the destination of the USWTDB download.
func (c *Config) TurbinesFile() string {
	return filepath.Join(c.DataDir, "external", "wind_turbines_usa", TurbinesFileName)
}

// GeneratedEnergyFile is the monthly net generation series (month, GWh).
func (c *Config) GeneratedEnergyFile() string {
	if c.GeneratedEnergyPath != "" {
		return c.GeneratedEnergyPath
	}
	return filepath.Join(c.DataDir, "external", "energy_generation", "generated_energy_usa.csv")
}

// ScenarioFactors returns the configured distance factors plus the factor 0
// baseline, ascending and without duplicates. Factor 0 places a new turbine at
// every existing location.
func (c *Config) ScenarioFactors() []float64 {
	factors := append([]float64{0}, c.DistanceFactors...)
	slices.Sort(factors)
	return slices.Compact(factors)
}

// ERA5Dir holds the monthly ERA5 downloads.
func (c *Config) ERA5Dir() string {
	return filepath.Join(c.DataDir, "external", "wind_velocity_usa_era5")
}

// InterimDir holds intermediate netCDF files.
func (c *Config) InterimDir() string {
	return filepath.Join(c.DataDir, "interim")
}

// OutputDir holds the result database.
func (c *Config) OutputDir() string {
	return filepath.Join(c.DataDir, "output")
}

// DBPath is the SQLite result store.
func (c *Config) DBPath() string {
	return filepath.Join(c.OutputDir(), "repower.db")
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	workDir := os.Getenv("WORK_DIR")
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
	}

	cfg := &Config{
		WorkDir:         workDir,
		DataDir:         sharedcfg.EnvOrDefault("DATA_DIR", filepath.Join(workDir, "data")),
		FiguresDir:      sharedcfg.EnvOrDefault("FIGURES_DIR", filepath.Join(workDir, "figures")),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		ShutdownTimeout: shutdownTimeout,
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),

		GeneratedEnergyPath: os.Getenv("GENERATED_ENERGY_FILE"),

		TurbinesURL: sharedcfg.EnvOrDefault("TURBINES_URL",
			"https://www.sciencebase.gov/catalog/file/get/57bdfd8fe4b03fd6b7df5ff9?name="+TurbinesFileName),

		CDSURL:    os.Getenv("CDSAPI_URL"),
		CDSKey:    os.Getenv("CDSAPI_KEY"),
		CDSRCPath: sharedcfg.EnvOrDefault("CDSAPI_RC", defaultCDSRCPath()),

		Python:        sharedcfg.EnvOrDefault("PYTHON", "python"),
		NotebookGlob:  sharedcfg.EnvOrDefault("NOTEBOOK_GLOB", "notebooks/*.ipynb"),
		CleanDirs:     parseList(sharedcfg.EnvOrDefault("CLEAN_DIRS", ".pytest_cache,__pycache__")),
		SlidesDir:     sharedcfg.EnvOrDefault("SLIDES_DIR", filepath.Join(workDir, "slides")),
		SlidesCommand: strings.Fields(sharedcfg.EnvOrDefault("SLIDES_COMMAND", "latexmk -pdf slides.tex")),
		LintCommand:   strings.Fields(sharedcfg.EnvOrDefault("LINT_COMMAND", "flake8")),

		KafkaBrokers: parseList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "repower-run-events"),
	}

	durations := []struct {
		env  string
		def  string
		dest *time.Duration
	}{
		{"HTTP_TIMEOUT", "5m", &cfg.HTTPTimeout},
		{"CDSAPI_POLL_INTERVAL", "10s", &cfg.CDSPollInterval},
		{"CDSAPI_STALL_TIMEOUT", "20s", &cfg.CDSStallTimeout},
		{"SCHEDULE_INTERVAL", "24h", &cfg.ScheduleInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(sharedcfg.EnvOrDefault(d.env, d.def))
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid %s", d.env)
		}
		*d.dest = v
	}

	if cfg.DownloadAttempts, err = strconv.Atoi(sharedcfg.EnvOrDefault("DOWNLOAD_ATTEMPTS", "5")); err != nil {
		return nil, errors.New("invalid DOWNLOAD_ATTEMPTS")
	}
	if cfg.Years, err = ParseIntRange(sharedcfg.EnvOrDefault("YEARS", "2000-2018")); err != nil {
		return nil, fmt.Errorf("invalid YEARS: %w", err)
	}
	if cfg.Months, err = ParseIntRange(sharedcfg.EnvOrDefault("MONTHS", "1-12")); err != nil {
		return nil, fmt.Errorf("invalid MONTHS: %w", err)
	}
	if cfg.DistanceFactors, err = parseFloats(sharedcfg.EnvOrDefault("DISTANCE_FACTORS", "2,3,4,6")); err != nil {
		return nil, fmt.Errorf("invalid DISTANCE_FACTORS: %w", err)
	}
	if cfg.AlongWindRatio, err = strconv.ParseFloat(sharedcfg.EnvOrDefault("ALONG_WIND_RATIO", "1.5"), 64); err != nil {
		return nil, errors.New("invalid ALONG_WIND_RATIO")
	}

	cfg.KafkaEnabled = len(cfg.KafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		cfg.KafkaEnabled = v == "true"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if (cfg.CDSURL == "") != (cfg.CDSKey == "") {
		return nil, errors.New("CDSAPI_URL and CDSAPI_KEY must be set together")
	}

	return cfg, nil
}

// envNames maps struct fields to the variables they are read from, so
// validation errors point at something the user can change.
var envNames = map[string]string{
	"WorkDir":          "WORK_DIR",
	"DataDir":          "DATA_DIR",
	"FiguresDir":       "FIGURES_DIR",
	"LogLevel":         "LOG_LEVEL",
	"LogFormat":        "LOG_FORMAT",
	"TurbinesURL":      "TURBINES_URL",
	"HTTPTimeout":      "HTTP_TIMEOUT",
	"CDSPollInterval":  "CDSAPI_POLL_INTERVAL",
	"CDSStallTimeout":  "CDSAPI_STALL_TIMEOUT",
	"DownloadAttempts": "DOWNLOAD_ATTEMPTS",
	"Years":            "YEARS",
	"Months":           "MONTHS",
	"DistanceFactors":  "DISTANCE_FACTORS",
	"AlongWindRatio":   "ALONG_WIND_RATIO",
	"Python":           "PYTHON",
	"NotebookGlob":     "NOTEBOOK_GLOB",
	"SlidesCommand":    "SLIDES_COMMAND",
	"LintCommand":      "LINT_COMMAND",
	"ScheduleInterval": "SCHEDULE_INTERVAL",
}

func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	field := verrs[0].StructField()
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	if name, ok := envNames[field]; ok {
		return fmt.Errorf("invalid %s: failed %q check", name, verrs[0].Tag())
	}
	return fmt.Errorf("invalid %s: failed %q check", field, verrs[0].Tag())
}

func defaultCDSRCPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cdsapirc"
	}
	return filepath.Join(home, ".cdsapirc")
}

// ParseIntRange parses comma separated integers and inclusive ranges, e.g.
// "2000-2003,2010".
func ParseIntRange(s string) ([]int, error) {
	var out []int
	for _, part := range parseList(s) {
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("parse %q: %w", part, err)
			}
		}
		if end < start {
			return nil, fmt.Errorf("empty range %q", part)
		}
		for v := start; v <= end; v++ {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no values")
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, part := range parseList(s) {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
