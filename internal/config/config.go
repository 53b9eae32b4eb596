// Package config loads service settings from defaults, an optional YAML file
// and the environment, in that order of precedence (environment wins).
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"collection-route-service/internal/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the server and the dbtool.
type Config struct {
	Port        string `yaml:"port"`
	DBDriver    string `yaml:"db_driver"`
	DBPath      string `yaml:"db_path"`
	DatabaseURL string `yaml:"database_url"`
	SeedPath    string `yaml:"seed_path"`

	CacheBackend string `yaml:"cache_backend"`
	RedisURL     string `yaml:"redis_url"`

	OSRM  OSRMConfig         `yaml:"osrm"`
	Depot domain.Coordinates `yaml:"depot"`
	Solve SolveDefaults      `yaml:"solve"`
}

// OSRMConfig configures the routing provider.
type OSRMConfig struct {
	BaseURL            string  `yaml:"base_url"`
	Profile            string  `yaml:"profile"`
	Mode               string  `yaml:"mode"`
	RequestsPerSecond  float64 `yaml:"requests_per_second"`
	MaxPlausibleMeters float64 `yaml:"max_plausible_meters"`
}

// SolveDefaults apply when a solve request leaves a knob at zero.
type SolveDefaults struct {
	BatchSize        int           `yaml:"batch_size"`
	Concurrency      int           `yaml:"concurrency"`
	ProviderTimeout  time.Duration `yaml:"provider_timeout"`
	BatchDelay       time.Duration `yaml:"batch_delay"`
	TimeBudget       time.Duration `yaml:"time_budget"`
	MaxRouteDuration time.Duration `yaml:"max_route_duration"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:         "8080",
		DBDriver:     "sqlite",
		DBPath:       "data/app.db",
		SeedPath:     "data/seeds/stops.json",
		CacheBackend: "sql",
		OSRM: OSRMConfig{
			BaseURL:            "http://router.project-osrm.org",
			Profile:            "driving",
			Mode:               "route",
			RequestsPerSecond:  10,
			MaxPlausibleMeters: 12000,
		},
		Depot: domain.Coordinates{Lat: 48.8566, Lon: 2.3522},
		Solve: SolveDefaults{
			BatchSize:        25,
			Concurrency:      5,
			ProviderTimeout:  5 * time.Second,
			BatchDelay:       time.Second,
			TimeBudget:       30 * time.Second,
			MaxRouteDuration: 8 * time.Hour,
		},
	}
}

// Load reads .env (if present), then CONFIG_FILE (if set), then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("load config: parse %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = Get("PORT", cfg.Port)
	cfg.DBDriver = Get("DB_DRIVER", cfg.DBDriver)
	cfg.DBPath = Get("DB_PATH", cfg.DBPath)
	cfg.DatabaseURL = Get("DATABASE_URL", cfg.DatabaseURL)
	cfg.SeedPath = Get("SEED_PATH", cfg.SeedPath)
	cfg.CacheBackend = Get("CACHE_BACKEND", cfg.CacheBackend)
	cfg.RedisURL = Get("REDIS_URL", cfg.RedisURL)
	cfg.OSRM.BaseURL = Get("OSRM_BASE_URL", cfg.OSRM.BaseURL)
	cfg.OSRM.Profile = Get("OSRM_PROFILE", cfg.OSRM.Profile)
	cfg.OSRM.Mode = Get("OSRM_MODE", cfg.OSRM.Mode)

	var err error
	if cfg.OSRM.RequestsPerSecond, err = GetFloat("OSRM_RPS", cfg.OSRM.RequestsPerSecond); err != nil {
		return err
	}
	if cfg.OSRM.MaxPlausibleMeters, err = GetFloat("MAX_PLAUSIBLE_METERS", cfg.OSRM.MaxPlausibleMeters); err != nil {
		return err
	}
	if cfg.Depot.Lat, err = GetFloat("DEPOT_LAT", cfg.Depot.Lat); err != nil {
		return err
	}
	if cfg.Depot.Lon, err = GetFloat("DEPOT_LON", cfg.Depot.Lon); err != nil {
		return err
	}
	if cfg.Solve.BatchSize, err = GetInt("BATCH_SIZE", cfg.Solve.BatchSize); err != nil {
		return err
	}
	if cfg.Solve.Concurrency, err = GetInt("FETCH_CONCURRENCY", cfg.Solve.Concurrency); err != nil {
		return err
	}
	if cfg.Solve.ProviderTimeout, err = GetDuration("PROVIDER_TIMEOUT", cfg.Solve.ProviderTimeout); err != nil {
		return err
	}
	if cfg.Solve.BatchDelay, err = GetDuration("BATCH_DELAY", cfg.Solve.BatchDelay); err != nil {
		return err
	}
	if cfg.Solve.TimeBudget, err = GetDuration("TIME_BUDGET", cfg.Solve.TimeBudget); err != nil {
		return err
	}
	if cfg.Solve.MaxRouteDuration, err = GetDuration("MAX_ROUTE_DURATION", cfg.Solve.MaxRouteDuration); err != nil {
		return err
	}

	return nil
}

// DSN returns the connection string for the configured driver.
func (c Config) DSN() (string, error) {
	switch c.DBDriver {
	case "sqlite":
		return c.DBPath, nil
	case "pgx":
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return "", fmt.Errorf("config: DATABASE_URL is required for driver %q", c.DBDriver)
		}
		return c.DatabaseURL, nil
	default:
		return "", fmt.Errorf("config: unsupported DB_DRIVER %q (want sqlite or pgx)", c.DBDriver)
	}
}

// Get returns the environment value for key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) (int, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config %s: parse int %q: %w", key, v, err)
	}
	return n, nil
}

func GetFloat(key string, fallback float64) (float64, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config %s: parse float %q: %w", key, v, err)
	}
	return f, nil
}

func GetDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config %s: parse duration %q: %w", key, v, err)
	}
	return d, nil
}
