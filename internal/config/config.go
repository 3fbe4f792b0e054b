package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	// Soil acquisition (SoilGrids).
	SoilGridsBaseURL string
	SoilMaxAttempts  int
	SoilRetryWait    time.Duration
	SoilTimeout      time.Duration

	// Weather acquisition (NASA POWER).
	PowerBaseURL   string
	WeatherStart   string // inclusive, YYYY-MM-DD
	WeatherEnd     string // inclusive, YYYY-MM-DD
	WeatherWorkers int
	WeatherTimeout time.Duration

	// Reconciliation and join.
	MatchTolerance  float64 // degrees, per axis
	JoinMaxDistance float64 // degrees; 0 disables the cutoff

	// Observability.
	HTTPAddr       string
	MetricsEnabled bool
	LogLevel       string
	LogFormat      string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	soilMaxAttempts, err := envInt("SOIL_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	soilRetryWait, err := envDuration("SOIL_RETRY_WAIT", 2*time.Second)
	if err != nil {
		return nil, err
	}
	soilTimeout, err := envDuration("SOIL_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	weatherWorkers, err := envInt("WEATHER_WORKERS", 15)
	if err != nil {
		return nil, err
	}
	weatherTimeout, err := envDuration("WEATHER_TIMEOUT", 40*time.Second)
	if err != nil {
		return nil, err
	}
	matchTolerance, err := envFloat("MATCH_TOLERANCE", 1e-3)
	if err != nil {
		return nil, err
	}
	joinMaxDistance, err := envFloat("JOIN_MAX_DISTANCE", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SoilGridsBaseURL: envOrDefault("SOILGRIDS_BASE_URL", "https://rest.isric.org/soilgrids/v2.0/properties/query"),
		SoilMaxAttempts:  soilMaxAttempts,
		SoilRetryWait:    soilRetryWait,
		SoilTimeout:      soilTimeout,

		PowerBaseURL:   envOrDefault("POWER_BASE_URL", "https://power.larc.nasa.gov/api/temporal/daily/point"),
		WeatherStart:   envOrDefault("WEATHER_START", "2020-01-01"),
		WeatherEnd:     envOrDefault("WEATHER_END", "2020-12-31"),
		WeatherWorkers: weatherWorkers,
		WeatherTimeout: weatherTimeout,

		MatchTolerance:  matchTolerance,
		JoinMaxDistance: joinMaxDistance,

		HTTPAddr:       envOrDefault("HTTP_ADDR", ":8080"),
		MetricsEnabled: os.Getenv("METRICS_ENABLED") == "true",
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		LogFormat:      envOrDefault("LOG_FORMAT", "json"),
	}

	if cfg.SoilMaxAttempts < 1 {
		return nil, fmt.Errorf("SOIL_MAX_ATTEMPTS must be at least 1, got %d", cfg.SoilMaxAttempts)
	}
	if cfg.WeatherWorkers < 1 {
		return nil, fmt.Errorf("WEATHER_WORKERS must be at least 1, got %d", cfg.WeatherWorkers)
	}
	if cfg.MatchTolerance <= 0 {
		return nil, fmt.Errorf("MATCH_TOLERANCE must be positive, got %g", cfg.MatchTolerance)
	}
	if cfg.JoinMaxDistance < 0 {
		return nil, fmt.Errorf("JOIN_MAX_DISTANCE must not be negative, got %g", cfg.JoinMaxDistance)
	}
	for _, key := range []string{"WEATHER_START", "WEATHER_END"} {
		v := cfg.WeatherStart
		if key == "WEATHER_END" {
			v = cfg.WeatherEnd
		}
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return nil, fmt.Errorf("%s must be YYYY-MM-DD, got %q", key, v)
		}
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}
