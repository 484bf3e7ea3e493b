package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	// Timezone names must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Pairing strategies understood by the discoverer.
const (
	PairingDate     = "date"
	PairingPosition = "position"
)

// AppConfig is passed explicitly to every component at construction.
type AppConfig struct {
	TransportDir  string `yaml:"transport_dir" validate:"required"`
	WeatherDir    string `yaml:"weather_dir" validate:"required"`
	OutputDir     string `yaml:"output_dir" validate:"required"`
	SummaryDir    string `yaml:"summary_dir" validate:"required"`
	FileExtension string `yaml:"file_extension" validate:"required,startswith=."`

	// Pairing selects how transport and weather files are matched up.
	Pairing string `yaml:"pairing" validate:"oneof=date position"`
	// Workers bounds how many file pairs are merged concurrently.
	Workers int `yaml:"workers" validate:"min=1,max=64"`

	// Timezone is used for naive timestamps and for the daily schedule.
	Timezone  string `yaml:"timezone" validate:"required"`
	CollectAt string `yaml:"collect_at" validate:"datetime=15:04"`
	MergeAt   string `yaml:"merge_at" validate:"datetime=15:04"`

	Latitude  float64  `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64  `yaml:"longitude" validate:"gte=-180,lte=180"`
	ATCOCodes []string `yaml:"atco_codes" validate:"dive,required"`

	OpenWeatherAPIKey string `yaml:"openweather_api_key"`
	TransportAppID    string `yaml:"transport_app_id"`
	TransportAppKey   string `yaml:"transport_app_key"`

	HTTPTimeout time.Duration `yaml:"http_timeout" validate:"gt=0"`
	Port        string        `yaml:"port" validate:"required,numeric"`
	Debug       bool          `yaml:"debug"`
}

// Default returns the configuration used when nothing is set.
func Default() *AppConfig {
	return &AppConfig{
		TransportDir:  "data/transport",
		WeatherDir:    "data/weather",
		OutputDir:     "data/merged",
		SummaryDir:    "data/analysis",
		FileExtension: ".csv",
		Pairing:       PairingDate,
		Workers:       1,
		Timezone:      "Europe/London",
		CollectAt:     "15:37",
		MergeAt:       "23:55",
		Latitude:      51.5074,
		Longitude:     -0.1278,
		ATCOCodes:     []string{"0100BRP90310", "0100BRP90312"},
		HTTPTimeout:   10 * time.Second,
		Port:          "8080",
	}
}

// Location resolves the configured timezone.
func (c *AppConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Load reads configuration from an optional .env file, an optional YAML file
// named by CONFIG_FILE and the environment, in increasing precedence.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags and the timezone name.
func Validate(cfg *AppConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return nil
}

func loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	cfg.TransportDir = getenvDefault("TRANSPORT_DIR", cfg.TransportDir)
	cfg.WeatherDir = getenvDefault("WEATHER_DIR", cfg.WeatherDir)
	cfg.OutputDir = getenvDefault("OUTPUT_DIR", cfg.OutputDir)
	cfg.SummaryDir = getenvDefault("SUMMARY_DIR", cfg.SummaryDir)
	cfg.FileExtension = getenvDefault("FILE_EXTENSION", cfg.FileExtension)
	cfg.Pairing = getenvDefault("PAIRING_MODE", cfg.Pairing)
	cfg.Timezone = getenvDefault("DATA_TIMEZONE", cfg.Timezone)
	cfg.CollectAt = getenvDefault("COLLECT_AT", cfg.CollectAt)
	cfg.MergeAt = getenvDefault("MERGE_AT", cfg.MergeAt)
	cfg.OpenWeatherAPIKey = getenvDefault("OPENWEATHER_API_KEY", cfg.OpenWeatherAPIKey)
	cfg.TransportAppID = getenvDefault("TRANSPORT_APP_ID", cfg.TransportAppID)
	cfg.TransportAppKey = getenvDefault("TRANSPORT_APP_KEY", cfg.TransportAppKey)
	cfg.Port = getenvDefault("PORT", cfg.Port)

	if !strings.HasPrefix(cfg.FileExtension, ".") {
		cfg.FileExtension = "." + cfg.FileExtension
	}

	var err error
	if cfg.Workers, err = getenvInt("MERGE_WORKERS", cfg.Workers); err != nil {
		return err
	}
	if cfg.Latitude, err = getenvFloat("WEATHER_LAT", cfg.Latitude); err != nil {
		return err
	}
	if cfg.Longitude, err = getenvFloat("WEATHER_LON", cfg.Longitude); err != nil {
		return err
	}

	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}

	if v := os.Getenv("DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DEBUG: %w", err)
		}
		cfg.Debug = b
	}

	if v := os.Getenv("ATCO_CODES"); v != "" {
		var codes []string
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				codes = append(codes, c)
			}
		}
		cfg.ATCOCodes = codes
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
