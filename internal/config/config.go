package config

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"monthweather/internal/models"
)

// maxForecastDays is the longest horizon the Open-Meteo forecast API serves
const maxForecastDays = 16

type Location struct {
	Name      string  `yaml:"name" json:"name"`
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
}

var (
	instance *Config
	once     sync.Once
)

// Config is the parsed config.yaml
type Config struct {
	Location Location `yaml:"location"`
	Weather  struct {
		DailyFields  []string `yaml:"daily_fields"`
		ForecastDays int      `yaml:"forecast_days"`
		Timezone     string   `yaml:"timezone"`
	} `yaml:"weather"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
}

// Load reads configPath once; later calls return the first result. A .env
// file next to the binary is loaded into the environment first if present.
func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		if envErr := godotenv.Load(); envErr != nil && !os.IsNotExist(envErr) {
			log.Printf("Warning: could not load .env: %v", envErr)
		}

		instance = &Config{}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file %s: %w", configPath, readErr)
			return
		}

		if parseErr := yaml.Unmarshal(data, instance); parseErr != nil {
			err = fmt.Errorf("failed to parse config: %w", parseErr)
			return
		}

		instance.applyDefaults()

		if validateErr := instance.validate(); validateErr != nil {
			err = validateErr
			return
		}
	})

	return instance, err
}

func Get() *Config {
	if instance == nil {
		panic("config not loaded - call config.Load() first")
	}
	return instance
}

// Period returns the window covered by a report generated on today: the
// first of today's month through today, plus the configured forecast days.
func (c *Config) Period(today time.Time) models.Period {
	y, m, d := today.Date()
	return models.Period{
		Start:        time.Date(y, m, 1, 0, 0, 0, 0, time.UTC),
		End:          time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		ForecastDays: c.Weather.ForecastDays,
	}
}

func (c *Config) applyDefaults() {
	if len(c.Weather.DailyFields) == 0 {
		c.Weather.DailyFields = append([]string(nil), models.DailyFields...)
	}
	if c.Weather.ForecastDays == 0 {
		c.Weather.ForecastDays = 7
	}
	if c.Weather.Timezone == "" {
		c.Weather.Timezone = "auto"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	}
}

func (c *Config) validate() error {
	if c.Location.Name == "" {
		return fmt.Errorf("location.name cannot be empty")
	}
	if c.Location.Latitude < -90 || c.Location.Latitude > 90 {
		return fmt.Errorf("location.latitude must be between -90 and 90")
	}
	if c.Location.Longitude < -180 || c.Location.Longitude > 180 {
		return fmt.Errorf("location.longitude must be between -180 and 180")
	}
	if len(c.Weather.DailyFields) == 0 {
		return fmt.Errorf("weather.daily_fields cannot be empty")
	}
	if c.Weather.ForecastDays < 0 || c.Weather.ForecastDays > maxForecastDays {
		return fmt.Errorf("weather.forecast_days must be between 0 and %d", maxForecastDays)
	}
	return nil
}
