package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-page/internal/assets"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// DefaultProductionBasePath is used in production when BASE_PATH is unset.
	DefaultProductionBasePath = "/wx"
)

var validate = validator.New()

// Config is built once at startup and passed by value afterwards.
type Config struct {
	Env string `validate:"oneof=development production"`

	// BasePath prefixes every route and asset URL. Empty in development.
	BasePath string `validate:"omitempty,startswith=/,endsnotwith=/"`

	OpenWeatherBaseURL string `validate:"required,url"`
	OpenWeatherAPIKey  string

	// Fixed location the page reports on.
	Latitude     float64 `validate:"latitude"`
	Longitude    float64 `validate:"longitude"`
	Units        string  `validate:"oneof=metric imperial standard"`
	LocationName string  `validate:"required"`

	// IconURLTemplate builds condition icon URLs; {icon} is replaced by the code.
	IconURLTemplate string `validate:"required"`

	RefreshInterval time.Duration `validate:"gte=1m"`
	HTTPTimeout     time.Duration `validate:"gt=0"`

	// Outbound limiter.
	UpstreamRPS   float64 `validate:"gt=0"`
	UpstreamBurst int     `validate:"gte=1"`

	// In-memory history retention.
	StoreMaxHistory int           `validate:"gte=0"` // 0 = unlimited
	StoreMaxAge     time.Duration `validate:"gte=0"` // 0 = unlimited

	Port string `validate:"required"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	env := envReader{getenv: getenv}
	cfg := Config{}

	cfg.Env = env.str("APP_ENV", EnvDevelopment)
	cfg.BasePath = getenv("BASE_PATH")
	if cfg.Env == EnvProduction && cfg.BasePath == "" {
		cfg.BasePath = DefaultProductionBasePath
	}

	cfg.OpenWeatherBaseURL = env.str("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5")
	cfg.OpenWeatherAPIKey = getenv("OPENWEATHER_API_KEY")

	cfg.Latitude = env.float("WEATHER_LAT", 24.7135517)
	cfg.Longitude = env.float("WEATHER_LON", 46.6752957)
	cfg.Units = env.str("WEATHER_UNITS", "metric")
	cfg.LocationName = env.str("WEATHER_LOCATION_NAME", "Riyadh, Saudi Arabia")
	cfg.IconURLTemplate = env.str("WEATHER_ICON_URL", "https://openweathermap.org/img/wn/{icon}@2x.png")

	cfg.RefreshInterval = env.duration("REFRESH_INTERVAL", 15*time.Minute)
	cfg.HTTPTimeout = env.duration("HTTP_TIMEOUT", 10*time.Second)

	cfg.UpstreamRPS = env.float("UPSTREAM_RPS", 1)
	cfg.UpstreamBurst = env.int("UPSTREAM_BURST", 2)

	cfg.StoreMaxHistory = env.int("STORE_MAX_HISTORY", 96) // roughly 24h at 15-minute intervals
	cfg.StoreMaxAge = env.duration("STORE_MAX_AGE", 24*time.Hour)

	cfg.Port = env.str("PORT", "8080")

	if env.err != nil {
		return Config{}, env.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints. Callers that override fields after
// Load (command-line flags) must validate again.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Resolver returns the asset resolver bound to the configured base path.
func (c Config) Resolver() assets.Resolver {
	return assets.NewResolver(c.BasePath)
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// envReader keeps the first parse error so Load can report it once.
type envReader struct {
	getenv func(string) string
	err    error
}

func (r *envReader) str(key, def string) string {
	if v := r.getenv(key); v != "" {
		return v
	}
	return def
}

func (r *envReader) int(key string, def int) int {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return n
}

func (r *envReader) float(key string, def float64) float64 {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return f
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return d
}

func (r *envReader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
