package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"restaurant-collector/utils"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL" validate:"required_unless=DryRun true"`
	KCISAKey    string `env:"KCISA_API_KEY" validate:"required"`
	SerpAPIKey  string `env:"SERPAPI_KEY"`

	KCISAURL   string `env:"KCISA_API_URL" validate:"omitempty,url"`
	SerpAPIURL string `env:"SERPAPI_URL" validate:"omitempty,url"`
	Area       string `env:"KCISA_AREA" validate:"required"`

	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT_SEC"`
	MaxRetries       int           `env:"MAX_RETRIES" validate:"gte=1"`
	KCISAMinInterval time.Duration `env:"KCISA_MIN_INTERVAL_MS"`
	KCISAMaxCalls    int           `env:"KCISA_MAX_CALLS" validate:"gte=0"`
	SerpMinInterval  time.Duration `env:"SERP_MIN_INTERVAL_MS"`

	SearchCacheDir  string        `env:"SEARCH_CACHE_DIR"`
	SearchCacheTTL  time.Duration `env:"SEARCH_CACHE_TTL_HOURS"`
	CSVOutputPath   string        `env:"CSV_OUTPUT_PATH"`
	MetricsTextfile string        `env:"METRICS_TEXTFILE"`

	LogLevel  string `env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" validate:"omitempty,oneof=console json"`

	// DryRun mirrors the --dry-run flag so the store requirement can be waived.
	DryRun bool
}

// Load reads the .env file (if any) and returns a populated Config struct.
// A missing .env file is not an error; the process environment is used.
func Load(logger *utils.Logger) *Config {
	if err := godotenv.Load(); err != nil && logger != nil {
		logger.Debug("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		KCISAKey:    getEnv("KCISA_API_KEY", ""),
		SerpAPIKey:  getEnv("SERPAPI_KEY", ""),

		KCISAURL:   getEnv("KCISA_API_URL", ""),
		SerpAPIURL: getEnv("SERPAPI_URL", ""),
		Area:       getEnv("KCISA_AREA", "서울"),

		HTTPTimeout:      time.Duration(getEnvInt("HTTP_TIMEOUT_SEC", 30)) * time.Second,
		MaxRetries:       getEnvInt("MAX_RETRIES", 3),
		KCISAMinInterval: time.Duration(getEnvInt("KCISA_MIN_INTERVAL_MS", 150)) * time.Millisecond,
		KCISAMaxCalls:    getEnvInt("KCISA_MAX_CALLS", 1000),
		SerpMinInterval:  time.Duration(getEnvInt("SERP_MIN_INTERVAL_MS", 1200)) * time.Millisecond,

		SearchCacheDir:  getEnv("SEARCH_CACHE_DIR", ""),
		SearchCacheTTL:  time.Duration(getEnvInt("SEARCH_CACHE_TTL_HOURS", 168)) * time.Hour,
		CSVOutputPath:   getEnv("CSV_OUTPUT_PATH", ""),
		MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "console")),
	}
}

// HasSearchKey reports whether the places-search key is configured.
func (c *Config) HasSearchKey() bool {
	return c.SerpAPIKey != ""
}

// ConfigurationError is the only error that aborts a run.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + strings.Join(e.Problems, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their environment variable.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Validate checks the pre-flight requirements and returns a
// *ConfigurationError describing every problem found.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ConfigurationError{Problems: []string{err.Error()}}
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}
	return &ConfigurationError{Problems: problems}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_unless":
		return fmt.Sprintf("%s is required", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
