// Package config resolves foodtracker settings from defaults, an optional
// YAML file, a .env file and FOODTRACKER_* environment variables, in that
// order. Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/unowned-ai/foodtracker/pkg/openfoodfacts"
)

// EnvPrefix starts every environment variable the loader reads.
const EnvPrefix = "FOODTRACKER_"

const (
	DefaultSync      = "FULL"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
	DefaultDotEnv    = ".env"
)

type Config struct {
	// DBPath is the SQLite file. Empty means the platform default location.
	DBPath string `yaml:"db_path"`
	WAL    bool   `yaml:"wal"`
	Sync   string `yaml:"sync" validate:"oneof=OFF NORMAL FULL EXTRA"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=console json"`

	BaseURL           string `yaml:"off_base_url" validate:"required,url"`
	SearchALiciousURL string `yaml:"search_a_licious_url" validate:"required,url"`
	// Contact goes into the User-Agent so Open Food Facts can reach the operator.
	Contact string `yaml:"contact" validate:"omitempty,email"`
	// LookupTimeout bounds each Open Food Facts request. Zero waits forever.
	LookupTimeout time.Duration `yaml:"lookup_timeout" validate:"gte=0"`
	PageSize      int           `yaml:"page_size" validate:"gte=1,lte=100"`
}

func Default() Config {
	return Config{
		Sync:              DefaultSync,
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,
		BaseURL:           openfoodfacts.DefaultBaseURL,
		SearchALiciousURL: openfoodfacts.DefaultSearchALiciousURL,
		PageSize:          openfoodfacts.DefaultPageSize,
	}
}

// Load builds a Config. configFile is optional but must exist when given.
// dotEnvFile is read when present; its values never override variables
// already set in the process environment.
func Load(configFile, dotEnvFile string) (Config, error) {
	cfg := Default()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file '%s': %w", configFile, err)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file '%s': %w", configFile, err)
		}
	}

	dotEnv := map[string]string{}
	if dotEnvFile != "" {
		values, err := godotenv.Read(dotEnvFile)
		switch {
		case err == nil:
			dotEnv = values
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("failed to read env file '%s': %w", dotEnvFile, err)
		}
	}

	lookup := func(name string) (string, bool) {
		key := EnvPrefix + name
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotEnv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}

	cfg.Sync = strings.ToUpper(cfg.Sync)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DB_PATH":              &c.DBPath,
		"SYNC":                 &c.Sync,
		"LOG_LEVEL":            &c.LogLevel,
		"LOG_FORMAT":           &c.LogFormat,
		"OFF_BASE_URL":         &c.BaseURL,
		"SEARCH_A_LICIOUS_URL": &c.SearchALiciousURL,
		"CONTACT":              &c.Contact,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup("WAL"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %sWAL value %q: %w", EnvPrefix, v, err)
		}
		c.WAL = b
	}
	if v, ok := lookup("LOOKUP_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %sLOOKUP_TIMEOUT value %q: %w", EnvPrefix, v, err)
		}
		c.LookupTimeout = d
	}
	if v, ok := lookup("PAGE_SIZE"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %sPAGE_SIZE value %q: %w", EnvPrefix, v, err)
		}
		c.PageSize = n
	}
	return nil
}

var validate = validator.New()

// Validate checks every field and reports all violations at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// ClientOptions configures an Open Food Facts client from c. version goes
// into the User-Agent.
func (c Config) ClientOptions(version string, log *zap.SugaredLogger) []openfoodfacts.Option {
	return []openfoodfacts.Option{
		openfoodfacts.WithBaseURL(c.BaseURL),
		openfoodfacts.WithSearchALiciousURL(c.SearchALiciousURL),
		openfoodfacts.WithUserAgent(openfoodfacts.DefaultAppName, version, c.Contact),
		openfoodfacts.WithHTTPClient(&http.Client{Timeout: c.LookupTimeout}),
		openfoodfacts.WithLogger(log),
	}
}
