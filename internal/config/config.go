package config

import (
    "errors"
    "fmt"
    "io/fs"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/joho/godotenv"
    "github.com/rusq/osenv/v2"
    "gopkg.in/yaml.v3"
)

// Environment variables
const (
    EnvAPIURL       = "LIGHTDASH_API_URL"
    EnvAPIKey       = "LIGHTDASH_API_KEY"
    EnvTimeout      = "LIGHTDASH_TIMEOUT"
    EnvQueryTimeout = "LIGHTDASH_QUERY_TIMEOUT"
    EnvRateLimit    = "LIGHTDASH_RATE_LIMIT"
    EnvAuthToken    = "AUTH_TOKEN"
    EnvLogLevel     = "LOG_LEVEL"
)

// Config represents the application configuration
type Config struct {
    Lightdash LightdashConfig `yaml:"lightdash"`
    Server    ServerConfig    `yaml:"server"`
}

// LightdashConfig represents the upstream connection. The API key is never
// read from a file. Field order is the order validation problems are reported.
type LightdashConfig struct {
    APIKey       string        `yaml:"-" validate:"required"`
    APIURL       string        `yaml:"api_url" validate:"required,url"`
    Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
    QueryTimeout time.Duration `yaml:"query_timeout" validate:"gt=0"`
    RateLimit    float64       `yaml:"rate_limit" validate:"gte=0"` // requests per second, 0 = unlimited
}

// ServerConfig represents the MCP side of the process
type ServerConfig struct {
    Transport string `yaml:"transport" validate:"oneof=stdio sse http"`
    Listen    string `yaml:"listen"`
    Port      int    `yaml:"port" validate:"min=0,max=65535"`
    Addr      string `yaml:"addr"`
    PublicURL string `yaml:"public_url" validate:"omitempty,url"`
    AuthToken string `yaml:"-"`
    LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn warning error none off silent"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
    return &Config{
        Lightdash: LightdashConfig{
            Timeout:      30 * time.Second,
            QueryTimeout: 60 * time.Second,
        },
        Server: ServerConfig{
            Transport: "stdio",
            Listen:    "0.0.0.0",
            Port:      8080,
            LogLevel:  "info",
        },
    }
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
    cfg := DefaultConfig()
    if path == "" {
        return cfg, nil
    }

    data, err := os.ReadFile(path)
    if err != nil {
        return nil, fmt.Errorf("read config: %w", err)
    }
    if err := yaml.Unmarshal(data, cfg); err != nil {
        return nil, fmt.Errorf("parse config %s: %w", path, err)
    }
    return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are
// given) into the environment. Variables already set win. Missing files are
// not an error.
func LoadDotEnv(files ...string) error {
    if len(files) == 0 {
        files = []string{".env"}
    }
    for _, f := range files {
        if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
            return fmt.Errorf("load %s: %w", f, err)
        }
    }
    return nil
}

// ApplyEnv overrides cfg with any environment variables that are set. Secrets
// are removed from the environment once read.
func (c *Config) ApplyEnv() error {
    c.Lightdash.APIURL = osenv.Value(EnvAPIURL, c.Lightdash.APIURL)
    c.Lightdash.APIKey = osenv.Secret(EnvAPIKey, c.Lightdash.APIKey)
    c.Server.AuthToken = osenv.Secret(EnvAuthToken, c.Server.AuthToken)
    c.Server.LogLevel = osenv.Value(EnvLogLevel, c.Server.LogLevel)

    var err error
    if c.Lightdash.Timeout, err = durationEnv(EnvTimeout, c.Lightdash.Timeout); err != nil {
        return err
    }
    if c.Lightdash.QueryTimeout, err = durationEnv(EnvQueryTimeout, c.Lightdash.QueryTimeout); err != nil {
        return err
    }
    if raw := strings.TrimSpace(osenv.Value(EnvRateLimit, "")); raw != "" {
        if c.Lightdash.RateLimit, err = strconv.ParseFloat(raw, 64); err != nil {
            return fmt.Errorf("%s: invalid number %q", EnvRateLimit, raw)
        }
    }
    return nil
}

// durationEnv accepts Go durations ("45s") and bare seconds ("45").
func durationEnv(name string, def time.Duration) (time.Duration, error) {
    raw := strings.TrimSpace(osenv.Value(name, ""))
    if raw == "" {
        return def, nil
    }
    if d, err := time.ParseDuration(raw); err == nil {
        return d, nil
    }
    if d, err := time.ParseDuration(raw + "s"); err == nil {
        return d, nil
    }
    return 0, fmt.Errorf("%s: invalid duration %q", name, raw)
}

/* ------------------------------------------------------------------ */
/*                            validation                              */
/* ------------------------------------------------------------------ */

// settingNames maps struct fields to the name an operator would set.
var settingNames = map[string]string{
    "Config.Lightdash.APIKey":       EnvAPIKey,
    "Config.Lightdash.APIURL":       EnvAPIURL,
    "Config.Lightdash.Timeout":      EnvTimeout,
    "Config.Lightdash.QueryTimeout": EnvQueryTimeout,
    "Config.Lightdash.RateLimit":    EnvRateLimit,
    "Config.Server.Transport":       "transport",
    "Config.Server.Port":            "port",
    "Config.Server.PublicURL":       "public-url",
    "Config.Server.LogLevel":        EnvLogLevel,
}

// ValidationError lists every setting that failed validation, one problem
// per entry.
type ValidationError struct {
    Problems []string
}

func (e *ValidationError) Error() string {
    return strings.Join(e.Problems, "; ")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration and reports all problems at once.
func (c *Config) Validate() error {
    err := validate.Struct(c)
    if err == nil {
        return nil
    }

    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return err
    }

    ve := &ValidationError{}
    for _, fe := range verrs {
        name, ok := settingNames[fe.StructNamespace()]
        if !ok {
            name = fe.StructNamespace()
        }
        switch fe.Tag() {
        case "required":
            ve.Problems = append(ve.Problems, name+" is not set")
        case "oneof":
            ve.Problems = append(ve.Problems, fmt.Sprintf("%s must be one of [%s], got %q", name, fe.Param(), fe.Value()))
        default:
            ve.Problems = append(ve.Problems, fmt.Sprintf("%s is invalid (%s)", name, fe.Tag()))
        }
    }
    return ve
}
