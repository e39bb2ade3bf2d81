// Package config loads the isissync configuration.
//
// A Config starts from Default, is overlaid with an optional YAML file and
// then with environment variables. The CLI applies its flags last and calls
// Validate, which checks the result against an embedded CUE schema.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"gopkg.in/yaml.v3"

	"github.com/roach88/isissync/internal/engine"
	"github.com/roach88/isissync/internal/isis"
	"github.com/roach88/isissync/internal/pid"
)

// Environment variables read by Load.
const (
	EnvCatalogURL  = "CATALOG_URL"
	EnvAdminToken  = "CATALOG_ADMIN_TOKEN"
	EnvISOPath     = "ISO_PATH"
	EnvISOEncoding = "ISO_ENCODING"
	EnvBrokerDSN   = "BROKER_DSN"
	EnvLogLevel    = "LOG_LEVEL"
)

// Catalog configures the remote catalog client.
type Catalog struct {
	URL        string        `yaml:"url" json:"url"`
	AdminToken string        `yaml:"admin_token" json:"admin_token"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
	PageSize   int           `yaml:"page_size" json:"page_size"`
}

// Config is the full run configuration.
type Config struct {
	Collection  string            `yaml:"collection" json:"collection"`
	ISSNs       []string          `yaml:"issns" json:"issns"`
	ISORoot     string            `yaml:"iso_root" json:"iso_root"`
	ISOEncoding string            `yaml:"iso_encoding" json:"iso_encoding"`
	BrokerDSN   string            `yaml:"broker_dsn" json:"broker_dsn"`
	LogLevel    string            `yaml:"log_level" json:"log_level"`
	Catalog     Catalog           `yaml:"catalog" json:"catalog"`
	Thresholds  engine.Thresholds `yaml:"thresholds" json:"thresholds"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ISORoot:     "isos",
		ISOEncoding: "latin1",
		BrokerDSN:   "isissync.db",
		Catalog: Catalog{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			PageSize:   1000,
		},
		Thresholds: engine.DefaultThresholds(),
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the process environment. It does not validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	c.ISSNs = pid.NormalizeISSNs(c.ISSNs)
	return nil
}

// ApplyEnv overlays environment variables using lookup. LOG_LEVEL only
// applies when no level was configured.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvCatalogURL, &c.Catalog.URL)
	set(EnvAdminToken, &c.Catalog.AdminToken)
	set(EnvISOPath, &c.ISORoot)
	set(EnvISOEncoding, &c.ISOEncoding)
	set(EnvBrokerDSN, &c.BrokerDSN)
	if c.LogLevel == "" {
		set(EnvLogLevel, &c.LogLevel)
	}
}

// Encoding resolves ISOEncoding.
func (c *Config) Encoding() (encoding.Encoding, error) {
	return isis.EncodingByName(c.ISOEncoding)
}

// Level resolves LogLevel, defaulting to INFO.
func (c *Config) Level() (slog.Level, error) {
	return ParseLevel(c.LogLevel)
}

// ParseLevel parses a log level name. WARNING is accepted as WARN and the
// empty string as INFO.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	out.ISSNs = append([]string(nil), c.ISSNs...)
	if out.Catalog.AdminToken != "" {
		out.Catalog.AdminToken = "***"
	}
	return &out
}
