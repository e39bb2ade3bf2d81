package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/roach88/isissync/internal/engine"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "isissync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validConfig() *Config {
	cfg := Default()
	cfg.Collection = "scl"
	cfg.Catalog.URL = "http://catalog.local"
	return cfg
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvCatalogURL, EnvAdminToken, EnvISOPath, EnvISOEncoding, EnvBrokerDSN, EnvLogLevel} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "isos", cfg.ISORoot)
	assert.Equal(t, "latin1", cfg.ISOEncoding)
	assert.Equal(t, "isissync.db", cfg.BrokerDSN)
	assert.Equal(t, 30*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, 3, cfg.Catalog.MaxRetries)
	assert.Equal(t, 1000, cfg.Catalog.PageSize)
	assert.Equal(t, engine.DefaultThresholds(), cfg.Thresholds)
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
collection: scl
issns: [0032-281X]
iso_root: /data/isos
catalog:
  url: https://catalog.example.org
  timeout: 5s
thresholds:
  journals: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "scl", cfg.Collection)
	assert.Equal(t, []string{"0032-281X"}, cfg.ISSNs)
	assert.Equal(t, "/data/isos", cfg.ISORoot)
	assert.Equal(t, "https://catalog.example.org", cfg.Catalog.URL)
	assert.Equal(t, 5*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, 3, cfg.Catalog.MaxRetries, "unset keys keep defaults")
	assert.Equal(t, 2, cfg.Thresholds.Journals)
	assert.Equal(t, 2000, cfg.Thresholds.Documents)
}

func TestLoad_NormalizesISSNs(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "issns: [\" 0032-281x\", 0032-281X, 1111-2222]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"0032-281X", "1111-2222"}, cfg.ISSNs)
}

func TestLoad_EmptyFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownKey(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "colection: scl\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colection")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvCatalogURL, "http://env.local")
	t.Setenv(EnvAdminToken, "secret")
	t.Setenv(EnvISOPath, "mem://localhost/isos")
	t.Setenv(EnvBrokerDSN, "postgres://localhost/isis")

	cfg, err := Load(writeConfig(t, "catalog:\n  url: http://file.local\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://env.local", cfg.Catalog.URL)
	assert.Equal(t, "secret", cfg.Catalog.AdminToken)
	assert.Equal(t, "mem://localhost/isos", cfg.ISORoot)
	assert.Equal(t, "postgres://localhost/isis", cfg.BrokerDSN)
}

func TestApplyEnv_LogLevelOnlyWhenUnset(t *testing.T) {
	env := map[string]string{EnvLogLevel: "DEBUG"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	cfg.ApplyEnv(lookup)
	assert.Equal(t, "DEBUG", cfg.LogLevel)

	cfg = Default()
	cfg.LogLevel = "ERROR"
	cfg.ApplyEnv(lookup)
	assert.Equal(t, "ERROR", cfg.LogLevel)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"WARNING", slog.LevelWarn, false},
		{"warn", slog.LevelWarn, false},
		{"ERROR", slog.LevelError, false},
		{"TRACE", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncoding(t *testing.T) {
	cfg := Default()
	enc, err := cfg.Encoding()
	require.NoError(t, err)
	assert.Equal(t, charmap.ISO8859_1, enc)

	cfg.ISOEncoding = "ebcdic"
	_, err = cfg.Encoding()
	assert.Error(t, err)
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.Catalog.AdminToken = "secret"
	cfg.ISSNs = []string{"0032-281X"}

	out := cfg.Redacted()
	assert.Equal(t, "***", out.Catalog.AdminToken)
	assert.Equal(t, "secret", cfg.Catalog.AdminToken)

	out.ISSNs[0] = "changed"
	assert.Equal(t, "0032-281X", cfg.ISSNs[0])
}
