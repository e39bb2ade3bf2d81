package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/gmetric"

	"github.com/roach88/isissync/internal/broker"
	"github.com/roach88/isissync/internal/catalog"
	"github.com/roach88/isissync/internal/config"
	"github.com/roach88/isissync/internal/engine"
	"github.com/roach88/isissync/internal/isis"
	"github.com/roach88/isissync/internal/pid"
	"github.com/roach88/isissync/internal/store"
)

// loadConfig builds the effective configuration: defaults, --config file,
// environment, then the collection and ISSNs given on the command line.
func loadConfig(opts *RootOptions, collection string, issns []string) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if collection != "" {
		cfg.Collection = collection
	}
	if len(issns) > 0 {
		cfg.ISSNs = pid.NormalizeISSNs(issns)
	}
	return cfg, nil
}

// setupLogging installs the default slog handler. --verbose wins over
// --log-level, which wins over the configured level.
func setupLogging(opts *RootOptions, cfg *config.Config, w io.Writer) error {
	level := slog.LevelDebug
	if !opts.Verbose {
		name := opts.LogLevel
		if name == "" {
			name = cfg.LogLevel
		}
		parsed, err := config.ParseLevel(name)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid log level", err)
		}
		level = parsed
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

// runtime bundles the collaborators of a reconciliation.
type runtime struct {
	store   *store.Store
	engine  *engine.Engine
	metrics *gmetric.Service
}

func newSource(cfg *config.Config) (*isis.Source, error) {
	enc, err := cfg.Encoding()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return isis.NewSource(afs.New(), cfg.ISORoot, enc), nil
}

func newRuntime(opts *RootOptions, cfg *config.Config) (*runtime, error) {
	source, err := newSource(cfg)
	if err != nil {
		return nil, err
	}

	metrics := gmetric.New()
	client := opts.Catalog
	if client == nil {
		httpClient, err := catalog.NewHTTPClient(catalog.Options{
			BaseURL:    cfg.Catalog.URL,
			AdminToken: cfg.Catalog.AdminToken,
			Timeout:    cfg.Catalog.Timeout,
			MaxRetries: cfg.Catalog.MaxRetries,
			PageSize:   cfg.Catalog.PageSize,
			Metrics:    metrics,
		})
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid catalog configuration", err)
		}
		client = httpClient
	}

	slog.Info("opening broker store", "dsn", redactDSN(cfg.BrokerDSN))
	st, err := store.Open(cfg.BrokerDSN)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to open broker store", err)
	}

	eng := engine.New(client, broker.New(st), source, engine.WithThresholds(cfg.Thresholds))
	return &runtime{store: st, engine: eng, metrics: metrics}, nil
}

func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		slog.Error("error closing broker store", "error", err)
	}
}

// redactDSN hides the password of a URL-style DSN.
func redactDSN(dsn string) string {
	scheme := strings.Index(dsn, "://")
	at := strings.LastIndex(dsn, "@")
	if scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return fmt.Sprintf("%s%s:***%s", dsn[:scheme+3], creds[:colon], dsn[at:])
	}
	return dsn
}
