package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/viant/gmetric"

	"github.com/roach88/isissync/internal/isis"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Collection  string
	DryRun      bool
	MetricsAddr string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [issn...]",
		Short: "Reconcile a collection with the catalog",
		Long: `Reconcile one collection with the remote catalog.

The ISIS databases title, issue, artigo and bib4cit are read from
<iso_root>/<collection>/, staged in the broker store and compared with the
catalog identifiers. New or reprocessed records are added; records no longer
present are removed unless the removal batch exceeds its threshold.

Passing ISSNs restricts both sides of the reconciliation to those journals.

Example:
  isissync run -c scl
  isissync run -c scl 0032-281X 0100-879X --dry-run
  isissync run -c scl --config isissync.yaml --metrics-addr :8081`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Collection, "collection", "c", "", "collection acronym (overrides config)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compute the plan without changing the catalog")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve catalog operation metrics on this address during the run")

	return cmd
}

func runReconcile(opts *RunOptions, issns []string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions, opts.Collection, issns)
	if err != nil {
		return err
	}
	if err := setupLogging(opts.RootOptions, cfg, cmd.ErrOrStderr()); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	rt, err := newRuntime(opts.RootOptions, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if opts.MetricsAddr != "" {
		stop := serveMetrics(opts.MetricsAddr, rt.metrics)
		defer stop()
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	if opts.DryRun {
		plan, report, err := rt.engine.Plan(ctx, cfg.Collection, cfg.ISSNs)
		if err != nil {
			return runError(err)
		}
		return formatter.Success(planResult{Plan: plan, Report: report})
	}

	report, err := rt.engine.Run(ctx, cfg.Collection, cfg.ISSNs)
	if err != nil {
		return runError(err)
	}
	return formatter.Success(runResult{Report: report})
}

func runError(err error) error {
	if isis.IsNotFound(err) {
		return WrapExitError(ExitFailure, "collection source incomplete", err)
	}
	if errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "reconciliation interrupted", err)
	}
	return WrapExitError(ExitFailure, "reconciliation failed", err)
}

// signalContext derives a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// serveMetrics exposes the gmetric operation counters over HTTP until the
// returned function is called.
func serveMetrics(addr string, metrics *gmetric.Service) func() {
	const path = "/metrics/"
	mux := http.NewServeMux()
	mux.Handle(path, gmetric.NewHandler(path, metrics))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr, "path", path)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("metrics server shutdown", "error", err)
		}
	}
}
