package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/isissync/internal/ir"
	"github.com/roach88/isissync/internal/isis"
	"github.com/roach88/isissync/internal/normalize"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Limit int
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <collection> <database>",
		Short: "Print normalized records of one ISO database",
		Long: `Read one ISIS database of a collection and print each normalized record
as a JSON line: v-prefixed fields plus the derived code, processing date and
journal, issue and document identifiers. Records without an identifier are
skipped.

Databases: title, issue, artigo, bib4cit.

Example:
  isissync inspect scl artigo --limit 10`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], isis.Database(args[1]), cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "stop after this many records (0 = all)")
	return cmd
}

func runInspect(opts *InspectOptions, collection string, db isis.Database, cmd *cobra.Command) error {
	if !knownDatabase(db) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("unknown database %q: must be one of %v", db, isis.Databases))
	}

	cfg, err := loadConfig(opts.RootOptions, collection, nil)
	if err != nil {
		return err
	}
	if err := setupLogging(opts.RootOptions, cfg, cmd.ErrOrStderr()); err != nil {
		return err
	}
	source, err := newSource(cfg)
	if err != nil {
		return err
	}

	file, err := source.Open(cmd.Context(), collection, db)
	if err != nil {
		return runError(err)
	}
	defer file.Close()

	out := cmd.OutOrStdout()
	printed := 0
	now := time.Now()
	for file.Next() {
		rec, err := normalize.PrepareRecord(collection, file.Record(), now)
		if err != nil {
			slog.Error("failed to load record", "database", db, "index", file.Count(), "error", err)
			continue
		}
		if rec == nil {
			slog.Debug("record without identifier skipped", "database", db, "index", file.Count())
			continue
		}

		line, err := ir.MarshalCanonical(rec.Object())
		if err != nil {
			return WrapExitError(ExitFailure, "failed to encode record", err)
		}
		fmt.Fprintf(out, "%s\n", line)

		printed++
		if opts.Limit > 0 && printed >= opts.Limit {
			break
		}
	}
	if err := file.Err(); err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("failed to read %s", file.URL), err)
	}
	return nil
}

func knownDatabase(db isis.Database) bool {
	for _, d := range isis.Databases {
		if d == db {
			return true
		}
	}
	return false
}
