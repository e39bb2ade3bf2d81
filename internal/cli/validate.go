package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/isissync/internal/config"
	"github.com/roach88/isissync/internal/isis"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                `json:"valid"`
	Errors  []config.FieldError `json:"errors,omitempty"`
	Sources []SourceStatus      `json:"sources,omitempty"`
}

// SourceStatus reports one ISO database of the collection.
type SourceStatus struct {
	Database isis.Database `json:"database"`
	URL      string        `json:"url"`
	Exists   bool          `json:"exists"`
}

// WriteText renders the result with one line per check.
func (r ValidationResult) WriteText(w io.Writer) error {
	for _, fe := range r.Errors {
		fmt.Fprintf(w, "✗ %s: %s\n", fe.Field, fe.Message)
	}
	for _, s := range r.Sources {
		if s.Exists {
			fmt.Fprintf(w, "✓ %s %s\n", s.Database, s.URL)
		} else {
			fmt.Fprintf(w, "✗ %s missing: %s\n", s.Database, s.URL)
		}
	}
	if r.Valid {
		fmt.Fprintln(w, "✓ Configuration and sources valid")
	}
	return nil
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Collection string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check configuration and collection sources",
		Long: `Validate the effective configuration against its schema and check that
the four ISO databases of the collection exist. Nothing is read from or
written to the catalog.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Collection, "collection", "c", "", "collection acronym (overrides config)")
	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := loadConfig(opts.RootOptions, opts.Collection, nil)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return err
	}
	if err := setupLogging(opts.RootOptions, cfg, cmd.ErrOrStderr()); err != nil {
		return err
	}

	result := ValidationResult{Valid: true}
	if err := cfg.Validate(); err != nil {
		var verr *config.ValidationError
		if !errors.As(err, &verr) {
			return WrapExitError(ExitCommandError, "failed to validate configuration", err)
		}
		result.Valid = false
		result.Errors = verr.Errors
	}

	if source, err := newSource(cfg); err == nil && cfg.Collection != "" {
		for _, db := range isis.Databases {
			exists, err := source.Exists(cmd.Context(), cfg.Collection, db)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to check collection sources", err)
			}
			result.Sources = append(result.Sources, SourceStatus{
				Database: db,
				URL:      source.URL(cfg.Collection, db),
				Exists:   exists,
			})
			if !exists {
				result.Valid = false
			}
		}
	}

	if result.Valid {
		return formatter.Success(result)
	}
	return outputValidationErrors(formatter, result)
}

// outputValidationErrors reports a failed validation. Validation failures
// exit with ExitFailure.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	code, message := ErrCodeSource, "collection sources missing"
	if len(result.Errors) > 0 {
		code, message = ErrCodeConfig, result.Errors[0].Field+": "+result.Errors[0].Message
	}

	if formatter.Format == "json" {
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: code, Message: message},
		}); err != nil {
			return err
		}
	} else if err := result.WriteText(formatter.Writer); err != nil {
		return err
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed: %s", message))
}
