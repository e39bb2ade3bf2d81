package cli

import (
	"github.com/spf13/cobra"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Collection string
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan [issn...]",
		Short: "Show the reconciliation plan without applying it",
		Long: `Compute the additions and removals a run would perform and print them.
The catalog is only read. Removal batches over their threshold are flagged.

Example:
  isissync plan -c scl
  isissync plan -c scl 0032-281X --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runOpts := &RunOptions{RootOptions: opts.RootOptions, Collection: opts.Collection, DryRun: true}
			return runReconcile(runOpts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Collection, "collection", "c", "", "collection acronym (overrides config)")
	return cmd
}
