package cli

import (
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [collection...]",
		Short: "Probe collections and report where each is served from",
		Long: `Probe each collection against the remote service concurrently and
report its mode (remote or local) and record count. With no arguments the
collections listed in the config are probed, or every collection the
schema declares when the config lists none.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			keys := args
			if len(keys) == 0 {
				keys = a.cfg.Collections
			}
			if len(keys) == 0 {
				keys = a.schemas.Collections()
			}
			statuses, err := a.provider.Status(cmd.Context(), keys...)
			if err != nil {
				return a.formatter.Fail(ExitCommandError, ErrCodeBadInput, "invalid collection", err)
			}
			return a.formatter.Success(statusTable(statuses))
		},
	}
}
