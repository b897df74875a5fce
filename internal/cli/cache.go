package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/mops/internal/record"
)

// NewCacheCommand creates the cache command group for inspecting the local
// cache directly, bypassing the remote service.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the local cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "keys",
		Short: "List cached collection keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			keys, err := a.cache.Keys(cmd.Context())
			if err != nil {
				return a.formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to list cache keys", err)
			}
			return a.formatter.Success(keyList(keys))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "put-raw <collection> <value>",
		Short: "Overwrite a collection slot with a raw value",
		Long: `Store value verbatim as the snapshot of a collection. The value is not
checked; a slot that does not decode as a JSON array reads back as an empty
collection.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			key, err := record.ValidateKey(args[0])
			if err != nil {
				return a.formatter.Fail(ExitCommandError, ErrCodeBadInput, "invalid collection", err)
			}
			if err := a.cache.WriteRaw(cmd.Context(), key, args[1]); err != nil {
				return a.formatter.Fail(ExitFailure, ErrCodeWriteFailed, "write failed", err)
			}
			return a.formatter.Success(putRawResult{Collection: key, Bytes: len(args[1])})
		},
	})

	return cmd
}
