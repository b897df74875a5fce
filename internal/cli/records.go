package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mops/internal/coordinator"
	"github.com/roach88/mops/internal/record"
	"github.com/roach88/mops/internal/schema"
)

// FieldsOptions holds the --fields flag of create and update.
type FieldsOptions struct {
	*RootOptions
	Fields string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <collection>",
		Short: "List a collection, newest first",
		Long: `List every record of a collection.

Records come from the remote service when it answers, otherwise from the
local cache.

Example:
  mops list keywords
  mops list users --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandle(rootOpts, cmd, args[0], func(a *app, h *coordinator.Handle) error {
				items := h.Items(cmd.Context())
				a.formatter.VerboseLog("%s: %d record(s) from %s", h.Key(), len(items), h.Mode())
				return a.formatter.Success(recordTable(items))
			})
		},
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandle(rootOpts, cmd, args[0], func(a *app, h *coordinator.Handle) error {
				rec, ok := h.Get(cmd.Context(), record.ParseID(args[1]))
				if !ok {
					return notFound(a.formatter, h.Key(), args[1])
				}
				return a.formatter.Success(recordRow{rec})
			})
		},
	}
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FieldsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <collection>",
		Short: "Create a record",
		Long: `Create a record from a JSON object of fields. The id is assigned by
the backing store; an "id" field in the input is ignored.

Example:
  mops create keywords --fields '{"keyword":"seo","volume":1200}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandle(rootOpts, cmd, args[0], func(a *app, h *coordinator.Handle) error {
				fields, err := parseFields(opts.Fields)
				if err != nil {
					return a.formatter.Fail(ExitCommandError, ErrCodeBadInput, "invalid --fields", err)
				}
				created, ok := h.Create(cmd.Context(), fields)
				if !ok {
					return writeFailed(a.formatter, "create failed", h.Err())
				}
				return a.formatter.Success(recordRow{created})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Fields, "fields", "{}", "record fields as a JSON object")

	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FieldsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <collection> <id>",
		Short: "Merge fields into a record",
		Long: `Merge a JSON object of fields over an existing record. Fields not
named keep their values.

Example:
  mops update keywords 2 --fields '{"volume":900}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandle(rootOpts, cmd, args[0], func(a *app, h *coordinator.Handle) error {
				partial, err := parseFields(opts.Fields)
				if err != nil {
					return a.formatter.Fail(ExitCommandError, ErrCodeBadInput, "invalid --fields", err)
				}
				updated, ok := h.Update(cmd.Context(), record.ParseID(args[1]), partial)
				if !ok {
					if err := h.Err(); err != nil {
						return writeFailed(a.formatter, "update failed", err)
					}
					return notFound(a.formatter, h.Key(), args[1])
				}
				return a.formatter.Success(recordRow{updated})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Fields, "fields", "{}", "fields to merge as a JSON object")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandle(rootOpts, cmd, args[0], func(a *app, h *coordinator.Handle) error {
				id := record.ParseID(args[1])
				if !h.Delete(cmd.Context(), id) {
					if err := h.Err(); err != nil {
						return writeFailed(a.formatter, "delete failed", err)
					}
					return notFound(a.formatter, h.Key(), args[1])
				}
				return a.formatter.Success(deleteResult{Collection: h.Key(), ID: id})
			})
		},
	}
}

// withHandle opens the app and a coordinator handle on key for the
// duration of fn.
func withHandle(opts *RootOptions, cmd *cobra.Command, key string, fn func(*app, *coordinator.Handle) error) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	h, err := a.provider.Open(key)
	if err != nil {
		return a.formatter.Fail(ExitCommandError, ErrCodeBadInput, "invalid collection", err)
	}
	defer h.Close()

	return fn(a, h)
}

// parseFields decodes a --fields value, which must be a JSON object.
func parseFields(s string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("fields must be a JSON object")
	}
	return fields, nil
}

func notFound(f *OutputFormatter, key, id string) error {
	return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("%s/%s not found", key, id), nil)
}

func writeFailed(f *OutputFormatter, message string, err error) error {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return f.Fail(ExitFailure, ErrCodeRejected, message, err)
	}
	return f.Fail(ExitFailure, ErrCodeWriteFailed, message, err)
}
