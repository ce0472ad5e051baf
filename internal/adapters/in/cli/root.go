// Package cli is the cargoctl administration tool: snapshot export and
// import, clearing the store, statistics and on-demand reconciliation.
package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"cargotrust/internal/core/application/usecases/commands"
	"cargotrust/internal/core/application/usecases/queries"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the operation ran and failed
	ExitCommandError = 2 // bad usage or the store could not be opened
)

// ValidFormats are the accepted values of --format.
var ValidFormats = []string{"text", "json"}

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode extracts the exit code from an error returned by Execute.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Backend is the store the commands operate on.
type Backend struct {
	StoreAdmin commands.StoreAdminCommandHandler
	Store      queries.StoreQueryHandler

	// Close flushes and releases the store. May be nil.
	Close func() error
}

// OpenFunc builds the Backend for one command invocation.
type OpenFunc func(ctx context.Context) (*Backend, error)

type RootOptions struct {
	Format string
	open   OpenFunc
}

// NewRootCommand creates the cargoctl root command.
func NewRootCommand(open OpenFunc) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "cargoctl",
		Short: "CargoTrust store administration",
		Long: `Administer the CargoTrust delivery store configured by the environment.

The same variables as the service apply (STORE_BACKEND, KV_BACKEND, DB_*).
Store commands need a durable KV_BACKEND; reconcile runs on the service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return &ExitError{
					Code:    ExitCommandError,
					Message: fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats),
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newClearCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newReconcileCommand(opts))

	return cmd
}

// withBackend opens the backend, runs fn and closes the backend. A failed
// close is reported when fn succeeded.
func (o *RootOptions) withBackend(ctx context.Context, fn func(b *Backend) error) (err error) {
	b, err := o.open(ctx)
	if err != nil {
		return &ExitError{Code: ExitCommandError, Message: "open store", Err: err}
	}
	defer func() {
		if b.Close == nil {
			return
		}
		if cerr := b.Close(); cerr != nil && err == nil {
			err = &ExitError{Code: ExitFailure, Message: "close store", Err: cerr}
		}
	}()
	return fn(b)
}
