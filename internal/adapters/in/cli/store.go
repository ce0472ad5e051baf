package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"cargotrust/internal/core/application/usecases/commands"

	"github.com/spf13/cobra"
)

func newExportCommand(opts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the store snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withBackend(cmd.Context(), func(b *Backend) error {
				snapshot, err := b.Store.ExportSnapshot(cmd.Context())
				if err != nil {
					return &ExitError{Code: ExitFailure, Message: "export", Err: err}
				}
				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(append(snapshot, '\n'))
					return err
				}
				if err = os.WriteFile(output, snapshot, 0o600); err != nil {
					return &ExitError{Code: ExitFailure, Message: "write snapshot", Err: err}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot file (default stdout)")
	return cmd
}

func newImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <snapshot-file|->",
		Short: "Replace the store contents with a snapshot",
		Long: `Replace every delivery, user and transaction with the contents of a
snapshot produced by export. The store is left unchanged if the snapshot
is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "read snapshot", Err: err}
			}

			importCmd, err := commands.NewImportSnapshotCommand(data)
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "import", Err: err}
			}
			return opts.withBackend(cmd.Context(), func(b *Backend) error {
				if err := b.StoreAdmin.HandleImport(cmd.Context(), importCmd); err != nil {
					return &ExitError{Code: ExitFailure, Message: "import", Err: err}
				}
				_, err := fmt.Fprintln(cmd.ErrOrStderr(), "snapshot imported")
				return err
			})
		},
	}
}

func newClearCommand(opts *RootOptions) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all deliveries, users and transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return &ExitError{Code: ExitCommandError, Message: "refusing to clear the store without --yes"}
			}
			return opts.withBackend(cmd.Context(), func(b *Backend) error {
				if err := b.StoreAdmin.HandleClearAll(cmd.Context(), commands.ClearAllCommand{}); err != nil {
					return &ExitError{Code: ExitFailure, Message: "clear", Err: err}
				}
				_, err := fmt.Fprintln(cmd.ErrOrStderr(), "store cleared")
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm deleting everything")
	return cmd
}

type statsOutput struct {
	Backend       string         `json:"backend"`
	Deliveries    int            `json:"deliveries"`
	Users         int            `json:"users"`
	Transactions  int            `json:"transactions"`
	ByStatus      map[string]int `json:"byStatus"`
	Escrowed      string         `json:"escrowed"`
	Released      string         `json:"released"`
	UsedBytes     int64          `json:"usedBytes"`
	CapacityBytes int64          `json:"capacityBytes"`
}

func newStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show record counts and storage usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withBackend(cmd.Context(), func(b *Backend) error {
				report, err := b.Store.Report(cmd.Context())
				if err != nil {
					return &ExitError{Code: ExitFailure, Message: "stats", Err: err}
				}

				out := statsOutput{
					Backend:       report.Stats.Backend,
					Deliveries:    report.Stats.Deliveries,
					Users:         report.Stats.Users,
					Transactions:  report.Stats.Transactions,
					ByStatus:      make(map[string]int, len(report.Stats.ByStatus)),
					Escrowed:      report.Summary.Escrowed.String(),
					Released:      report.Summary.Released.String(),
					UsedBytes:     report.Stats.UsedBytes,
					CapacityBytes: report.Stats.CapacityBytes,
				}
				for status, n := range report.Stats.ByStatus {
					out.ByStatus[string(status)] = n
				}
				return writeStats(cmd.OutOrStdout(), opts.Format, out)
			})
		},
	}
}

func writeStats(w io.Writer, format string, out statsOutput) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "backend:      %s\n", out.Backend)
	fmt.Fprintf(w, "deliveries:   %d\n", out.Deliveries)
	statuses := make([]string, 0, len(out.ByStatus))
	for status := range out.ByStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Fprintf(w, "  %-12s %d\n", status, out.ByStatus[status])
	}
	fmt.Fprintf(w, "users:        %d\n", out.Users)
	fmt.Fprintf(w, "transactions: %d\n", out.Transactions)
	fmt.Fprintf(w, "escrowed:     %s\n", out.Escrowed)
	fmt.Fprintf(w, "released:     %s\n", out.Released)
	if out.CapacityBytes > 0 {
		_, err := fmt.Fprintf(w, "storage:      %d of %d bytes\n", out.UsedBytes, out.CapacityBytes)
		return err
	}
	_, err := fmt.Fprintf(w, "storage:      %d bytes\n", out.UsedBytes)
	return err
}
