package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// DefaultServer is the service cargoctl reconcile talks to.
const DefaultServer = "http://localhost:8080"

const reconcilePath = "/api/v1/reconcile"

type reconcileReport struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type reconcileOptions struct {
	server  string
	timeout time.Duration
}

// newReconcileCommand asks the running service for a pass. Reconciliation
// needs the ledger the service holds, so it never opens the store itself.
func newReconcileCommand(opts *RootOptions) *cobra.Command {
	ro := &reconcileOptions{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Replay ledger history into the store of a running service",
		Long: `Ask the service at --server to compare every escrowed delivery with its
ledger history and record the milestones the store missed. Running it twice is
harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := requestReconcile(cmd.Context(), ro)
			if err != nil {
				return &ExitError{Code: ExitFailure, Message: "reconcile", Err: err}
			}

			w := cmd.OutOrStdout()
			if opts.Format == "json" {
				err = json.NewEncoder(w).Encode(report)
			} else {
				_, err = fmt.Fprintf(w, "checked %d, repaired %d, failed %d\n",
					report.Checked, report.Repaired, report.Failed)
			}
			if err != nil {
				return err
			}
			if report.Failed > 0 {
				return &ExitError{
					Code:    ExitFailure,
					Message: fmt.Sprintf("reconcile: %d deliveries could not be reconciled", report.Failed),
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ro.server, "server", DefaultServer, "base URL of the cargotrust service")
	cmd.Flags().DurationVar(&ro.timeout, "timeout", 2*time.Minute, "how long to wait for the pass")

	return cmd
}

func requestReconcile(ctx context.Context, ro *reconcileOptions) (reconcileReport, error) {
	ctx, cancel := context.WithTimeout(ctx, ro.timeout)
	defer cancel()

	url := strings.TrimSuffix(ro.server, "/") + reconcilePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, http.NoBody)
	if err != nil {
		return reconcileReport{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return reconcileReport{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return reconcileReport{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e apiError
		if json.Unmarshal(body, &e) == nil && e.Code != "" {
			return reconcileReport{}, fmt.Errorf("%s: %s (HTTP %d)", e.Code, e.Message, resp.StatusCode)
		}
		return reconcileReport{}, fmt.Errorf("unexpected HTTP %d from %s", resp.StatusCode, url)
	}

	var report reconcileReport
	if err = json.Unmarshal(body, &report); err != nil {
		return reconcileReport{}, fmt.Errorf("decode response: %w", err)
	}
	return report, nil
}
