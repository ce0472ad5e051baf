package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"cargotrust/cmd"
	"cargotrust/internal/adapters/in/cli"
	"cargotrust/internal/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	root := cli.NewRootCommand(func(ctx context.Context) (*cli.Backend, error) {
		configs, err := cmd.LoadConfig(".env")
		if err != nil {
			return nil, err
		}
		// Diagnostics go to stderr so that export output stays clean.
		logger, err := logging.New("warn", "console")
		if err != nil {
			return nil, err
		}
		return cmd.OpenCLIBackend(ctx, configs, logger)
	})

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargoctl:", err)
	}
	stop()
	os.Exit(cli.ExitCode(err))
}
