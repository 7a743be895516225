package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "salespilot",
		Short:         "SalesPilot lead capture, triage and booking backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SALESPILOT_CONFIG"), "path to a YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API, the notification workers and the reminder scheduler",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "remind",
			Short: "Run a single reminder sweep and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runRemind(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply the database migrations and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(cmd.Context(), configPath)
			},
		},
	)
	return root
}
