// Command reconcile deletes farms and posts whose owner no longer has a
// profile. It runs once, or every --interval until interrupted.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harvestbridge/harvest-bridge/internal/app"
	"github.com/harvestbridge/harvest-bridge/internal/platform/config"
	applog "github.com/harvestbridge/harvest-bridge/internal/platform/logging"
	"github.com/harvestbridge/harvest-bridge/internal/service/reconcile"
)

func main() {
	defer func() { _ = applog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	dryRun   bool
	interval time.Duration
	envFile  string
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "reconcile",
		Short:        "Remove farms and posts of deleted profiles",
		Long:         "Lists the owners of farms and posts, checks which of them still have a profile and deletes the rest. Safe to run repeatedly.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReconcile(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "report orphans without deleting anything")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "repeat every interval until interrupted (0 runs once)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file")
	return cmd
}

func runReconcile(cmd *cobra.Command, opts options) error {
	ctx := cmd.Context()
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	r := a.Reconciler(reconcile.WithDryRun(opts.dryRun))
	if opts.interval > 0 {
		applog.LogInfo(ctx, "reconciling periodically; interrupt to stop")
		r.Loop(ctx, opts.interval)
		return nil
	}

	report, err := r.Run(ctx)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(report); encErr != nil && err == nil {
		err = encErr
	}
	return err
}
