package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beevans/integrated-manager-for-lustre/internal/metrics"
	"github.com/beevans/integrated-manager-for-lustre/internal/reconcile"
	"github.com/beevans/integrated-manager-for-lustre/internal/server"
	"github.com/beevans/integrated-manager-for-lustre/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the manager service",
	Long: `Run the manager service.

Agents POST their device trees to /devices/{fqdn}. Every upload reconciles
the uploaded tree against every stored tree and saves the results.`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (overrides config)")
	serveCmd.Flags().String("db", "", "database path (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if v, _ := cmd.Flags().GetString("listen"); v != "" {
		cfg.Listen = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.Database = v
	}
	log := newLogger(cfg)

	st, err := store.Open(cfg.Database, store.WithLogger(log.WithName("store")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}

	rec := reconcile.New(
		reconcile.WithWorkers(cfg.Workers),
		reconcile.WithLogger(log.WithName("reconcile")),
	)
	srv := server.NewServer(log.WithName("server"), cfg.Listen, st, rec, metrics.New())

	ctx, stop := signalContext()
	defer stop()

	err = srv.Start(ctx)
	st.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running server: %v\n", err)
		os.Exit(1)
	}
}
