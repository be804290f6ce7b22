package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/beevans/integrated-manager-for-lustre/internal/config"
	"github.com/beevans/integrated-manager-for-lustre/internal/logger"
	"github.com/beevans/integrated-manager-for-lustre/internal/version"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "iml-device",
	Short: "Fleet block device topology reconciliation",
	Long: `iml-device keeps every storage host's view of shared block devices consistent.

Each host runs an agent that scans its local devices (disks, partitions,
multipath, MD RAID, LVM, ZFS) and uploads the tree to the manager. The
manager merges virtual devices seen on one host into every other host that
can see the same underlying disk, so failover partners agree on what lives
where.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.UserAgent())
	},
}

// loadConfig reads and validates the configuration, exiting on error.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error in config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func newLogger(cfg *config.Config) logger.Logger {
	level, err := logger.ParseVerbosity(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing log level: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewLogger(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	return log
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/iml-device/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "v", "", "log level: error, warning, info, debug, trace")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
