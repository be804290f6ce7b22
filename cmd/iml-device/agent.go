package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beevans/integrated-manager-for-lustre/internal/agent"
	"github.com/beevans/integrated-manager-for-lustre/internal/metrics"
	"github.com/beevans/integrated-manager-for-lustre/internal/output"
	"github.com/beevans/integrated-manager-for-lustre/internal/scan"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Scan local devices and push them to the manager",
	Long: `Scan local devices and push them to the manager.

Runs until interrupted, pushing every agent.interval. With --once, pushes a
single time and prints the reconciled tree returned by the manager.`,
	Run: runAgent,
}

func init() {
	agentCmd.Flags().String("manager", "", "manager URL (overrides config)")
	agentCmd.Flags().String("fqdn", "", "host name to report (default is the system hostname)")
	agentCmd.Flags().String("metrics-listen", "", "serve /metrics on this address (overrides config)")
	agentCmd.Flags().Bool("once", false, "push once and exit")
	agentCmd.Flags().Bool("json", false, "with --once, print the response as JSON")
}

func runAgent(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if v, _ := cmd.Flags().GetString("manager"); v != "" {
		cfg.Agent.ManagerURL = v
	}
	if v, _ := cmd.Flags().GetString("fqdn"); v != "" {
		cfg.Agent.FQDN = v
	}
	if v, _ := cmd.Flags().GetString("metrics-listen"); v != "" {
		cfg.Agent.MetricsListen = v
	}
	once, _ := cmd.Flags().GetBool("once")
	jsonOut, _ := cmd.Flags().GetBool("json")
	log := newLogger(cfg)

	sc := scan.FromConfig(cfg, log.WithName("scan"))
	a, err := agent.New(cfg, sc,
		agent.WithLogger(log.WithName("agent")),
		agent.WithMetrics(metrics.New()),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating agent: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signalContext()
	defer stop()

	if !once {
		if err := a.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error running agent: %v\n", err)
			os.Exit(1)
		}
		return
	}

	resp, err := a.Push(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error pushing devices: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		if err := output.PrintJSON(os.Stdout, resp); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if resp.Tree != nil {
		output.Stdout().PrintTree(resp.Tree.Device)
	}
}
