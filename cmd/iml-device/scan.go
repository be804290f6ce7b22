package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beevans/integrated-manager-for-lustre/internal/device"
	"github.com/beevans/integrated-manager-for-lustre/internal/output"
	"github.com/beevans/integrated-manager-for-lustre/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Print the local device tree",
	Long: `Print the local device tree as the agent would upload it.

Sources are taken from scan.sources in the config; --source replaces them.`,
	Run: runScan,
}

func init() {
	scanCmd.Flags().Bool("json", false, "Output as JSON")
	scanCmd.Flags().Bool("tree", true, "Output as an indented tree")
	scanCmd.Flags().StringSlice("source", nil, "scan sources: lsblk, mdadm, lvm, zfs, ghw")
}

func runScan(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if sources, _ := cmd.Flags().GetStringSlice("source"); len(sources) > 0 {
		cfg.Scan.Sources = sources
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error in sources: %v\n", err)
			os.Exit(1)
		}
	}
	jsonOut, _ := cmd.Flags().GetBool("json")
	log := newLogger(cfg)

	tree, err := scan.FromConfig(cfg, log).Scan(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning devices: %v\n", err)
		os.Exit(1)
	}

	if jsonOut {
		if err := output.PrintJSON(os.Stdout, device.Node{Device: tree}); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			os.Exit(1)
		}
		return
	}
	output.Stdout().PrintTree(tree)
}
