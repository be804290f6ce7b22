package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/beevans/integrated-manager-for-lustre/internal/device"
	"github.com/beevans/integrated-manager-for-lustre/internal/output"
	"github.com/beevans/integrated-manager-for-lustre/internal/reconcile"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a batch of host trees offline",
	Long: `Reconcile a batch of host trees read from a file, without a manager.

The input is YAML or JSON:

  snapshots:
    - host: oss1
      tree: {Root: {children: [...]}}
    - host: oss2
      tree: ...

Examples:
  iml-device reconcile --input batch.yaml
  iml-device reconcile --input - --output json < batch.json`,
	Run: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringP("input", "i", "", "batch file, - for stdin")
	reconcileCmd.Flags().StringP("output", "o", "tree", "Output format: tree, json")
	reconcileCmd.Flags().Int("workers", 0, "concurrent merges (default from config)")
	_ = reconcileCmd.MarkFlagRequired("input")
}

type reconcileResult struct {
	Snapshots []device.Snapshot `json:"snapshots"`
	Changed   []string          `json:"changed"`
	Failed    map[string]string `json:"failed,omitempty"`
	Donors    int               `json:"donors"`
}

func readBatch(path string) (*device.Batch, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var batch device.Batch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &batch, nil
}

func runReconcile(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	input, _ := cmd.Flags().GetString("input")
	outputFmt, _ := cmd.Flags().GetString("output")
	if w, _ := cmd.Flags().GetInt("workers"); w > 0 {
		cfg.Workers = w
	}
	log := newLogger(cfg)

	batch, err := readBatch(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading batch: %v\n", err)
		os.Exit(1)
	}

	report, err := reconcile.New(
		reconcile.WithWorkers(cfg.Workers),
		reconcile.WithLogger(log),
	).Run(batch.Snapshots)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reconciling: %v\n", err)
		os.Exit(1)
	}

	switch outputFmt {
	case "json":
		result := reconcileResult{
			Snapshots: report.Snapshots,
			Changed:   report.Changed,
			Donors:    report.Donors,
		}
		if result.Changed == nil {
			result.Changed = []string{}
		}
		if len(report.Failed) > 0 {
			result.Failed = make(map[string]string, len(report.Failed))
			for _, f := range report.Failed {
				result.Failed[f.Host] = f.Err.Error()
			}
		}
		if err := output.PrintJSON(os.Stdout, result); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			os.Exit(1)
		}
	default:
		p := output.Stdout()
		p.PrintSnapshots(report.Snapshots)
		fmt.Println()
		p.PrintReport(report)
	}
}
