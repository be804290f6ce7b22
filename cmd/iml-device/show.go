package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/beevans/integrated-manager-for-lustre/internal/device"
	"github.com/beevans/integrated-manager-for-lustre/internal/output"
	"github.com/beevans/integrated-manager-for-lustre/internal/store"
)

var showCmd = &cobra.Command{
	Use:   "show [fqdn]",
	Short: "Show stored device trees",
	Long: `Show device trees stored in the manager database.

Without an argument, lists every host. With a host name, prints its tree.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runShow,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent reconciliation runs",
	Run:   runRuns,
}

func init() {
	showCmd.Flags().Bool("json", false, "Output as JSON")
	showCmd.Flags().Bool("events", false, "Show the host's recent events")
	showCmd.Flags().String("db", "", "database path (overrides config)")

	runsCmd.Flags().Bool("json", false, "Output as JSON")
	runsCmd.Flags().IntP("limit", "n", 20, "number of runs")
	runsCmd.Flags().String("db", "", "database path (overrides config)")
}

type showOptions struct {
	json   bool
	events bool
}

func openStore(cmd *cobra.Command) *store.Store {
	cfg := loadConfig()
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.Database = v
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	return st
}

// exitOnError closes st before reporting err, since os.Exit skips deferred
// calls.
func exitOnError(st *store.Store, err error) {
	if cerr := st.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err == nil {
		return
	}
	var nf notFoundError
	if errors.As(err, &nf) {
		fmt.Fprintf(os.Stderr, "Not found: %s\n", string(nf))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

type notFoundError string

func (e notFoundError) Error() string {
	return "not found: " + string(e)
}

func (e notFoundError) Unwrap() error {
	return store.ErrNotFound
}

func runShow(cmd *cobra.Command, args []string) {
	var opts showOptions
	opts.json, _ = cmd.Flags().GetBool("json")
	opts.events, _ = cmd.Flags().GetBool("events")

	st := openStore(cmd)
	p := output.Stdout()
	if len(args) == 0 {
		exitOnError(st, showHosts(cmd.Context(), p, st, opts))
		return
	}
	exitOnError(st, showHost(cmd.Context(), p, st, args[0], opts))
}

func showHosts(ctx context.Context, p *output.Printer, st *store.Store, opts showOptions) error {
	hosts, err := st.List(ctx)
	if err != nil {
		return fmt.Errorf("listing hosts: %w", err)
	}
	if opts.json {
		return output.PrintJSON(p.W, hosts)
	}
	if len(hosts) == 0 {
		fmt.Fprintln(p.W, "No hosts stored")
		return nil
	}
	fmt.Fprintf(p.W, "%-40s %8s  %s\n", "HOST", "DEVICES", "UPDATED")
	for _, h := range hosts {
		fmt.Fprintf(p.W, "%-40s %8d  %s\n", h.Host, h.Nodes-1, h.UpdatedAt.Local().Format(time.DateTime))
	}
	return nil
}

func showHost(ctx context.Context, p *output.Printer, st *store.Store, host string, opts showOptions) error {
	tree, err := st.Get(ctx, host)
	if errors.Is(err, store.ErrNotFound) {
		return notFoundError(host)
	}
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	if opts.events {
		return showEvents(ctx, p.W, st, host, opts)
	}
	if opts.json {
		return output.PrintJSON(p.W, device.Node{Device: tree})
	}
	p.PrintTree(tree)
	return nil
}

func showEvents(ctx context.Context, w io.Writer, st *store.Store, host string, opts showOptions) error {
	evs, err := st.HostEvents(ctx, host, 20)
	if err != nil {
		return fmt.Errorf("loading events: %w", err)
	}
	if opts.json {
		return output.PrintJSON(w, evs)
	}
	for _, e := range evs {
		fmt.Fprintf(w, "%s  %-12s %s\n", e.Timestamp.Local().Format(time.DateTime), e.EventType, e.Details)
	}
	return nil
}

func runRuns(cmd *cobra.Command, args []string) {
	jsonOut, _ := cmd.Flags().GetBool("json")
	limit, _ := cmd.Flags().GetInt("limit")

	st := openStore(cmd)
	exitOnError(st, showRuns(cmd.Context(), os.Stdout, st, limit, jsonOut))
}

func showRuns(ctx context.Context, w io.Writer, st *store.Store, limit int, jsonOut bool) error {
	runs, err := st.RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("loading runs: %w", err)
	}
	if jsonOut {
		return output.PrintJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-19s  %5s  %6s  %7s  %6s  %s\n", "ID", "STARTED", "HOSTS", "DONORS", "CHANGED", "FAILED", "DURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-19s  %5d  %6d  %7d  %6d  %s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Hosts, r.Donors,
			len(r.Changed), len(r.Failed), r.Duration.Round(time.Microsecond))
	}
	return nil
}
