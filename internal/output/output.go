// Package output renders device trees and reconciliation reports for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/beevans/integrated-manager-for-lustre/internal/device"
	"github.com/beevans/integrated-manager-for-lustre/internal/reconcile"
)

// ANSI escape codes.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	cyan   = "\033[36m"
	yellow = "\033[33m"
	red    = "\033[31m"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Printer writes human-readable output, colored when Color is set.
type Printer struct {
	W     io.Writer
	Color bool
}

// Stdout returns a Printer for standard output, colored on a terminal.
func Stdout() *Printer {
	return &Printer{W: os.Stdout, Color: IsTerminal(os.Stdout)}
}

func (p *Printer) colorize(color, s string) string {
	if !p.Color {
		return s
	}
	return color + bold + s + reset
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintTree writes tree with one node per line. Virtual devices are
// highlighted.
func (p *Printer) PrintTree(tree device.Device) {
	p.printNode(tree, "", "", true)
}

func (p *Printer) printNode(d device.Device, prefix, branch string, last bool) {
	label := Describe(d)
	if device.IsVirtual(d) {
		label = p.colorize(cyan, label)
	}
	fmt.Fprintf(p.W, "%s%s%s\n", prefix, branch, label)

	c, ok := d.(device.Container)
	if !ok {
		return
	}

	childPrefix := prefix
	if branch != "" {
		if last {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	}

	children := c.Children()
	for i := 0; i < children.Len(); i++ {
		isLast := i == children.Len()-1
		b := "├── "
		if isLast {
			b = "└── "
		}
		p.printNode(children.At(i), childPrefix, b, isLast)
	}
}

// Describe returns a one-line summary: identity, then path and size where
// known.
func Describe(d device.Device) string {
	parts := []string{d.Identity().String()}

	var path string
	var size uint64
	switch v := d.(type) {
	case device.ScsiDevice:
		path, size = v.DevPath, v.Size
	case device.Partition:
		path, size = v.DevPath, v.Size
	case device.Mpath:
		path, size = v.DevPath, v.Size
	case device.MdRaid:
		path, size = v.DevPath, v.Size
	case device.VolumeGroup:
		size = v.Size
	case device.LogicalVolume:
		path, size = v.DevPath, v.Size
		if v.Name != "" {
			parts = append(parts, v.Name)
		}
	case device.Zpool:
		size = v.Size
		if v.Name != "" {
			parts = append(parts, v.Name)
		}
	case device.Dataset:
		if v.Name != "" {
			parts = append(parts, v.Name)
		}
	}

	if path != "" {
		parts = append(parts, path)
	}
	if size > 0 {
		parts = append(parts, humanize.IBytes(size))
	}
	return strings.Join(parts, " ")
}

// PrintSnapshots writes every snapshot's tree under a host heading.
func (p *Printer) PrintSnapshots(snapshots []device.Snapshot) {
	for i, s := range snapshots {
		if i > 0 {
			fmt.Fprintln(p.W)
		}
		fmt.Fprintf(p.W, "%s (%d devices)\n", p.colorize(bold, s.Host), device.Count(s.Tree)-1)
		p.PrintTree(s.Tree)
	}
}

// PrintReport writes a summary of a reconciliation pass.
func (p *Printer) PrintReport(report *reconcile.Report) {
	fmt.Fprintf(p.W, "Hosts:   %d\n", len(report.Snapshots))
	fmt.Fprintf(p.W, "Donors:  %d\n", report.Donors)
	fmt.Fprintf(p.W, "Elapsed: %s\n", report.Duration.Round(time.Microsecond))

	if len(report.Changed) > 0 {
		fmt.Fprintf(p.W, "%s %s\n", p.colorize(yellow, "Changed:"), strings.Join(report.Changed, ", "))
	} else {
		fmt.Fprintln(p.W, "Changed: none")
	}
	for _, f := range report.Failed {
		fmt.Fprintf(p.W, "%s %s: %v\n", p.colorize(red, "Failed:"), f.Host, f.Err)
	}
}
