// Package reconcile rebuilds each host's view of shared storage from the
// virtual devices found across a whole batch of host scans.
package reconcile

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/beevans/integrated-manager-for-lustre/internal/device"
	"github.com/beevans/integrated-manager-for-lustre/internal/logger"
)

var ErrDuplicateHost = errors.New("duplicate host in batch")

// HostError records a host whose tree could not be used as a donor source.
type HostError struct {
	Host string
	Err  error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host %s: %v", e.Host, e.Err)
}

func (e *HostError) Unwrap() error {
	return e.Err
}

// Report is the outcome of one reconciliation pass.
type Report struct {
	// Snapshots holds one entry per input host, in input order.
	Snapshots []device.Snapshot
	// Changed lists hosts whose tree differs from the input.
	Changed []string
	// Failed lists hosts whose trees violated a structural invariant. They
	// contribute no donors and are passed through unchanged.
	Failed []*HostError
	// Donors is the number of parents collected across the batch.
	Donors   int
	Duration time.Duration
}

type Option func(*Reconciler)

// WithWorkers bounds the number of hosts merged concurrently.
func WithWorkers(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(r *Reconciler) {
		r.log = log
	}
}

type Reconciler struct {
	log     logger.Logger
	workers int
}

func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		log:     logger.Discard(),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs a pass with default options.
func Reconcile(snapshots []device.Snapshot) (*Report, error) {
	return New().Run(snapshots)
}

// Run collects the virtual parents of every host into one donor pool (host
// order, then emission order) and applies the whole pool to every host's
// tree. Hosts are merged independently, so output order matches input order
// regardless of scheduling.
func (r *Reconciler) Run(snapshots []device.Snapshot) (*Report, error) {
	start := time.Now()

	seen := make(map[string]struct{}, len(snapshots))
	for _, s := range snapshots {
		if _, ok := seen[s.Host]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateHost, s.Host)
		}
		seen[s.Host] = struct{}{}
	}

	report := &Report{Snapshots: make([]device.Snapshot, len(snapshots))}

	var pool []donor
	failed := make([]bool, len(snapshots))
	for i, s := range snapshots {
		parents, err := r.collect(s)
		if err != nil {
			r.log.Error(err, "Skipping host", "host", s.Host)
			report.Failed = append(report.Failed, &HostError{Host: s.Host, Err: err})
			failed[i] = true
			continue
		}
		r.log.Info("Collected parents", "host", s.Host, "count", len(parents))
		for _, p := range parents {
			pool = append(pool, donor{host: s.Host, dev: p})
		}
		report.Donors += len(parents)
	}

	changed := make([]bool, len(snapshots))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, s := range snapshots {
		if failed[i] {
			report.Snapshots[i] = s
			continue
		}
		g.Go(func() error {
			tree := r.merge(s.Host, s.Tree, pool)
			report.Snapshots[i] = device.Snapshot{Host: s.Host, Tree: tree}
			changed[i] = !device.Equal(s.Tree, tree)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, c := range changed {
		if c {
			report.Changed = append(report.Changed, snapshots[i].Host)
		}
	}
	report.Duration = time.Since(start)

	r.log.Debug("Reconciled batch",
		"hosts", len(snapshots),
		"changed", len(report.Changed),
		"failed", len(report.Failed),
		"elapsed", report.Duration.String())

	return report, nil
}

func (r *Reconciler) collect(s device.Snapshot) ([]device.Device, error) {
	if err := device.Validate(s.Tree); err != nil {
		return nil, err
	}
	return CollectVirtualParents(s.Tree)
}

type donor struct {
	host string
	dev  device.Device
}

func (r *Reconciler) merge(host string, tree device.Device, pool []donor) device.Device {
	for _, d := range pool {
		next, ok := Insert(tree, d.dev)
		if !ok {
			continue
		}
		if d.dev.Kind() == device.KindRoot && d.host != host {
			r.log.Warning("Donor is a whole host tree", "host", host, "from", d.host)
		}
		r.log.Debug("Inserting device", "host", host, "from", d.host, "donor", d.dev.String())
		tree = next
	}
	return tree
}
