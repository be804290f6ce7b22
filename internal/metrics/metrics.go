// Package metrics exposes reconciliation counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beevans/integrated-manager-for-lustre/internal/reconcile"
)

const namespace = "iml_device"

type Metrics struct {
	registry *prometheus.Registry

	runsTotal    prometheus.Counter
	runDuration  prometheus.Histogram
	donors       prometheus.Gauge
	hosts        prometheus.Gauge
	changedTotal prometheus.Counter
	failedTotal  *prometheus.CounterVec
	uploadsTotal *prometheus.CounterVec
	storedHosts  prometheus.Gauge
	scanDuration prometheus.Histogram
	pushesTotal  *prometheus.CounterVec
}

// New creates a registry with the process and Go collectors plus the
// reconciliation metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_runs_total",
			Help:      "Total number of reconciliation passes.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "How long in seconds a reconciliation pass takes.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		donors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_donors",
			Help:      "Donor parents collected in the last pass.",
		}),
		hosts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_hosts",
			Help:      "Hosts in the last pass.",
		}),
		changedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_changed_hosts_total",
			Help:      "Host trees modified by reconciliation.",
		}),
		failedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_failed_hosts_total",
			Help:      "Hosts skipped because their tree violated an invariant.",
		}, []string{"host"}),
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_uploads_total",
			Help:      "Device trees received from agents.",
		}, []string{"result"}),
		storedHosts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_hosts",
			Help:      "Hosts with a stored device tree.",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "How long in seconds a local device scan takes.",
			Buckets:   prometheus.DefBuckets,
		}),
		pushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_pushes_total",
			Help:      "Device tree uploads attempted by the agent.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runsTotal,
		m.runDuration,
		m.donors,
		m.hosts,
		m.changedTotal,
		m.failedTotal,
		m.uploadsTotal,
		m.storedHosts,
		m.scanDuration,
		m.pushesTotal,
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRun records the outcome of a reconciliation pass.
func (m *Metrics) ObserveRun(report *reconcile.Report) {
	m.runsTotal.Inc()
	m.runDuration.Observe(report.Duration.Seconds())
	m.donors.Set(float64(report.Donors))
	m.hosts.Set(float64(len(report.Snapshots)))
	m.changedTotal.Add(float64(len(report.Changed)))
	for _, f := range report.Failed {
		m.failedTotal.WithLabelValues(f.Host).Inc()
	}
}

// ObserveUpload counts an agent upload; result is "ok" or "rejected".
func (m *Metrics) ObserveUpload(result string) {
	m.uploadsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SetStoredHosts(n int) {
	m.storedHosts.Set(float64(n))
}

func (m *Metrics) ObserveScan(seconds float64) {
	m.scanDuration.Observe(seconds)
}

// ObservePush counts an agent push; result is "ok" or "error".
func (m *Metrics) ObservePush(result string) {
	m.pushesTotal.WithLabelValues(result).Inc()
}
