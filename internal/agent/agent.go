// Package agent runs on each storage host: it scans the local device tree and
// pushes it to the manager, which answers with the reconciled tree.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/beevans/integrated-manager-for-lustre/internal/config"
	"github.com/beevans/integrated-manager-for-lustre/internal/device"
	"github.com/beevans/integrated-manager-for-lustre/internal/logger"
	"github.com/beevans/integrated-manager-for-lustre/internal/metrics"
	"github.com/beevans/integrated-manager-for-lustre/internal/server"
	"github.com/beevans/integrated-manager-for-lustre/internal/version"
)

var ErrNoManager = errors.New("agent.manager_url is not set")

// Scanner produces the local device tree.
type Scanner interface {
	Scan(ctx context.Context) (device.Device, error)
}

// StatusError is a non-2xx answer from the manager.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("manager returned %d: %s", e.Code, e.Body)
}

// Temporary reports whether the request is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

type Option func(*Agent)

func WithHTTPClient(c *http.Client) Option {
	return func(a *Agent) { a.client = c }
}

func WithLogger(log logger.Logger) Option {
	return func(a *Agent) { a.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

type Agent struct {
	scanner     Scanner
	client      *http.Client
	endpoint    string
	fqdn        string
	interval    time.Duration
	backoff     wait.Backoff
	metrics     *metrics.Metrics
	metricsAddr string
	log         logger.Logger
}

// New returns an Agent pushing to the manager named in cfg. The host name
// defaults to os.Hostname.
func New(cfg *config.Config, sc Scanner, opts ...Option) (*Agent, error) {
	if cfg.Agent.ManagerURL == "" {
		return nil, ErrNoManager
	}

	fqdn := cfg.Agent.FQDN
	if fqdn == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("failed to get hostname: %w", err)
		}
		fqdn = h
	}

	endpoint, err := url.JoinPath(cfg.Agent.ManagerURL, "devices", url.PathEscape(fqdn))
	if err != nil {
		return nil, fmt.Errorf("invalid manager url: %w", err)
	}

	a := &Agent{
		scanner:  sc,
		client:   &http.Client{Timeout: 30 * time.Second},
		endpoint: endpoint,
		fqdn:     fqdn,
		interval: cfg.Agent.Interval,
		backoff: wait.Backoff{
			Duration: cfg.Agent.Backoff.Initial,
			Factor:   cfg.Agent.Backoff.Factor,
			Steps:    cfg.Agent.Backoff.Steps,
			Jitter:   0.1,
		},
		metrics:     metrics.New(),
		metricsAddr: cfg.Agent.MetricsListen,
		log:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Agent) FQDN() string {
	return a.fqdn
}

// MetricsHandler serves the agent's scan and push metrics.
func (a *Agent) MetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", a.metrics.Handler())
	return mux
}

// Run pushes once immediately and then every interval until ctx is done.
// Failed pushes are logged and retried on the next tick. When a metrics
// address is configured, /metrics is served for the lifetime of Run.
func (a *Agent) Run(ctx context.Context) error {
	a.log.Info("Starting agent", "host", a.fqdn, "endpoint", a.endpoint, "interval", a.interval.String())

	if a.metricsAddr != "" {
		stop, err := a.serveMetrics()
		if err != nil {
			return err
		}
		defer stop()
	}
	wait.UntilWithContext(ctx, func(ctx context.Context) {
		if _, err := a.Push(ctx); err != nil && ctx.Err() == nil {
			a.log.Error(err, "Push failed", "host", a.fqdn)
		}
	}, a.interval)
	a.log.Info("Agent stopped", "host", a.fqdn)
	return nil
}

// serveMetrics starts the metrics listener and returns a func that shuts it
// down.
func (a *Agent) serveMetrics() (func(), error) {
	ln, err := net.Listen("tcp", a.metricsAddr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	server := &http.Server{Handler: a.MetricsHandler(), ReadHeaderTimeout: 10 * time.Second}
	a.log.Info("Serving metrics", "address", ln.Addr().String())

	go func() {
		if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			a.log.Error(err, "Metrics server failed", "address", ln.Addr().String())
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.log.Error(err, "Metrics server shutdown")
		}
	}, nil
}

// Push scans the host and uploads the tree, retrying transient failures
// with exponential backoff.
func (a *Agent) Push(ctx context.Context) (*server.UploadResponse, error) {
	start := time.Now()
	tree, err := a.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	a.metrics.ObserveScan(time.Since(start).Seconds())

	body, err := device.Marshal(tree)
	if err != nil {
		return nil, err
	}

	var (
		resp    *server.UploadResponse
		lastErr error
	)
	err = wait.ExponentialBackoffWithContext(ctx, a.backoff, func(ctx context.Context) (bool, error) {
		resp, lastErr = a.post(ctx, body)
		if lastErr == nil {
			return true, nil
		}
		var se *StatusError
		if errors.As(lastErr, &se) && !se.Temporary() {
			return false, lastErr
		}
		a.log.Warning("Retrying push", "host", a.fqdn, "err", lastErr.Error())
		return false, nil
	})
	if err != nil {
		a.metrics.ObservePush("error")
		if wait.Interrupted(err) && lastErr != nil {
			return nil, fmt.Errorf("giving up on %s: %w", a.endpoint, lastErr)
		}
		return nil, err
	}

	a.metrics.ObservePush("ok")
	a.log.Info("Pushed devices",
		"host", a.fqdn,
		"nodes", device.Count(tree),
		"changed", len(resp.Run.Changed),
		"elapsed", time.Since(start).String())
	return resp, nil
}

func (a *Agent) post(ctx context.Context, body []byte) (*server.UploadResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	res, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: res.StatusCode, Body: string(bytes.TrimSpace(data))}
	}

	var out server.UploadResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode manager response: %w", err)
	}
	if out.Run == nil {
		return nil, fmt.Errorf("manager response has no run")
	}
	return &out, nil
}
