package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beevans/integrated-manager-for-lustre/internal/config"
	"github.com/beevans/integrated-manager-for-lustre/internal/device"
	"github.com/beevans/integrated-manager-for-lustre/internal/metrics"
	"github.com/beevans/integrated-manager-for-lustre/internal/server"
	"github.com/beevans/integrated-manager-for-lustre/internal/store"
	"github.com/beevans/integrated-manager-for-lustre/internal/version"
)

type staticScanner struct {
	tree device.Device
	err  error
}

func (s staticScanner) Scan(context.Context) (device.Device, error) {
	return s.tree, s.err
}

var localTree = device.Root{}.With(device.ScsiDevice{Serial: device.Ptr("S1"), DevPath: "/dev/sda"})

func testConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.Agent.ManagerURL = url
	cfg.Agent.FQDN = "oss1.example.com"
	cfg.Agent.Backoff = config.Backoff{Initial: time.Millisecond, Factor: 1, Steps: 3}
	return cfg
}

func okResponse(t *testing.T, w http.ResponseWriter, tree device.Device) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(server.UploadResponse{
		Run:  &store.Run{Hosts: 2, Changed: []string{"oss1.example.com"}},
		Tree: &device.Node{Device: tree},
	}))
}

func TestNew(t *testing.T) {
	_, err := New(config.Default(), staticScanner{})
	assert.ErrorIs(t, err, ErrNoManager)

	a, err := New(testConfig("http://manager:8443/api/"), staticScanner{})
	require.NoError(t, err)
	assert.Equal(t, "http://manager:8443/api/devices/oss1.example.com", a.endpoint)
	assert.Equal(t, "oss1.example.com", a.FQDN())
}

func TestPush(t *testing.T) {
	reconciled := device.Root{}.With(
		device.ScsiDevice{Serial: device.Ptr("S1"), DevPath: "/dev/sda"}.With(device.MdRaid{UUID: "U1"}),
	)

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/devices/oss1.example.com", r.URL.Path)
		assert.Equal(t, version.UserAgent(), r.UserAgent())

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		tree, err := device.Unmarshal(body)
		require.NoError(t, err)
		assert.True(t, device.Equal(localTree, tree))

		okResponse(t, w, reconciled)
	}))
	defer ts.Close()

	m := metrics.New()
	a, err := New(testConfig(ts.URL), staticScanner{tree: localTree}, WithMetrics(m))
	require.NoError(t, err)

	resp, err := a.Push(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, []string{"oss1.example.com"}, resp.Run.Changed)
	assert.True(t, device.Equal(reconciled, resp.Tree.Device))

	n, err := testutil.GatherAndCount(m.Registry(), "iml_device_agent_pushes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPushRetries(t *testing.T) {
	t.Run("recovers_from_transient_errors", func(t *testing.T) {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
			okResponse(t, w, localTree)
		}))
		defer ts.Close()

		a, err := New(testConfig(ts.URL), staticScanner{tree: localTree})
		require.NoError(t, err)

		_, err = a.Push(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 3, calls.Load())
	})

	t.Run("gives_up_after_steps", func(t *testing.T) {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "database locked", http.StatusInternalServerError)
		}))
		defer ts.Close()

		a, err := New(testConfig(ts.URL), staticScanner{tree: localTree})
		require.NoError(t, err)

		_, err = a.Push(context.Background())
		require.Error(t, err)
		assert.EqualValues(t, 3, calls.Load())

		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusInternalServerError, se.Code)
		assert.Equal(t, "database locked", se.Body)
	})

	t.Run("rejection_is_final", func(t *testing.T) {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "tree entry point is MdRaid, not Root", http.StatusBadRequest)
		}))
		defer ts.Close()

		a, err := New(testConfig(ts.URL), staticScanner{tree: localTree})
		require.NoError(t, err)

		_, err = a.Push(context.Background())
		require.Error(t, err)
		assert.EqualValues(t, 1, calls.Load())
		assert.Contains(t, err.Error(), "not Root")
	})
}

func TestPushScanError(t *testing.T) {
	a, err := New(testConfig("http://127.0.0.1:1"), staticScanner{err: errors.New("lsblk exploded")})
	require.NoError(t, err)

	_, err = a.Push(context.Background())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "scan failed"))
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pushed := make(chan struct{}, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		okResponse(t, w, localTree)
		select {
		case pushed <- struct{}{}:
		default:
		}
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.Agent.MetricsListen = "127.0.0.1:0"
	a, err := New(cfg, staticScanner{tree: localTree})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case <-pushed:
	case <-time.After(5 * time.Second):
		t.Fatal("agent never pushed")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not stop")
	}
}

func TestMetricsHandler(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		okResponse(t, w, localTree)
	}))
	defer ts.Close()

	a, err := New(testConfig(ts.URL), staticScanner{tree: localTree})
	require.NoError(t, err)
	_, err = a.Push(context.Background())
	require.NoError(t, err)

	ms := httptest.NewServer(a.MetricsHandler())
	defer ms.Close()

	res, err := http.Get(ms.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), `iml_device_agent_pushes_total{result="ok"} 1`)
	assert.Contains(t, string(body), "iml_device_scan_duration_seconds_count 1")
}

func TestRunBadMetricsAddress(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Agent.MetricsListen = "127.0.0.1:notaport"
	a, err := New(cfg, staticScanner{tree: localTree})
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics listener")
}
