// Package server implements the manager service: agents upload their device
// trees, and every upload triggers a reconciliation pass over the fleet.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/beevans/integrated-manager-for-lustre/internal/device"
	"github.com/beevans/integrated-manager-for-lustre/internal/logger"
	"github.com/beevans/integrated-manager-for-lustre/internal/metrics"
	"github.com/beevans/integrated-manager-for-lustre/internal/reconcile"
	"github.com/beevans/integrated-manager-for-lustre/internal/store"
)

const maxBodyBytes = 32 << 20

// UploadResponse is returned by POST /devices/{fqdn} and POST /reconcile.
type UploadResponse struct {
	Run *store.Run `json:"run"`
	// Tree is the uploading host's reconciled tree; empty for /reconcile.
	Tree *device.Node `json:"tree,omitempty"`
}

// Server holds the HTTP server's state.
type Server struct {
	addr       string
	mux        *http.ServeMux
	store      *store.Store
	reconciler *reconcile.Reconciler
	metrics    *metrics.Metrics
	log        logger.Logger

	// passes serializes load-reconcile-save so concurrent uploads never
	// overwrite each other's results.
	passes sync.Mutex
}

// NewServer initializes and returns a new Server instance.
func NewServer(log logger.Logger, addr string, st *store.Store, rec *reconcile.Reconciler, m *metrics.Metrics) *Server {
	s := &Server{
		addr:       addr,
		mux:        http.NewServeMux(),
		store:      st,
		reconciler: rec,
		metrics:    m,
		log:        log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /devices/{fqdn}", s.uploadHandler)
	s.mux.HandleFunc("GET /devices", s.listHandler)
	s.mux.HandleFunc("GET /devices/{fqdn}", s.getHandler)
	s.mux.HandleFunc("DELETE /devices/{fqdn}", s.deleteHandler)
	s.mux.HandleFunc("POST /reconcile", s.reconcileHandler)
	s.mux.HandleFunc("GET /runs", s.runsHandler)
	s.mux.HandleFunc("GET /healthz", s.healthHandler)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	fqdn := r.PathValue("fqdn")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.reject(w, fqdn, err)
		return
	}
	tree, err := device.Unmarshal(body)
	if err != nil {
		s.reject(w, fqdn, err)
		return
	}
	if err := device.Validate(tree); err != nil {
		s.reject(w, fqdn, err)
		return
	}

	s.passes.Lock()
	defer s.passes.Unlock()

	ctx := r.Context()
	if err := s.store.Save(ctx, fqdn, tree); err != nil {
		s.internalError(w, "Failed to save devices", err)
		return
	}
	s.metrics.ObserveUpload("ok")
	if err := s.store.RecordEvent(ctx, fqdn, store.EventUploaded, map[string]any{"nodes": device.Count(tree)}); err != nil {
		s.log.Error(err, "Failed to record upload", "host", fqdn)
	}
	s.log.Info("Received devices", "host", fqdn, "nodes", device.Count(tree))

	others, err := s.store.LoadAllExcept(ctx, fqdn)
	if err != nil {
		s.internalError(w, "Failed to load devices", err)
		return
	}

	batch := append([]device.Snapshot{{Host: fqdn, Tree: tree}}, others...)
	run, report, err := s.reconcile(ctx, batch)
	if err != nil {
		s.internalError(w, "Reconciliation failed", err)
		return
	}

	s.writeJSON(w, http.StatusOK, UploadResponse{Run: run, Tree: &device.Node{Device: report.Snapshots[0].Tree}})
}

func (s *Server) reconcileHandler(w http.ResponseWriter, r *http.Request) {
	s.passes.Lock()
	defer s.passes.Unlock()

	ctx := r.Context()
	batch, err := s.store.LoadAll(ctx)
	if err != nil {
		s.internalError(w, "Failed to load devices", err)
		return
	}

	run, _, err := s.reconcile(ctx, batch)
	if err != nil {
		s.internalError(w, "Reconciliation failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, UploadResponse{Run: run})
}

// reconcile runs a pass over batch and persists its results. Callers hold
// s.passes.
func (s *Server) reconcile(ctx context.Context, batch []device.Snapshot) (*store.Run, *reconcile.Report, error) {
	started := time.Now()
	report, err := s.reconciler.Run(batch)
	if err != nil {
		return nil, nil, err
	}

	failed := make(map[string]bool, len(report.Failed))
	for _, f := range report.Failed {
		failed[f.Host] = true
		if err := s.store.RecordEvent(ctx, f.Host, store.EventFailed, map[string]any{"error": f.Err.Error()}); err != nil {
			s.log.Error(err, "Failed to record event", "host", f.Host)
		}
	}

	var reconciled []device.Snapshot
	for _, snap := range report.Snapshots {
		if !failed[snap.Host] {
			reconciled = append(reconciled, snap)
		}
	}
	if err := s.store.SaveAll(ctx, reconciled); err != nil {
		return nil, nil, err
	}

	for _, host := range report.Changed {
		if err := s.store.RecordEvent(ctx, host, store.EventReconciled, nil); err != nil {
			s.log.Error(err, "Failed to record event", "host", host)
		}
	}

	run := store.NewRun(started, report)
	if err := s.store.RecordRun(ctx, run); err != nil {
		s.log.Error(err, "Failed to record run", "run", run.ID.String())
	}

	s.metrics.ObserveRun(report)
	if hosts, err := s.store.List(ctx); err == nil {
		s.metrics.SetStoredHosts(len(hosts))
	}

	s.log.Info("Reconciled devices",
		"run", run.ID.String(),
		"hosts", run.Hosts,
		"donors", run.Donors,
		"changed", len(run.Changed),
		"failed", len(run.Failed))

	return run, report, nil
}

func (s *Server) listHandler(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.store.LoadAll(r.Context())
	if err != nil {
		s.internalError(w, "Failed to load devices", err)
		return
	}
	if snapshots == nil {
		snapshots = []device.Snapshot{}
	}
	s.writeJSON(w, http.StatusOK, snapshots)
}

func (s *Server) getHandler(w http.ResponseWriter, r *http.Request) {
	fqdn := r.PathValue("fqdn")

	tree, err := s.store.Get(r.Context(), fqdn)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Debug("Host not found", "host", fqdn)
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.internalError(w, "Failed to load devices", err)
		return
	}
	s.writeJSON(w, http.StatusOK, device.Node{Device: tree})
}

func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	fqdn := r.PathValue("fqdn")

	err := s.store.Delete(r.Context(), fqdn)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.internalError(w, "Failed to delete devices", err)
		return
	}

	if err := s.store.RecordEvent(r.Context(), fqdn, store.EventDeleted, nil); err != nil {
		s.log.Error(err, "Failed to record event", "host", fqdn)
	}
	s.log.Info("Deleted devices", "host", fqdn)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) runsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, fmt.Sprintf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.store.RecentRuns(r.Context(), limit)
	if err != nil {
		s.internalError(w, "Failed to load runs", err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) reject(w http.ResponseWriter, fqdn string, err error) {
	s.metrics.ObserveUpload("rejected")
	s.log.Warning("Rejected devices", "host", fqdn, "err", err.Error())
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.log.Error(err, msg)
	http.Error(w, msg, http.StatusInternalServerError)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error(err, "Error encoding response")
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("Starting device server", "address", s.addr)
	server := &http.Server{Addr: s.addr, Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP device server ListenAndServe: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down device server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server Shutdown: %w", err)
		}
		s.log.Info("Device server stopped")
		return nil
	case err := <-errChan:
		return err
	}
}
