package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"madcal/internal/config"
	"madcal/internal/exclusion"
	appLog "madcal/internal/log"
	"madcal/internal/model"
	"madcal/internal/monitor"
	"madcal/internal/ordering"
	"madcal/internal/palette"
	"madcal/internal/projection"
)

// snapshotTTL bounds how long fetched events and exclusions are reused
// across requests.
const snapshotTTL = 30 * time.Second

// Sources supplies the raw inputs. source.Loader implements it.
type Sources interface {
	Events(ctx context.Context) ([]model.SourceEvent, error)
	Exclusions(ctx context.Context) exclusion.Table
	Items(ctx context.Context) ([]model.TrackedItem, error)
}

// PageReporter supplies the latest page monitor results. monitor.Monitor
// implements it.
type PageReporter interface {
	Checks() []monitor.Check
}

// Server exposes the projected calendar and the change tracker over HTTP.
type Server struct {
	cfg *config.Config
	src Sources
	mux *http.ServeMux

	order *ordering.Orderer

	// Project resets the color memo, so passes must not interleave.
	projMu    sync.Mutex
	projector *projection.Projector

	// In-memory cache of the fetched inputs to avoid refetching on every
	// HTTP request.
	snapMu   sync.RWMutex
	snapshot *snapshot

	pages PageReporter

	now func() time.Time
}

// snapshot holds one fetch of events and exclusions and its timestamp.
type snapshot struct {
	events    []model.SourceEvent
	table     exclusion.Table
	updatedAt time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, src Sources) *Server {
	order := ordering.New(cfg.PreferredOrder)
	s := &Server{
		cfg:       cfg,
		src:       src,
		mux:       http.NewServeMux(),
		order:     order,
		projector: projection.New(palette.NewAssigner(nil), order),
		now:       time.Now,
	}
	s.registerRoutes()
	return s
}

// SetClock replaces the time source used for "today".
func (s *Server) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. Blank
// credentials disable it.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="madcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// SetPages enables /api/pages. Without it the endpoint returns no pages.
func (s *Server) SetPages(p PageReporter) {
	s.pages = p
}

// StartServer serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully. pages may be nil.
func StartServer(ctx context.Context, cfg *config.Config, src Sources, pages PageReporter) error {
	s := NewServer(cfg, src)
	if pages != nil {
		s.SetPages(pages)
	}
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/calendar-cells", s.handleCalendarCells)
	s.mux.HandleFunc("/api/musicals", s.handleMusicals)
	s.mux.HandleFunc("/api/changes", s.handleChanges)
	s.mux.HandleFunc("/api/pages", s.handlePages)
	s.mux.HandleFunc("/calendar.ics", s.handleCalendarICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// loadSnapshot returns the cached inputs, refetching them once the cache
// is older than snapshotTTL.
func (s *Server) loadSnapshot(ctx context.Context) (*snapshot, error) {
	now := time.Now()

	s.snapMu.RLock()
	snap := s.snapshot
	s.snapMu.RUnlock()
	if snap != nil && now.Sub(snap.updatedAt) < snapshotTTL {
		return snap, nil
	}

	events, err := s.src.Events(ctx)
	if err != nil {
		return nil, err
	}
	snap = &snapshot{
		events:    events,
		table:     s.src.Exclusions(ctx),
		updatedAt: time.Now(),
	}

	s.snapMu.Lock()
	s.snapshot = snap
	s.snapMu.Unlock()
	return snap, nil
}

// project runs one projection pass over the snapshot.
func (s *Server) project(snap *snapshot, opts projection.Options) []model.ProjectedCell {
	s.projMu.Lock()
	defer s.projMu.Unlock()
	return s.projector.Project(snap.events, snap.table, opts)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
