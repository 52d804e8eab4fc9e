// Package api serves the panel page and its JSON and websocket endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/AaronLay10/verifypanel/internal/events"
	"github.com/AaronLay10/verifypanel/internal/logpane"
	"github.com/AaronLay10/verifypanel/internal/panel"
	"github.com/AaronLay10/verifypanel/internal/prefs"
	"github.com/AaronLay10/verifypanel/internal/sequencer"
)

const shutdownTimeout = 5 * time.Second

// Checker is the part of the sequencer the HTTP surface drives.
type Checker interface {
	Start() bool
	Snapshot() sequencer.Snapshot
	Stages() []sequencer.Stage
}

// Deps are the collaborators a Server needs. Metrics and Readiness are
// optional.
type Deps struct {
	Checker   Checker
	Bus       *events.Bus
	Pane      *logpane.Pane
	Themes    *prefs.Themes
	Panel     *panel.Panel
	Session   panel.Session
	PanelName string
	Metrics   *Metrics
	Readiness *Readiness
	TLS       TLSConfig
	Logger    *zap.Logger
}

type Server struct {
	checker   Checker
	bus       *events.Bus
	pane      *logpane.Pane
	themes    *prefs.Themes
	panel     *panel.Panel
	session   panel.Session
	panelName string
	metrics   *Metrics
	readiness *Readiness
	tls       TLSConfig
	logger    *zap.Logger
}

func NewServer(d Deps) *Server {
	s := &Server{
		checker:   d.Checker,
		bus:       d.Bus,
		pane:      d.Pane,
		themes:    d.Themes,
		panel:     d.Panel,
		session:   d.Session,
		panelName: d.PanelName,
		metrics:   d.Metrics,
		readiness: d.Readiness,
		tls:       d.TLS,
		logger:    d.Logger,
	}
	if s.readiness == nil {
		s.readiness = NewReadiness()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerUI(mux)

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/check", s.handleCheck)
	mux.HandleFunc("/api/log/clear", s.handleLogClear)
	mux.HandleFunc("/api/theme", s.handleTheme)
	mux.HandleFunc("/api/theme/toggle", s.handleThemeToggle)
	mux.HandleFunc("/api/drawer/open", s.handleDrawerOpen)
	mux.HandleFunc("/api/profile", s.handleProfile)
	mux.HandleFunc("/api/profile/randomize", s.handleRandomize)
	mux.HandleFunc("/api/visibility", s.handleVisibility)
	mux.HandleFunc("/ws/events", s.handleEvents)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. Open websocket streams end when the bus is closed.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	tlsCfg, err := s.tls.Load()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("panel listening", zap.String("addr", addr), zap.Bool("tls", tlsCfg != nil))
		if tlsCfg != nil {
			errCh <- srv.ListenAndServeTLS("", "")
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Response is the envelope of every JSON write endpoint.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{OK: false, Error: msg})
}

func allowMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// decodeBody decodes an optional JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   "verifypanel",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := s.readiness.Evaluate(r.Context())
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

type LogState struct {
	Lines []string `json:"lines"`
	Count int      `json:"count"`
}

type StateResponse struct {
	OK        bool               `json:"ok"`
	PanelName string             `json:"panel_name"`
	Session   panel.Session      `json:"session"`
	Snapshot  sequencer.Snapshot `json:"snapshot"`
	Stages    []sequencer.Stage  `json:"stages"`
	Log       LogState           `json:"log"`
	Profile   panel.Profile      `json:"profile"`
	Modes     []string           `json:"modes"`
	Theme     prefs.Theme        `json:"theme"`
	Seq       int64              `json:"seq"`
	Timestamp string             `json:"ts"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	// Taken first: every event with a higher seq may be missing from the
	// reads below, every event up to it is already reflected in them.
	seq := s.bus.Total()
	ts := time.Now().UTC()
	writeJSON(w, http.StatusOK, StateResponse{
		OK:        true,
		PanelName: s.panelName,
		Session:   s.session,
		Snapshot:  s.checker.Snapshot(),
		Stages:    s.checker.Stages(),
		Log:       LogState{Lines: s.pane.Lines(), Count: s.pane.Count()},
		Profile:   s.panel.Profile(),
		Modes:     panel.Modes,
		Theme:     s.themes.Current(),
		Seq:       seq,
		Timestamp: ts.Format(time.RFC3339Nano),
	})
}

type CheckResponse struct {
	OK      bool `json:"ok"`
	Started bool `json:"started"`
}

// handleCheck triggers a run. A trigger while a run is active is not an
// error; it answers started=false and changes nothing.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	started := s.checker.Start()
	if s.metrics != nil {
		s.metrics.Trigger("http", started)
	}
	writeJSON(w, http.StatusOK, CheckResponse{OK: true, Started: started})
}

func (s *Server) handleLogClear(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	s.pane.Clear()
	writeJSON(w, http.StatusOK, Response{OK: true})
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

type ThemeResponse struct {
	OK    bool        `json:"ok"`
	Theme prefs.Theme `json:"theme"`
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, ThemeResponse{OK: true, Theme: s.themes.Current()})
		return
	}

	var req ThemeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	theme, err := prefs.ParseTheme(req.Theme)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.themes.Set(r.Context(), theme); err != nil {
		s.logger.Error("theme write failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "theme not saved")
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{OK: true, Theme: theme})
}

func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	theme, err := s.themes.Toggle(r.Context())
	if err != nil {
		s.logger.Error("theme write failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "theme not saved")
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{OK: true, Theme: theme})
}

func (s *Server) handleDrawerOpen(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	s.panel.OpenDrawer()
	writeJSON(w, http.StatusOK, Response{OK: true})
}

type ProfileRequest struct {
	Profile string `json:"profile"`
	Mode    string `json:"mode"`
}

type ProfileResponse struct {
	OK      bool          `json:"ok"`
	Error   string        `json:"error,omitempty"`
	Profile panel.Profile `json:"profile"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req ProfileRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	prof, err := s.panel.Apply(req.Profile, req.Mode)
	if errors.Is(err, panel.ErrUnknownMode) {
		writeJSON(w, http.StatusBadRequest, ProfileResponse{OK: false, Error: err.Error(), Profile: prof})
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{OK: true, Profile: prof})
}

func (s *Server) handleRandomize(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{OK: true, Profile: s.panel.Randomize()})
}

type VisibilityRequest struct {
	Hidden bool `json:"hidden"`
}

// handleVisibility is called by the installed page when it is switched away
// from or back to.
func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req VisibilityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Hidden {
		s.panel.Hidden()
	}
	writeJSON(w, http.StatusOK, Response{OK: true})
}
