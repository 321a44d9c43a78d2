// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/inkwell-studio/inkwell/internal/alert"
	"github.com/inkwell-studio/inkwell/internal/backend"
	"github.com/inkwell-studio/inkwell/internal/logging"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr matches the editor's default backend URL.
	DefaultAddr = "127.0.0.1:8000"

	// MaxRequestBodySize bounds request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// DefaultRateLimit is the per-IP request rate when none is configured.
	DefaultRateLimit = 50
)

// ============================================================================
// CONFIG
// ============================================================================

// Config configures a mock server.
type Config struct {
	// Addr is the listen address. Empty uses DefaultAddr.
	Addr string

	// Token, when set, is required as a bearer token on editor routes.
	Token string

	// Words extends the spelling dictionary.
	Words []string

	// Latency delays every analysis route, to exercise client timeouts and
	// the editor's in-flight states.
	Latency time.Duration

	// RateLimit is requests per second per IP. Zero uses DefaultRateLimit;
	// a negative value disables limiting.
	RateLimit float64

	// MaxHistory caps the drafts kept per project.
	MaxHistory int

	// Logger receives request and lifecycle events. Nil discards them.
	Logger *slog.Logger
}

// ============================================================================
// SERVER
// ============================================================================

// Server is an in-memory stand-in for the Inkwell backend.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	analyzer *Analyzer
	store    *Store
	metrics  *Metrics
	router   *http.ServeMux
	handler  http.Handler

	mu     sync.Mutex
	server *http.Server
}

// New builds a server. Routes are ready immediately; Handler can be used
// without listening.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		analyzer: NewAnalyzer(cfg.Words),
		store:    NewStore(cfg.MaxHistory),
		metrics:  NewMetrics(),
		router:   http.NewServeMux(),
	}
	s.setupRoutes()

	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		s.metrics.Middleware,
		AuthMiddleware(cfg.Token, logger),
	}
	if cfg.RateLimit > 0 {
		middlewares = append(middlewares, RateLimitMiddleware(NewRateLimiter(cfg.RateLimit, int(cfg.RateLimit)), logger))
	}
	s.handler = Chain(middlewares...)(s.router)
	return s
}

// Handler returns the server's full middleware chain and routes.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Store returns the server's project store.
func (s *Server) Store() *Store {
	return s.store
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /editor/save", s.handleSave)
	s.router.HandleFunc("POST /editor/analyze", s.handleAnalyze)
	s.router.HandleFunc("POST /editor/fix-spelling", s.handleFixSpelling)
	s.router.HandleFunc("POST /editor/get-grammar-suggestion", s.handleGrammar)
	s.router.HandleFunc("POST /editor/generate-suggestions", s.handleGenerate)
	s.router.HandleFunc("POST /editor/suggest", s.handleSuggest)
	s.router.HandleFunc("GET /editor/story-brain/{id}", s.handleStoryBrain)
	s.router.HandleFunc("POST /projects/setup", s.handleSetup)
	s.router.HandleFunc("POST /editor/update-entity", s.handleUpdateEntity)
	s.router.HandleFunc("POST /editor/refresh-character-summary", s.handleRefreshSummary)

	s.router.HandleFunc("GET /plot-thread/{id}", s.handlePlotThread)
	s.router.HandleFunc("POST /plot-thread/{id}/extract", s.handleExtract)
	s.router.HandleFunc("POST /plot-thread/{id}/thread", s.handleCreateThread)
	s.router.HandleFunc("POST /plot-thread/{id}/point", s.handleCreatePoint)
	s.router.HandleFunc("PUT /plot-thread/point/{pointID}", s.handleUpdatePoint)
	s.router.HandleFunc("DELETE /plot-thread/point/{pointID}", s.handleDeletePoint)
	s.router.HandleFunc("POST /plot-thread/connection", s.handleConnect)
	s.router.HandleFunc("DELETE /plot-thread/connection/{connectionID}", s.handleDisconnect)
	s.router.HandleFunc("GET "+backend.SocketPath, s.handleSocket)

	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.Handle("GET /metrics", s.metrics.Handler())
}

// ============================================================================
// EDITOR HANDLERS
// ============================================================================

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req backend.ContentRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ProjectID == "" {
		writeError(w, http.StatusUnprocessableEntity, "project_id is required")
		return
	}
	s.store.Save(req.ProjectID, req.Content)
	writeJSON(w, http.StatusOK, backend.SaveResponse{Status: "saved", ProjectID: req.ProjectID})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req backend.ContentRequest
	if !s.decode(w, r, &req) || !requireContent(w, req.ProjectID, req.Content) {
		return
	}
	if !s.delay(r) {
		return
	}
	writeJSON(w, http.StatusOK, s.analyze(req.ProjectID, req.Content))
}

// analyze runs the analyzer and records the draft and its entities, as
// the HTTP route and the socket both do.
func (s *Server) analyze(project, content string) backend.AnalyzeResponse {
	alerts, entities := s.analyzer.Analyze(content)
	s.store.Save(project, content)
	s.store.AddEntities(project, entities)
	s.metrics.ObserveAlerts(alerts)

	s.logger.Debug("ANALYZE", "project", project, "chars", len(content), "alerts", len(alerts), "entities", len(entities))

	if alerts == nil {
		alerts = []alert.Alert{}
	}
	if entities == nil {
		entities = []backend.Entity{}
	}
	return backend.AnalyzeResponse{
		Status:          "success",
		Alerts:          alerts,
		Entities:        entities,
		ResolvedContext: strings.Join(strings.Fields(content), " "),
	}
}

func (s *Server) handleFixSpelling(w http.ResponseWriter, r *http.Request) {
	var req backend.FixSpellingRequest
	if !s.decode(w, r, &req) || !requireContent(w, req.ProjectID, req.Content) {
		return
	}
	if req.Word == "" || req.Suggestion == "" {
		writeError(w, http.StatusUnprocessableEntity, "word and suggestion are required")
		return
	}
	if !s.delay(r) {
		return
	}

	corrected, n := ReplaceWord(req.Content, req.Word, req.Suggestion)
	s.logger.Debug("FIX_SPELLING", "project", req.ProjectID, "word", req.Word, "replaced", n)
	writeJSON(w, http.StatusOK, backend.FixSpellingResponse{Status: "success", CorrectedText: corrected})
}

func (s *Server) handleGrammar(w http.ResponseWriter, r *http.Request) {
	var req backend.GrammarRequest
	if !s.decode(w, r, &req) || !requireContent(w, req.ProjectID, req.Content) {
		return
	}
	if req.Alert.OriginalText == "" {
		writeError(w, http.StatusUnprocessableEntity, "alert.original_text is required")
		return
	}
	if !s.delay(r) {
		return
	}

	suggested, explanation, _ := s.analyzer.Rewrite(req.Alert)
	writeJSON(w, http.StatusOK, backend.GrammarSuggestion{
		Status:        "success",
		OriginalText:  req.Alert.OriginalText,
		SuggestedText: suggested,
		Explanation:   explanation,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req backend.ContentRequest
	if !s.decode(w, r, &req) || !requireContent(w, req.ProjectID, req.Content) {
		return
	}
	if !s.delay(r) {
		return
	}

	corrected, applied := s.analyzer.Correct(req.Content)
	writeJSON(w, http.StatusOK, backend.GeneratedSuggestions{
		Status:        "success",
		OriginalText:  req.Content,
		SuggestedText: corrected,
		AlertsApplied: applied,
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req backend.ContentRequest
	if !s.decode(w, r, &req) || !requireContent(w, req.ProjectID, req.Content) {
		return
	}
	if !s.delay(r) {
		return
	}

	suggestion := Continue(req.Content)
	// A continuation after a word needs a separating space.
	if suggestion != "" && !strings.HasSuffix(req.Content, " ") && !strings.HasSuffix(req.Content, "\n") {
		suggestion = " " + suggestion
	}
	writeJSON(w, http.StatusOK, backend.GhostResponse{Status: "success", Suggestion: suggestion})
}

// ============================================================================
// PROJECT HANDLERS
// ============================================================================

func (s *Server) handleStoryBrain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Brain(r.PathValue("id")))
}

func (s *Server) handlePlotThread(w http.ResponseWriter, r *http.Request) {
	threads, ok := s.store.Threads(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req backend.ProjectSetup
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	id := s.store.Setup(req)
	s.logger.Info("PROJECT_CREATED", "project", id, "characters", len(req.Characters))
	writeJSON(w, http.StatusOK, backend.SetupResponse{Status: "success", ProjectID: id})
}

func (s *Server) handleUpdateEntity(w http.ResponseWriter, r *http.Request) {
	entityID := r.URL.Query().Get("entity_id")
	if entityID == "" {
		writeError(w, http.StatusUnprocessableEntity, "entity_id is required")
		return
	}
	var patch map[string]any
	if !s.decode(w, r, &patch) {
		return
	}
	e, err := s.store.UpdateEntity(entityID, patch)
	if err != nil {
		writeError(w, http.StatusNotFound, "Entity not found")
		return
	}
	writeJSON(w, http.StatusOK, backend.EntityUpdate{Status: "updated", Data: []backend.Entity{e}})
}

func (s *Server) handleRefreshSummary(w http.ResponseWriter, r *http.Request) {
	var req backend.RefreshSummaryRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ProjectID == "" || req.EntityID == "" {
		writeError(w, http.StatusUnprocessableEntity, "project_id and entity_id are required")
		return
	}
	if !s.delay(r) {
		return
	}
	meta, err := s.store.RefreshSummary(req.ProjectID, req.EntityID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Entity not found or is not a CHARACTER.")
		return
	}
	writeJSON(w, http.StatusOK, backend.CharacterSummary{Status: "success", Metadata: meta})
}

// ============================================================================
// PLOT HANDLERS
// ============================================================================

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if !s.delay(r) {
		return
	}
	project := r.PathValue("id")
	res := s.store.Extract(project)
	s.logger.Debug("PLOT_EXTRACT", "project", project, "status", res.Status, "created", res.PlotPointsCreated)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req backend.NewPlotThread
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	t := s.store.AddThread(r.PathValue("id"), req)
	writeJSON(w, http.StatusOK, backend.ThreadResponse{Status: "success", Thread: t})
}

// pointRequest tells a missing timeline_position apart from zero.
type pointRequest struct {
	backend.NewPlotPoint
	TimelinePosition *int `json:"timeline_position"`
}

func (s *Server) handleCreatePoint(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	if req.TimelinePosition == nil {
		writeError(w, http.StatusUnprocessableEntity, "timeline_position is required")
		return
	}
	in := req.NewPlotPoint
	in.TimelinePosition = *req.TimelinePosition

	pt, err := s.store.AddPoint(r.PathValue("id"), in)
	if err != nil {
		writeError(w, http.StatusNotFound, "Plot thread not found")
		return
	}
	writeJSON(w, http.StatusOK, backend.PointResponse{Status: "success", Point: &pt})
}

func (s *Server) handleUpdatePoint(w http.ResponseWriter, r *http.Request) {
	var patch backend.PlotPointPatch
	if !s.decode(w, r, &patch) {
		return
	}
	if patch.Empty() {
		writeError(w, http.StatusBadRequest, "No fields to update")
		return
	}
	pt, err := s.store.UpdatePoint(r.PathValue("pointID"), patch)
	if err != nil {
		writeError(w, http.StatusNotFound, "Plot point not found")
		return
	}
	writeJSON(w, http.StatusOK, backend.PointResponse{Status: "success", Point: &pt})
}

func (s *Server) handleDeletePoint(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePoint(r.PathValue("pointID")); err != nil {
		writeError(w, http.StatusNotFound, "Plot point not found")
		return
	}
	writeJSON(w, http.StatusOK, backend.StatusMessage{Status: "success", Message: "Plot point deleted"})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req backend.NewConnection
	if !s.decode(w, r, &req) {
		return
	}
	if req.FromPointID == "" || req.ToPointID == "" {
		writeError(w, http.StatusUnprocessableEntity, "from_point_id and to_point_id are required")
		return
	}
	c, err := s.store.Connect(req)
	if err != nil {
		writeError(w, http.StatusNotFound, "Plot point not found")
		return
	}
	writeJSON(w, http.StatusOK, backend.ConnectionResponse{Status: "success", Connection: c})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Disconnect(r.PathValue("connectionID")); err != nil {
		writeError(w, http.StatusNotFound, "Connection not found")
		return
	}
	writeJSON(w, http.StatusOK, backend.StatusMessage{Status: "success", Message: "Connection deleted"})
}

// ============================================================================
// HEALTH
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Backend is running",
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe listens on the configured address and serves until
// Shutdown. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("SERVER_START", "addr", ln.Addr().String(), "auth", s.cfg.Token != "", "latency", s.cfg.Latency)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
// Hijacked websocket connections are not tracked and close with the
// process.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("SERVER_SHUTDOWN")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// decode reads a JSON body into v, answering 413 or 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", MaxRequestBodySize))
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// requireContent answers 422 when the project or content is missing.
func requireContent(w http.ResponseWriter, project, content string) bool {
	if project == "" || strings.TrimSpace(content) == "" {
		writeError(w, http.StatusUnprocessableEntity, "project_id and content are required")
		return false
	}
	return true
}

// delay waits out the configured latency. It returns false if the client
// went away first.
func (s *Server) delay(r *http.Request) bool {
	if s.cfg.Latency <= 0 {
		return true
	}
	t := time.NewTimer(s.cfg.Latency)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.Context().Done():
		return false
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the {"detail": ...} error body the editor expects.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
