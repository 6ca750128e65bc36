// Package report serves the run-history API and the MCP endpoint over HTTP.
// It reads what capture runs recorded; the only write path is POST /api/runs,
// which triggers a run through the injected RunFunc.
package report

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/uiproof/capture"
	"github.com/hazyhaar/uiproof/proof"
	"github.com/hazyhaar/uiproof/runlog"
)

// Config wires the server to its collaborators.
type Config struct {
	Addr      string
	AuthUser  string // both empty = no auth
	AuthHash  string // bcrypt hash of the password
	Store     *runlog.Store
	Scenarios map[string]capture.Scenario
	Run       capture.RunFunc
	Logger    *slog.Logger
}

// Server is the report HTTP server.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	handler http.Handler
}

// New builds the server and its routes. The MCP endpoint exposes the same
// store, scenarios and RunFunc as the JSON API.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(headToGet)
	r.Use(securityHeaders())
	r.Use(maxBody(1 << 20))
	r.Use(requestID(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	protect := func(h http.Handler) http.Handler { return h }
	if s.cfg.AuthUser != "" && s.cfg.AuthHash != "" {
		auth := basicAuth(s.cfg.AuthUser, s.cfg.AuthHash)
		protect = func(h http.Handler) http.Handler { return auth(h) }
	}

	api := chi.NewRouter()
	api.Get("/runs", s.handleListRuns)
	api.Post("/runs", s.handleTriggerRun)
	api.Get("/runs/{id}", s.handleGetRun)
	api.Get("/runs/{id}/artifacts/{artifactID}", s.handleArtifact)
	api.Get("/scenarios", s.handleScenarios)
	r.Mount("/api", protect(api))

	r.Mount("/mcp", protect(s.mcpHandler()))

	return r
}

// mcpHandler exposes the capture, runlog and proof tools over the MCP
// streamable HTTP transport, stateless with plain JSON responses.
func (s *Server) mcpHandler() http.Handler {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "uiproof",
		Version: "1.0.0",
	}, nil)

	capture.RegisterMCP(srv, s.cfg.Scenarios, s.cfg.Run)
	if s.cfg.Store != nil {
		s.cfg.Store.RegisterMCP(srv)
	}
	proof.RegisterMCP(srv)

	return mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return srv },
		&mcp.StreamableHTTPOptions{
			JSONResponse: true,
			Stateless:    true,
		},
	)
}

// Serve runs the server until ctx is cancelled, then drains connections for
// up to 10 seconds.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("report server starting", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("report server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
