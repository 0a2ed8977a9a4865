// Package server implements the repairgraph read API.
//
// The server exposes the outputs of a pipeline run over HTTP: variant
// tables, group graphs, persisted layouts and on-demand renders. It never
// runs extraction; results are read from the configured output directory
// and layout store.
//
//	GET /healthz
//	GET /groups
//	GET /groups/{group}/graph
//	GET /groups/{group}/layout
//	GET /groups/{group}/render/{format}
//	GET /experiments/{name}/variants
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/repairgraph/pkg/buildinfo"
	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/graph"
	"github.com/matzehuels/repairgraph/pkg/io"
	"github.com/matzehuels/repairgraph/pkg/observability"
	"github.com/matzehuels/repairgraph/pkg/pipeline"
	"github.com/matzehuels/repairgraph/pkg/render"
	"github.com/matzehuels/repairgraph/pkg/render/nodelink"
)

const shutdownTimeout = 5 * time.Second

var contentTypes = map[string]string{
	render.FormatSVG: "image/svg+xml",
	render.FormatPNG: "image/png",
	render.FormatPDF: "application/pdf",
	render.FormatDOT: "text/vnd.graphviz",
}

// Server serves the outputs of one configuration.
type Server struct {
	Config *pipeline.Config
	Runner *pipeline.Runner
	Logger *log.Logger

	router chi.Router
}

// New creates a server for cfg. The runner's layout engine must use the
// store the pipeline wrote to.
func New(cfg *pipeline.Config, runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{Config: cfg, Runner: runner, Logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Get("/groups", s.handleGroups)
	r.Route("/groups/{group}", func(r chi.Router) {
		r.Use(s.requireGroup)
		r.Get("/graph", s.handleGraph)
		r.Get("/layout", s.handleLayout)
		r.Get("/render/{format}", s.handleRender)
	})
	r.Get("/experiments/{name}/variants", s.handleVariants)

	s.router = r
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
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
	if err := <-errCh; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// =============================================================================
// Middleware
// =============================================================================

// observe reports requests to the HTTP hooks and logs them at debug level.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := routePattern(r)
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.Host, route)
		hooks.OnResponse(r.Context(), r.Method, r.Host, route, ww.Status(), time.Since(start))

		s.Logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start))
	})
}

func (s *Server) requireGroup(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		group := chi.URLParam(r, "group")
		if !slices.Contains(s.Config.Groups(), group) {
			s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "unknown layout group %q", group))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := buildinfo.Fields()
	body["status"] = "ok"
	writeJSON(w, http.StatusOK, body)
}

type groupInfo struct {
	Group       string   `json:"group"`
	Experiments []string `json:"experiments"`
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	groups := s.Config.Groups()
	out := make([]groupInfo, len(groups))
	for i, g := range groups {
		out[i] = groupInfo{Group: g, Experiments: s.Config.GroupExperiments(g)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	g, err := graph.ReadGraphFile(s.Config.OutputPath("groups", group+".graph.json"))
	if err != nil {
		s.writeError(w, r, notFoundIfMissing(err, "no graph for group %q", group))
		return
	}
	writeJSON(w, http.StatusOK, graph.FromVariantGraph(g))
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	l, err := s.Runner.LoadLayout(r.Context(), chi.URLParam(r, "group"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	format := chi.URLParam(r, "format")
	if !render.ValidFormats[format] {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "unsupported format %q", format))
		return
	}

	g, err := graph.ReadGraphFile(s.Config.OutputPath("groups", group+".graph.json"))
	if err != nil {
		s.writeError(w, r, notFoundIfMissing(err, "no graph for group %q", group))
		return
	}
	l, err := s.Runner.LoadLayout(r.Context(), group)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	opts := nodelink.Options{
		Detailed:   q.Has("detailed"),
		Experiment: q.Get("experiment"),
	}
	artifacts, err := s.Runner.Render(r.Context(), g, l, []string{format}, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := s.Config.Experiment(name); !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "unknown experiment %q", name))
		return
	}
	exp, err := io.ImportVariants(s.Config.OutputPath("variants", name+".variants.tsv"))
	if err != nil {
		s.writeError(w, r, notFoundIfMissing(err, "no variant table for experiment %q", name))
		return
	}

	if r.URL.Query().Get("format") == "tsv" {
		w.Header().Set("Content-Type", "text/tab-separated-values")
		w.WriteHeader(http.StatusOK)
		if err := io.WriteVariants(exp, w); err != nil {
			s.Logger.Warn("write variants", "experiment", name, "err", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "route", routePattern(r), "err", err)
	}
	observability.HTTP().OnError(r.Context(), r.Method, r.Host, routePattern(r), err)

	code := errors.GetCodeOr(err, errors.ErrCodeInternal)
	writeJSON(w, status, errorBody{Error: errors.UserMessage(err), Code: string(code)})
}

// statusOf maps an error code to an HTTP status.
func statusOf(err error) int {
	if errors.IsVersionConflict(err) {
		return http.StatusConflict
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidName,
		errors.ErrCodeInvalidPath, errors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errors.ErrCodeVersionConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func notFoundIfMissing(err error, format string, args ...any) error {
	if stderrors.Is(err, os.ErrNotExist) {
		return errors.Wrap(errors.ErrCodeNotFound, err, format, args...)
	}
	return err
}
