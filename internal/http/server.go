// Package http serves the ledger UI and the JSON API.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"kakeibo/internal/ledger"
	applog "kakeibo/internal/log"
	"kakeibo/internal/middleware/ratelimit"
	"kakeibo/internal/middleware/security"
	"kakeibo/internal/middleware/trace"
	"kakeibo/internal/services"
	"kakeibo/internal/summary"
	"kakeibo/internal/taxonomy"
	appweb "kakeibo/web"
)

type Server struct {
	http.Server
	templates  *template.Template
	svc        *services.TransactionService
	store      *ledger.Store
	reports    *summary.Service
	categories *taxonomy.Set
	budget     int64

	detector     *security.Detector
	headers      *security.HeadersMiddleware
	tracer       *trace.Middleware
	writeLimiter *ratelimit.Limiter
	modelLimiter *ratelimit.Limiter

	audit *applog.StructuredLogger

	shutdownOnce sync.Once
	now          func() time.Time
}

// Options carries the collaborators the server needs.
type Options struct {
	Addr          string
	Service       *services.TransactionService
	Store         *ledger.Store
	Reports       *summary.Service
	Categories    *taxonomy.Set
	MonthlyBudget int64
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	detector := security.NewDetector()

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		svc:        opts.Service,
		store:      opts.Store,
		reports:    opts.Reports,
		categories: opts.Categories,
		budget:     opts.MonthlyBudget,
		detector:   detector,
		headers:    security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		tracer:     trace.NewMiddleware(detector.ExtractClientIP),
		// Writes share one generous bucket; the model-backed endpoints get
		// a much smaller one since each request can bill an LLM call.
		writeLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 60, CleanupInterval: 5 * time.Minute}),
		modelLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 6, CleanupInterval: 5 * time.Minute}),
		audit:        applog.NewStructuredLogger(applog.New(applog.Config{Component: applog.ComponentHTTP})),
		now:          time.Now,
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /{$}", s.protect(s.handleIndex, nil))
	mux.HandleFunc("GET /ui/month-overview", s.protect(s.handleMonthOverviewPartial, nil))
	mux.HandleFunc("GET /export", s.protect(s.handleExport, nil))

	mux.HandleFunc("POST /transactions", s.protect(s.handleCreateTransaction, s.writeLimiter))
	mux.HandleFunc("PUT /transactions/{id}", s.protect(s.handleUpdateTransaction, s.writeLimiter))
	mux.HandleFunc("POST /transactions/{id}/delete", s.protect(s.handleDeleteTransaction, s.writeLimiter))
	mux.HandleFunc("DELETE /transactions/{id}", s.protect(s.handleDeleteTransaction, s.writeLimiter))

	mux.HandleFunc("GET /api/overview", s.protect(s.handleOverview, nil))
	mux.HandleFunc("POST /api/import", s.protect(s.handleImport, s.modelLimiter))
	mux.HandleFunc("POST /api/import/confirm", s.protect(s.handleImportConfirm, s.writeLimiter))
	mux.HandleFunc("GET /api/summary", s.protect(s.handleSummary, s.modelLimiter))

	return s
}

// protect wraps a handler with suspicious-request screening, security
// headers, tracing and an optional per-client rate limit.
func (s *Server) protect(next http.HandlerFunc, limiter *ratelimit.Limiter) http.HandlerFunc {
	h := http.Handler(next)
	if limiter != nil {
		h = limiter.Middleware(s.detector.ExtractClientIP, nil)(h)
	}
	screened := h
	h = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Blocked suspicious request",
				"path", r.URL.Path, "client_ip", s.detector.ExtractClientIP(r))
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		screened.ServeHTTP(w, r)
	})
	h = s.headers.Middleware(h)
	h = s.tracer.Middleware(h)
	return h.ServeHTTP
}

// Shutdown stops the limiters' cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.writeLimiter.Stop()
		s.modelLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
