// Package http exposes the REST API: CSV upload, summaries, transaction
// listing, bank sync and spending insights. Every /api route requires a
// bearer token.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetbuddy/internal/advisor"
	"budgetbuddy/internal/bank"
	"budgetbuddy/internal/ingest"
	"budgetbuddy/internal/ledger"
	applog "budgetbuddy/internal/log"
)

// SyncPublisher enqueues a bank sync job for the background worker.
type SyncPublisher interface {
	PublishBankSync(ctx context.Context, userID, accessToken string) error
}

type Server struct {
	http.Server

	importer   *ingest.Importer
	aggregator *ledger.Aggregator
	store      ledger.Reader
	auth       *Authenticator

	// Optional surfaces. Nil disables the matching routes with a 503.
	bankClient *bank.Client
	syncer     *bank.Syncer
	publisher  SyncPublisher
	advisor    *advisor.Advisor

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// Deps bundles everything the API serves from.
type Deps struct {
	Importer   *ingest.Importer
	Aggregator *ledger.Aggregator
	Store      ledger.Reader
	Auth       *Authenticator
	Logger     *applog.Logger

	BankClient *bank.Client
	Syncer     *bank.Syncer
	Publisher  SyncPublisher
	Advisor    *advisor.Advisor
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		importer:    deps.Importer,
		aggregator:  deps.Aggregator,
		store:       deps.Store,
		auth:        deps.Auth,
		bankClient:  deps.BankClient,
		syncer:      deps.Syncer,
		publisher:   deps.Publisher,
		advisor:     deps.Advisor,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/csv/upload", s.protected(s.handleCSVUpload))
	mux.HandleFunc("/api/summary", s.protected(s.handleSummary))
	mux.HandleFunc("/api/transactions", s.protected(s.handleTransactions))
	mux.HandleFunc("/api/plaid/create-link-token", s.protected(s.handleCreateLinkToken))
	mux.HandleFunc("/api/plaid/exchange-token", s.protected(s.handleExchangeToken))
	mux.HandleFunc("/api/plaid/sync", s.protected(s.handlePlaidSync))
	mux.HandleFunc("/api/insights", s.protected(s.handleInsights))

	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	var handler http.Handler = mux
	handler = applog.RequestIDMiddleware(extractRequestID)(handler)
	handler = applog.Middleware(logger)(handler)
	s.Server.Handler = handler

	return s
}

// extractRequestID reuses the caller's X-Request-ID when present so traces
// can span services, and mints one otherwise.
func extractRequestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// protected chains the request middleware with bearer auth.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return s.withRequestContext(s.auth.Middleware(next))
}

// withRequestContext adds security headers, rate limiting and request logging.
// The context logger already carries the request ID from the outer chain.
func (s *Server) withRequestContext(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		logger := applog.FromContext(ctx)

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		startFields := applog.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, r.Header.Get("User-Agent")).
			WithClientIP(clientIP)
		logger.InfoContext(ctx, "Request started", startFields.ToSlice()...)

		// Uploads and sync triggers are the expensive paths
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded", applog.FieldClientIP, clientIP, applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		endFields := applog.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, "").
			WithHTTPResponse(rw.statusCode, time.Since(start).Milliseconds(), rw.statusCode < 400).
			WithClientIP(clientIP)
		logger.InfoContext(ctx, "Request completed", endFields.ToSlice()...)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
