// Package server exposes the chat turn and direct calendar calls over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/alexanderramin/kalend/internal/assistant"
	"github.com/alexanderramin/kalend/internal/domain"
)

// UserHeader carries the caller's user id.
const UserHeader = "X-User-ID"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Chatter runs one chat turn. *assistant.Orchestrator satisfies it.
type Chatter interface {
	Turn(ctx context.Context, req assistant.ChatRequest) (*assistant.ChatResponse, error)
}

// Caller runs a direct calendar call. *assistant.Dispatcher satisfies it.
type Caller interface {
	Call(ctx context.Context, userID string, fc assistant.FunctionCall) assistant.FunctionResult
}

// CredentialSaver stores credentials obtained through consent.
type CredentialSaver interface {
	Upsert(ctx context.Context, c *domain.Credential) error
}

// Server routes HTTP requests to the assistant.
type Server struct {
	cfg    Config
	chat   Chatter
	caller Caller
	oauth  *ConsentFlow
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithConsent enables the /oauth/start and /oauth/callback routes.
func WithConsent(flow *ConsentFlow) Option {
	return func(s *Server) { s.oauth = flow }
}

// New creates a Server.
func New(cfg Config, chat Chatter, caller Caller, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, chat: chat, caller: caller, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed, logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/calendar/call", s.handleCall)
	mux.HandleFunc("GET /api/calendar/events", s.handleEvents)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.oauth != nil {
		mux.HandleFunc("GET /oauth/start", s.handleOAuthStart)
		mux.HandleFunc("GET /oauth/callback", s.handleOAuthCallback)
	}
	return s.logRequests(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// userID resolves the caller from the header, then the configured default.
func (s *Server) userID(r *http.Request) string {
	return domain.CoalesceStr(r.Header.Get(UserHeader), s.cfg.DefaultUser)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
