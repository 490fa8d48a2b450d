// Package http exposes the assistant over a small JSON API.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"finbot/internal/assistant"
	"finbot/internal/log"
	"finbot/internal/metrics"
	"finbot/internal/middleware/ratelimit"
	"finbot/internal/middleware/security"
	"finbot/internal/middleware/trace"
)

// Runner answers one query.
type Runner interface {
	Run(ctx context.Context, query string) (assistant.Outcome, error)
}

// Config tunes the server. Zero values pick the defaults below.
type Config struct {
	RequestsPerMinute int
	ReadTimeout       time.Duration
	// WriteTimeout must outlast a full assistant run.
	WriteTimeout time.Duration
	MaxBodyBytes int64
	// Ready backs /readyz; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
}

const (
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 3 * time.Minute
	defaultMaxBodyBytes = 64 << 10
)

// routes bounds the route label on request metrics.
var routes = map[string]bool{"/": true, "/finance": true, "/healthz": true, "/readyz": true, "/metrics": true}

type Server struct {
	http.Server
	runner       Runner
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	log          *log.Logger
	ready        func(ctx context.Context) error
	maxBodyBytes int64
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, runner Runner, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default(log.ComponentHTTP)
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	limits := ratelimit.DefaultConfig()
	if cfg.RequestsPerMinute > 0 {
		limits.RequestsPerMinute = cfg.RequestsPerMinute
	}

	s := &Server{
		runner:       runner,
		limiter:      ratelimit.NewLimiter(limits),
		detector:     security.NewDetector(),
		log:          cfg.Logger,
		ready:        cfg.Ready,
		maxBodyBytes: cfg.MaxBodyBytes,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /finance", s.handleFinance)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// middleware wraps h, outermost first: tracing, request logger, metrics,
// probe detection, security headers, then the POST rate limit.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.limiter.Middleware(s.detector.ExtractClientIP, skipUnlimited, s.onLimit)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = recordMetrics(h)
	h = log.Middleware(s.log, trace.RequestIDFromRequest)(h)
	return trace.NewMiddleware(s.log, s.detector.ExtractClientIP).Middleware(h)
}

func skipUnlimited(r *http.Request) bool {
	return r.Method != http.MethodPost
}

func (s *Server) onLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests"})
}

func recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := trace.NewResponseWriter(w)
		next.ServeHTTP(rw, r)

		route := r.URL.Path
		if !routes[route] {
			route = "other"
		}
		code := strconv.Itoa(rw.Status())
		metrics.RequestCount.WithLabelValues(code, r.Method, route).Inc()
		metrics.RequestDuration.WithLabelValues(code, r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Shutdown stops the limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
