package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
)

// Application ports the handlers call.
type (
	ServiceAPI interface {
		CreateService(ctx context.Context, dto core.AddServiceDto) (*core.Service, error)
		FindService(ctx context.Context, id int64) (*core.Service, error)
	}

	HistoryAPI interface {
		CreateHistory(ctx context.Context, dto core.AddHistoryDto) (*core.History, error)
		FindByMonth(ctx context.Context, q core.MonthQuery) ([]core.History, error)
		UpdateHistory(ctx context.Context, id int64, edit core.EditHistoryDto) (*core.History, error)
		RemoveHistory(ctx context.Context, id int64) error
		BulkInsert(ctx context.Context, rows []core.AddHistoryDto) (core.BulkInsertResult, error)
	}

	// Pinger reports whether the data store is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

type Options struct {
	Addr               string
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	services       ServiceAPI
	histories      HistoryAPI
	ready          Pinger
	requestTimeout time.Duration
	limiter        *ratelimit.Limiter
	shutdownOnce   sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, services ServiceAPI, histories HistoryAPI, ready Pinger) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 7 * time.Second
	}

	limitCfg := ratelimit.DefaultConfig()
	limitCfg.RequestsPerMinute = opts.RateLimitPerMinute

	s := &Server{
		services:       services,
		histories:      histories,
		ready:          ready,
		requestTimeout: opts.RequestTimeout,
		limiter:        ratelimit.NewLimiter(limitCfg),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /service", s.handleCreateService)
	mux.HandleFunc("GET /service/{service_id}", s.handleFindService)
	mux.HandleFunc("POST /history", s.handleCreateHistory)
	mux.HandleFunc("POST /history/bulk", s.handleBulkInsert)
	mux.HandleFunc("GET /history/{serviceId}/{year}/{month}", s.handleFindByMonth)
	mux.HandleFunc("PUT /history/{id}", s.handleUpdateHistory)
	mux.HandleFunc("DELETE /history/{id}", s.handleRemoveHistory)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Exposer())
	mux.HandleFunc("/", handleNoRoute)

	detector := security.NewDetector()
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(opts.Logger.WithComponent(log.ComponentHTTP), detector.ExtractClientIP, detector.DetectSuspiciousRequest)
	limit := s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		NewEnvelope().
			Status(http.StatusTooManyRequests).
			Message("rate limit exceeded, retry later").
			Write(w)
	})

	// trace must be outermost and hand its request straight down so it can
	// read the matched pattern afterwards.
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           tracer.Middleware(headers.Middleware(limit(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// operationContext bounds the store call of one request.
func (s *Server) operationContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.requestTimeout)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func handleNoRoute(w http.ResponseWriter, r *http.Request) {
	NewEnvelope().
		Status(http.StatusNotFound).
		Message("no route for %s %s", r.Method, r.URL.Path).
		Write(w)
}
