// Package main is the entry point for the chain execution layer
// service: it keeps outbound calls to multiple blockchain networks
// alive and correct despite flaky endpoints and request bursts.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/chains"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/circuitbreaker"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/config"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/errs"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/export"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/health"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/middleware"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/otel"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/registry"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/retry"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/transport"
	"github.com/Sagexd08/AutoFi-BackEnd-And-Tools-sub000/internal/types"
)

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

// Server represents the service instance
type Server struct {
	cfg      config.Config
	registry *registry.Registry
	monitor  *health.Monitor
	service  *chains.Service
	exporter *export.Exporter
	limiter  *rate.Limiter
	metrics  *serverMetrics

	ratelimitMw *middleware.RateLimit
	cacheMw     *middleware.Cache

	server *http.Server
}

// serverMetrics holds Prometheus metrics for the server
type serverMetrics struct {
	requestCounter *prometheus.CounterVec
	probeDuration  *prometheus.HistogramVec
	chainHealth    *prometheus.GaugeVec
	breakerState   *prometheus.GaugeVec
}

// registerMetrics sets up Prometheus metrics collection
func registerMetrics() *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chain_requests_total",
				Help: "Total number of requests processed",
			},
			[]string{"route", "status"},
		),
		probeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chain_probe_duration_seconds",
				Help:    "Endpoint probe duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"chain"},
		),
		chainHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chain_health_status",
				Help: "Chain health (1=healthy, 0=unhealthy, -1=unknown)",
			},
			[]string{"chain"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chain_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"chain"},
		),
	}

	prometheus.MustRegister(
		m.requestCounter,
		m.probeDuration,
		m.chainHealth,
		m.breakerState,
	)
	return m
}

func main() {
	setupLogging()

	cfg := config.Load()
	shutdownTracer := otel.InitTracer(cfg.OtelEndpoint)
	defer shutdownTracer()

	server := NewServer(cfg)
	server.Start()
}

// setupLogging configures the logging for the application
func setupLogging() {
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// NewServer wires the execution layer together
func NewServer(cfg config.Config) *Server {
	logg := logrus.StandardLogger()
	metrics := registerMetrics()

	exporter := export.New(export.Config{
		Enabled:        cfg.ExportEnabled,
		BatchSize:      cfg.ExportBatch,
		ExportInterval: cfg.ExportInterval,
		WebhookURL:     cfg.WebhookURL,
		WebhookAPIKey:  cfg.WebhookAPIKey,
	}, logg)

	reg := registry.NewWithDefaults(logg)
	tr := transport.NewEthTransport(cfg.CallTimeout)

	monitor := health.New(reg, tr, health.Options{
		ProbeTimeout: cfg.ProbeTimeout,
		MaxParallel:  cfg.MaxParallelProbes,
		Logger:       logg,
		OnHealthChange: func(chainID string, record types.HealthRecord) {
			metrics.chainHealth.WithLabelValues(chainID).Set(healthGaugeValue(record))
			exporter.Add(export.HealthReport{
				ChainID:    chainID,
				Record:     record,
				ObservedAt: time.Now(),
			})
		},
	})

	breakers := circuitbreaker.NewGroup(logg, func(b *circuitbreaker.Breaker) *circuitbreaker.Breaker {
		return b.
			WithFailureThreshold(cfg.BreakerFailureThreshold).
			WithRecoveryTimeout(cfg.BreakerRecoveryTimeout).
			WithTimeoutWindow(cfg.BreakerTimeoutWindow)
	})

	ratelimitMw := middleware.NewRateLimit(middleware.RateLimitConfig{
		Config: middleware.Config{Enabled: true, Order: 0},
		Window: cfg.RateLimitWindow,
		Max:    cfg.RateLimitMax,
	})
	loggingMw := middleware.NewLogging(middleware.LoggingConfig{
		Config: middleware.Config{Enabled: true, Order: 10},
		Logger: logg,
	})
	cacheMw := middleware.NewCache(middleware.CacheConfig{
		Config:      middleware.Config{Enabled: true, Order: 20},
		TTL:         cfg.CacheTTL,
		SkipOnError: cfg.CacheSkipOnError,
	})
	retryMw := middleware.NewRetry(middleware.RetryConfig{
		Config: middleware.Config{Enabled: true, Order: 30},
		Retry: retry.Config{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialDelay:      cfg.RetryInitialDelay,
			MaxDelay:          cfg.RetryMaxDelay,
			BackoffMultiplier: cfg.RetryBackoffFactor,
			UseJitter:         cfg.RetryUseJitter,
		},
	})

	chain := middleware.NewChain().
		Add(ratelimitMw).
		Add(loggingMw).
		Add(cacheMw).
		Add(retryMw)

	service := chains.New(chains.Options{
		Registry:  reg,
		Monitor:   monitor,
		Transport: tr,
		Breakers:  breakers,
		Chain:     chain,
		Logger:    logg,
	})

	logg.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"chains":      reg.Len(),
		"middlewares": chain.Names(),
	}).Info("Server initialized")

	return &Server{
		cfg:         cfg,
		registry:    reg,
		monitor:     monitor,
		service:     service,
		exporter:    exporter,
		limiter:     rate.NewLimiter(rate.Limit(cfg.ServerRateRPS), cfg.ServerRateBurst),
		metrics:     metrics,
		ratelimitMw: ratelimitMw,
		cacheMw:     cacheMw,
	}
}

// Start begins the HTTP server, the background probe loop, and sets up
// graceful shutdown
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/metrics", promhttp.Handler().ServeHTTP)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/chains", s.handleChains)
	mux.HandleFunc("/chains/health", s.handleChainsHealth)
	mux.HandleFunc("/chains/best", s.handleBestChain)
	mux.HandleFunc("/circuit", s.handleCircuit)
	mux.HandleFunc("/call", s.handleCall)

	s.server = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.rateLimited(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	probeCtx, stopProbes := context.WithCancel(context.Background())
	if s.cfg.ProbeInterval > 0 {
		go s.probeLoop(probeCtx)
	}

	go func() {
		logrus.Infof("Server starting on port %s", s.cfg.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	stopProbes()
	s.ratelimitMw.Stop()
	s.cacheMw.Stop()
	s.exporter.Stop()
	s.monitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server shutdown failed: %v", err)
	}
	logrus.Info("Server stopped")
}

// probeLoop refreshes every chain's health on a fixed interval
func (s *Server) probeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			records := s.monitor.ProbeAll(ctx)
			for chainID, record := range records {
				s.metrics.probeDuration.WithLabelValues(chainID).
					Observe(float64(record.ResponseTimeMs) / 1000.0)
				s.metrics.chainHealth.WithLabelValues(chainID).Set(healthGaugeValue(record))
			}
			logrus.WithFields(logrus.Fields{
				"chains":      len(records),
				"duration_ms": time.Since(start).Milliseconds(),
			}).Debug("Background probe cycle complete")
		case <-ctx.Done():
			return
		}
	}
}

// rateLimited applies the process-wide limiter ahead of every route
func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.errorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":   "operational",
		"uptime":   time.Since(startTime).String(),
		"chains":   s.registry.Len(),
		"breakers": s.service.BreakerStats(),
	})
}

// handleChains lists chains on GET, registers a custom chain on POST,
// and removes one on DELETE (?id=...)
func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, r, http.StatusOK, s.service.GetAllChains())
	case http.MethodPost:
		var desc types.ChainDescriptor
		if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
			s.errorResponse(w, r, http.StatusBadRequest, "invalid chain descriptor")
			return
		}
		if err := s.service.AddCustomChain(desc); err != nil {
			s.errorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, r, http.StatusCreated, desc)
	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if err := s.service.RemoveCustomChain(id); err != nil {
			s.errorResponse(w, r, http.StatusNotFound, err.Error())
			return
		}
		s.writeJSON(w, r, http.StatusOK, map[string]string{"removed": id})
	default:
		s.errorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleChainsHealth probes one chain (?id=...) or all of them
func (s *Server) handleChainsHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if id := r.URL.Query().Get("id"); id != "" {
		record, err := s.service.CheckChainHealth(ctx, id)
		if err != nil {
			s.errorResponse(w, r, http.StatusNotFound, err.Error())
			return
		}
		s.writeJSON(w, r, http.StatusOK, record)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.service.CheckAllChainsHealth(ctx))
}

func (s *Server) handleBestChain(w http.ResponseWriter, r *http.Request) {
	best, err := s.service.GetBestChainForOperation(r.Context(),
		r.URL.Query().Get("operation"),
		health.SelectionPreferences{
			PreferredChainID: r.URL.Query().Get("chain"),
			AllowTestnet:     r.URL.Query().Get("testnet") == "true",
		})
	if err != nil {
		s.errorResponse(w, r, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, best)
}

// handleCircuit reports breaker stats and resets them on POST ?action=reset
func (s *Server) handleCircuit(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && r.URL.Query().Get("action") == "reset" {
		s.service.ResetBreakers()
		s.writeJSON(w, r, http.StatusOK, map[string]string{"message": "circuit breakers reset"})
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.service.BreakerStats())
}

// callRequest is the body for /call
type callRequest struct {
	Chain  string `json:"chain"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// handleCall runs one RPC operation through the middleware pipeline
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.service.Invoke(r.Context(), req.Chain, req.Method, req.Params...)
	if err != nil {
		s.errorResponse(w, r, statusForError(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"chain":  req.Chain,
		"method": req.Method,
		"result": result,
	})
}

// statusForError maps the error taxonomy to HTTP status codes
func statusForError(err error) int {
	switch {
	case errs.IsKind(err, errs.KindChainUnsupported):
		return http.StatusNotFound
	case errs.IsKind(err, errs.KindValidation):
		return http.StatusBadRequest
	case errs.IsKind(err, errs.KindRateLimitExceeded):
		return http.StatusTooManyRequests
	case errs.IsKind(err, errs.KindCircuitOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func healthGaugeValue(record types.HealthRecord) float64 {
	switch record.Status {
	case types.HealthHealthy:
		return 1
	case types.HealthUnhealthy:
		return 0
	default:
		return -1
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	s.metrics.requestCounter.WithLabelValues(r.URL.Path, "success").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, status int, msg string) {
	logrus.Warn(msg)
	s.metrics.requestCounter.WithLabelValues(r.URL.Path, "error").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "error",
		"error":  msg,
	})
}
