// Package gateway is the inbound HTTP surface: the webhook endpoints,
// health and tracker admin routes, and the per-source rate limit.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/oculairmedia/context-gateway/internal/config"
	"github.com/oculairmedia/context-gateway/internal/enrich"
	"github.com/oculairmedia/context-gateway/internal/inventory"
	"github.com/oculairmedia/context-gateway/internal/letta"
	"github.com/oculairmedia/context-gateway/internal/telemetry"
	"github.com/oculairmedia/context-gateway/internal/toolselector"
	"github.com/oculairmedia/context-gateway/internal/tracker"
)

// Server wires the webhook pipeline behind the HTTP listener.
type Server struct {
	cfg      atomic.Pointer[config.Config]
	letta    *letta.Client
	sources  *enrich.Sources
	registry *enrich.Registry
	selector *toolselector.Client
	tracker  *tracker.Tracker
	recorder *inventory.Recorder
	tracer   *telemetry.Provider

	rateLimiter *RateLimiter
	httpServer  *http.Server
	mux         *http.ServeMux
}

// NewServer builds the full pipeline from config.
func NewServer(cfg *config.Config) *Server {
	lettaClient := letta.NewClient(cfg.Letta)
	registry := enrich.NewRegistry(cfg.Registry)

	tracer, _ := telemetry.NewProvider(context.Background(), config.TracingConfig{})

	s := &Server{
		letta: lettaClient,
		sources: &enrich.Sources{
			Graphiti: enrich.NewGraphiti(cfg.Graphiti),
			Arxiv:    enrich.NewArxiv(cfg.Arxiv),
		},
		registry:    registry,
		selector:    toolselector.NewClient(cfg.Selector, lettaClient),
		tracker:     tracker.New(lettaClient, registry, tracker.NewMatrixNotifier(cfg.Matrix)),
		recorder:    inventory.NewRecorder(),
		tracer:      tracer,
		rateLimiter: NewRateLimiter(cfg.Gateway.RateLimitRPM),
	}
	s.cfg.Store(cfg)
	return s
}

// SetTracer swaps in a configured trace provider.
func (s *Server) SetTracer(tp *telemetry.Provider) { s.tracer = tp }

// ApplyConfig takes over the runtime toggles from a freshly loaded
// config: block write behavior, protected tool names, and per-source
// rate limit. The listener address and upstream URLs stay as started.
func (s *Server) ApplyConfig(next *config.Config) {
	s.cfg.Store(next)
	s.rateLimiter.SetMaxHits(next.Gateway.RateLimitRPM)
	slog.Info("config applied",
		"agents_snapshot", next.Blocks.AgentsSnapshot,
		"protected_tools", len(next.Selector.ProtectedTools),
		"rate_limit_rpm", next.Gateway.RateLimitRPM)
}

func (s *Server) config() *config.Config { return s.cfg.Load() }

// Tracker exposes the agent tracker, mainly for the CLI's shutdown
// path.
func (s *Server) Tracker() *tracker.Tracker { return s.tracker }

// BuildMux creates and caches the HTTP mux with all routes registered.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("POST /webhook/letta", s.handleWebhook)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /agent-tracker/status", s.handleTrackerStatus)
	mux.HandleFunc("POST /agent-tracker/reset", s.handleTrackerReset)

	s.mux = mux
	return mux
}

// Start begins serving until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := s.BuildMux()

	addr := s.config().Gateway.Addr()
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	slog.Info("gateway starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("gateway server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "webhook-server",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleTrackerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"known_agents": s.tracker.Known(),
		"agent_count":  s.tracker.Count(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleTrackerReset(w http.ResponseWriter, r *http.Request) {
	removed := s.tracker.Reset()
	slog.Info("agent tracker reset", "removed", removed)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "reset",
		"removed": removed,
	})
}

// clientKey picks the rate-limit key for a request: the remote IP.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}
