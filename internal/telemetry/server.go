package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves a rail-hosting process's observability surface: Prometheus
// scraping, basic liveness, and a live breaker-event websocket feed.
type Server struct {
	httpServer *http.Server
	registry   *prometheus.Registry
	runtime    *RuntimeMetrics
	hub        *BreakerHub
	upgrader   websocket.Upgrader
	addr       string
	log        *slog.Logger
}

// NewServer creates a Server that registers its own process-level runtime
// metrics into registry alongside whatever rails have already registered.
func NewServer(addr string, registry *prometheus.Registry, hub *BreakerHub, log *slog.Logger) *Server {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if hub == nil {
		hub = NewBreakerHub()
	}
	if log == nil {
		log = slog.Default()
	}
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return &Server{
		registry: registry,
		runtime:  NewRuntimeMetrics(registry),
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		addr: addr,
		log:  log,
	}
}

// Registry returns the Prometheus registry rails should register against so
// their metrics appear on /metrics.
func (s *Server) Registry() *prometheus.Registry { return s.registry }

// Hub returns the breaker event hub rails should Register their breakers
// with to appear on /ws/breaker-events.
func (s *Server) Hub() *BreakerHub { return s.hub }

// Start begins serving in the background and starts the runtime metrics
// refresh loop. It returns once the listener is ready to accept connections.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/info", s.handleInfo)
	mux.HandleFunc("/ws/breaker-events", s.handleBreakerEvents)

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	go func() {
		s.log.Info("starting telemetry server", "addr", s.addr)
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("telemetry server failed", "error", err)
		}
	}()
	go s.refreshLoop()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) refreshLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		s.runtime.Refresh()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"service":          "railguard",
		"metrics_endpoint": "/metrics",
		"events_endpoint":  "/ws/breaker-events",
	})
}

func (s *Server) handleBreakerEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("breaker-events upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	// Drain client reads so Gorilla's control-frame handling (ping/pong,
	// close) keeps working; this endpoint is send-only otherwise.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for payload := range events {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.addr }

// Endpoint returns the full metrics scrape URL, assuming addr is a
// host:port pair reachable from the caller.
func (s *Server) Endpoint() string { return fmt.Sprintf("http://%s/metrics", s.addr) }
