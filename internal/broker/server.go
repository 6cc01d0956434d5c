package broker

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"nexus/internal/config"
	"nexus/internal/graph"
	"nexus/internal/metrics"
	"nexus/internal/oracle"
	"nexus/internal/pipeline"
	"nexus/internal/registry"
	"nexus/internal/store"
	"nexus/pkg/logging"
)

// Config configures the broker facade.
type Config struct {
	Host        string
	Port        int
	Transport   string
	Metrics     bool
	MetricsPort int

	// DefaultChannel is merged into the execution context when a request
	// does not name a delivery channel.
	DefaultChannel string
}

// Components are the nexus subsystems the facade tools operate on. Store
// may be nil for an in-memory broker; pipeline history is unavailable then.
type Components struct {
	Manager  *registry.Manager
	Graph    *graph.Graph
	Reasoner oracle.SemanticOracle
	Executor *pipeline.Executor
	Store    *store.Store
}

// Server is the MCP facade: one server exposing the nexus meta-tools over
// the configured transport.
type Server struct {
	config Config

	manager  *registry.Manager
	registry *registry.Registry
	graph    *graph.Graph
	reasoner oracle.SemanticOracle
	executor *pipeline.Executor
	store    *store.Store

	// Transport-specific servers
	server               *server.MCPServer
	sseServer            *server.SSEServer
	streamableHTTPServer *server.StreamableHTTPServer
	stdioServer          *server.StdioServer
	metricsServer        *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	buildMu    sync.Mutex
	mu         sync.RWMutex
}

// NewServer creates the broker around the given components.
func NewServer(cfg Config, components Components) *Server {
	return &Server{
		config:   cfg,
		manager:  components.Manager,
		registry: components.Manager.Registry(),
		graph:    components.Graph,
		reasoner: components.Reasoner,
		executor: components.Executor,
		store:    components.Store,
	}
}

// Start creates the MCP server, registers the facade tools and brings up
// the configured transport. Transports serve in the background; Start
// returns once they are launched.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("broker server already started")
	}

	s.ctx, s.cancelFunc = context.WithCancel(ctx)

	mcpServer := server.NewMCPServer(
		"nexus",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	mcpServer.AddTools(s.facadeTools()...)
	s.server = mcpServer

	if s.config.Metrics {
		s.startMetricsLocked()
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	switch s.config.Transport {
	case config.MCPTransportSSE:
		logging.Info("Broker", "Starting MCP broker with SSE transport on %s", addr)
		baseURL := fmt.Sprintf("http://%s:%d", s.config.Host, s.config.Port)
		s.sseServer = server.NewSSEServer(
			s.server,
			server.WithBaseURL(baseURL),
			server.WithSSEEndpoint("/sse"),
			server.WithMessageEndpoint("/message"),
			server.WithKeepAlive(true),
			server.WithKeepAliveInterval(30*time.Second),
		)
		sseServer := s.sseServer
		go func() {
			if err := sseServer.Start(addr); err != nil && err != http.ErrServerClosed {
				logging.Error("Broker", err, "SSE server error")
			}
		}()

	case config.MCPTransportStdio:
		logging.Info("Broker", "Starting MCP broker with stdio transport")
		s.stdioServer = server.NewStdioServer(s.server)
		stdioServer := s.stdioServer
		lifecycleCtx := s.ctx
		go func() {
			if err := stdioServer.Listen(lifecycleCtx, os.Stdin, os.Stdout); err != nil {
				logging.Error("Broker", err, "Stdio server error")
			}
		}()

	case config.MCPTransportStreamableHTTP:
		fallthrough
	default:
		logging.Info("Broker", "Starting MCP broker with streamable-http transport on %s", addr)
		s.streamableHTTPServer = server.NewStreamableHTTPServer(s.server)
		streamableServer := s.streamableHTTPServer
		go func() {
			if err := streamableServer.Start(addr); err != nil && err != http.ErrServerClosed {
				logging.Error("Broker", err, "Streamable HTTP server error")
			}
		}()
	}

	return nil
}

// startMetricsLocked brings up the dedicated metrics listener with /metrics
// and /healthz. Caller holds s.mu. Built with -tags noprom this is a no-op.
func (s *Server) startMetricsLocked() {
	handler, err := metrics.Enable()
	if err != nil {
		logging.Error("Broker", err, "Enabling metrics failed")
		return
	}
	if handler == nil {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	port := s.config.MetricsPort
	if port == 0 {
		port = config.DefaultMetricsPort
	}
	addr := fmt.Sprintf("%s:%d", s.config.Host, port)
	s.metricsServer = &http.Server{Addr: addr, Handler: mux}
	metricsServer := s.metricsServer

	go func() {
		logging.Info("Broker", "Serving Prometheus metrics on http://%s/metrics", addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Broker", err, "Metrics server error")
		}
	}()
}

// Stop shuts down the transports and waits for background graph rebuilds.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.server == nil {
		s.mu.Unlock()
		return fmt.Errorf("broker server not started")
	}

	logging.Info("Broker", "Stopping MCP broker")

	cancelFunc := s.cancelFunc
	sseServer := s.sseServer
	streamableServer := s.streamableHTTPServer
	metricsServer := s.metricsServer
	s.mu.Unlock()

	if cancelFunc != nil {
		cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if sseServer != nil {
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("Broker", err, "Error shutting down SSE server")
		}
	}

	if streamableServer != nil {
		if err := streamableServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("Broker", err, "Error shutting down streamable HTTP server")
		}
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("Broker", err, "Error shutting down metrics server")
		}
	}

	// Stdio server stops on context cancellation, no explicit shutdown needed.

	// Wait for background rebuilds
	s.wg.Wait()

	s.mu.Lock()
	s.server = nil
	s.sseServer = nil
	s.streamableHTTPServer = nil
	s.stdioServer = nil
	s.metricsServer = nil
	s.mu.Unlock()

	return nil
}

// GetEndpoint returns the broker's endpoint URL based on transport.
func (s *Server) GetEndpoint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.config.Transport {
	case config.MCPTransportSSE:
		return fmt.Sprintf("http://%s:%d/sse", s.config.Host, s.config.Port)
	case config.MCPTransportStdio:
		return "stdio"
	default:
		return fmt.Sprintf("http://%s:%d/mcp", s.config.Host, s.config.Port)
	}
}

// ScheduleRebuild kicks off a graph rebuild in the background. Builds are
// serialized: a second trigger waits for the running one to finish before
// starting. The definitions watcher shares this path with the facade tools.
func (s *Server) ScheduleRebuild(incremental bool) {
	ctx := s.lifecycleContext()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.buildMu.Lock()
		defer s.buildMu.Unlock()

		if ctx.Err() != nil {
			return
		}

		stats, err := s.graph.BuildEdges(ctx, s.registry.Snapshot(), incremental)
		if err != nil {
			logging.Error("Broker", err, "Background graph rebuild failed")
			return
		}
		logging.Info("Broker", "Graph rebuild finished: %d new edges, %d cached, %d rejected (%d total)",
			stats.NewEdges, stats.Cached, stats.Rejected, stats.Total)
	}()
}

// lifecycleContext returns the broker's run context, or Background before
// Start. Facade handlers can be exercised without a running transport.
func (s *Server) lifecycleContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}
