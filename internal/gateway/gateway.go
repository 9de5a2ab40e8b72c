// ABOUTME: Gateway orchestrator that assembles the bridge and runs its HTTP server.
// ABOUTME: Manages listener setup, service info and health endpoints, and graceful shutdown.

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/elmunoz42/darcy-n8n-bridge/internal/config"
	"github.com/elmunoz42/darcy-n8n-bridge/internal/mcp"
	"github.com/elmunoz42/darcy-n8n-bridge/internal/n8n"
	"github.com/elmunoz42/darcy-n8n-bridge/internal/tools"
	"github.com/elmunoz42/darcy-n8n-bridge/internal/tracker"
)

// Gateway orchestrates the bridge components: the upstream n8n client, the
// run tracker, the tool registry, and the MCP protocol server behind a
// single HTTP listener.
type Gateway struct {
	config     *config.Config
	tracker    *tracker.Tracker
	registry   *tools.Registry
	mcpServer  *mcp.Server
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	apiClient := n8n.NewClient(n8n.Config{
		BaseURL: cfg.N8N.BaseURL,
		APIKey:  cfg.N8N.APIKey,
		Client:  &http.Client{Timeout: cfg.N8N.Timeout},
	})

	runTracker := tracker.New(cfg.Tracker.MaxEntries)

	registry, err := tools.NewRegistry(tools.Config{
		Client:    apiClient,
		Tracker:   runTracker,
		Allowlist: cfg.N8N.WorkflowAllowlist,
		Logger:    logger.With("component", "tools"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating tool registry: %w", err)
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Tools:  registry,
		APIKey: cfg.Auth.APIKey,
		Logger: logger.With("component", "mcp"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	gw := &Gateway{
		config:    cfg,
		tracker:   runTracker,
		registry:  registry,
		mcpServer: mcpServer,
		logger:    logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", gw.handleRoot)
	mux.HandleFunc("/health", gw.handleHealth)

	// The request budget applies to the MCP endpoint only; service info and
	// health stay available to monitors under load.
	mcpMux := http.NewServeMux()
	mcpServer.RegisterRoutes(mcpMux)
	limited := rateLimitMiddleware(newClientLimiter(cfg.Server.RatePerMinute), logger)(mcpMux)
	mux.Handle("/mcp", limited)

	handler := corsMiddleware(allowedOrigins)(mux)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Handler exposes the fully assembled HTTP handler. Used by tests.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the run context is already
// canceled by the time shutdown starts.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown gracefully stops the HTTP server.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")
	if err := g.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}

// handleRoot serves the service information document.
func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	toolNames := make([]string, 0, len(tools.Catalog()))
	for _, def := range tools.Catalog() {
		toolNames = append(toolNames, def.Name)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":             mcp.ServerName,
		"status":           "ok",
		"version":          mcp.ServerVersion,
		"protocol_version": mcp.ProtocolVersion,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"endpoints": map[string]string{
			"mcp":    "/mcp",
			"health": "/health",
		},
		"tools": toolNames,
	})
}

// handleHealth returns liveness status. No auth required.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"service":      mcp.ServerName,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"tracked_runs": g.tracker.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
