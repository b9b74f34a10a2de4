package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"xcmcp/internal/discovery"
	"xcmcp/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Transport names.
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

const shutdownTimeout = 5 * time.Second

// Config holds the protocol server settings.
type Config struct {
	Name         string
	Version      string
	Instructions string
	Transport    string
	Host         string
	Port         int
}

// Server wraps the mcp-go server. It is the live tool table of the registry
// and the sampling transport of discovery.
type Server struct {
	config Config
	mcp    *server.MCPServer

	mu    sync.Mutex
	tools map[string]bool
}

// New creates the protocol server with tool list change notifications and
// sampling enabled.
func New(config Config) *Server {
	if config.Transport == "" {
		config.Transport = TransportStdio
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 8090
	}

	opts := []server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	}
	if config.Instructions != "" {
		opts = append(opts, server.WithInstructions(config.Instructions))
	}
	mcpServer := server.NewMCPServer(config.Name, config.Version, opts...)
	mcpServer.EnableSampling()

	return &Server{
		config: config,
		mcp:    mcpServer,
		tools:  make(map[string]bool),
	}
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// AddTools registers a batch of tools with a single list change
// notification. The batch is rejected as a whole when any tool is invalid or
// already registered.
func (s *Server) AddTools(ctx context.Context, tools ...server.ServerTool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	seen := make(map[string]bool, len(tools))
	for _, t := range tools {
		name := t.Tool.Name
		switch {
		case name == "":
			errs = append(errs, errors.New("tool with empty name"))
		case t.Handler == nil:
			errs = append(errs, fmt.Errorf("tool %s has no handler", name))
		case s.tools[name] || seen[name]:
			errs = append(errs, fmt.Errorf("tool %s is already registered", name))
		}
		seen[name] = true
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if len(tools) == 0 {
		return nil
	}

	s.mcp.AddTools(tools...)
	for _, t := range tools {
		s.tools[t.Tool.Name] = true
	}
	logging.Debug("Server", "Added %d tools", len(tools))
	return nil
}

// DeleteTools removes tools by name.
func (s *Server) DeleteTools(ctx context.Context, names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var present []string
	for _, name := range names {
		if s.tools[name] {
			present = append(present, name)
			delete(s.tools, name)
		}
	}
	if len(present) > 0 {
		s.mcp.DeleteTools(present...)
		logging.Debug("Server", "Deleted %d tools", len(present))
	}
}

// ToolNames returns the registered tool names, sorted.
func (s *Server) ToolNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tools))
	for name := range s.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SupportsSampling reports whether the client session behind ctx can serve
// sampling requests.
func (s *Server) SupportsSampling(ctx context.Context) bool {
	session := server.ClientSessionFromContext(ctx)
	if session == nil {
		return false
	}
	if _, ok := session.(server.SessionWithSampling); !ok {
		return false
	}
	if withInfo, ok := session.(server.SessionWithClientInfo); ok {
		return withInfo.GetClientCapabilities().Sampling != nil
	}
	return true
}

// SamplingStatus describes sampling support for reports.
func (s *Server) SamplingStatus(ctx context.Context) string {
	if server.ClientSessionFromContext(ctx) == nil {
		return "unknown"
	}
	if s.SupportsSampling(ctx) {
		return "supported"
	}
	return "not supported by client"
}

// CreateMessage sends one sampling request to the client behind ctx.
func (s *Server) CreateMessage(ctx context.Context, prompt string, maxTokens int) (discovery.Response, error) {
	req := mcp.CreateMessageRequest{
		CreateMessageParams: mcp.CreateMessageParams{
			Messages: []mcp.SamplingMessage{{
				Role:    mcp.RoleUser,
				Content: mcp.TextContent{Type: "text", Text: prompt},
			}},
			MaxTokens: maxTokens,
		},
	}

	result, err := s.mcp.RequestSampling(ctx, req)
	if err != nil {
		return discovery.Response{}, fmt.Errorf("sampling request failed: %w", err)
	}
	if result == nil {
		return discovery.Response{}, errors.New("sampling request returned no result")
	}
	return normalizeContent(result.Content)
}

// normalizeContent converts the untyped sampling content into a Response.
func normalizeContent(content any) (discovery.Response, error) {
	if content == nil {
		return discovery.ItemList(nil), nil
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return discovery.Response{}, fmt.Errorf("failed to encode sampling content: %w", err)
	}
	return discovery.DecodeContent(raw)
}

// Serve runs the configured transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	switch s.config.Transport {
	case TransportStdio:
		logging.Info("Server", "Serving MCP over stdio")
		stdio := server.NewStdioServer(s.mcp)
		err := stdio.Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio transport failed: %w", err)
		}
		return nil

	case TransportSSE:
		baseURL := fmt.Sprintf("http://%s", addr)
		sse := server.NewSSEServer(s.mcp,
			server.WithBaseURL(baseURL),
			server.WithSSEEndpoint("/sse"),
			server.WithMessageEndpoint("/message"),
			server.WithKeepAlive(true),
			server.WithKeepAliveInterval(30*time.Second),
		)
		logging.Info("Server", "Serving MCP over SSE on %s/sse", baseURL)
		return runHTTP(ctx, func() error { return sse.Start(addr) }, sse.Shutdown)

	case TransportStreamableHTTP:
		httpServer := server.NewStreamableHTTPServer(s.mcp)
		logging.Info("Server", "Serving MCP over streamable HTTP on http://%s/mcp", addr)
		return runHTTP(ctx, func() error { return httpServer.Start(addr) }, httpServer.Shutdown)

	default:
		return fmt.Errorf("unknown transport %q", s.config.Transport)
	}
}

func runHTTP(ctx context.Context, start func() error, shutdown func(context.Context) error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("transport failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info("Server", "Shutting down transport")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		logging.Error("Server", err, "Error shutting down transport")
		return err
	}
	return nil
}
