package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const defaultTimeout = 30 * time.Second

// Transport names accepted by NewClient.
const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

// Client is a small MCP client used by the CLI to talk to a running server.
type Client struct {
	endpoint  string
	transport string
	timeout   time.Duration
	client    *client.Client
}

// NewClient creates a client for an HTTP endpoint. Call Connect before use.
func NewClient(endpoint, transport string) *Client {
	return &Client{
		endpoint:  endpoint,
		transport: transport,
		timeout:   defaultTimeout,
	}
}

// Endpoint builds the endpoint URL served by an xcmcp server.
func Endpoint(transport, host string, port int) (string, error) {
	switch transport {
	case TransportStreamableHTTP:
		return fmt.Sprintf("http://%s:%d/mcp", host, port), nil
	case TransportSSE:
		return fmt.Sprintf("http://%s:%d/sse", host, port), nil
	default:
		return "", fmt.Errorf("transport %q cannot be reached from another process; run serve with --transport sse or streamable-http", transport)
	}
}

// Connect opens the transport and performs the MCP handshake.
func (c *Client) Connect(ctx context.Context) error {
	var (
		mcpClient *client.Client
		err       error
	)
	switch c.transport {
	case TransportSSE:
		mcpClient, err = client.NewSSEMCPClient(c.endpoint)
	case TransportStreamableHTTP, "":
		mcpClient, err = client.NewStreamableHttpClient(c.endpoint)
	default:
		return fmt.Errorf("unsupported transport %q", c.transport)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", c.transport, err)
	}
	return c.start(ctx, mcpClient)
}

// ConnectInProcess connects directly to a server in the same process.
// A non-nil sampler answers sampling requests, which makes the client
// advertise the sampling capability.
func (c *Client) ConnectInProcess(ctx context.Context, s *server.MCPServer, sampler client.SamplingHandler) error {
	var (
		mcpClient *client.Client
		err       error
	)
	if sampler != nil {
		mcpClient, err = client.NewInProcessClientWithSamplingHandler(s, sampler)
	} else {
		mcpClient, err = client.NewInProcessClient(s)
	}
	if err != nil {
		return fmt.Errorf("failed to create in-process client: %w", err)
	}
	return c.start(ctx, mcpClient)
}

func (c *Client) start(ctx context.Context, mcpClient *client.Client) error {
	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "xcmcp-cli", Version: "1.0.0"}

	initCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, err := mcpClient.Initialize(initCtx, req); err != nil {
		mcpClient.Close()
		return fmt.Errorf("initialization failed: %w", err)
	}

	c.client = mcpClient
	return nil
}

// ListTools returns the tools currently exposed by the server.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.ListTools(timeoutCtx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return result.Tools, nil
}

// CallTool executes a tool and returns the raw result.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := c.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tool call failed: %w", err)
	}
	return result, nil
}

// CallToolText executes a tool and returns its text content. A tool error
// result is returned as an error.
func (c *Client) CallToolText(ctx context.Context, name string, args map[string]any) (string, error) {
	result, err := c.CallTool(ctx, name, args)
	if err != nil {
		return "", err
	}
	text := ResultText(result)
	if result.IsError {
		return "", fmt.Errorf("tool error: %s", text)
	}
	return text, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// ResultText joins the text content items of a result.
func ResultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ParseArgs converts key=value pairs into tool arguments. Values that parse
// as JSON keep their JSON type; anything else is a string.
func ParseArgs(pairs []string, rawJSON string) (map[string]any, error) {
	args := make(map[string]any)
	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), &args); err != nil {
			return nil, fmt.Errorf("invalid --json arguments: %w", err)
		}
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q, expected key=value", pair)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			args[key] = decoded
		} else {
			args[key] = value
		}
	}
	return args, nil
}
