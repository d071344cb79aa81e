// Package docsearch is a direct MCP client for the documentation-search
// server the hosted agent uses. It powers diagnostic commands that inspect
// or exercise the server without going through an agent run.
package docsearch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// Config configures the documentation-search client.
type Config struct {
	// ServerURL is the MCP server endpoint (required).
	ServerURL string

	// ServerLabel names the server in output.
	ServerLabel string

	// ClientVersion is reported to the server during initialization.
	ClientVersion string
}

// ToolInfo describes one tool exposed by the server.
type ToolInfo struct {
	Name        string
	Description string
}

// Client connects to the documentation-search MCP server over streamable
// HTTP. Each operation opens a fresh session; the server is stateless from
// this client's point of view.
type Client struct {
	config *Config
	impl   *mcp.Implementation
	logger *zap.Logger
}

// NewClient creates a documentation-search client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil || cfg.ServerURL == "" {
		return nil, errors.New("mcp server url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	version := cfg.ClientVersion
	if version == "" {
		version = "dev"
	}
	return &Client{
		config: cfg,
		impl:   &mcp.Implementation{Name: "agentchat", Version: version},
		logger: logger,
	}, nil
}

// Label returns the configured server label.
func (c *Client) Label() string {
	return c.config.ServerLabel
}

// ListTools returns the tools the server advertises.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	session, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	tools := make([]ToolInfo, 0, len(res.Tools))
	for _, tool := range res.Tools {
		tools = append(tools, ToolInfo{Name: tool.Name, Description: tool.Description})
	}
	c.logger.Debug("listed mcp tools",
		zap.String("server", c.config.ServerLabel),
		zap.Int("count", len(tools)),
	)
	return tools, nil
}

// Search calls the server's search tool directly with the given query and
// returns the concatenated text content of the result. When toolName is
// empty the first advertised tool whose name contains "search" is used.
func (c *Client) Search(ctx context.Context, toolName, query string) (string, error) {
	session, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer session.Close()

	if toolName == "" {
		toolName, err = pickSearchTool(ctx, session)
		if err != nil {
			return "", err
		}
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: map[string]any{"question": query},
	})
	if err != nil {
		return "", fmt.Errorf("tool call failed: %w", err)
	}

	text := contentText(res.Content)
	if res.IsError {
		return "", fmt.Errorf("tool %s returned an error: %s", toolName, text)
	}
	return text, nil
}

func (c *Client) connect(ctx context.Context) (*mcp.ClientSession, error) {
	client := mcp.NewClient(c.impl, nil)
	transport := &mcp.StreamableClientTransport{Endpoint: c.config.ServerURL}
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.config.ServerURL, err)
	}
	return session, nil
}

func pickSearchTool(ctx context.Context, session *mcp.ClientSession) (string, error) {
	res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return "", fmt.Errorf("failed to list tools: %w", err)
	}
	for _, tool := range res.Tools {
		if strings.Contains(strings.ToLower(tool.Name), "search") {
			return tool.Name, nil
		}
	}
	if len(res.Tools) > 0 {
		return res.Tools[0].Name, nil
	}
	return "", errors.New("server advertises no tools")
}

func contentText(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		if text, ok := c.(*mcp.TextContent); ok && text.Text != "" {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}
