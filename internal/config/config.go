// Package config provides configuration loading for agentchat.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables. The two required settings name the remote agents
// service endpoint and the model deployment; their absence is a startup
// error, reported once, before any interaction begins.
package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/fyrsmithlabs/agentchat/internal/journal"
)

// Config holds the complete agentchat configuration.
type Config struct {
	// ProjectEndpoint is the base URL of the hosted agents service.
	ProjectEndpoint string `koanf:"project_endpoint"`

	// ModelDeploymentName identifies the model deployment used for agents.
	ModelDeploymentName string `koanf:"model_deployment_name"`

	Memory MemoryConfig `koanf:"memory"`
	MCP    MCPConfig    `koanf:"mcp"`
	Agent  AgentConfig  `koanf:"agent"`
	Auth   AuthConfig   `koanf:"auth"`
	Log    LogConfig    `koanf:"log"`
	Otel   OtelConfig   `koanf:"otel"`
}

// MemoryConfig holds journal store settings.
type MemoryConfig struct {
	// Dir is the flat directory of per-thread journal files.
	Dir string `koanf:"dir"`

	// TrimLimit bounds retained entries per journal (0 = unlimited).
	TrimLimit int `koanf:"trim_limit"`

	// LabelStrategy selects how resume-menu labels are derived.
	LabelStrategy string `koanf:"label_strategy"`
}

// MCPConfig names the documentation-search tool the hosted agent may call.
type MCPConfig struct {
	ServerLabel string `koanf:"server_label"`
	ServerURL   string `koanf:"server_url"`
}

// AgentConfig holds the per-turn agent identity.
type AgentConfig struct {
	Name         string `koanf:"name"`
	Instructions string `koanf:"instructions"`
}

// AuthConfig holds credentials for the agents service. Either a static API
// key or a client-credentials grant; the grant wins when both are set.
type AuthConfig struct {
	APIKey       string `koanf:"api_key"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	TokenURL     string `koanf:"token_url"`
	Scope        string `koanf:"scope"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// OtelConfig holds trace export settings.
type OtelConfig struct {
	Enable      bool   `koanf:"enable"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
}

const defaultInstructions = "You are a helpful AI agent specializing in Microsoft documentation.\n" +
	"Use the documentation-search tool to answer questions about Microsoft products, " +
	"services, or technologies instead of answering from pre-existing knowledge.\n" +
	"When the tool is used, say so at the start of your response."

// Default returns the configuration defaults applied before file and
// environment loading.
func Default() *Config {
	return &Config{
		Memory: MemoryConfig{
			Dir:           "memory",
			TrimLimit:     20,
			LabelStrategy: string(journal.LabelFirstUser),
		},
		MCP: MCPConfig{
			ServerLabel: "mslearn",
			ServerURL:   "https://learn.microsoft.com/api/mcp",
		},
		Agent: AgentConfig{
			Name:         "agentchat-mcp-agent",
			Instructions: defaultInstructions,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Otel: OtelConfig{
			Enable:      false,
			ServiceName: "agentchat",
		},
	}
}

// Validate checks the configuration. A returned error is fatal at startup
// and reported to the user once, before any interaction begins.
func (c *Config) Validate() error {
	if c.ProjectEndpoint == "" {
		return errors.New("PROJECT_ENDPOINT is required")
	}
	if _, err := url.Parse(c.ProjectEndpoint); err != nil {
		return fmt.Errorf("invalid PROJECT_ENDPOINT: %w", err)
	}
	if c.ModelDeploymentName == "" {
		return errors.New("MODEL_DEPLOYMENT_NAME is required")
	}
	if c.Memory.Dir == "" {
		return errors.New("memory dir must not be empty")
	}
	if c.Memory.TrimLimit < 0 {
		return fmt.Errorf("invalid trim limit: %d", c.Memory.TrimLimit)
	}
	switch journal.LabelStrategy(c.Memory.LabelStrategy) {
	case journal.LabelFirstUser, journal.LabelLastMessage:
	default:
		return fmt.Errorf("invalid label strategy: %q", c.Memory.LabelStrategy)
	}
	if c.MCP.ServerLabel == "" || c.MCP.ServerURL == "" {
		return errors.New("mcp server label and url must not be empty")
	}
	if c.Auth.ClientID != "" {
		if c.Auth.ClientSecret == "" || c.Auth.TokenURL == "" {
			return errors.New("auth client_secret and token_url are required with client_id")
		}
	}
	return nil
}
