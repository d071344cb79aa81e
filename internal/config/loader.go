package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// sections are env-variable prefixes mapped to nested config keys:
// MEMORY_TRIM_LIMIT -> memory.trim_limit, MCP_SERVER_URL -> mcp.server_url.
var sections = []string{"memory", "mcp", "agent", "auth", "log", "otel"}

// Load loads configuration from the default YAML file path
// (~/.config/agentchat/config.yaml), then overrides with environment
// variables.
func Load() (*Config, error) {
	return LoadWithFile("")
}

// LoadWithFile loads configuration with an explicit YAML file path.
//
// Precedence (highest to lowest):
//  1. Environment variables (PROJECT_ENDPOINT, MEMORY_TRIM_LIMIT, ...)
//  2. YAML config file
//  3. Hardcoded defaults
//
// A missing config file is not an error; a present but unreadable or
// oversized one is.
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "agentchat", "config.yaml")
	}

	if info, err := os.Stat(configPath); err == nil {
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s exceeds %d bytes", configPath, maxConfigFileSize)
		}
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", transformEnv), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// transformEnv maps environment variable names to config keys. The two
// required settings keep their historical flat names; section-prefixed
// variables map to nested keys. Everything else is dropped so unrelated
// environment variables cannot leak into the config.
func transformEnv(s string) string {
	s = strings.ToLower(s)
	switch s {
	case "project_endpoint", "model_deployment_name":
		return s
	}
	for _, section := range sections {
		if rest, ok := strings.CutPrefix(s, section+"_"); ok && rest != "" {
			return section + "." + rest
		}
	}
	return ""
}
