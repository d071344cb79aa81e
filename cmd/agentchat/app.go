package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/fyrsmithlabs/agentchat/internal/agents"
	"github.com/fyrsmithlabs/agentchat/internal/chat"
	"github.com/fyrsmithlabs/agentchat/internal/config"
	"github.com/fyrsmithlabs/agentchat/internal/docsearch"
	"github.com/fyrsmithlabs/agentchat/internal/journal"
	"github.com/fyrsmithlabs/agentchat/internal/logging"
	"github.com/fyrsmithlabs/agentchat/internal/telemetry"
)

// app wires the full dependency chain: config, logger, telemetry, journal
// store, agents client, and the interaction loop.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *journal.Store
	directory *journal.Directory
	loop      *chat.Loop

	shutdownTelemetry func(context.Context) error
}

// newApp loads configuration and builds all services. Configuration errors
// are fatal here, before any interaction begins.
func newApp(ctx context.Context) (*app, error) {
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadWithFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(&logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	shutdown, err := telemetry.Setup(ctx, &telemetry.Config{
		Enable:      cfg.Otel.Enable,
		Endpoint:    cfg.Otel.Endpoint,
		ServiceName: cfg.Otel.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	store, err := journal.NewStore(&journal.Config{
		Dir:       cfg.Memory.Dir,
		TrimLimit: cfg.Memory.TrimLimit,
	}, logger)
	if err != nil {
		return nil, err
	}
	directory, err := journal.NewDirectory(store, journal.LabelStrategy(cfg.Memory.LabelStrategy), logger)
	if err != nil {
		return nil, err
	}

	client, err := agents.NewClient(agentsConfig(ctx, cfg), logger)
	if err != nil {
		return nil, err
	}

	loop, err := chat.NewLoop(&chat.Config{
		Model:        cfg.ModelDeploymentName,
		AgentName:    cfg.Agent.Name,
		Instructions: cfg.Agent.Instructions,
		Tools:        []agents.Tool{agents.MCPTool(cfg.MCP.ServerLabel, cfg.MCP.ServerURL)},
	}, client, store, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:               cfg,
		logger:            logger,
		store:             store,
		directory:         directory,
		loop:              loop,
		shutdownTelemetry: shutdown,
	}, nil
}

// agentsConfig maps the loaded configuration onto the agents client. A
// client-credentials grant wins over a static API key when both are set.
func agentsConfig(ctx context.Context, cfg *config.Config) *agents.Config {
	ac := agents.DefaultConfig()
	ac.Endpoint = cfg.ProjectEndpoint
	ac.TokenSource = tokenSource(ctx, cfg)
	if ac.TokenSource == nil {
		ac.APIKey = cfg.Auth.APIKey
	}
	return ac
}

func tokenSource(ctx context.Context, cfg *config.Config) oauth2.TokenSource {
	if cfg.Auth.ClientID == "" {
		return nil
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		TokenURL:     cfg.Auth.TokenURL,
	}
	if cfg.Auth.Scope != "" {
		cc.Scopes = []string{cfg.Auth.Scope}
	}
	return cc.TokenSource(ctx)
}

func (a *app) docsearchClient() (*docsearch.Client, error) {
	return docsearch.NewClient(&docsearch.Config{
		ServerURL:     a.cfg.MCP.ServerURL,
		ServerLabel:   a.cfg.MCP.ServerLabel,
		ClientVersion: version,
	}, a.logger)
}

// close flushes the logger and telemetry. Best-effort on both.
func (a *app) close(ctx context.Context) {
	if err := a.shutdownTelemetry(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
