package cli

import (
	"fmt"

	"github.com/quotadeck/quotadeck/internal/adapters"
	"github.com/quotadeck/quotadeck/internal/authfiles"
	"github.com/quotadeck/quotadeck/internal/config"
	"github.com/quotadeck/quotadeck/internal/dispatch"
	"github.com/quotadeck/quotadeck/internal/logging"
	"github.com/quotadeck/quotadeck/internal/store"
)

// deck bundles the core components shared by the serve and quotas
// commands.
type deck struct {
	cfg        *config.Config
	loader     *config.Loader
	logger     *logging.Logger
	manager    *authfiles.Manager
	dispatcher *dispatch.Dispatcher
	registry   adapters.Registry
	cache      *store.Cache
}

// buildDeck loads configuration and wires the auth manager, dispatcher,
// and adapter registry.
func buildDeck() (*deck, error) {
	loader := config.NewLoader(globalFlags.Config)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := logging.LogLevel(cfg.Server.LogLevel)
	if globalFlags.Verbose {
		level = logging.LevelDebug
	}
	logger := logging.NewLogger(logging.WithLevel(level))

	authPath := authfiles.ResolveAuthPath(firstNonEmpty(globalFlags.AuthPath, cfg.Auth.Path))
	if authPath == "" {
		return nil, fmt.Errorf("no auth file directory found; set auth.path or --auths")
	}

	manager := authfiles.NewManager(authPath, cfg.Auth.ScanInterval, logger)
	if _, err := manager.Scan(); err != nil {
		logger.Warn("initial auth scan failed", "path", authPath, "error", err.Error())
	}

	dispatcher := dispatch.New(manager, dispatch.WithLogger(logger))

	d := &deck{
		cfg:        cfg,
		loader:     loader,
		logger:     logger,
		manager:    manager,
		dispatcher: dispatcher,
		cache:      store.NewCache(),
	}
	d.registry = d.buildRegistry(cfg)
	return d, nil
}

// buildRegistry assembles the adapter registry for a configuration. Called
// again on configuration reload so endpoint overrides take effect without
// a restart.
func (d *deck) buildRegistry(cfg *config.Config) adapters.Registry {
	return adapters.NewRegistry(adapters.Deps{
		Dispatcher: d.dispatcher,
		Downloader: d.manager,
		Logger:     d.logger,
	}, antigravityConfig(cfg), codexConfig(cfg), geminiConfig(cfg), copilotConfig(cfg))
}

func antigravityConfig(cfg *config.Config) adapters.AntigravityConfig {
	out := adapters.DefaultAntigravityConfig()
	if len(cfg.Providers.Antigravity.BaseURLs) > 0 {
		out.BaseURLs = cfg.Providers.Antigravity.BaseURLs
	}
	if cfg.Providers.Antigravity.DefaultProjectID != "" {
		out.DefaultProjectID = cfg.Providers.Antigravity.DefaultProjectID
	}
	return out
}

func codexConfig(cfg *config.Config) adapters.CodexConfig {
	out := adapters.DefaultCodexConfig()
	if cfg.Providers.Codex.URL != "" {
		out.URL = cfg.Providers.Codex.URL
	}
	return out
}

func geminiConfig(cfg *config.Config) adapters.GeminiConfig {
	out := adapters.DefaultGeminiConfig()
	if cfg.Providers.GeminiCLI.URL != "" {
		out.URL = cfg.Providers.GeminiCLI.URL
	}
	return out
}

func copilotConfig(cfg *config.Config) adapters.CopilotConfig {
	out := adapters.DefaultCopilotConfig()
	if cfg.Providers.Copilot.URL != "" {
		out.URL = cfg.Providers.Copilot.URL
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
