package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quotadeck/quotadeck/internal/alerts"
	"github.com/quotadeck/quotadeck/internal/api"
	"github.com/quotadeck/quotadeck/internal/config"
	"github.com/quotadeck/quotadeck/internal/metrics"
	"github.com/quotadeck/quotadeck/internal/orchestrator"
	"github.com/quotadeck/quotadeck/internal/store"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s", "server", "run"},
	Short:   "Start the QuotaDeck server",
	Long: `Start the QuotaDeck server.

The server discovers auth files, polls every provider on an interval,
and exposes the normalized quota state over HTTP.

Example:
  quotadeck serve --config config.yaml`,
	RunE: runServe,
}

var serveFlags struct {
	Host string
	Port int
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.Host, "host", "", "Server host (overrides config)")
	serveCmd.Flags().IntVar(&serveFlags.Port, "port", 0, "Server port (overrides config)")

	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := buildDeck()
	if err != nil {
		return err
	}
	cfg := d.cfg

	if serveFlags.Host != "" {
		cfg.Server.Host = serveFlags.Host
	}
	if serveFlags.Port != 0 {
		cfg.Server.HTTPPort = serveFlags.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics("quotadeck")

	var recorders orchestrator.MultiRecorder

	var history *store.History
	if cfg.History.Enabled {
		history, err = store.NewHistory(cfg.History.Path, d.logger)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer func() {
			if err := history.Close(); err != nil {
				d.logger.Warn("history close failed", "error", err.Error())
			}
		}()
		recorders = append(recorders, history)
		go pruneLoop(ctx, history, cfg.History.Retention, d)
	}

	if cfg.Telegram.Enabled {
		sender, err := alerts.NewTelegramSender(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			d.logger.Warn("telegram setup failed", "error", err.Error())
		} else {
			notifier := alerts.NewNotifier(alerts.Config{
				Enabled:   true,
				Threshold: cfg.Telegram.Threshold,
			}, sender, alerts.WithLogger(d.logger))
			recorders = append(recorders, notifier)
		}
	}

	opts := []orchestrator.Option{
		orchestrator.WithMetrics(m),
		orchestrator.WithLogger(d.logger),
		orchestrator.WithConcurrency(cfg.Poll.Concurrency),
	}
	if len(recorders) > 0 {
		opts = append(opts, orchestrator.WithRecorder(recorders))
	}
	orch := orchestrator.New(d.registry, d.cache, d.manager, opts...)

	// Auth file changes invalidate everything cached.
	d.manager.OnChange(func() {
		orch.ClearAll()
		go orch.RefreshAll(ctx)
	})

	// Config file changes rebuild the adapter registry so endpoint
	// overrides take effect without a restart.
	d.loader.SetOnChange(func(newCfg *config.Config) {
		d.logger.Info("configuration reloaded", "path", globalFlags.Config)
		orch.UpdateRegistry(d.buildRegistry(newCfg))
		orch.ClearAll()
		go orch.RefreshAll(ctx)
	})
	d.loader.StartWatcher(30 * time.Second)
	defer d.loader.StopWatcher()
	go func() {
		if err := d.manager.Watch(ctx); err != nil {
			d.logger.Warn("auth watcher stopped", "error", err.Error())
		}
	}()

	pollInterval := cfg.Poll.Interval
	if !cfg.Poll.Enabled {
		pollInterval = 0
	}
	go orch.Run(ctx, pollInterval)

	apiOpts := []api.Option{api.WithLogger(d.logger)}
	if history != nil {
		apiOpts = append(apiOpts, api.WithHistory(history))
	}
	server := api.NewServer(cfg.Server, d.cache, orch, d.manager, m, apiOpts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		d.logger.Info("received shutdown signal", "signal", sig.String())
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// pruneLoop deletes expired history rows once a day.
func pruneLoop(ctx context.Context, history *store.History, retention time.Duration, d *deck) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := history.Prune(retention)
			if err != nil {
				d.logger.Warn("history prune failed", "error", err.Error())
				continue
			}
			if deleted > 0 {
				d.logger.Info("history pruned", "deleted", deleted)
			}
		}
	}
}
