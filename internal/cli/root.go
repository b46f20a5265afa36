// Package cli wires configuration, sources and the core packages into the
// madcal command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"madcal/internal/alert"
	"madcal/internal/config"
	appLog "madcal/internal/log"
	"madcal/internal/monitor"
	"madcal/internal/refresh"
	"madcal/internal/source"
	"madcal/internal/tracker"
)

const version = "0.1.0"

var (
	configPath string
	listenAddr string
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "madcal",
		Short:         "Madrid musicals calendar and ticket link tracker",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "./madcal.yaml", "Path to config file")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newProjectCmd())
	cmd.AddCommand(newWatchCmd())
	return cmd
}

// loadConfig reads the config file and applies its log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// buildAlerter always logs and adds Telegram when it is configured. A
// Telegram connection failure is logged and leaves logging only.
func buildAlerter(cfg *config.Config) alert.Alerter {
	alerters := alert.Multi{alert.LogAlerter{}}
	if cfg.TelegramEnabled() {
		tg, err := alert.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, "")
		if err != nil {
			appLog.Error("telegram alerts disabled", err)
		} else {
			alerters = append(alerters, tg)
		}
	}
	return alerters
}

// buildRunner wires link tracking (when an items source is configured) and
// page monitoring (when pages are configured) into one refresh runner. It
// returns nil when there is nothing to refresh.
func buildRunner(cfg *config.Config, loader *source.Loader) (*refresh.Runner, *monitor.Monitor) {
	hasItems := cfg.Items.URL != "" || cfg.Items.Database != ""
	if !hasItems && !cfg.MonitorEnabled() {
		return nil, nil
	}

	var items refresh.ItemSource
	if hasItems {
		items = loader
	}
	runner := refresh.New(items, tracker.New(nil, nil), buildAlerter(cfg))

	var mon *monitor.Monitor
	if cfg.MonitorEnabled() {
		mon = monitor.New(cfg.Monitor.Pages, cfg.MonitorTimeout())
		runner.SetMonitor(mon, cfg.Monitor.FromItems && hasItems)
	}
	return runner, mon
}
