package cli

import (
	"github.com/spf13/cobra"

	appLog "madcal/internal/log"
	"madcal/internal/source"
	"madcal/internal/web"
)

func newServeCmd() *cobra.Command {
	var noRefresh bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar API and run the ticket link refresh loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.Listen = listenAddr
			}

			appLog.Info("madcal starting",
				"version", version,
				"config", configPath,
				"listen", cfg.Listen,
				"timezone", cfg.Timezone,
				"telegram", cfg.TelegramEnabled(),
			)

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			loader := source.New(cfg)

			var pages web.PageReporter
			if !noRefresh {
				runner, mon := buildRunner(cfg, loader)
				if runner == nil {
					appLog.Warn("no items source or monitored pages configured, refresh loop disabled")
				} else {
					if mon != nil {
						pages = mon
					}
					// First run captures the baseline before the schedule
					// starts, so the two never overlap.
					_, _ = runner.RunOnce(ctx)
					if err := runner.Start(ctx, cfg.RefreshCron); err != nil {
						return err
					}
					defer runner.Stop()
				}
			}

			if err := web.StartServer(ctx, cfg, loader, pages); err != nil {
				return err
			}
			appLog.Info("madcal exiting")
			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "Override the configured listen address")
	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "Serve the API without the refresh loop")
	return cmd
}
