package cli

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	appLog "madcal/internal/log"
	"madcal/internal/model"
	"madcal/internal/monitor"
	"madcal/internal/source"
)

var errNothingToWatch = errors.New("no items source or monitored pages configured")

type watchOutput struct {
	Items   int                           `json:"items"`
	Changes map[string]model.ChangeRecord `json:"changes"`
	NewKeys []string                      `json:"new_keys"`
	Notify  bool                          `json:"notify"`
	Pages   []monitor.Check               `json:"pages,omitempty"`
}

func newWatchCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Track ticket link and page changes on the configured schedule",
		Long: "watch keeps one tracking session for the life of the process: the first run\n" +
			"captures the baseline, later runs report links added or removed since then\n" +
			"and monitored pages whose content changed.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			runner, _ := buildRunner(cfg, source.New(cfg))
			if runner == nil {
				return errNothingToWatch
			}

			if once {
				res, err := runner.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(watchOutput{
					Items:   runner.Last().Items,
					Changes: res.Changes,
					NewKeys: res.NewKeys,
					Notify:  res.Notify,
					Pages:   runner.Last().Pages,
				})
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			// First run captures the baseline immediately.
			_, _ = runner.RunOnce(ctx)
			if err := runner.Start(ctx, cfg.RefreshCron); err != nil {
				return err
			}
			<-ctx.Done()
			runner.Stop()
			appLog.Info("madcal watch exiting")
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single refresh, print it and exit")
	return cmd
}
