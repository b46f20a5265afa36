package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"madcal/internal/ics"
	"madcal/internal/ordering"
	"madcal/internal/projection"
	"madcal/internal/source"
)

func newProjectCmd() *cobra.Command {
	var (
		asICS    bool
		showPast bool
		only     []string
	)

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Print the projected calendar cells once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			loader := source.New(cfg)
			ctx := cmd.Context()

			events, err := loader.Events(ctx)
			if err != nil {
				return err
			}
			table := loader.Exclusions(ctx)

			opts := projection.Options{Only: only}
			opts.MinDay, opts.MaxDay = cfg.WindowDays()
			if cfg.HidePast && !showPast {
				opts.HideEndedBefore = cfg.Today(time.Now())
			}

			p := projection.New(nil, ordering.New(cfg.PreferredOrder))
			cells := p.Project(events, table, opts)

			out := cmd.OutOrStdout()
			if asICS {
				_, err := fmt.Fprint(out, ics.Export(cells, "Musicales Madrid", time.Now()))
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(cells)
		},
	}

	cmd.Flags().BoolVar(&asICS, "ics", false, "Print an iCalendar document instead of JSON")
	cmd.Flags().BoolVar(&showPast, "past", false, "Include runs that already ended")
	cmd.Flags().StringSliceVar(&only, "musical", nil, "Restrict to these show names (repeatable)")
	return cmd
}
