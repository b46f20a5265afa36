// Package alert delivers "new changes" notifications produced by the
// refresh loop: ticket link changes from the tracker and page updates from
// the monitor.
package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	appLog "madcal/internal/log"
	"madcal/internal/model"
	"madcal/internal/monitor"
)

// Alerter delivers one notification about keys that just started changing.
// changes is the full diff the keys were taken from.
type Alerter interface {
	Alert(ctx context.Context, keys []string, changes map[string]model.ChangeRecord) error
}

// PageAlerter is implemented by alerters that also report monitored pages
// whose content changed.
type PageAlerter interface {
	AlertPages(ctx context.Context, changed []monitor.Check) error
}

// LogAlerter writes the notification as a structured log line.
type LogAlerter struct{}

func (LogAlerter) Alert(_ context.Context, keys []string, changes map[string]model.ChangeRecord) error {
	if len(keys) == 0 {
		return nil
	}
	appLog.Info("ticket links changed", "musicals", strings.Join(keys, ", "), "count", len(keys), "changed_total", len(changes))
	return nil
}

func (LogAlerter) AlertPages(_ context.Context, changed []monitor.Check) error {
	for _, c := range changed {
		appLog.Info("ticket page changed", "label", c.Label, "url", c.URL, "change_count", c.ChangeCount)
	}
	return nil
}

// Multi fans an alert out to every alerter, continuing past failures.
type Multi []Alerter

func (m Multi) Alert(ctx context.Context, keys []string, changes map[string]model.ChangeRecord) error {
	var errs []error
	for _, a := range m {
		if a == nil {
			continue
		}
		if err := a.Alert(ctx, keys, changes); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AlertPages forwards to every member that implements PageAlerter.
func (m Multi) AlertPages(ctx context.Context, changed []monitor.Check) error {
	var errs []error
	for _, a := range m {
		pa, ok := a.(PageAlerter)
		if !ok {
			continue
		}
		if err := pa.AlertPages(ctx, changed); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Message renders the human-readable text shared by chat alerters.
func Message(keys []string, changes map[string]model.ChangeRecord) string {
	var b strings.Builder
	if len(keys) == 1 {
		b.WriteString("🎭 Cambio en entradas:\n")
	} else {
		fmt.Fprintf(&b, "🎭 %d cambios en entradas:\n", len(keys))
	}
	for _, k := range keys {
		rec := changes[k]
		fmt.Fprintf(&b, "• %s: +%d / -%d (%d enlaces)\n", k, rec.Added, rec.Removed, rec.Total)
	}
	return strings.TrimRight(b.String(), "\n")
}

// PageMessage renders page updates for chat alerters.
func PageMessage(changed []monitor.Check) string {
	var b strings.Builder
	if len(changed) == 1 {
		b.WriteString("🎉 Página actualizada:\n")
	} else {
		fmt.Fprintf(&b, "🎉 %d páginas actualizadas:\n", len(changed))
	}
	for _, c := range changed {
		fmt.Fprintf(&b, "• %s (%d cambios)\n  %s\n", c.Label, c.ChangeCount, c.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}
