// Package refresh runs the change tracker and the page monitor on a
// schedule and raises alerts when musicals start changing.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"madcal/internal/alert"
	appLog "madcal/internal/log"
	"madcal/internal/model"
	"madcal/internal/monitor"
	"madcal/internal/tracker"
)

// ItemSource supplies the current tracked items.
type ItemSource interface {
	Items(ctx context.Context) ([]model.TrackedItem, error)
}

// Status is the outcome of the last run.
type Status struct {
	At      time.Time
	Items   int
	Result  tracker.Result
	Err     error
	Alerted bool
	Pages   []monitor.Check
}

// Runner owns the process-lifetime tracking session. Runs never overlap,
// whether they come from the schedule or from direct RunOnce calls.
type Runner struct {
	items   ItemSource
	tracker *tracker.Tracker
	alerter alert.Alerter

	monitor   *monitor.Monitor
	fromItems bool

	runMu sync.Mutex

	mu   sync.Mutex
	last Status
	cron *cron.Cron
}

// New returns a Runner. A nil items source skips link tracking; a nil
// tracker starts an in-memory session; a nil alerter only logs.
func New(items ItemSource, tr *tracker.Tracker, alerter alert.Alerter) *Runner {
	if tr == nil {
		tr = tracker.New(tracker.NewMemoryStore(nil), nil)
	}
	if alerter == nil {
		alerter = alert.LogAlerter{}
	}
	return &Runner{items: items, tracker: tr, alerter: alerter}
}

// SetMonitor adds page monitoring to every run. With fromItems, every URL
// of the tracked items is monitored too, labelled with its item key.
func (r *Runner) SetMonitor(m *monitor.Monitor, fromItems bool) {
	r.monitor = m
	r.fromItems = fromItems
}

// RunOnce loads the items, refreshes the tracker and alerts on new keys,
// then checks the monitored pages. Alert failures are logged, not
// returned.
func (r *Runner) RunOnce(ctx context.Context) (tracker.Result, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	status := Status{At: time.Now()}
	defer func() {
		r.mu.Lock()
		r.last = status
		r.mu.Unlock()
	}()

	var (
		items []model.TrackedItem
		res   tracker.Result
		err   error
	)
	if r.items != nil {
		items, res, err = r.trackItems(ctx, &status)
	}
	if r.monitor != nil {
		status.Pages = r.checkPages(ctx, items)
	}
	return res, err
}

func (r *Runner) trackItems(ctx context.Context, status *Status) ([]model.TrackedItem, tracker.Result, error) {
	items, err := r.items.Items(ctx)
	if err != nil {
		status.Err = fmt.Errorf("load items: %w", err)
		appLog.Error("refresh: load items failed", err)
		return nil, tracker.Result{}, status.Err
	}
	status.Items = len(items)

	res, err := r.tracker.Refresh(items)
	if err != nil {
		status.Err = err
		appLog.Error("refresh: tracker failed", err)
		return items, tracker.Result{}, err
	}
	status.Result = res

	appLog.Info("refresh completed", "items", len(items), "changed", len(res.Changes), "new", len(res.NewKeys))

	if res.Notify {
		if err := r.alerter.Alert(ctx, res.NewKeys, res.Changes); err != nil {
			appLog.Error("refresh: alert failed", err, "keys", len(res.NewKeys))
		} else {
			status.Alerted = true
		}
	}
	return items, res, nil
}

func (r *Runner) checkPages(ctx context.Context, items []model.TrackedItem) []monitor.Check {
	var extra []monitor.Page
	if r.fromItems {
		for _, it := range items {
			for _, u := range it.URLs {
				extra = append(extra, monitor.Page{Label: it.Key, URL: u})
			}
		}
	}

	checks := r.monitor.CheckAll(ctx, extra...)
	changed := monitor.Changed(checks)
	if len(changed) == 0 {
		return checks
	}
	pa, ok := r.alerter.(alert.PageAlerter)
	if !ok {
		return checks
	}
	if err := pa.AlertPages(ctx, changed); err != nil {
		appLog.Error("refresh: page alert failed", err, "pages", len(changed))
	}
	return checks
}

// Start schedules RunOnce on spec. Runs never overlap: a tick that fires
// while the previous run is still going is skipped. The schedule stops
// when ctx is cancelled.
func (r *Runner) Start(ctx context.Context, spec string) error {
	logger := cronLogger{}
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)), cron.WithLogger(logger))
	if _, err := c.AddFunc(spec, func() {
		_, _ = r.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("refresh: bad schedule %q: %w", spec, err)
	}

	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()

	c.Start()
	appLog.Info("refresh scheduled", "spec", spec)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	appLog.Info("refresh stopped")
}

// Last returns the status of the most recent run.
func (r *Runner) Last() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Tracker exposes the session tracker, e.g. to mark items as seen.
func (r *Runner) Tracker() *tracker.Tracker { return r.tracker }

// cronLogger routes cron's internal logging through appLog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
