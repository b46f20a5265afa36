// Package source wires the configured inputs to their decoders: events
// (JSON or ICS), the exclusions document and the tracked items (JSON or
// the musicals database).
package source

import (
	"context"
	"errors"
	"fmt"

	"madcal/internal/catalog"
	"madcal/internal/config"
	"madcal/internal/exclusion"
	"madcal/internal/feed"
	"madcal/internal/ics"
	appLog "madcal/internal/log"
	"madcal/internal/model"
)

// ErrNoItemsSource is returned when neither an items URL nor a database
// is configured.
var ErrNoItemsSource = errors.New("no items source configured")

// Loader reads all inputs for one configuration.
type Loader struct {
	fetcher *feed.Fetcher

	events       feed.Source
	eventsFormat string
	horizon      model.Day
	exclusions   feed.Source
	items        feed.Source
	database     string
}

// New builds a Loader from cfg.
func New(cfg *config.Config) *Loader {
	return NewWithFetcher(cfg, feed.NewFetcher(cfg.CacheDir))
}

// NewWithFetcher is New with an explicit fetcher.
func NewWithFetcher(cfg *config.Config, f *feed.Fetcher) *Loader {
	_, horizon := cfg.WindowDays()
	return &Loader{
		horizon:      horizon,
		fetcher:      f,
		events:       feed.Source{ID: "events", URL: cfg.Events.URL},
		eventsFormat: cfg.Events.Format,
		exclusions:   feed.Source{ID: "exclusions", URL: cfg.Exclusions.URL},
		items:        feed.Source{ID: "items", URL: cfg.Items.URL},
		database:     cfg.Items.Database,
	}
}

// Events fetches and decodes the show runs.
func (l *Loader) Events(ctx context.Context) ([]model.SourceEvent, error) {
	res, err := l.fetcher.FetchOne(ctx, l.events)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	if l.eventsFormat == config.FormatICS {
		return ics.ParseEventsWith(res.Body, ics.ExpandOptions{Horizon: l.horizon})
	}
	return feed.DecodeEvents(res.Body)
}

// Exclusions fetches the exclusions document. Any failure, including an
// unset URL, yields an empty table.
func (l *Loader) Exclusions(ctx context.Context) exclusion.Table {
	if l.exclusions.URL == "" {
		return exclusion.Table{}
	}
	res, err := l.fetcher.FetchOne(ctx, l.exclusions)
	if err != nil {
		appLog.Warn("exclusions unavailable, continuing without", "err", err)
		return exclusion.Table{}
	}
	table, err := exclusion.Parse(res.Body)
	if err != nil {
		appLog.Warn("exclusions unreadable, continuing without", "err", err)
		return exclusion.Table{}
	}
	return table
}

// Items reads the monitored musicals, preferring the database.
func (l *Loader) Items(ctx context.Context) ([]model.TrackedItem, error) {
	if l.database != "" {
		c, err := catalog.Open(l.database)
		if err != nil {
			return nil, err
		}
		defer c.Close()
		return c.Items(ctx)
	}
	if l.items.URL == "" {
		return nil, ErrNoItemsSource
	}
	res, err := l.fetcher.FetchOne(ctx, l.items)
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}
	return feed.DecodeItems(res.Body)
}
