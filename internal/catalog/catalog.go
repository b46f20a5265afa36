// Package catalog reads the monitored musicals and their ticket links from
// the tracker database.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sort"

	_ "modernc.org/sqlite"

	appLog "madcal/internal/log"
	"madcal/internal/model"
)

const itemsQuery = `
	SELECT m.name, l.url
	FROM musicals m
	LEFT JOIN musical_links l ON l.musical_id = m.id
	ORDER BY m.name, l.url`

// Catalog is a read-only view over the musicals database.
type Catalog struct {
	db *sql.DB
}

// Open opens the SQLite database at path for reading.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Catalog{db: db}, nil
}

// dsn builds a read-only SQLite URI for path, escaping '?' and '#'.
func dsn(path string) string {
	u := url.URL{Scheme: "file", Path: path, RawQuery: "mode=ro"}
	return u.String()
}

// Close releases the database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Items returns one tracked item per musical, keyed by its name, with the
// URLs of its links. Musicals without links yield an empty URL set.
func (c *Catalog) Items(ctx context.Context) ([]model.TrackedItem, error) {
	rows, err := c.db.QueryContext(ctx, itemsQuery)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	urls := make(map[string][]string)
	for rows.Next() {
		var name string
		var link sql.NullString
		if err := rows.Scan(&name, &link); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if _, ok := urls[name]; !ok {
			urls[name] = nil
		}
		if link.Valid {
			urls[name] = append(urls[name], link.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	names := make([]string, 0, len(urls))
	for n := range urls {
		names = append(names, n)
	}
	sort.Strings(names)

	items := make([]model.TrackedItem, 0, len(names))
	for _, n := range names {
		item := model.NewTrackedItem(n, urls[n])
		if item.Key == "" {
			continue
		}
		items = append(items, item)
	}
	appLog.Debug("catalog items loaded", "items", len(items))
	return items, nil
}
