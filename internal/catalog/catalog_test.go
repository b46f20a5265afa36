package catalog_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"madcal/internal/catalog"
	"madcal/internal/model"
)

const schema = `
	CREATE TABLE musicals (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		is_available BOOLEAN DEFAULT 1
	);
	CREATE TABLE musical_links (
		id INTEGER PRIMARY KEY,
		musical_id INTEGER NOT NULL REFERENCES musicals(id),
		url TEXT NOT NULL,
		is_available BOOLEAN DEFAULT 1
	);`

func seed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "musicals.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(schema)
	require.NoError(t, err)
	_, err = db.Exec(`
		INSERT INTO musicals (id, name) VALUES (1, 'Wicked'), (2, 'The Book of Mormon'), (3, 'Houdini');
		INSERT INTO musical_links (musical_id, url) VALUES
			(1, 'https://wicked/b'), (1, 'https://wicked/a'), (1, 'https://wicked/a'),
			(2, 'https://bom/1');`)
	require.NoError(t, err)
	return path
}

func TestItems(t *testing.T) {
	c, err := catalog.Open(seed(t))
	require.NoError(t, err)
	defer c.Close()

	items, err := c.Items(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []model.TrackedItem{
		{Key: "Houdini", URLs: []string{}},
		{Key: "The Book of Mormon", URLs: []string{"https://bom/1"}},
		{Key: "Wicked", URLs: []string{"https://wicked/a", "https://wicked/b"}},
	}, items)
}

func TestOpenMissingSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE other (id INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	c, err := catalog.Open(path)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Items(context.Background())
	assert.Error(t, err)
}

func TestOpenPathWithURIReservedChars(t *testing.T) {
	// Seed under a plain name, then move it where a naive DSN would break.
	dir := filepath.Join(t.TempDir(), "odd?name#1")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	path := filepath.Join(dir, "musicals.db")
	require.NoError(t, os.Rename(seed(t), path))

	c, err := catalog.Open(path)
	require.NoError(t, err)
	defer c.Close()

	items, err := c.Items(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 3)
}
