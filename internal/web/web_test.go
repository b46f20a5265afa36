package web_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"madcal/internal/config"
	"madcal/internal/exclusion"
	"madcal/internal/model"
	"madcal/internal/monitor"
	"madcal/internal/web"
)

type fakeSources struct {
	mu         sync.Mutex
	events     []model.SourceEvent
	exclusions exclusion.Table
	items      []model.TrackedItem
	eventCalls int
}

func (f *fakeSources) Events(context.Context) ([]model.SourceEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventCalls++
	return f.events, nil
}

func (f *fakeSources) Exclusions(context.Context) exclusion.Table { return f.exclusions }

func (f *fakeSources) Items(context.Context) ([]model.TrackedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items, nil
}

func (f *fakeSources) setItems(items ...model.TrackedItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

func day(s string) model.Day { return model.MustParseDay(s) }

func newTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *fakeSources) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	if mutate != nil {
		mutate(cfg)
	}

	src := &fakeSources{
		events: []model.SourceEvent{
			{ID: "h", Name: "Hamilton", Start: day("2025-03-03"), End: day("2025-03-05")},
			{ID: "w", Name: "Wicked", Start: day("2025-03-04"), End: day("2025-03-05")},
			{ID: "old", Name: "Matilda", Start: day("2025-01-07"), End: day("2025-01-08")},
		},
		exclusions: exclusion.FromMap([]string{"Wicked"}, map[string][]string{"Wicked": {"2025-03-05"}}),
	}

	s := web.NewServer(cfg, src)
	s.SetClock(func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) })
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, src
}

type cellsBody struct {
	Cells []model.ProjectedCell `json:"cells"`
	Count int                   `json:"count"`
}

func getCells(t *testing.T, url string) cellsBody {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body cellsBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCalendarCells(t *testing.T) {
	srv, src := newTestServer(t, nil)

	body := getCells(t, srv.URL+"/api/calendar-cells")
	var ids []string
	for _, c := range body.Cells {
		ids = append(ids, c.ID)
		assert.NotEqual(t, time.Monday, c.Day.Weekday())
	}
	// Wicked sorts before Hamilton on a shared day; Matilda ended already.
	assert.Equal(t, []string{"w:2025-03-04", "h:2025-03-04", "h:2025-03-05"}, ids)
	assert.Equal(t, 3, body.Count)

	body = getCells(t, srv.URL+"/api/calendar-cells?past=1&musical=Matilda")
	require.Len(t, body.Cells, 2)
	assert.Equal(t, "Matilda", body.Cells[0].DisplayName)
	assert.NotEmpty(t, body.Cells[0].BackgroundColor)

	// Both requests were served from one fetch.
	assert.Equal(t, 1, src.eventCalls)
}

func TestCalendarICS(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/calendar.ics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/calendar"))
}

func TestMusicals(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/api/musicals")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out []struct {
		Name            string `json:"name"`
		BackgroundColor string `json:"background_color"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 3)
	assert.Equal(t, "Wicked", out[0].Name)
	assert.Equal(t, "Hamilton", out[1].Name)
	assert.Equal(t, "Matilda", out[2].Name)
	assert.Equal(t, "#A0E1E0", out[1].BackgroundColor)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/calendar-cells", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/changes")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestBasicAuth(t *testing.T) {
	srv, _ := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/musicals")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/musicals", nil)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type fakePages []monitor.Check

func (f fakePages) Checks() []monitor.Check { return f }

func getPages(t *testing.T, s *web.Server, path string) (checked, changed int, pages []monitor.Check) {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Checked int             `json:"checked"`
		Changed int             `json:"changed"`
		Pages   []monitor.Check `json:"pages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Checked, body.Changed, body.Pages
}

func TestPages(t *testing.T) {
	cfg := config.DefaultConfig()

	checked, _, pages := getPages(t, web.NewServer(cfg, &fakeSources{}), "/api/pages")
	assert.Equal(t, 0, checked)
	assert.NotNil(t, pages)

	s := web.NewServer(cfg, &fakeSources{})
	s.SetPages(fakePages{
		{Label: "Wicked", URL: "https://w", Status: monitor.StatusChanged, ChangeCount: 3},
		{Label: "Houdini", URL: "https://h", Status: monitor.StatusUnchanged},
	})

	checked, changed, _ := getPages(t, s, "/api/pages")
	assert.Equal(t, 2, checked)
	assert.Equal(t, 1, changed)

	_, _, pages = getPages(t, s, "/api/pages?changed=1")
	require.Len(t, pages, 1)
	assert.Equal(t, "Wicked", pages[0].Label)
	assert.Equal(t, 3, pages[0].ChangeCount)
}
