package web_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"madcal/internal/model"
)

type changesBody struct {
	Baseline     json.RawMessage               `json:"baseline"`
	Changes      map[string]model.ChangeRecord `json:"changes"`
	NewKeys      []string                      `json:"new_keys"`
	Notify       bool                          `json:"notify"`
	PreviousKeys []string                      `json:"previous_keys"`
}

func postChanges(t *testing.T, url string, req map[string]any) changesBody {
	t.Helper()
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(url+"/api/changes", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body changesBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestChangesSessionRoundTrip(t *testing.T) {
	srv, src := newTestServer(t, nil)
	src.setItems(model.NewTrackedItem("wicked", []string{"a", "b"}))

	// First load: baseline captured, nothing to report.
	first := postChanges(t, srv.URL, map[string]any{"baseline": nil, "previous_keys": nil})
	assert.Empty(t, first.Changes)
	assert.False(t, first.Notify)
	assert.JSONEq(t, `[{"key":"wicked","urls":["a","b"]}]`, string(first.Baseline))

	// Links move: one notification.
	src.setItems(model.NewTrackedItem("wicked", []string{"b", "c", "d"}))
	second := postChanges(t, srv.URL, map[string]any{
		"baseline":      first.Baseline,
		"previous_keys": first.PreviousKeys,
	})
	assert.Equal(t, map[string]model.ChangeRecord{"wicked": {Added: 2, Removed: 1, Total: 3}}, second.Changes)
	assert.True(t, second.Notify)
	assert.Equal(t, []string{"wicked"}, second.NewKeys)

	// Same state again: still changed, no new notification.
	third := postChanges(t, srv.URL, map[string]any{
		"baseline":      second.Baseline,
		"previous_keys": second.PreviousKeys,
	})
	assert.Len(t, third.Changes, 1)
	assert.False(t, third.Notify)

	// Acknowledge: the diff converges to empty.
	fourth := postChanges(t, srv.URL, map[string]any{
		"baseline":      string(third.Baseline),
		"previous_keys": third.PreviousKeys,
		"seen":          []string{"wicked", "unknown"},
	})
	assert.Empty(t, fourth.Changes)
	assert.False(t, fourth.Notify)
	assert.Empty(t, fourth.PreviousKeys)
}

func TestChangesCorruptedBaseline(t *testing.T) {
	srv, src := newTestServer(t, nil)
	src.setItems(model.NewTrackedItem("wicked", []string{"a"}))

	body := postChanges(t, srv.URL, map[string]any{"baseline": "{{not json", "previous_keys": []string{}})
	assert.Empty(t, body.Changes)
	assert.JSONEq(t, `[{"key":"wicked","urls":["a"]}]`, string(body.Baseline))
}

func TestChangesRejectsBadJSON(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Post(srv.URL+"/api/changes", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
