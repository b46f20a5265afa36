package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	appLog "madcal/internal/log"
	"madcal/internal/model"
	"madcal/internal/tracker"
)

// maxChangesBody caps the request body of /api/changes.
const maxChangesBody = 1 << 20

// changesRequest is what the browser sends back from its session storage.
type changesRequest struct {
	// Baseline is the blob returned by the previous call: a JSON array, or
	// a JSON string holding it. Null or absent means no baseline yet.
	Baseline json.RawMessage `json:"baseline"`
	// PreviousKeys is the previous diff's key set; null means this is the
	// first refresh of the session.
	PreviousKeys *[]string `json:"previous_keys"`
	// Seen lists item keys whose current URLs the user has acknowledged.
	Seen []string `json:"seen"`
}

// changesResponse is the JSON response shape for /api/changes.
type changesResponse struct {
	Baseline     json.RawMessage               `json:"baseline"`
	Changes      map[string]model.ChangeRecord `json:"changes"`
	NewKeys      []string                      `json:"new_keys"`
	Notify       bool                          `json:"notify"`
	PreviousKeys []string                      `json:"previous_keys"`
}

// handleChanges runs one refresh of the caller's session. The server keeps
// no baseline: it is rebuilt from the request and returned for the browser
// to store again.
//
// POST /api/changes {"baseline": ..., "previous_keys": [...], "seen": [...]}
func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req changesRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxChangesBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	items, err := s.src.Items(r.Context())
	if err != nil {
		appLog.Error("api changes: load items failed", err)
		writeError(w, http.StatusBadGateway, "failed to load items")
		return
	}

	store := tracker.NewMemoryStore(baselineBlob(req.Baseline))
	notifier := tracker.NewNotifier()
	if req.PreviousKeys != nil {
		notifier = tracker.RestoreNotifier(*req.PreviousKeys)
	}
	tr := tracker.New(store, notifier)

	if err := tr.EnsureBaseline(items); err != nil {
		appLog.Error("api changes: baseline failed", err)
		writeError(w, http.StatusInternalServerError, "failed to capture baseline")
		return
	}
	if err := markSeen(tr, items, req.Seen); err != nil {
		appLog.Error("api changes: mark seen failed", err)
		writeError(w, http.StatusInternalServerError, "failed to mark items as seen")
		return
	}

	res, err := tr.Refresh(items)
	if err != nil {
		appLog.Error("api changes: refresh failed", err)
		writeError(w, http.StatusInternalServerError, "failed to compute changes")
		return
	}

	newKeys := res.NewKeys
	if newKeys == nil {
		newKeys = []string{}
	}
	writeJSON(w, http.StatusOK, changesResponse{
		Baseline:     json.RawMessage(store.Bytes()),
		Changes:      res.Changes,
		NewKeys:      newKeys,
		Notify:       res.Notify,
		PreviousKeys: notifier.Keys(),
	})
}

// baselineBlob unwraps the baseline sent by the client. Anything that is
// not a usable blob is passed through and later treated as corrupted.
func baselineBlob(raw json.RawMessage) []byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return []byte(s)
		}
	}
	return raw
}

// markSeen acknowledges the current URLs of each seen key. Unknown keys
// are ignored.
func markSeen(tr *tracker.Tracker, items []model.TrackedItem, seen []string) error {
	if len(seen) == 0 {
		return nil
	}
	byKey := make(map[string]model.TrackedItem, len(items))
	for _, it := range items {
		byKey[it.Key] = it
	}
	for _, k := range seen {
		it, ok := byKey[k]
		if !ok {
			continue
		}
		if err := tr.MarkSeen(it); err != nil {
			return err
		}
	}
	return nil
}
