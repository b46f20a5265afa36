package web

import (
	"net/http"

	"madcal/internal/monitor"
)

type pagesResponse struct {
	Checked int             `json:"checked"`
	Changed int             `json:"changed"`
	Pages   []monitor.Check `json:"pages"`
}

// handlePages lists the latest result per monitored page. ?changed=1 keeps
// only pages updated on their last check.
func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	checks := []monitor.Check{}
	if s.pages != nil {
		checks = s.pages.Checks()
	}
	changed := monitor.Changed(checks)

	resp := pagesResponse{Checked: len(checks), Changed: len(changed), Pages: checks}
	if v := r.URL.Query().Get("changed"); v == "1" || v == "true" {
		resp.Pages = changed
		if resp.Pages == nil {
			resp.Pages = []monitor.Check{}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
