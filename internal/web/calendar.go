package web

import (
	"net/http"
	"strings"

	"madcal/internal/ics"
	appLog "madcal/internal/log"
	"madcal/internal/model"
	"madcal/internal/ordering"
	"madcal/internal/palette"
	"madcal/internal/projection"
)

// cellsResponse is the JSON response shape for /api/calendar-cells.
type cellsResponse struct {
	Cells   []model.ProjectedCell `json:"cells"`
	Count   int                   `json:"count"`
	MinDate string                `json:"min_date,omitempty"`
	MaxDate string                `json:"max_date,omitempty"`
}

// musicalDTO is one entry of /api/musicals.
type musicalDTO struct {
	Name            string `json:"name"`
	BackgroundColor string `json:"background_color"`
	TextColor       string `json:"text_color"`
}

// namedString lets plain names go through the orderer.
type namedString string

func (n namedString) ShowName() string { return string(n) }

// projectionOptions reads the shared query parameters:
//
//	past=1        keep runs that already ended (default follows hide_past)
//	musical=NAME  restrict to these raw show names (repeatable)
func (s *Server) projectionOptions(r *http.Request) projection.Options {
	q := r.URL.Query()
	opts := projection.Options{}
	opts.MinDay, opts.MaxDay = s.cfg.WindowDays()

	for _, m := range q["musical"] {
		if m = strings.TrimSpace(m); m != "" {
			opts.Only = append(opts.Only, m)
		}
	}

	showPast := q.Get("past") == "1" || strings.EqualFold(q.Get("past"), "true")
	if s.cfg.HidePast && !showPast {
		opts.HideEndedBefore = s.cfg.Today(s.now())
	}
	return opts
}

// handleCalendarCells returns projected day cells.
//
// GET /api/calendar-cells?past=1&musical=Wicked&musical=Matilda
func (s *Server) handleCalendarCells(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, err := s.loadSnapshot(r.Context())
	if err != nil {
		appLog.Error("api calendar-cells: load events failed", err)
		writeError(w, http.StatusBadGateway, "failed to load events")
		return
	}

	opts := s.projectionOptions(r)
	cells := s.project(snap, opts)

	appLog.Debug("api calendar-cells request", "only", len(opts.Only), "hide_before", opts.HideEndedBefore, "cells", len(cells))

	writeJSON(w, http.StatusOK, cellsResponse{
		Cells:   cells,
		Count:   len(cells),
		MinDate: opts.MinDay.String(),
		MaxDate: opts.MaxDay.String(),
	})
}

// handleCalendarICS returns the same cells as an iCalendar subscription.
func (s *Server) handleCalendarICS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, err := s.loadSnapshot(r.Context())
	if err != nil {
		appLog.Error("calendar.ics: load events failed", err)
		http.Error(w, "failed to load events", http.StatusBadGateway)
		return
	}

	cells := s.project(snap, s.projectionOptions(r))
	body := ics.Export(cells, "Musicales Madrid", s.now())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write([]byte(body))
	}
}

// handleMusicals lists the distinct show names with their colors, for
// legends and filter dropdowns.
func (s *Server) handleMusicals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, err := s.loadSnapshot(r.Context())
	if err != nil {
		appLog.Error("api musicals: load events failed", err)
		writeError(w, http.StatusBadGateway, "failed to load events")
		return
	}

	seen := make(map[string]struct{})
	names := make([]namedString, 0)
	for _, ev := range snap.events {
		if strings.TrimSpace(ev.Name) == "" {
			continue
		}
		if _, ok := seen[ev.Name]; ok {
			continue
		}
		seen[ev.Name] = struct{}{}
		names = append(names, namedString(ev.Name))
	}
	ordering.Sort(s.order, names)

	// Colors come from the raw name, as for cells, so legend and cells agree.
	colors := palette.NewAssigner(nil)
	out := make([]musicalDTO, 0, len(names))
	for _, n := range names {
		c := colors.ColorFor(string(n))
		out = append(out, musicalDTO{Name: string(n), BackgroundColor: c.Background, TextColor: c.Foreground})
	}
	writeJSON(w, http.StatusOK, out)
}
