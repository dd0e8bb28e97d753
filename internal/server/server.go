// Package server exposes the JSON API for report listings and the manual
// admin-facing generation triggers.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/database"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/period"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/rollup"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/synthesis"
)

// Server is the HTTP server for report listings and manual triggers.
type Server struct {
	db     *database.DB
	engine *rollup.Engine
	router *mux.Router
}

// New creates a new Server.
func New(db *database.DB, engine *rollup.Engine) *Server {
	s := &Server{db: db, engine: engine, router: mux.NewRouter()}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve starts the server on the given port.
func Serve(db *database.DB, engine *rollup.Engine, port int) error {
	s := New(db, engine)
	addr := fmt.Sprintf(":%d", port)
	log.Printf("serving report API on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/reports", s.handleListReports).Methods("GET")
	api.HandleFunc("/reports/{type}/{dateKey}", s.handleGetReport).Methods("GET")
	api.HandleFunc("/reports/daily", s.handleGenerateDaily).Methods("POST")
	api.HandleFunc("/reports/weekly", s.handleGenerateWeekly).Methods("POST")
	api.HandleFunc("/reports/monthly", s.handleGenerateMonthly).Methods("POST")
	api.HandleFunc("/reports/quarterly", s.handleGenerateQuarterly).Methods("POST")
	api.HandleFunc("/backfill", s.handleBackfill).Methods("POST")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// triggerResponse is the shape every manual trigger returns.
type triggerResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	ReportID int64  `json:"reportId,omitempty"`
}

type reportView struct {
	ID               int64           `json:"id"`
	ReportType       string          `json:"reportType"`
	DateKey          string          `json:"dateKey"`
	PeriodStart      string          `json:"periodStart"`
	PeriodEnd        string          `json:"periodEnd"`
	Status           string          `json:"status"`
	GenerationType   string          `json:"generationType"`
	Summary          string          `json:"summary,omitempty"`
	EpisodesIncluded int             `json:"episodesIncluded"`
	GeneratedAt      string          `json:"generatedAt,omitempty"`
	Content          json.RawMessage `json:"content,omitempty"`
	Themes           []themeView     `json:"themes,omitempty"`
	EpisodeIDs       []int64         `json:"episodeIds,omitempty"`
}

type themeView struct {
	Name       string  `json:"name"`
	Prominence float64 `json:"prominence"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reportType := r.URL.Query().Get("type")
	if reportType != "" && !period.Tier(reportType).Valid() {
		writeJSON(w, http.StatusBadRequest, triggerResponse{Error: fmt.Sprintf("unknown report type %q", reportType)})
		return
	}

	reports, err := s.db.ListReports(reportType)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, triggerResponse{Error: "listing reports failed"})
		return
	}

	views := make([]reportView, 0, len(reports))
	for _, r := range reports {
		views = append(views, toReportView(r, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": views})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tier := period.Tier(vars["type"])
	dateKey := vars["dateKey"]

	if err := period.Validate(tier, dateKey); err != nil {
		writeJSON(w, http.StatusBadRequest, triggerResponse{Error: err.Error()})
		return
	}

	report, err := s.db.GetReport(string(tier), dateKey)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, triggerResponse{Error: "fetching report failed"})
		return
	}
	if report == nil {
		writeJSON(w, http.StatusNotFound, triggerResponse{Error: "report not found"})
		return
	}

	view := toReportView(*report, true)
	if themes, err := s.db.GetReportThemes(report.ID); err == nil {
		for _, t := range themes {
			view.Themes = append(view.Themes, themeView{Name: t.Name, Prominence: t.Prominence})
		}
	}
	if ids, err := s.db.GetReportEpisodeIDs(report.ID); err == nil {
		view.EpisodeIDs = ids
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGenerateDaily(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := period.FromKey(period.Daily, req.Date)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	s.runManual(w, r, p)
}

func (s *Server) handleGenerateWeekly(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WeekStart string `json:"weekStart"`
		WeekEnd   string `json:"weekEnd"`
		DateKey   string `json:"dateKey"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := period.Validate(period.Weekly, req.DateKey); err != nil {
		writeValidationError(w, err)
		return
	}

	var p period.Period
	if req.WeekStart != "" && req.WeekEnd != "" {
		start, err1 := time.Parse("2006-01-02", req.WeekStart)
		end, err2 := time.Parse("2006-01-02", req.WeekEnd)
		if err1 != nil || err2 != nil {
			writeJSON(w, http.StatusBadRequest, triggerResponse{Error: "weekStart and weekEnd must be YYYY-MM-DD"})
			return
		}
		p = period.ForWeek(start, end)
		p.DateKey = req.DateKey
	} else {
		var err error
		p, err = period.ForWeekKey(req.DateKey)
		if err != nil {
			writeValidationError(w, err)
			return
		}
	}
	s.runManual(w, r, p)
}

func (s *Server) handleGenerateMonthly(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Year    int    `json:"year"`
		Month   int    `json:"month"`
		DateKey string `json:"dateKey"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := period.Validate(period.Monthly, req.DateKey); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.Month < 1 || req.Month > 12 {
		writeJSON(w, http.StatusBadRequest, triggerResponse{Error: "month must be 1-12"})
		return
	}

	p := period.ForMonth(req.Year, req.Month)
	p.DateKey = req.DateKey
	s.runManual(w, r, p)
}

func (s *Server) handleGenerateQuarterly(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Year    int    `json:"year"`
		Quarter int    `json:"quarter"`
		DateKey string `json:"dateKey"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := period.Validate(period.Quarterly, req.DateKey); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.Quarter < 1 || req.Quarter > 4 {
		writeJSON(w, http.StatusBadRequest, triggerResponse{Error: "quarter must be 1-4"})
		return
	}

	p := period.ForQuarter(req.Year, req.Quarter)
	p.DateKey = req.DateKey
	s.runManual(w, r, p)
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Backfill(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, triggerResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"datesProcessed": result.DatesProcessed,
		"generated":      result.Generated,
		"skipped":        result.Skipped,
	})
}

// runManual executes a manual rollup and maps the outcome to the trigger
// response contract: soft skips are success:false with a readable reason.
func (s *Server) runManual(w http.ResponseWriter, r *http.Request, p period.Period) {
	outcome, err := s.engine.Run(r.Context(), p, database.GenerationManual, "admin")
	if err != nil {
		status := http.StatusInternalServerError
		var vErr *synthesis.ValidationError
		var pErr *period.ValidationError
		if errors.As(err, &vErr) || errors.As(err, &pErr) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, triggerResponse{Error: err.Error()})
		return
	}

	if outcome.Status != rollup.OutcomeGenerated {
		writeJSON(w, http.StatusOK, triggerResponse{Message: outcome.Message, ReportID: outcome.ReportID})
		return
	}
	writeJSON(w, http.StatusOK, triggerResponse{Success: true, Message: outcome.Message, ReportID: outcome.ReportID})
}

func toReportView(r database.Report, includeContent bool) reportView {
	view := reportView{
		ID:               r.ID,
		ReportType:       r.ReportType,
		DateKey:          r.DateKey,
		PeriodStart:      r.PeriodStart,
		PeriodEnd:        r.PeriodEnd,
		Status:           r.Status,
		GenerationType:   r.GenerationType,
		EpisodesIncluded: r.EpisodesIncluded,
	}
	if r.Summary != nil {
		view.Summary = *r.Summary
	}
	if r.GeneratedAt != nil {
		view.GeneratedAt = *r.GeneratedAt
	}
	if includeContent && r.ContentJSON != nil && json.Valid([]byte(*r.ContentJSON)) {
		view.Content = json.RawMessage(*r.ContentJSON)
	}
	return view
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeJSON(w, http.StatusBadRequest, triggerResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, triggerResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}
