package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/jfarrand/cropcast/internal/balance"
	"github.com/jfarrand/cropcast/internal/report"
	"github.com/jfarrand/cropcast/internal/store"
)

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.store.GetActiveLocations()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type locationView struct {
		Slug      string  `json:"slug"`
		Name      string  `json:"name"`
		State     string  `json:"state"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		StationID string  `json:"station_id,omitempty"`
	}
	views := make([]locationView, 0, len(locations))
	for _, l := range locations {
		views = append(views, locationView{
			Slug:      l.Slug,
			Name:      l.Name,
			State:     l.State,
			Latitude:  l.Latitude,
			Longitude: l.Longitude,
			StationID: l.StationID.String,
		})
	}
	writeJSON(w, views)
}

// summaryRow is the JSON shape of one water-balance line. Raw sums and the
// report-style display strings travel together so clients need no
// formatting logic.
type summaryRow struct {
	Location     string  `json:"location"`
	Crop         string  `json:"crop"`
	Field        string  `json:"field,omitempty"`
	ET0Actual    float64 `json:"et0_actual"`
	ETcActual    float64 `json:"etc_actual"`
	ET0Forecast  float64 `json:"et0_forecast"`
	ETcForecast  float64 `json:"etc_forecast"`
	ActualDays   int     `json:"actual_days"`
	ForecastDays int     `json:"forecast_days"`
	Kc           string  `json:"kc"`
	ETcDisplay   string  `json:"etc_forecast_display"`
	Need         string  `json:"need"`
	Station      string  `json:"station"`
}

func summaryRows(summaries []balance.Summary) []summaryRow {
	rows := make([]summaryRow, 0, len(summaries))
	for _, sum := range summaries {
		rows = append(rows, summaryRow{
			Location:     sum.LocationName,
			Crop:         sum.CropName,
			Field:        sum.FieldName,
			ET0Actual:    sum.ET0Actual,
			ETcActual:    sum.ETcActual,
			ET0Forecast:  sum.ET0Forecast,
			ETcForecast:  sum.ETcForecast,
			ActualDays:   sum.ActualDays,
			ForecastDays: sum.ForecastDays,
			Kc:           sum.KcDisplay(),
			ETcDisplay:   sum.ETcForecastDisplay(),
			Need:         sum.Need.String(),
			Station:      sum.Station.String(),
		})
	}
	return rows
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	params, err := ParseQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_, summaries, err := s.buildSnapshot(params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, summaryRows(summaries))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := ParseQuery(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := report.Options{Format: report.Format(q.Get("format"))}
	if opts.Format == "" {
		opts.Format = report.FormatCSV
	}

	if q.Has("datasets") {
		for _, d := range q["datasets"] {
			switch d {
			case "weather":
				opts.IncludeWeather = true
			case "station":
				opts.IncludeStation = true
			case "crops":
				opts.IncludeCrops = true
			case "summary":
				opts.IncludeSummary = true
			}
		}
	} else {
		opts.IncludeWeather = true
		opts.IncludeStation = true
		opts.IncludeCrops = true
		opts.IncludeSummary = true
	}

	opts.Title, _ = s.store.GetPreference(store.PrefReportTitle)
	opts.Intro, _ = s.store.GetPreference(store.PrefReportIntro)
	opts.Closing, _ = s.store.GetPreference(store.PrefReportClosing)
	if v := q.Get("title"); v != "" {
		opts.Title = v
	}

	locData, summaries, err := s.buildSnapshot(params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	file, err := report.Build(report.Input{
		GeneratedAt: time.Now().In(s.loc),
		Options:     opts,
		Locations:   locData,
		Summaries:   summaries,
	})
	if errors.Is(err, report.ErrNothingSelected) {
		http.Error(w, "select at least one dataset", http.StatusBadRequest)
		return
	}
	if errors.Is(err, report.ErrUnknownFormat) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	if _, err := w.Write(file.Data); err != nil {
		log.Printf("api: write report: %v", err)
	}
}

type preferencesBody struct {
	Title   *string `json:"title"`
	Intro   *string `json:"intro"`
	Closing *string `json:"closing"`
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		title, _ := s.store.GetPreference(store.PrefReportTitle)
		intro, _ := s.store.GetPreference(store.PrefReportIntro)
		closing, _ := s.store.GetPreference(store.PrefReportClosing)
		writeJSON(w, map[string]string{"title": title, "intro": intro, "closing": closing})

	case http.MethodPost:
		var body preferencesBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		pairs := map[string]*string{
			store.PrefReportTitle:   body.Title,
			store.PrefReportIntro:   body.Intro,
			store.PrefReportClosing: body.Closing,
		}
		for key, val := range pairs {
			if val == nil {
				continue
			}
			if err := s.store.SetPreference(key, *val); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		writeJSON(w, map[string]string{"status": "ok"})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleIngestRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	runs, err := s.store.GetRecentIngestRuns(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type runView struct {
		Provider    string `json:"provider"`
		Endpoint    string `json:"endpoint"`
		StartedAt   string `json:"started_at"`
		Success     bool   `json:"success"`
		HTTPStatus  int64  `json:"http_status,omitempty"`
		Parsed      int64  `json:"records_parsed"`
		Inserted    int64  `json:"records_inserted"`
		ParseErrors int64  `json:"parse_errors,omitempty"`
		Error       string `json:"error,omitempty"`
	}
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, runView{
			Provider:    run.Provider,
			Endpoint:    run.Endpoint,
			StartedAt:   run.StartedAt.Format(time.RFC3339),
			Success:     run.Success,
			HTTPStatus:  run.HTTPStatus.Int64,
			Parsed:      run.RecordsParsed.Int64,
			Inserted:    run.RecordsInserted.Int64,
			ParseErrors: run.ParseErrors.Int64,
			Error:       run.ErrorMessage.String,
		})
	}
	writeJSON(w, views)
}

func (s *Server) handleNarrative(w http.ResponseWriter, r *http.Request) {
	if s.drafter == nil {
		http.Error(w, "narrative drafting not configured", http.StatusServiceUnavailable)
		return
	}
	params, err := ParseQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_, summaries, err := s.buildSnapshot(params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	intro, err := s.drafter.Draft(r.Context(), summaries)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]string{"intro": intro})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	locations, err := s.store.GetActiveLocations()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]string{"status": "error", "error": err.Error()})
		return
	}

	health := map[string]any{
		"status":    "ok",
		"locations": len(locations),
	}

	runs, err := s.store.GetRecentIngestRuns(1)
	if err == nil && len(runs) > 0 {
		health["last_ingest"] = map[string]any{
			"provider":   runs[0].Provider,
			"started_at": runs[0].StartedAt.Format(time.RFC3339),
			"success":    runs[0].Success,
		}
		if !runs[0].Success {
			health["status"] = "degraded"
		}
	}

	if health["status"] != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, health)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}
