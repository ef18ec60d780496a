package api_test

import (
	"database/sql"
	"encoding/json"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jfarrand/cropcast/internal/agro"
	"github.com/jfarrand/cropcast/internal/api"
	"github.com/jfarrand/cropcast/internal/models"
	"github.com/jfarrand/cropcast/internal/store"
)

func setupTestStore(t *testing.T) (*store.Store, *time.Location) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	loc := time.UTC
	s := store.New(db, loc)
	if err := s.Migrate(); err != nil {
		t.Fatal(err)
	}
	return s, loc
}

func newTestServer(t *testing.T, s *store.Store, loc *time.Location) *api.Server {
	t.Helper()
	return api.NewServer(s, agro.NewProfileRegistry(), "8080", loc)
}

// seedSalinas inserts one California location with a planting and two weeks
// of daily weather straddling today.
func seedSalinas(t *testing.T, s *store.Store) {
	t.Helper()

	if err := s.UpsertLocation(models.Location{
		Slug:      "salinas",
		Name:      "Salinas",
		State:     "CA",
		Latitude:  36.677,
		Longitude: -121.655,
		StationID: sql.NullString{String: "89", Valid: true},
		Active:    true,
	}); err != nil {
		t.Fatal(err)
	}
	loc, err := s.GetLocationBySlug("salinas")
	if err != nil || loc == nil {
		t.Fatalf("seed location: %v", err)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for offset := -7; offset < 7; offset++ {
		err := s.UpsertDailyWeather(models.DailyWeather{
			LocationID: loc.ID,
			Date:       today.AddDate(0, 0, offset),
			ET0:        sql.NullFloat64{Float64: 0.2, Valid: true},
			ET0Source:  "model",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	allMonths := make(map[int]float64, 12)
	for m := 1; m <= 12; m++ {
		allMonths[m] = 1.0
	}
	if _, err := s.InsertCropInstance(models.CropInstance{
		LocationID: loc.ID,
		CropID:     "almond",
		FieldName:  sql.NullString{String: "North block", Valid: true},
		CustomKc:   allMonths,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	s, loc := setupTestStore(t)
	srv := newTestServer(t, s, loc)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status"`) {
		t.Error("expected status field in JSON response")
	}
}

func TestDashboard_NoData(t *testing.T) {
	t.Parallel()
	s, loc := setupTestStore(t)
	srv := newTestServer(t, s, loc)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "No plantings yet") {
		t.Error("expected empty state message")
	}
}

func TestSummaryEndpoint(t *testing.T) {
	t.Parallel()
	s, loc := setupTestStore(t)
	seedSalinas(t, s)
	srv := newTestServer(t, s, loc)

	req := httptest.NewRequest("GET", "/api/summary", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var rows []struct {
		Location    string  `json:"location"`
		Crop        string  `json:"crop"`
		ETcForecast float64 `json:"etc_forecast"`
		Need        string  `json:"need"`
		Kc          string  `json:"kc"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}

	row := rows[0]
	if row.Location != "Salinas" || row.Crop != "Almond" {
		t.Errorf("row = %+v", row)
	}
	// Seven forecast days at 0.2 in/day with Kc 1.0.
	if math.Abs(row.ETcForecast-1.4) > 1e-9 {
		t.Errorf("ETcForecast = %v, want 1.4", row.ETcForecast)
	}
	if row.Need != "Low" {
		t.Errorf("Need = %q, want Low", row.Need)
	}
	if row.Kc != "1.00" {
		t.Errorf("Kc = %q", row.Kc)
	}
}

func TestReportDownload_CSV(t *testing.T) {
	t.Parallel()
	s, loc := setupTestStore(t)
	seedSalinas(t, s)
	srv := newTestServer(t, s, loc)

	req := httptest.NewRequest("GET", "/api/report?format=csv", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "cropcast-report-") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(w.Body.String(), "Salinas") {
		t.Error("expected location in CSV body")
	}
}

func TestReport_NothingSelected(t *testing.T) {
	t.Parallel()
	s, loc := setupTestStore(t)
	seedSalinas(t, s)
	srv := newTestServer(t, s, loc)

	req := httptest.NewRequest("GET", "/api/report?format=csv&datasets=", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "at least one dataset") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestReport_UnknownFormat(t *testing.T) {
	t.Parallel()
	s, loc := setupTestStore(t)
	seedSalinas(t, s)
	srv := newTestServer(t, s, loc)

	req := httptest.NewRequest("GET", "/api/report?format=pdf", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	t.Parallel()
	s, loc := setupTestStore(t)
	srv := newTestServer(t, s, loc)

	post := httptest.NewRequest("POST", "/api/preferences",
		strings.NewReader(`{"intro":"<div>Field notes</div>","title":"Weekly Water Outlook"}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, post)
	if w.Code != 200 {
		t.Fatalf("POST: expected 200, got %d", w.Code)
	}

	get := httptest.NewRequest("GET", "/api/preferences", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, get)
	if w.Code != 200 {
		t.Fatalf("GET: expected 200, got %d", w.Code)
	}

	var prefs map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &prefs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if prefs["intro"] != "<div>Field notes</div>" || prefs["title"] != "Weekly Water Outlook" {
		t.Errorf("prefs = %v", prefs)
	}
	if prefs["closing"] != "" {
		t.Errorf("closing = %q, want empty", prefs["closing"])
	}
}

func TestNarrative_NotConfigured(t *testing.T) {
	t.Parallel()
	s, loc := setupTestStore(t)
	srv := newTestServer(t, s, loc)

	req := httptest.NewRequest("GET", "/api/narrative", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 503 {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestSummary_BadDateParam(t *testing.T) {
	t.Parallel()
	s, loc := setupTestStore(t)
	srv := newTestServer(t, s, loc)

	req := httptest.NewRequest("GET", "/api/summary?mode=historical&start=junk&end=2026-06-01", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
