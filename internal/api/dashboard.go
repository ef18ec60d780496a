package api

import (
	"log"
	"net/http"
	"time"

	"github.com/jfarrand/cropcast/internal/balance"
)

type dashboardRow struct {
	Location   string
	Crop       string
	Field      string
	Kc         string
	ETcActual  string
	ETcFore    string
	Badge      balance.NeedStyle
	StationOut bool
}

type dashboardData struct {
	GeneratedAt string
	Rows        []dashboardRow
	HasRows     bool
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
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

	data := dashboardData{
		GeneratedAt: time.Now().In(s.loc).Format("Mon Jan 2 15:04"),
		HasRows:     len(summaries) > 0,
	}
	for _, sum := range summaries {
		data.Rows = append(data.Rows, dashboardRow{
			Location:   sum.LocationName,
			Crop:       sum.CropName,
			Field:      sum.FieldName,
			Kc:         sum.KcDisplay(),
			ETcActual:  sum.ActualDisplay(sum.ETcActual),
			ETcFore:    sum.ETcForecastDisplay(),
			Badge:      sum.Need.Style(),
			StationOut: sum.Station == balance.StationOutOfRegion,
		})
	}

	if err := s.tmpl.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		log.Printf("api: render dashboard: %v", err)
	}
}
