package api

import (
	"fmt"
	"net/url"
	"time"

	"github.com/jfarrand/cropcast/internal/agro"
	"github.com/jfarrand/cropcast/internal/balance"
	"github.com/jfarrand/cropcast/internal/models"
	"github.com/jfarrand/cropcast/internal/period"
	"github.com/jfarrand/cropcast/internal/report"
	"github.com/jfarrand/cropcast/internal/store"
)

// How far around today the daily series is loaded before window resolution.
// Wide enough for any preset plus a month of historical range queries.
const (
	seriesPastDays   = 60
	seriesFutureDays = 30
)

// Query is a parsed reporting-period request. Zero value means the current
// 14-day window.
type Query struct {
	mode        period.Mode
	preset      period.Preset
	explicit    *period.Range
	refOverride *time.Time
}

// ParseQuery reads mode/preset/start/end/ref from URL parameters. Unknown
// enum values fall back to defaults rather than erroring; a malformed date
// is reported.
func ParseQuery(q url.Values) (Query, error) {
	p := Query{mode: period.ModeCurrent, preset: period.Preset14Day}

	switch q.Get("mode") {
	case "future":
		p.mode = period.ModeFuture
	case "historical":
		p.mode = period.ModeHistorical
	}

	switch q.Get("preset") {
	case "today":
		p.preset = period.PresetToday
	case "7day":
		p.preset = period.Preset7Day
	}

	if start, end := q.Get("start"), q.Get("end"); start != "" || end != "" {
		s, err := time.Parse("2006-01-02", start)
		if err != nil {
			return p, fmt.Errorf("bad start date %q", start)
		}
		e, err := time.Parse("2006-01-02", end)
		if err != nil {
			return p, fmt.Errorf("bad end date %q", end)
		}
		p.explicit = &period.Range{Start: s, End: e}
	}

	if ref := q.Get("ref"); ref != "" {
		t, err := time.Parse("2006-01-02", ref)
		if err != nil {
			return p, fmt.Errorf("bad ref date %q", ref)
		}
		p.refOverride = &t
	}

	return p, nil
}

// Snapshot assembles the full per-location dataset and the per-crop
// summaries for one reporting period. Locations with no stored weather stay
// in the slice with an empty window; renderers skip them. Shared by the
// HTTP handlers and the export CLI command.
func Snapshot(st *store.Store, profiles *agro.ProfileRegistry, thresholds balance.Thresholds,
	loc *time.Location, p Query) ([]report.LocationData, []balance.Summary, error) {

	locations, err := st.GetActiveLocations()
	if err != nil {
		return nil, nil, fmt.Errorf("list locations: %w", err)
	}

	now := time.Now().In(loc)
	from := now.AddDate(0, 0, -seriesPastDays)
	to := now.AddDate(0, 0, seriesFutureDays)

	var locData []report.LocationData
	var summaries []balance.Summary

	for _, location := range locations {
		daily, err := st.GetDailyWeather(location.ID, from, to)
		if err != nil {
			return nil, nil, fmt.Errorf("daily weather %s: %w", location.Slug, err)
		}

		dates := make([]time.Time, len(daily))
		for i, d := range daily {
			dates[i] = d.Date
		}
		w := period.Resolve(dates, p.mode, p.preset, p.explicit, p.refOverride, now)

		eligible := agro.EligibleRegion(location)
		var actuals []models.StationActual
		if eligible && location.StationID.Valid {
			actuals, err = st.GetStationActuals(location.StationID.String, from, to)
			if err != nil {
				return nil, nil, fmt.Errorf("station actuals %s: %w", location.StationID.String, err)
			}
		}

		crops, err := st.GetCropInstances(location.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("crop instances %s: %w", location.Slug, err)
		}

		locData = append(locData, report.LocationData{
			Location: location,
			Daily:    daily,
			Actuals:  actuals,
			Crops:    crops,
			Window:   w,
			Eligible: eligible,
		})

		for _, inst := range crops {
			profile := profiles.Lookup(inst.CropID)
			sum := balance.Aggregate(daily, actuals, inst, profile, w, eligible, thresholds)
			sum.LocationName = location.Name
			sum.CropName = cropDisplayName(inst.CropID, profile)
			summaries = append(summaries, sum)
		}
	}

	return locData, summaries, nil
}

func (s *Server) buildSnapshot(p Query) ([]report.LocationData, []balance.Summary, error) {
	return Snapshot(s.store, s.profiles, s.thresholds, s.loc, p)
}

func cropDisplayName(cropID string, profile *agro.KcProfile) string {
	if profile != nil && profile.Name != "" {
		return profile.Name
	}
	return cropID
}
