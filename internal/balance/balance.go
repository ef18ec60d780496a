// Package balance computes per-crop water-balance summaries from daily
// weather and station-actual series. Everything here is pure: missing data
// contributes zero, and identical inputs always produce identical output.
package balance

import (
	"fmt"
	"strings"
	"time"

	"github.com/jfarrand/cropcast/internal/agro"
	"github.com/jfarrand/cropcast/internal/models"
	"github.com/jfarrand/cropcast/internal/period"
)

// StationStatus distinguishes the three reasons the actual columns can read
// zero. "No station coverage here" and "station reported nothing this week"
// must not look the same in a report.
type StationStatus int

const (
	StationMatched     StationStatus = iota
	StationNoData                    // eligible region, no record matched any past day
	StationOutOfRegion               // location outside the station network
)

func (s StationStatus) String() string {
	switch s {
	case StationMatched:
		return "matched"
	case StationNoData:
		return "no data"
	default:
		return "not available in this region"
	}
}

// KcBucket is the forecast ETc accumulated under one distinct Kc value.
type KcBucket struct {
	Kc  float64
	ETc float64
}

// MonthBucket is the forecast ET0 accumulated within one calendar month.
type MonthBucket struct {
	Month time.Month
	ET0   float64
}

// Summary is the water balance for one (location, crop) pair over a window.
// Sums are inches over the window, split at the window's reference date.
type Summary struct {
	LocationID   int64
	LocationName string
	CropID       string
	CropName     string
	FieldName    string

	Window period.Window

	ET0Actual   float64
	ETcActual   float64
	ET0Forecast float64
	ETcForecast float64

	ActualDays   int
	ForecastDays int

	KcValues   []float64    // distinct Kc values, in date order of first use
	ETcByKc    []KcBucket   // forecast ETc subtotal per distinct Kc
	ET0ByMonth []MonthBucket

	Station StationStatus
	Need    Need
}

// Aggregate walks the window over the location's daily series and produces
// the summary for one planting. actuals are only consulted when
// stationEligible is true; an ineligible location reports
// StationOutOfRegion with zero actual sums, which is a valid result.
func Aggregate(daily []models.DailyWeather, actuals []models.StationActual, inst models.CropInstance,
	profile *agro.KcProfile, w period.Window, stationEligible bool, t Thresholds) Summary {

	s := Summary{
		LocationID: inst.LocationID,
		CropID:     inst.CropID,
		FieldName:  inst.FieldName.String,
		Window:     w,
		Station:    StationNoData,
	}
	if !stationEligible {
		s.Station = StationOutOfRegion
	}

	actualByDate := make(map[string]models.StationActual, len(actuals))
	if stationEligible {
		for _, a := range actuals {
			actualByDate[dayKey(a.Date)] = a
		}
	}

	end := w.End
	if end > len(daily) {
		end = len(daily)
	}
	for i := w.Start; i < end; i++ {
		d := daily[i]
		kc := agro.ResolveKc(d.Date, inst, profile)
		s.trackKc(kc)

		if !d.Date.Before(w.ReferenceDate) {
			et0 := 0.0
			if d.ET0.Valid {
				et0 = d.ET0.Float64
			}
			s.ET0Forecast += et0
			s.ETcForecast += et0 * kc
			s.addKcBucket(kc, et0*kc)
			s.addMonthBucket(d.Date.Month(), et0)
			s.ForecastDays++
			continue
		}

		if !stationEligible {
			continue
		}
		a, ok := actualByDate[dayKey(d.Date)]
		if !ok || !a.ETActual.Valid {
			continue
		}
		s.ET0Actual += a.ETActual.Float64
		s.ETcActual += a.ETActual.Float64 * kc
		s.ActualDays++
		s.Station = StationMatched
	}

	s.Need = Classify(s.ETcForecast, t)
	return s
}

func (s *Summary) trackKc(kc float64) {
	for _, v := range s.KcValues {
		if v == kc {
			return
		}
	}
	s.KcValues = append(s.KcValues, kc)
}

func (s *Summary) addKcBucket(kc, etc float64) {
	for i := range s.ETcByKc {
		if s.ETcByKc[i].Kc == kc {
			s.ETcByKc[i].ETc += etc
			return
		}
	}
	s.ETcByKc = append(s.ETcByKc, KcBucket{Kc: kc, ETc: etc})
}

func (s *Summary) addMonthBucket(m time.Month, et0 float64) {
	for i := range s.ET0ByMonth {
		if s.ET0ByMonth[i].Month == m {
			s.ET0ByMonth[i].ET0 += et0
			return
		}
	}
	s.ET0ByMonth = append(s.ET0ByMonth, MonthBucket{Month: m, ET0: et0})
}

// KcDisplay renders the window's Kc as a single value or a parenthesized
// range when the coefficient changed mid-period.
func (s Summary) KcDisplay() string {
	switch len(s.KcValues) {
	case 0:
		return "—"
	case 1:
		return fmt.Sprintf("%.2f", s.KcValues[0])
	}
	parts := make([]string, len(s.KcValues))
	for i, v := range s.KcValues {
		parts[i] = fmt.Sprintf("%.2f", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ETcForecastDisplay shows the blended sum when one Kc covered the whole
// window, and the per-Kc subtotals otherwise, so a stage or month crossing
// stays interpretable.
func (s Summary) ETcForecastDisplay() string {
	if len(s.ETcByKc) <= 1 {
		return fmt.Sprintf("%.2f", s.ETcForecast)
	}
	parts := make([]string, len(s.ETcByKc))
	for i, b := range s.ETcByKc {
		parts[i] = fmt.Sprintf("%.2f", b.ETc)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ET0MonthDisplay renders the forecast ET0 month subtotals, e.g.
// "Jun: 1.23, Jul: 0.98". Empty when the window holds a single month.
func (s Summary) ET0MonthDisplay() string {
	if len(s.ET0ByMonth) <= 1 {
		return ""
	}
	parts := make([]string, len(s.ET0ByMonth))
	for i, b := range s.ET0ByMonth {
		parts[i] = fmt.Sprintf("%s: %.2f", b.Month.String()[:3], b.ET0)
	}
	return strings.Join(parts, ", ")
}

// ActualDisplay renders an actual-column value, using an em-dash when the
// station produced nothing rather than a misleading zero.
func (s Summary) ActualDisplay(v float64) string {
	if s.ActualDays == 0 {
		return "—"
	}
	return fmt.Sprintf("%.2f", v)
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
