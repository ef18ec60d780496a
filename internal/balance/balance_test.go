package balance

import (
	"database/sql"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/jfarrand/cropcast/internal/models"
	"github.com/jfarrand/cropcast/internal/period"
)

func mkDaily(start time.Time, et0s []float64) []models.DailyWeather {
	daily := make([]models.DailyWeather, len(et0s))
	for i, v := range et0s {
		daily[i] = models.DailyWeather{
			Date: start.AddDate(0, 0, i),
			ET0:  sql.NullFloat64{Float64: v, Valid: true},
		}
	}
	return daily
}

func mkActuals(start time.Time, stationID string, values []float64) []models.StationActual {
	actuals := make([]models.StationActual, len(values))
	for i, v := range values {
		actuals[i] = models.StationActual{
			StationID: stationID,
			Date:      start.AddDate(0, 0, i),
			ETActual:  sql.NullFloat64{Float64: v, Valid: true},
		}
	}
	return actuals
}

func constKc(kc float64) models.CropInstance {
	custom := make(map[int]float64)
	for m := 1; m <= 12; m++ {
		custom[m] = kc
	}
	return models.CropInstance{CropID: "test", CustomKc: custom}
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

var jun1 = time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

func TestAggregate_ConstantSeries(t *testing.T) {
	// 14 days at 0.2 in/day, Kc 1.0, reference at day 8: the last 7 days are
	// forecast, and 1.4 inches of crop water use is Low.
	et0s := make([]float64, 14)
	for i := range et0s {
		et0s[i] = 0.2
	}
	daily := mkDaily(jun1, et0s)
	w := period.Window{Start: 0, End: 14, ReferenceDate: jun1.AddDate(0, 0, 7)}

	s := Aggregate(daily, nil, constKc(1.0), nil, w, true, DefaultThresholds)

	if !almost(s.ET0Forecast, 1.4) {
		t.Errorf("ET0Forecast = %v, want 1.4", s.ET0Forecast)
	}
	if !almost(s.ETcForecast, 1.4) {
		t.Errorf("ETcForecast = %v, want 1.4", s.ETcForecast)
	}
	if s.ForecastDays != 7 {
		t.Errorf("ForecastDays = %d, want 7", s.ForecastDays)
	}
	if s.Need != NeedLow {
		t.Errorf("Need = %v, want Low", s.Need)
	}
	if got := s.ETcForecastDisplay(); got != "1.40" {
		t.Errorf("ETcForecastDisplay() = %q, want single blended sum", got)
	}
}

func TestAggregate_KcChangeBucketsSubtotals(t *testing.T) {
	// Kc 1.0 in June, 1.3 in July, window crossing the month boundary with
	// every day in the forecast segment. The display must keep the two Kc
	// regimes apart instead of blending them.
	start := time.Date(2026, time.June, 24, 0, 0, 0, 0, time.UTC)
	et0s := make([]float64, 14)
	for i := range et0s {
		et0s[i] = 0.2
	}
	daily := mkDaily(start, et0s)
	inst := models.CropInstance{CropID: "test", CustomKc: map[int]float64{6: 1.0, 7: 1.3}}
	w := period.Window{Start: 0, End: 14, ReferenceDate: start}

	s := Aggregate(daily, nil, inst, nil, w, true, DefaultThresholds)

	if len(s.ETcByKc) != 2 {
		t.Fatalf("ETcByKc has %d buckets, want 2", len(s.ETcByKc))
	}
	if !almost(s.ETcByKc[0].ETc, 7*0.2*1.0) {
		t.Errorf("June bucket = %v, want 1.4", s.ETcByKc[0].ETc)
	}
	if !almost(s.ETcByKc[1].ETc, 7*0.2*1.3) {
		t.Errorf("July bucket = %v, want 1.82", s.ETcByKc[1].ETc)
	}
	if got := s.ETcForecastDisplay(); got != "(1.40, 1.82)" {
		t.Errorf("ETcForecastDisplay() = %q, want bucketed values", got)
	}
	if got := s.KcDisplay(); got != "(1.00, 1.30)" {
		t.Errorf("KcDisplay() = %q, want range", got)
	}
	if got := s.ET0MonthDisplay(); got != "Jun: 1.40, Jul: 1.40" {
		t.Errorf("ET0MonthDisplay() = %q", got)
	}
}

func TestAggregate_ActualSplit(t *testing.T) {
	daily := mkDaily(jun1, []float64{0.1, 0.1, 0.1, 0.3, 0.3, 0.3})
	actuals := mkActuals(jun1, "CIMIS-19", []float64{0.15, 0.15, 0.15})
	w := period.Window{Start: 0, End: 6, ReferenceDate: jun1.AddDate(0, 0, 3)}

	s := Aggregate(daily, actuals, constKc(1.0), nil, w, true, DefaultThresholds)

	if s.ActualDays != 3 {
		t.Errorf("ActualDays = %d, want 3", s.ActualDays)
	}
	if !almost(s.ET0Actual, 0.45) {
		t.Errorf("ET0Actual = %v, want 0.45", s.ET0Actual)
	}
	if !almost(s.ETcActual, 0.45) {
		t.Errorf("ETcActual = %v, want 0.45", s.ETcActual)
	}
	if !almost(s.ET0Forecast, 0.9) {
		t.Errorf("ET0Forecast = %v, want 0.9", s.ET0Forecast)
	}
	if s.Station != StationMatched {
		t.Errorf("Station = %v, want matched", s.Station)
	}
}

func TestAggregate_PartialActualCoverage(t *testing.T) {
	// Station reported only the first past day; the others contribute zero
	// without erroring.
	daily := mkDaily(jun1, []float64{0.1, 0.1, 0.1, 0.3})
	actuals := mkActuals(jun1, "CIMIS-19", []float64{0.12})
	w := period.Window{Start: 0, End: 4, ReferenceDate: jun1.AddDate(0, 0, 3)}

	s := Aggregate(daily, actuals, constKc(1.0), nil, w, true, DefaultThresholds)

	if s.ActualDays != 1 {
		t.Errorf("ActualDays = %d, want 1", s.ActualDays)
	}
	if !almost(s.ET0Actual, 0.12) {
		t.Errorf("ET0Actual = %v, want 0.12", s.ET0Actual)
	}
}

func TestAggregate_OutOfRegion(t *testing.T) {
	// An out-of-region location must report a distinct status, not a silent
	// zero indistinguishable from a dry week.
	daily := mkDaily(jun1, []float64{0.2, 0.2, 0.2, 0.2})
	actuals := mkActuals(jun1, "CIMIS-19", []float64{0.2, 0.2})
	w := period.Window{Start: 0, End: 4, ReferenceDate: jun1.AddDate(0, 0, 2)}

	s := Aggregate(daily, actuals, constKc(1.0), nil, w, false, DefaultThresholds)

	if s.ETcActual != 0 || s.ActualDays != 0 {
		t.Errorf("out-of-region actuals = %v over %d days, want zero", s.ETcActual, s.ActualDays)
	}
	if s.Station != StationOutOfRegion {
		t.Errorf("Station = %v, want out of region", s.Station)
	}
	if got := s.Station.String(); got != "not available in this region" {
		t.Errorf("Station.String() = %q", got)
	}
	if got := s.ActualDisplay(s.ET0Actual); got != "—" {
		t.Errorf("ActualDisplay() = %q, want em-dash placeholder", got)
	}
}

func TestAggregate_EmptyWindow(t *testing.T) {
	daily := mkDaily(jun1, []float64{0.2, 0.2})
	w := period.Window{Start: 1, End: 1, ReferenceDate: jun1}

	s := Aggregate(daily, nil, constKc(1.0), nil, w, true, DefaultThresholds)

	if s.ET0Actual != 0 || s.ETcActual != 0 || s.ET0Forecast != 0 || s.ETcForecast != 0 {
		t.Errorf("empty window produced non-zero sums: %+v", s)
	}
	if s.ActualDays != 0 || s.ForecastDays != 0 {
		t.Errorf("empty window counted days: %+v", s)
	}
	if s.Need != NeedLow {
		t.Errorf("Need = %v, want Low", s.Need)
	}
}

func TestAggregate_WindowBeyondSeries(t *testing.T) {
	daily := mkDaily(jun1, []float64{0.2, 0.2})
	w := period.Window{Start: 0, End: 10, ReferenceDate: jun1}

	s := Aggregate(daily, nil, constKc(1.0), nil, w, true, DefaultThresholds)
	if s.ForecastDays != 2 {
		t.Errorf("ForecastDays = %d, want 2", s.ForecastDays)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	daily := mkDaily(jun1, []float64{0.1, 0.2, 0.3, 0.4, 0.5})
	actuals := mkActuals(jun1, "CIMIS-19", []float64{0.11, 0.21})
	inst := models.CropInstance{CropID: "test", CustomKc: map[int]float64{6: 0.9}}
	w := period.Window{Start: 0, End: 5, ReferenceDate: jun1.AddDate(0, 0, 2)}

	first := Aggregate(daily, actuals, inst, nil, w, true, DefaultThresholds)
	second := Aggregate(daily, actuals, inst, nil, w, true, DefaultThresholds)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Aggregate not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestAggregate_MissingET0ContributesZero(t *testing.T) {
	daily := []models.DailyWeather{
		{Date: jun1, ET0: sql.NullFloat64{Float64: 0.2, Valid: true}},
		{Date: jun1.AddDate(0, 0, 1)}, // no ET0
		{Date: jun1.AddDate(0, 0, 2), ET0: sql.NullFloat64{Float64: 0.3, Valid: true}},
	}
	w := period.Window{Start: 0, End: 3, ReferenceDate: jun1}

	s := Aggregate(daily, nil, constKc(1.0), nil, w, true, DefaultThresholds)
	if !almost(s.ET0Forecast, 0.5) {
		t.Errorf("ET0Forecast = %v, want 0.5", s.ET0Forecast)
	}
	if s.ForecastDays != 3 {
		t.Errorf("ForecastDays = %d, want 3", s.ForecastDays)
	}
}
