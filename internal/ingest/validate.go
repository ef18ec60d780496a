package ingest

import (
	"encoding/json"

	"github.com/jfarrand/cropcast/internal/models"
)

const (
	FlagTempOutOfRange    = "temp_out_of_range"
	FlagTempMinAboveMax   = "temp_min_above_max"
	FlagHumidityInvalid   = "humidity_invalid"
	FlagWindSpeedUnlikely = "wind_speed_unlikely"
	FlagPrecipNegative    = "precip_negative"
	FlagET0OutOfRange     = "et0_out_of_range"
)

// ValidateDailyWeather flags physically implausible readings. Flagged days
// are still stored; the flags surface in logs so a bad provider day can be
// traced.
func ValidateDailyWeather(d *models.DailyWeather) []string {
	var flags []string

	if d.TempMax.Valid && (d.TempMax.Float64 < -30 || d.TempMax.Float64 > 55) {
		flags = append(flags, FlagTempOutOfRange)
	}
	if d.TempMin.Valid && (d.TempMin.Float64 < -40 || d.TempMin.Float64 > 45) {
		flags = append(flags, FlagTempOutOfRange)
	}
	if d.TempMax.Valid && d.TempMin.Valid && d.TempMin.Float64 > d.TempMax.Float64 {
		flags = append(flags, FlagTempMinAboveMax)
	}

	if d.Humidity.Valid && (d.Humidity.Float64 < 0 || d.Humidity.Float64 > 100) {
		flags = append(flags, FlagHumidityInvalid)
	}

	if d.WindSpeed.Valid && (d.WindSpeed.Float64 < 0 || d.WindSpeed.Float64 > 70) {
		flags = append(flags, FlagWindSpeedUnlikely)
	}

	if d.Precip.Valid && d.Precip.Float64 < 0 {
		flags = append(flags, FlagPrecipNegative)
	}

	// A daily reference ET above an inch would be extreme even in a desert
	// heat wave. The in-house estimate is deliberately coarse and exempt.
	if d.ET0.Valid && d.ET0Source != "estimated" && (d.ET0.Float64 < 0 || d.ET0.Float64 > 1.0) {
		flags = append(flags, FlagET0OutOfRange)
	}

	return flags
}

// ValidateStationActual flags measured ET outside the plausible daily range.
func ValidateStationActual(a *models.StationActual) []string {
	var flags []string
	if a.ETActual.Valid && (a.ETActual.Float64 < 0 || a.ETActual.Float64 > 1.0) {
		flags = append(flags, FlagET0OutOfRange)
	}
	return flags
}

func QualityFlagsToJSON(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	b, _ := json.Marshal(flags)
	return string(b)
}
