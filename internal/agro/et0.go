package agro

import (
	"database/sql"
	"math"
)

// Defaults used for any missing estimator input. Temperatures are Celsius,
// wind is m/s, humidity is percent.
const (
	DefaultTempMax   = 25.0
	DefaultTempMin   = 15.0
	DefaultWindSpeed = 2.0
	DefaultHumidity  = 65.0
)

// ET0Floor is the minimum estimate returned, in inches/day.
const ET0Floor = 0.5

// ET0Inputs carries the daily observations the estimator works from.
// Invalid fields take the package defaults.
type ET0Inputs struct {
	TempMax   sql.NullFloat64
	TempMin   sql.NullFloat64
	WindSpeed sql.NullFloat64
	Humidity  sql.NullFloat64
}

// EstimateET0 approximates reference evapotranspiration in inches/day from
// basic daily weather, for days where no model or station value is available.
// It is a crude Penman-Monteith proxy: mean temperature scaled by wind and
// vapor-deficit factors. Always returns a positive value floored at ET0Floor
// and rounded to two decimals.
func EstimateET0(in ET0Inputs) float64 {
	tempMax := orDefault(in.TempMax, DefaultTempMax)
	tempMin := orDefault(in.TempMin, DefaultTempMin)
	wind := orDefault(in.WindSpeed, DefaultWindSpeed)
	humidity := orDefault(in.Humidity, DefaultHumidity)

	meanTemp := (tempMax + tempMin) / 2
	windFactor := 1 + wind/10
	humidityFactor := (100 - humidity) / 100

	et0 := meanTemp * 0.17 * windFactor * humidityFactor
	if et0 < ET0Floor {
		et0 = ET0Floor
	}
	return math.Round(et0*100) / 100
}

func orDefault(v sql.NullFloat64, def float64) float64 {
	if v.Valid {
		return v.Float64
	}
	return def
}
