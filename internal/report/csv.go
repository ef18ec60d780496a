package report

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jfarrand/cropcast/internal/htmlutil"
)

// missing is the placeholder for absent values: an explicit marker, not an
// empty cell or a zero that could be mistaken for a measurement.
const missing = "—"

// Column names are kept snake_case here and title-cased at render time, so
// the CSV headers line up with the field names in the other formats.
var (
	weatherColumns = []string{"location", "date", "temp_max", "temp_min", "precipitation", "et0", "et0_source"}
	stationColumns = []string{"location", "station_id", "date", "et_actual", "qc_flag"}
	cropColumns    = []string{"location", "crop", "field_name", "growth_stage", "planted_on", "custom_kc_months"}
	summaryColumns = []string{"location", "crop", "kc", "et0_actual", "etc_actual", "actual_days",
		"et0_forecast", "etc_forecast", "water_need", "station_status", "et0_by_month"}
)

func renderCSV(in Input) (*File, error) {
	var buf bytes.Buffer
	var sections int

	writeSection := func(title string, columns []string, rows [][]string) {
		if sections > 0 {
			buf.WriteString("\r\n")
		}
		sections++
		buf.WriteString(csvEscape(title) + "\r\n")
		buf.WriteString(csvRow(titleCased(columns)))
		for _, row := range rows {
			buf.WriteString(csvRow(row))
		}
	}

	if in.Options.Intro != "" {
		buf.WriteString(csvEscape(htmlutil.ToText(htmlutil.CleanIntro(in.Options.Intro))) + "\r\n\r\n")
	}

	if in.Options.IncludeWeather {
		writeSection("Weather", weatherColumns, csvWeatherRows(in))
	}
	if in.Options.IncludeStation {
		writeSection("Station ET", stationColumns, csvStationRows(in))
	}
	if in.Options.IncludeCrops {
		writeSection("Crops", cropColumns, csvCropRows(in))
	}
	if in.Options.IncludeSummary {
		writeSection("Water Balance", summaryColumns, csvSummaryRows(in))
	}

	return &File{
		Name:        fileName(FormatCSV, in.GeneratedAt),
		ContentType: "text/csv; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}

func csvWeatherRows(in Input) [][]string {
	var rows [][]string
	for _, ld := range in.Locations {
		if len(ld.Daily) == 0 {
			continue
		}
		for _, d := range windowDaily(ld) {
			rows = append(rows, []string{
				ld.Location.Name,
				d.Date.Format("2006-01-02"),
				nullFloat(d.TempMax, "%.1f"),
				nullFloat(d.TempMin, "%.1f"),
				nullFloat(d.Precip, "%.2f"),
				nullFloat(d.ET0, "%.2f"),
				d.ET0Source,
			})
		}
	}
	return rows
}

func csvStationRows(in Input) [][]string {
	var rows [][]string
	for _, ld := range in.Locations {
		if len(ld.Daily) == 0 {
			continue
		}
		if !ld.Eligible {
			rows = append(rows, []string{ld.Location.Name, missing, missing, "not available in this region", missing})
			continue
		}
		for _, a := range ld.Actuals {
			rows = append(rows, []string{
				ld.Location.Name,
				a.StationID,
				a.Date.Format("2006-01-02"),
				nullFloat(a.ETActual, "%.2f"),
				nullString(a.QCFlag),
			})
		}
	}
	return rows
}

func csvCropRows(in Input) [][]string {
	var rows [][]string
	for _, ld := range in.Locations {
		if len(ld.Daily) == 0 {
			continue
		}
		for _, c := range ld.Crops {
			planted := missing
			if c.PlantedOn.Valid {
				planted = c.PlantedOn.Time.Format("2006-01-02")
			}
			rows = append(rows, []string{
				ld.Location.Name,
				c.CropID,
				nullString(c.FieldName),
				stageDisplay(c),
				planted,
				customKcDisplay(c.CustomKc),
			})
		}
	}
	return rows
}

func csvSummaryRows(in Input) [][]string {
	var rows [][]string
	for _, s := range in.Summaries {
		rows = append(rows, []string{
			s.LocationName,
			s.CropName,
			s.KcDisplay(),
			s.ActualDisplay(s.ET0Actual),
			s.ActualDisplay(s.ETcActual),
			fmt.Sprintf("%d", s.ActualDays),
			fmt.Sprintf("%.2f", s.ET0Forecast),
			s.ETcForecastDisplay(),
			s.Need.String(),
			s.Station.String(),
			s.ET0MonthDisplay(),
		})
	}
	return rows
}

func csvRow(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = csvEscape(f)
	}
	return strings.Join(escaped, ",") + "\r\n"
}

// csvEscape wraps a value in quotes when it contains a comma, quote, or
// newline, doubling any embedded quotes, so values like "Castroville, CA"
// round-trip.
func csvEscape(v string) string {
	if !strings.ContainsAny(v, ",\"\n\r") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// titleCased converts snake_case column names into display headers:
// "temp_max" -> "Temp Max".
func titleCased(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		words := strings.Split(c, "_")
		for j, w := range words {
			if w == "" {
				continue
			}
			words[j] = strings.ToUpper(w[:1]) + w[1:]
		}
		out[i] = strings.Join(words, " ")
	}
	return out
}

func nullFloat(v sql.NullFloat64, format string) string {
	if !v.Valid {
		return missing
	}
	return fmt.Sprintf(format, v.Float64)
}

func nullString(v sql.NullString) string {
	if !v.Valid || v.String == "" {
		return missing
	}
	return v.String
}
