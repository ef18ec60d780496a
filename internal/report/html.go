package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"

	"github.com/jfarrand/cropcast/internal/balance"
	"github.com/jfarrand/cropcast/internal/htmlutil"
)

//go:embed templates/*
var reportTemplates embed.FS

var htmlTmpl = template.Must(template.ParseFS(reportTemplates, "templates/report.html"))

// chart bars scale against this height; the tallest bar fills it.
const chartMaxPx = 120

type htmlDoc struct {
	Title       string
	GeneratedAt string
	Intro       template.HTML
	Closing     template.HTML
	Crops       []cropSection
	Charts      []chartBlock
}

// cropSection is one table block: a crop and every location growing it.
type cropSection struct {
	Name      string
	Rows      []cropRow
	Summaries []string
}

type cropRow struct {
	Location    string
	Kc          string
	ET0Actual   string
	ETcActual   string
	ET0Forecast string
	ETcForecast string
	MonthNote   string
	StationNote string
	Badge       balance.NeedStyle
}

type chartBlock struct {
	Title string
	Bars  []chartBar
}

type chartBar struct {
	Label    string
	Display  string
	HeightPx int
}

func renderHTML(in Input) (*File, error) {
	doc := htmlDoc{
		Title:       in.Options.Title,
		GeneratedAt: in.GeneratedAt.Format("January 2, 2006"),
	}
	if doc.Title == "" {
		doc.Title = "Crop Water Report"
	}
	if in.Options.Intro != "" {
		doc.Intro = template.HTML(htmlutil.CleanIntro(in.Options.Intro))
	}
	if in.Options.Closing != "" {
		doc.Closing = template.HTML(htmlutil.CleanIntro(in.Options.Closing))
	}

	if in.Options.IncludeSummary || in.Options.IncludeCrops {
		doc.Crops = buildCropSections(in)
	}
	if in.Options.IncludeSummary || in.Options.IncludeWeather {
		doc.Charts = buildCharts(in)
	}

	var buf bytes.Buffer
	if err := htmlTmpl.ExecuteTemplate(&buf, "report.html", doc); err != nil {
		return nil, fmt.Errorf("html: %w", err)
	}
	return &File{
		Name:        fileName(FormatHTML, in.GeneratedAt),
		ContentType: "text/html; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}

// buildCropSections groups summaries by crop, one table per crop listing
// every location growing it. Locations without weather data never made it
// into the summaries, so they drop out here without special handling.
func buildCropSections(in Input) []cropSection {
	byCrop := make(map[string]*cropSection)
	var order []string

	for _, s := range in.Summaries {
		name := s.CropName
		if name == "" {
			name = s.CropID
		}
		section, ok := byCrop[name]
		if !ok {
			section = &cropSection{Name: name}
			byCrop[name] = section
			order = append(order, name)
		}

		row := cropRow{
			Location:    s.LocationName,
			Kc:          s.KcDisplay(),
			ET0Actual:   s.ActualDisplay(s.ET0Actual),
			ETcActual:   s.ActualDisplay(s.ETcActual),
			ET0Forecast: fmt.Sprintf("%.2f", s.ET0Forecast),
			ETcForecast: s.ETcForecastDisplay(),
			MonthNote:   s.ET0MonthDisplay(),
			Badge:       s.Need.Style(),
		}
		if s.Station != balance.StationMatched {
			row.StationNote = s.Station.String()
		}
		section.Rows = append(section.Rows, row)
		section.Summaries = append(section.Summaries, in.Rules.Render(s))
	}

	sort.Strings(order)
	sections := make([]cropSection, len(order))
	for i, name := range order {
		sections[i] = *byCrop[name]
	}
	return sections
}

// buildCharts produces the two div-based bar charts: average daily crop
// water use per location, measured and forecast. Bar heights are relative
// to the tallest bar.
func buildCharts(in Input) []chartBlock {
	type locTotals struct {
		name                       string
		actual, forecast           float64
		actualDays, forecastDays   int
	}
	var totals []locTotals
	index := make(map[int64]int)

	for _, s := range in.Summaries {
		i, ok := index[s.LocationID]
		if !ok {
			i = len(totals)
			index[s.LocationID] = i
			totals = append(totals, locTotals{name: s.LocationName})
		}
		totals[i].actual += s.ETcActual
		totals[i].actualDays += s.ActualDays
		totals[i].forecast += s.ETcForecast
		totals[i].forecastDays += s.ForecastDays
	}
	if len(totals) == 0 {
		return nil
	}

	actualBlock := chartBlock{Title: "Average daily crop water use, measured (in/day)"}
	forecastBlock := chartBlock{Title: "Average daily crop water use, forecast (in/day)"}
	var actualVals, forecastVals []float64
	for _, t := range totals {
		actualVals = append(actualVals, avg(t.actual, t.actualDays))
		forecastVals = append(forecastVals, avg(t.forecast, t.forecastDays))
	}
	actualMax := maxOf(actualVals)
	forecastMax := maxOf(forecastVals)

	for i, t := range totals {
		actualBlock.Bars = append(actualBlock.Bars, bar(t.name, actualVals[i], actualMax))
		forecastBlock.Bars = append(forecastBlock.Bars, bar(t.name, forecastVals[i], forecastMax))
	}
	return []chartBlock{actualBlock, forecastBlock}
}

func bar(label string, value, max float64) chartBar {
	b := chartBar{Label: label, Display: fmt.Sprintf("%.2f", value)}
	if value <= 0 {
		b.Display = missing
		return b
	}
	b.HeightPx = int(value / max * chartMaxPx)
	if b.HeightPx < 4 {
		b.HeightPx = 4
	}
	return b
}

func avg(sum float64, days int) float64 {
	if days == 0 {
		return 0
	}
	return sum / float64(days)
}

func maxOf(vals []float64) float64 {
	max := 0.0
	for _, v := range vals {
		if v > max {
			max = v
		}
	}
	return max
}
