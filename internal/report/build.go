package report

import (
	"fmt"
	"time"

	"github.com/jfarrand/cropcast/internal/metrics"
	"github.com/jfarrand/cropcast/internal/models"
)

// Build renders the report in the requested format. With zero datasets
// selected it returns ErrNothingSelected and produces nothing.
func Build(in Input) (*File, error) {
	if !in.Options.anySelected() {
		return nil, ErrNothingSelected
	}
	if in.Rules == nil {
		in.Rules = DefaultSummaryRules()
	}

	start := time.Now()
	var f *File
	var err error
	switch in.Options.Format {
	case FormatCSV:
		f, err = renderCSV(in)
	case FormatExcel:
		f, err = renderExcel(in)
	case FormatHTML:
		f, err = renderHTML(in)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, in.Options.Format)
	}
	if err != nil {
		return nil, err
	}

	metrics.ReportsExported.WithLabelValues(string(in.Options.Format)).Inc()
	metrics.ReportBuildSeconds.WithLabelValues(string(in.Options.Format)).Observe(time.Since(start).Seconds())
	return f, nil
}

func fileName(format Format, at time.Time) string {
	return fmt.Sprintf("cropcast-report-%s.%s", at.Format("2006-01-02"), format)
}

// windowDaily returns the window slice of a location's daily series,
// re-clamped in case the window was resolved against a longer series.
func windowDaily(ld LocationData) []models.DailyWeather {
	start, end := ld.Window.Start, ld.Window.End
	if start < 0 {
		start = 0
	}
	if end > len(ld.Daily) {
		end = len(ld.Daily)
	}
	if start >= end {
		return nil
	}
	return ld.Daily[start:end]
}
