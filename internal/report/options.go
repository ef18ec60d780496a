// Package report renders water-balance data as CSV, Excel, or a standalone
// HTML document. Renderers are pure functions over a snapshot Input; all
// three keep the same column semantics (actual vs forecast, per-Kc
// breakdowns) so a number means the same thing in every format.
package report

import (
	"errors"
	"time"

	"github.com/jfarrand/cropcast/internal/balance"
	"github.com/jfarrand/cropcast/internal/models"
	"github.com/jfarrand/cropcast/internal/period"
)

type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "xlsx"
	FormatHTML  Format = "html"
)

// ErrNothingSelected is returned when no dataset flag is set. The UI is
// expected to prevent this, but the exporter tolerates it as a no-op.
var ErrNothingSelected = errors.New("report: no datasets selected")

// ErrUnknownFormat is returned for a format string outside the three
// renderers.
var ErrUnknownFormat = errors.New("report: unknown format")

// Options is the one-shot export configuration. It is consumed per call and
// never retained.
type Options struct {
	Format Format

	IncludeWeather bool // daily model weather per location
	IncludeStation bool // station-actual ET rows
	IncludeCrops   bool // declared plantings
	IncludeSummary bool // per-crop water-balance summaries

	Title   string
	Intro   string // user rich text, sanitized before rendering
	Closing string
}

func (o Options) anySelected() bool {
	return o.IncludeWeather || o.IncludeStation || o.IncludeCrops || o.IncludeSummary
}

// LocationData is the per-location slice of the snapshot the renderers walk.
// A location with no daily weather is skipped by every renderer.
type LocationData struct {
	Location models.Location
	Daily    []models.DailyWeather
	Actuals  []models.StationActual
	Crops    []models.CropInstance
	Window   period.Window
	Eligible bool
}

// Input is everything a renderer needs, captured once before rendering.
type Input struct {
	GeneratedAt time.Time
	Options     Options
	Locations   []LocationData
	Summaries   []balance.Summary
	Rules       SummaryRules // nil means DefaultSummaryRules
}

// File is a rendered report ready for download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}
