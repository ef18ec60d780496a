package models

import (
	"database/sql"
	"time"
)

type Location struct {
	ID        int64
	Slug      string
	Name      string
	State     string
	Latitude  float64
	Longitude float64
	StationID sql.NullString // nearest ET station, when the region has one
	Active    bool
}

// DailyWeather is one calendar day of model data for one location.
// All depths are inches; dates are day-precision in the report timezone.
type DailyWeather struct {
	ID         int64
	LocationID int64
	Date       time.Time
	TempMax    sql.NullFloat64
	TempMin    sql.NullFloat64
	Precip     sql.NullFloat64
	ET0        sql.NullFloat64
	Humidity   sql.NullFloat64
	WindSpeed  sql.NullFloat64
	ET0Source  string // "model" or "estimated"
	RawJSON    string
	CreatedAt  time.Time
}

// StationActual is one day of measured reference ET from a ground station.
type StationActual struct {
	ID        int64
	StationID string
	Date      time.Time
	ETActual  sql.NullFloat64
	QCFlag    sql.NullString
	CreatedAt time.Time
}

// CropInstance is a user-declared planting at a location.
type CropInstance struct {
	ID         int64
	LocationID int64
	CropID     string
	FieldName  sql.NullString
	PlantedOn  sql.NullTime
	Stage      int // coarse growth stage: 0 early, 1 developing, 2 mid-season, 3 late
	StageName  sql.NullString
	CustomKc   map[int]float64 // calendar month (1-12) -> user Kc override
	Notes      sql.NullString
	CreatedAt  time.Time
}

type IngestRun struct {
	ID                int64
	Provider          string // "openmeteo", "cimis", "cimis_archive"
	Endpoint          string
	LocationID        sql.NullInt64
	StationID         sql.NullString
	StartedAt         time.Time
	CompletedAt       sql.NullTime
	Success           bool
	HTTPStatus        sql.NullInt64
	ResponseSizeBytes sql.NullInt64
	RecordsParsed     sql.NullInt64
	RecordsInserted   sql.NullInt64
	ParseErrors       sql.NullInt64
	ErrorMessage      sql.NullString
}
