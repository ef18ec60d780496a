package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jfarrand/cropcast/internal/models"
)

type Store struct {
	db  *sql.DB
	loc *time.Location
}

func New(db *sql.DB, loc *time.Location) *Store {
	return &Store{db: db, loc: loc}
}

func (s *Store) UpsertLocation(l models.Location) error {
	_, err := s.db.Exec(`
		INSERT INTO locations (slug, name, state, latitude, longitude, station_id, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			state = excluded.state,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			station_id = excluded.station_id,
			active = excluded.active
	`, l.Slug, l.Name, l.State, l.Latitude, l.Longitude, l.StationID, l.Active)
	return err
}

func (s *Store) GetActiveLocations() ([]models.Location, error) {
	rows, err := s.db.Query(`
		SELECT id, slug, name, state, latitude, longitude, station_id, active
		FROM locations WHERE active = TRUE ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Slug, &l.Name, &l.State, &l.Latitude, &l.Longitude, &l.StationID, &l.Active); err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func (s *Store) GetLocationBySlug(slug string) (*models.Location, error) {
	row := s.db.QueryRow(`
		SELECT id, slug, name, state, latitude, longitude, station_id, active
		FROM locations WHERE slug = ?
	`, slug)

	var l models.Location
	err := row.Scan(&l.ID, &l.Slug, &l.Name, &l.State, &l.Latitude, &l.Longitude, &l.StationID, &l.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) UpsertDailyWeather(d models.DailyWeather) error {
	_, err := s.db.Exec(`
		INSERT INTO daily_weather (location_id, date, temp_max, temp_min, precip, et0, humidity, wind_speed, et0_source, raw_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(location_id, date) DO UPDATE SET
			temp_max = excluded.temp_max,
			temp_min = excluded.temp_min,
			precip = excluded.precip,
			et0 = excluded.et0,
			humidity = excluded.humidity,
			wind_speed = excluded.wind_speed,
			et0_source = excluded.et0_source,
			raw_json = excluded.raw_json
	`, d.LocationID, dayString(d.Date), d.TempMax, d.TempMin, d.Precip, d.ET0, d.Humidity, d.WindSpeed, d.ET0Source, d.RawJSON)
	return err
}

// GetDailyWeather returns the location's series for [from, to] inclusive,
// ascending by date with no duplicates (the unique index guarantees it).
func (s *Store) GetDailyWeather(locationID int64, from, to time.Time) ([]models.DailyWeather, error) {
	rows, err := s.db.Query(`
		SELECT id, location_id, date, temp_max, temp_min, precip, et0, humidity, wind_speed, et0_source, raw_json, created_at
		FROM daily_weather
		WHERE location_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, locationID, dayString(from), dayString(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []models.DailyWeather
	for rows.Next() {
		var d models.DailyWeather
		var date string
		if err := rows.Scan(&d.ID, &d.LocationID, &date, &d.TempMax, &d.TempMin, &d.Precip, &d.ET0, &d.Humidity, &d.WindSpeed, &d.ET0Source, &d.RawJSON, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Date, err = parseDay(date)
		if err != nil {
			return nil, err
		}
		series = append(series, d)
	}
	return series, rows.Err()
}

func (s *Store) UpsertStationActual(a models.StationActual) error {
	_, err := s.db.Exec(`
		INSERT INTO station_actuals (station_id, date, et_actual, qc_flag)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(station_id, date) DO UPDATE SET
			et_actual = excluded.et_actual,
			qc_flag = excluded.qc_flag
	`, a.StationID, dayString(a.Date), a.ETActual, a.QCFlag)
	return err
}

func (s *Store) GetStationActuals(stationID string, from, to time.Time) ([]models.StationActual, error) {
	rows, err := s.db.Query(`
		SELECT id, station_id, date, et_actual, qc_flag, created_at
		FROM station_actuals
		WHERE station_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, stationID, dayString(from), dayString(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actuals []models.StationActual
	for rows.Next() {
		var a models.StationActual
		var date string
		if err := rows.Scan(&a.ID, &a.StationID, &date, &a.ETActual, &a.QCFlag, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Date, err = parseDay(date)
		if err != nil {
			return nil, err
		}
		actuals = append(actuals, a)
	}
	return actuals, rows.Err()
}

func (s *Store) InsertCropInstance(c models.CropInstance) (int64, error) {
	customKc, err := marshalCustomKc(c.CustomKc)
	if err != nil {
		return 0, err
	}
	result, err := s.db.Exec(`
		INSERT INTO crop_instances (location_id, crop_id, field_name, planted_on, stage, stage_name, custom_kc, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.LocationID, c.CropID, c.FieldName, c.PlantedOn, c.Stage, c.StageName, customKc, c.Notes)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) UpdateCropInstance(c models.CropInstance) error {
	customKc, err := marshalCustomKc(c.CustomKc)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		UPDATE crop_instances SET
			crop_id = ?, field_name = ?, planted_on = ?, stage = ?, stage_name = ?, custom_kc = ?, notes = ?
		WHERE id = ?
	`, c.CropID, c.FieldName, c.PlantedOn, c.Stage, c.StageName, customKc, c.Notes, c.ID)
	return err
}

func (s *Store) DeleteCropInstance(id int64) error {
	_, err := s.db.Exec(`DELETE FROM crop_instances WHERE id = ?`, id)
	return err
}

func (s *Store) GetCropInstances(locationID int64) ([]models.CropInstance, error) {
	rows, err := s.db.Query(`
		SELECT id, location_id, crop_id, field_name, planted_on, stage, stage_name, custom_kc, notes, created_at
		FROM crop_instances
		WHERE location_id = ?
		ORDER BY crop_id, id
	`, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCropInstances(rows)
}

func (s *Store) GetAllCropInstances() ([]models.CropInstance, error) {
	rows, err := s.db.Query(`
		SELECT id, location_id, crop_id, field_name, planted_on, stage, stage_name, custom_kc, notes, created_at
		FROM crop_instances
		ORDER BY location_id, crop_id, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCropInstances(rows)
}

func scanCropInstances(rows *sql.Rows) ([]models.CropInstance, error) {
	var crops []models.CropInstance
	for rows.Next() {
		var c models.CropInstance
		var customKc sql.NullString
		if err := rows.Scan(&c.ID, &c.LocationID, &c.CropID, &c.FieldName, &c.PlantedOn, &c.Stage, &c.StageName, &customKc, &c.Notes, &c.CreatedAt); err != nil {
			return nil, err
		}
		kc, err := unmarshalCustomKc(customKc)
		if err != nil {
			return nil, err
		}
		c.CustomKc = kc
		crops = append(crops, c)
	}
	return crops, rows.Err()
}

// Custom Kc overrides travel as a JSON object keyed by month number, so the
// schema stays flat while the map round-trips losslessly.
func marshalCustomKc(m map[int]float64) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal custom kc: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalCustomKc(v sql.NullString) (map[int]float64, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	var m map[int]float64
	if err := json.Unmarshal([]byte(v.String), &m); err != nil {
		return nil, fmt.Errorf("unmarshal custom kc: %w", err)
	}
	return m, nil
}

func dayString(t time.Time) string {
	return t.Format("2006-01-02")
}

func parseDay(s string) (time.Time, error) {
	// Dates may come back bare or with a stored time component depending on
	// how the row was written.
	if len(s) >= 10 {
		s = s[:10]
	}
	return time.Parse("2006-01-02", s)
}
