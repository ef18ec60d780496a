package store

import (
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS locations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    slug TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    state TEXT,
    latitude REAL,
    longitude REAL,
    station_id TEXT,
    active BOOLEAN DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS daily_weather (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    location_id INTEGER NOT NULL,
    date DATE NOT NULL,
    temp_max REAL,
    temp_min REAL,
    precip REAL,
    et0 REAL,
    humidity REAL,
    wind_speed REAL,
    et0_source TEXT DEFAULT 'model',
    raw_json TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(location_id, date)
);

CREATE TABLE IF NOT EXISTS station_actuals (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    station_id TEXT NOT NULL,
    date DATE NOT NULL,
    et_actual REAL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(station_id, date)
);

CREATE TABLE IF NOT EXISTS crop_instances (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    location_id INTEGER NOT NULL,
    crop_id TEXT NOT NULL,
    field_name TEXT,
    planted_on DATE,
    stage INTEGER DEFAULT 0,
    stage_name TEXT,
    custom_kc TEXT,
    notes TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ingest_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    provider TEXT NOT NULL,
    endpoint TEXT NOT NULL,
    location_id INTEGER,
    station_id TEXT,
    started_at DATETIME NOT NULL,
    completed_at DATETIME,
    success BOOLEAN DEFAULT FALSE,
    http_status INTEGER,
    response_size_bytes INTEGER,
    records_parsed INTEGER,
    records_inserted INTEGER,
    parse_errors INTEGER,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_daily_weather_loc_date ON daily_weather(location_id, date);
CREATE INDEX IF NOT EXISTS idx_station_actuals_date ON station_actuals(station_id, date);
`,
	},
	{
		Version:     2,
		Description: "Key-value preferences for report text",
		SQL: `
CREATE TABLE IF NOT EXISTS preferences (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`,
	},
	{
		Version:     3,
		Description: "QC flag on station actuals, raw payload retention",
		SQL: `
ALTER TABLE station_actuals ADD COLUMN qc_flag TEXT;

CREATE TABLE IF NOT EXISTS raw_payloads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ingest_run_id INTEGER,
    fetched_at DATETIME NOT NULL,
    provider TEXT NOT NULL,
    endpoint TEXT NOT NULL,
    payload_compressed BLOB,
    payload_hash TEXT,
    UNIQUE(payload_hash)
);
`,
	},
}

func (s *Store) Migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var applied int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, m.Version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if applied > 0 {
			continue
		}

		start := time.Now()
		if _, err := s.db.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`, m.Version, m.Description); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		log.Printf("store: applied migration %d (%s) in %s", m.Version, m.Description, time.Since(start))
	}
	return nil
}
