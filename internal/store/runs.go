package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jfarrand/cropcast/internal/models"
)

// StartIngestRun records the beginning of one provider fetch for auditing.
func (s *Store) StartIngestRun(provider, endpoint string, locationID *int64, stationID *string) (*models.IngestRun, error) {
	run := &models.IngestRun{
		Provider:  provider,
		Endpoint:  endpoint,
		StartedAt: time.Now().UTC(),
	}
	if locationID != nil {
		run.LocationID = sql.NullInt64{Int64: *locationID, Valid: true}
	}
	if stationID != nil {
		run.StationID = sql.NullString{String: *stationID, Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO ingest_runs (provider, endpoint, location_id, station_id, started_at, success)
		VALUES (?, ?, ?, ?, ?, FALSE)
	`, run.Provider, run.Endpoint, run.LocationID, run.StationID, run.StartedAt)
	if err != nil {
		return nil, err
	}
	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteIngestRun updates the run with its outcome.
func (s *Store) CompleteIngestRun(run *models.IngestRun) error {
	if run == nil {
		return nil
	}
	run.CompletedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.Exec(`
		UPDATE ingest_runs SET
			completed_at = ?,
			success = ?,
			http_status = ?,
			response_size_bytes = ?,
			records_parsed = ?,
			records_inserted = ?,
			parse_errors = ?,
			error_message = ?
		WHERE id = ?
	`, run.CompletedAt, run.Success, run.HTTPStatus, run.ResponseSizeBytes,
		run.RecordsParsed, run.RecordsInserted, run.ParseErrors, run.ErrorMessage, run.ID)
	return err
}

func (s *Store) GetRecentIngestRuns(limit int) ([]models.IngestRun, error) {
	rows, err := s.db.Query(`
		SELECT id, provider, endpoint, location_id, station_id, started_at, completed_at,
		       success, http_status, response_size_bytes, records_parsed, records_inserted,
		       parse_errors, error_message
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.IngestRun
	for rows.Next() {
		var r models.IngestRun
		if err := rows.Scan(&r.ID, &r.Provider, &r.Endpoint, &r.LocationID, &r.StationID,
			&r.StartedAt, &r.CompletedAt, &r.Success, &r.HTTPStatus, &r.ResponseSizeBytes,
			&r.RecordsParsed, &r.RecordsInserted, &r.ParseErrors, &r.ErrorMessage); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// StoreRawPayload keeps a compressed copy of a provider response for
// debugging parse failures. Duplicate payloads (same hash) are dropped and
// return id 0.
func (s *Store) StoreRawPayload(runID *int64, provider, endpoint string, payload []byte) (int64, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("close gzip: %w", err)
	}

	hash := sha256.Sum256(payload)
	var ingestRunID sql.NullInt64
	if runID != nil {
		ingestRunID = sql.NullInt64{Int64: *runID, Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO raw_payloads (ingest_run_id, fetched_at, provider, endpoint, payload_compressed, payload_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(payload_hash) DO NOTHING
	`, ingestRunID, time.Now().UTC(), provider, endpoint, buf.Bytes(), hex.EncodeToString(hash[:]))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// PruneRawPayloads keeps only the newest keep rows.
func (s *Store) PruneRawPayloads(keep int) error {
	_, err := s.db.Exec(`
		DELETE FROM raw_payloads
		WHERE id NOT IN (SELECT id FROM raw_payloads ORDER BY fetched_at DESC LIMIT ?)
	`, keep)
	return err
}
