package ingest

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/jfarrand/cropcast/internal/models"
)

const (
	defaultArchiveHost = "ftpcimis.water.ca.gov:21"
	archiveDir         = "/pub2/daily"
)

// ArchiveClient pulls monthly station archives from the network's FTP
// mirror. The API only serves recent data, so deep backfills come from the
// archive CSVs instead.
type ArchiveClient struct {
	host string
}

func NewArchiveClient(host string) *ArchiveClient {
	if host == "" {
		host = defaultArchiveHost
	}
	return &ArchiveClient{host: host}
}

// FetchMonth retrieves one monthly archive file and returns every daily ET
// record it holds for the requested stations. An empty stations slice means
// keep everything.
func (a *ArchiveClient) FetchMonth(year int, month time.Month, stations []string) ([]models.StationActual, error) {
	conn, err := ftp.Dial(a.host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	path := fmt.Sprintf("%s/%04d-%02d.csv", archiveDir, year, month)
	resp, err := conn.Retr(path)
	if err != nil {
		return nil, fmt.Errorf("ftp retr %s: %w", path, err)
	}
	defer resp.Close()

	return parseArchiveCSV(resp, stations)
}

// parseArchiveCSV reads the archive layout: station_id, date, day_eto, qc.
// A header row is detected by a non-numeric third column and skipped. Rows
// with bad dates are dropped; rows with bad values keep a null reading.
func parseArchiveCSV(r io.Reader, stations []string) ([]models.StationActual, error) {
	want := make(map[string]bool, len(stations))
	for _, s := range stations {
		want[s] = true
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var actuals []models.StationActual
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive csv: %w", err)
		}
		if len(row) < 3 {
			continue
		}
		if first {
			first = false
			if _, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64); err != nil {
				if _, derr := time.Parse("2006-01-02", strings.TrimSpace(row[1])); derr != nil {
					continue
				}
			}
		}

		stationID := strings.TrimSpace(row[0])
		if len(want) > 0 && !want[stationID] {
			continue
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(row[1]))
		if err != nil {
			continue
		}

		a := models.StationActual{StationID: stationID, Date: date}
		if v, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64); err == nil {
			a.ETActual = sql.NullFloat64{Float64: v, Valid: true}
		}
		if len(row) > 3 {
			if qc := strings.TrimSpace(row[3]); qc != "" {
				a.QCFlag = sql.NullString{String: qc, Valid: true}
			}
		}
		actuals = append(actuals, a)
	}
	return actuals, nil
}
