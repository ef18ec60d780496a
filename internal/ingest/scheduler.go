package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jfarrand/cropcast/internal/agro"
	"github.com/jfarrand/cropcast/internal/metrics"
	"github.com/jfarrand/cropcast/internal/models"
	"github.com/jfarrand/cropcast/internal/store"
)

// Scheduler polls providers on fixed intervals and writes what it gets to
// the store. Forecasts refresh every few hours; station actuals only change
// once a day so they refresh daily.
type Scheduler struct {
	store           *store.Store
	forecast        *ForecastClient
	station         *StationClient
	archive         *ArchiveClient
	loc             *time.Location
	fcInterval      time.Duration
	stationLookback int
	rawKeep         int
}

func NewScheduler(st *store.Store, forecast *ForecastClient, station *StationClient, loc *time.Location) *Scheduler {
	return &Scheduler{
		store:           st,
		forecast:        forecast,
		station:         station,
		archive:         NewArchiveClient(""),
		loc:             loc,
		fcInterval:      6 * time.Hour,
		stationLookback: 10,
		rawKeep:         200,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	s.ingestForecasts()
	s.ingestStationActuals()

	fcTicker := time.NewTicker(s.fcInterval)
	stationTicker := time.NewTicker(24 * time.Hour)
	pruneTicker := time.NewTicker(12 * time.Hour)
	defer fcTicker.Stop()
	defer stationTicker.Stop()
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-fcTicker.C:
			s.ingestForecasts()
		case <-stationTicker.C:
			s.ingestStationActuals()
		case <-pruneTicker.C:
			if err := s.store.PruneRawPayloads(s.rawKeep); err != nil {
				log.Printf("scheduler: prune raw payloads: %v", err)
			}
		}
	}
}

// IngestOnce runs a single pass over every provider, for the CLI ingest
// command.
func (s *Scheduler) IngestOnce() error {
	s.ingestForecasts()
	s.ingestStationActuals()
	return nil
}

func (s *Scheduler) ingestForecasts() {
	if s.forecast == nil {
		return
	}
	locations, err := s.store.GetActiveLocations()
	if err != nil {
		log.Printf("scheduler: list locations: %v", err)
		return
	}

	log.Printf("scheduler: ingesting forecasts for %d locations", len(locations))
	for _, loc := range locations {
		s.ingestForecastFor(loc)
	}
}

func (s *Scheduler) ingestForecastFor(loc models.Location) {
	run, _ := s.store.StartIngestRun("openmeteo", "v1/forecast", &loc.ID, nil)

	start := time.Now()
	days, rawBody, fetchResult, err := s.forecast.FetchDaily(loc)
	metrics.ProviderAPILatency.WithLabelValues("openmeteo", "v1/forecast").Observe(time.Since(start).Seconds())
	metrics.ProviderAPICalls.WithLabelValues("openmeteo", "v1/forecast", callStatus(fetchResult, err)).Inc()

	recordFetch(run, fetchResult, err)

	if len(rawBody) > 0 && run != nil {
		if _, perr := s.store.StoreRawPayload(&run.ID, "openmeteo", "v1/forecast", []byte(rawBody)); perr != nil {
			log.Printf("scheduler: store raw payload %s: %v", loc.Slug, perr)
		}
	}

	if err != nil {
		log.Printf("scheduler: fetch forecast %s: %v", loc.Slug, err)
		s.completeRun(run)
		return
	}

	inserted := 0
	for _, d := range days {
		if flags := ValidateDailyWeather(&d); len(flags) > 0 {
			log.Printf("scheduler: %s %s flagged: %s", loc.Slug, d.Date.Format("2006-01-02"), QualityFlagsToJSON(flags))
		}
		if ierr := s.store.UpsertDailyWeather(d); ierr != nil {
			log.Printf("scheduler: upsert weather %s: %v", loc.Slug, ierr)
			continue
		}
		inserted++
	}
	metrics.WeatherDaysIngested.WithLabelValues(loc.Slug).Add(float64(inserted))
	log.Printf("scheduler: %s: %d weather days", loc.Slug, inserted)

	if run != nil {
		run.RecordsInserted = sql.NullInt64{Int64: int64(inserted), Valid: true}
	}
	s.completeRun(run)
}

func (s *Scheduler) ingestStationActuals() {
	if s.station == nil {
		return
	}
	locations, err := s.store.GetActiveLocations()
	if err != nil {
		log.Printf("scheduler: list locations: %v", err)
		return
	}

	to := time.Now().In(s.loc)
	from := to.AddDate(0, 0, -s.stationLookback)

	seen := make(map[string]bool)
	for _, loc := range locations {
		if !loc.StationID.Valid {
			continue
		}
		stationID := loc.StationID.String
		if seen[stationID] {
			continue
		}
		seen[stationID] = true

		// Out-of-region locations carry no usable station; skip the network
		// call entirely but leave an audit row saying why.
		if !agro.EligibleRegion(loc) {
			run, _ := s.store.StartIngestRun("cimis", "api/data", &loc.ID, &stationID)
			if run != nil {
				run.ErrorMessage = sql.NullString{String: "location outside station network region", Valid: true}
				s.completeRun(run)
			}
			continue
		}

		s.ingestStationFor(loc.ID, stationID, from, to)
	}
}

func (s *Scheduler) ingestStationFor(locationID int64, stationID string, from, to time.Time) {
	run, _ := s.store.StartIngestRun("cimis", "api/data", &locationID, &stationID)

	start := time.Now()
	actuals, rawBody, fetchResult, err := s.station.FetchActuals(stationID, from, to)
	metrics.ProviderAPILatency.WithLabelValues("cimis", "api/data").Observe(time.Since(start).Seconds())
	metrics.ProviderAPICalls.WithLabelValues("cimis", "api/data", callStatus(fetchResult, err)).Inc()

	recordFetch(run, fetchResult, err)

	if len(rawBody) > 0 && run != nil {
		if _, perr := s.store.StoreRawPayload(&run.ID, "cimis", "api/data", []byte(rawBody)); perr != nil {
			log.Printf("scheduler: store raw payload %s: %v", stationID, perr)
		}
	}

	if err != nil {
		log.Printf("scheduler: fetch station %s: %v", stationID, err)
		s.completeRun(run)
		return
	}

	inserted := s.storeActuals(actuals)
	metrics.StationDaysIngested.WithLabelValues(stationID).Add(float64(inserted))
	log.Printf("scheduler: %s: %d station days", stationID, inserted)

	if run != nil {
		run.RecordsInserted = sql.NullInt64{Int64: int64(inserted), Valid: true}
	}
	s.completeRun(run)
}

// BackfillArchive loads the last months monthly archive files for every
// station attached to an active location.
func (s *Scheduler) BackfillArchive(months int) error {
	locations, err := s.store.GetActiveLocations()
	if err != nil {
		return fmt.Errorf("list locations: %w", err)
	}

	var stations []string
	seen := make(map[string]bool)
	for _, loc := range locations {
		if loc.StationID.Valid && agro.EligibleRegion(loc) && !seen[loc.StationID.String] {
			seen[loc.StationID.String] = true
			stations = append(stations, loc.StationID.String)
		}
	}
	if len(stations) == 0 {
		log.Println("scheduler: no eligible stations to backfill")
		return nil
	}

	now := time.Now().In(s.loc)
	for i := 0; i < months; i++ {
		m := now.AddDate(0, -i, 0)
		endpoint := fmt.Sprintf("daily/%04d-%02d", m.Year(), m.Month())
		run, _ := s.store.StartIngestRun("cimis_archive", endpoint, nil, nil)

		actuals, err := s.archive.FetchMonth(m.Year(), m.Month(), stations)
		if err != nil {
			log.Printf("scheduler: backfill %04d-%02d: %v", m.Year(), m.Month(), err)
			if run != nil {
				run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
				s.completeRun(run)
			}
			continue
		}

		inserted := s.storeActuals(actuals)
		log.Printf("scheduler: backfilled %04d-%02d: %d station days", m.Year(), m.Month(), inserted)
		if run != nil {
			run.Success = true
			run.RecordsParsed = sql.NullInt64{Int64: int64(len(actuals)), Valid: true}
			run.RecordsInserted = sql.NullInt64{Int64: int64(inserted), Valid: true}
			s.completeRun(run)
		}
	}
	return nil
}

func (s *Scheduler) storeActuals(actuals []models.StationActual) int {
	inserted := 0
	for _, a := range actuals {
		if flags := ValidateStationActual(&a); len(flags) > 0 {
			log.Printf("scheduler: station %s %s flagged: %s", a.StationID, a.Date.Format("2006-01-02"), QualityFlagsToJSON(flags))
		}
		if err := s.store.UpsertStationActual(a); err != nil {
			log.Printf("scheduler: upsert actual %s: %v", a.StationID, err)
			continue
		}
		inserted++
	}
	return inserted
}

// recordFetch copies fetch bookkeeping onto the audit row.
func recordFetch(run *models.IngestRun, fetchResult *FetchResult, err error) {
	if run == nil {
		return
	}
	run.Success = err == nil
	if fetchResult != nil {
		run.HTTPStatus = sql.NullInt64{Int64: int64(fetchResult.HTTPStatus), Valid: fetchResult.HTTPStatus > 0}
		run.ResponseSizeBytes = sql.NullInt64{Int64: int64(fetchResult.ResponseSize), Valid: fetchResult.ResponseSize > 0}
		run.RecordsParsed = sql.NullInt64{Int64: int64(fetchResult.RecordCount), Valid: true}
		if fetchResult.ParseErrors > 0 {
			run.ParseErrors = sql.NullInt64{Int64: int64(fetchResult.ParseErrors), Valid: true}
			run.ErrorMessage = sql.NullString{String: fetchResult.ParseError, Valid: true}
		}
	}
	if err != nil {
		run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
	}
}

func (s *Scheduler) completeRun(run *models.IngestRun) {
	if run == nil {
		return
	}
	if err := s.store.CompleteIngestRun(run); err != nil {
		log.Printf("scheduler: complete ingest run %d: %v", run.ID, err)
	}
}

func callStatus(fetchResult *FetchResult, err error) string {
	if fetchResult != nil && fetchResult.HTTPStatus > 0 {
		return strconv.Itoa(fetchResult.HTTPStatus)
	}
	if err != nil {
		return "error"
	}
	return "ok"
}
