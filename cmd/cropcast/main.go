package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	_ "modernc.org/sqlite"

	"github.com/jfarrand/cropcast/internal/agro"
	"github.com/jfarrand/cropcast/internal/api"
	"github.com/jfarrand/cropcast/internal/balance"
	"github.com/jfarrand/cropcast/internal/ingest"
	"github.com/jfarrand/cropcast/internal/models"
	"github.com/jfarrand/cropcast/internal/narrative"
	"github.com/jfarrand/cropcast/internal/report"
	"github.com/jfarrand/cropcast/internal/store"
)

// Default reporting locations: California growing regions with their nearest
// ET station, plus one deliberately out-of-network control.
var defaultLocations = []models.Location{
	{Slug: "salinas", Name: "Salinas", State: "CA", Latitude: 36.677, Longitude: -121.655, StationID: sql.NullString{String: "89", Valid: true}, Active: true},
	{Slug: "davis", Name: "Davis", State: "CA", Latitude: 38.545, Longitude: -121.744, StationID: sql.NullString{String: "6", Valid: true}, Active: true},
	{Slug: "fresno", Name: "Fresno", State: "CA", Latitude: 36.738, Longitude: -119.785, StationID: sql.NullString{String: "80", Valid: true}, Active: true},
	{Slug: "five-points", Name: "Five Points", State: "CA", Latitude: 36.336, Longitude: -120.113, StationID: sql.NullString{String: "2", Valid: true}, Active: true},
	{Slug: "temecula", Name: "Temecula", State: "CA", Latitude: 33.494, Longitude: -117.148, StationID: sql.NullString{String: "62", Valid: true}, Active: true},
	{Slug: "yuma", Name: "Yuma", State: "AZ", Latitude: 32.693, Longitude: -114.628, Active: true},
}

type appContext struct {
	store     *store.Store
	profiles  *agro.ProfileRegistry
	scheduler *ingest.Scheduler
	server    *api.Server
	loc       *time.Location
}

type serveCmd struct {
	NoPoll bool `help:"Disable background polling (server only, for local dev)."`
}

func (c *serveCmd) Run(app *appContext, cli *rootFlags) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !c.NoPoll {
		go app.scheduler.Run(ctx)
	} else {
		log.Println("polling disabled (--no-poll)")
	}

	log.Printf("starting server on :%s", cli.Port)
	return app.server.Run(ctx)
}

type ingestCmd struct{}

func (c *ingestCmd) Run(app *appContext) error {
	log.Println("running single ingestion")
	return app.scheduler.IngestOnce()
}

type backfillCmd struct {
	Months int `help:"How many monthly archive files to load." default:"3"`
}

func (c *backfillCmd) Run(app *appContext) error {
	log.Printf("backfilling %d months of station archives", c.Months)
	return app.scheduler.BackfillArchive(c.Months)
}

type exportCmd struct {
	Format   string   `help:"Output format: csv, xlsx, or html." default:"csv" enum:"csv,xlsx,html"`
	Out      string   `help:"Output file path. Defaults to the generated report name." type:"path"`
	Datasets []string `help:"Datasets to include." default:"weather,station,crops,summary"`
	Mode     string   `help:"Reporting mode: current, future, or historical." default:"current" enum:"current,future,historical"`
	Preset   string   `help:"Window preset: today, 7day, or 14day." default:"14day" enum:"today,7day,14day"`
}

func (c *exportCmd) Run(app *appContext) error {
	q := url.Values{}
	q.Set("mode", c.Mode)
	q.Set("preset", c.Preset)
	params, err := api.ParseQuery(q)
	if err != nil {
		return err
	}

	locData, summaries, err := api.Snapshot(app.store, app.profiles, balance.DefaultThresholds, app.loc, params)
	if err != nil {
		return err
	}

	opts := report.Options{Format: report.Format(c.Format)}
	for _, d := range c.Datasets {
		switch d {
		case "weather":
			opts.IncludeWeather = true
		case "station":
			opts.IncludeStation = true
		case "crops":
			opts.IncludeCrops = true
		case "summary":
			opts.IncludeSummary = true
		default:
			return fmt.Errorf("unknown dataset %q", d)
		}
	}
	opts.Title, _ = app.store.GetPreference(store.PrefReportTitle)
	opts.Intro, _ = app.store.GetPreference(store.PrefReportIntro)
	opts.Closing, _ = app.store.GetPreference(store.PrefReportClosing)

	file, err := report.Build(report.Input{
		GeneratedAt: time.Now().In(app.loc),
		Options:     opts,
		Locations:   locData,
		Summaries:   summaries,
	})
	if err != nil {
		return err
	}

	out := c.Out
	if out == "" {
		out = file.Name
	}
	if err := os.WriteFile(out, file.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	log.Printf("wrote %s (%d bytes)", out, len(file.Data))
	return nil
}

type rootFlags struct {
	DB         string `help:"Path to the SQLite database." default:"data/cropcast.db" env:"CROPCAST_DB"`
	Port       string `help:"HTTP server port." default:"8080" env:"CROPCAST_PORT"`
	Timezone   string `help:"Reporting timezone." default:"America/Los_Angeles" env:"CROPCAST_TZ"`
	StationKey string `help:"Station network API key. Station ingest is skipped without it." env:"CIMIS_APP_KEY"`
}

var cli struct {
	rootFlags

	Serve    serveCmd    `cmd:"" default:"1" help:"Run the dashboard server with background ingestion."`
	Ingest   ingestCmd   `cmd:"" help:"Run one ingest pass and exit."`
	Backfill backfillCmd `cmd:"" help:"Backfill station actuals from the monthly FTP archives."`
	Export   exportCmd   `cmd:"" help:"Render a report to a local file."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("cropcast"),
		kong.Description("Crop water-balance reporting from weather and ET station data."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	loc, err := time.LoadLocation(cli.Timezone)
	if err != nil {
		log.Printf("warning: could not load timezone %s, using UTC: %v", cli.Timezone, err)
		loc = time.UTC
	}

	st := store.New(db, loc)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	for _, location := range defaultLocations {
		if err := st.UpsertLocation(location); err != nil {
			log.Fatalf("upsert location %s: %v", location.Slug, err)
		}
	}
	log.Println("locations seeded")

	profiles := agro.NewProfileRegistry()

	var stationClient *ingest.StationClient
	if cli.StationKey != "" {
		stationClient = ingest.NewStationClient(cli.StationKey)
	} else {
		log.Println("CIMIS_APP_KEY not set, station ingest disabled")
	}

	scheduler := ingest.NewScheduler(st, ingest.NewForecastClient(), stationClient, loc)
	server := api.NewServer(st, profiles, cli.Port, loc)

	if drafter, err := narrative.NewDrafter(); err != nil {
		log.Printf("narrative drafting disabled: %v", err)
	} else {
		server.SetDrafter(drafter)
	}

	app := &appContext{
		store:     st,
		profiles:  profiles,
		scheduler: scheduler,
		server:    server,
		loc:       loc,
	}

	if err := kctx.Run(app, &cli.rootFlags); err != nil {
		log.Fatalf("%s: %v", kctx.Command(), err)
	}
}
