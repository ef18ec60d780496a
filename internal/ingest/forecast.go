package ingest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jfarrand/cropcast/internal/agro"
	"github.com/jfarrand/cropcast/internal/httputil"
	"github.com/jfarrand/cropcast/internal/models"
)

// FetchResult captures per-call bookkeeping for the ingest_runs audit table.
type FetchResult struct {
	HTTPStatus   int
	ResponseSize int
	RecordCount  int
	ParseErrors  int
	ParseError   string
	Error        error
}

// ForecastClient fetches the daily forecast series from an Open-Meteo-shaped
// endpoint. ET0 and precipitation come back in inches; days missing a model
// ET0 value get an estimate from basic weather instead.
type ForecastClient struct {
	baseURL      string
	client       *http.Client
	pastDays     int
	forecastDays int
}

const defaultForecastBaseURL = "https://api.open-meteo.com/v1/forecast"

func NewForecastClient() *ForecastClient {
	return &ForecastClient{
		baseURL:      defaultForecastBaseURL,
		client:       httputil.NewClient(),
		pastDays:     7,
		forecastDays: 16,
	}
}

// SetBaseURL points the client at a mock server in tests.
func (f *ForecastClient) SetBaseURL(u string) {
	f.baseURL = u
}

// forecastResponse mirrors the provider's parallel-array daily block. Every
// array is aligned by index with time.
type forecastResponse struct {
	Daily struct {
		Time          []string   `json:"time"`
		TempMax       []*float64 `json:"temperature_2m_max"`
		TempMin       []*float64 `json:"temperature_2m_min"`
		PrecipSum     []*float64 `json:"precipitation_sum"`
		ET0           []*float64 `json:"et0_fao_evapotranspiration"`
		HumidityMean  []*float64 `json:"relative_humidity_2m_mean"`
		WindSpeedMean []*float64 `json:"wind_speed_10m_mean"`
	} `json:"daily"`
}

// FetchDaily returns the location's daily series, the raw response body, and
// the fetch bookkeeping. Transient HTTP failures are retried with
// exponential backoff; malformed payloads are permanent failures surfaced to
// the caller, never partially ingested.
func (f *ForecastClient) FetchDaily(loc models.Location) ([]models.DailyWeather, string, *FetchResult, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", loc.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", loc.Longitude))
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,et0_fao_evapotranspiration,relative_humidity_2m_mean,wind_speed_10m_mean")
	q.Set("precipitation_unit", "inch")
	q.Set("wind_speed_unit", "ms")
	q.Set("timezone", "auto")
	q.Set("past_days", fmt.Sprintf("%d", f.pastDays))
	q.Set("forecast_days", fmt.Sprintf("%d", f.forecastDays))

	result := &FetchResult{}
	var body []byte

	operation := func() error {
		resp, err := f.client.Get(f.baseURL + "?" + q.Encode())
		if err != nil {
			return fmt.Errorf("fetch forecast: %w", err)
		}
		defer resp.Body.Close()
		result.HTTPStatus = resp.StatusCode

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("fetch forecast: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			result.ResponseSize = len(b)
			return backoff.Permanent(fmt.Errorf("fetch forecast: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		result.ResponseSize = len(body)
		return nil
	}

	if err := backoff.Retry(operation, retryPolicy()); err != nil {
		result.Error = err
		return nil, string(body), result, err
	}

	var data forecastResponse
	if err := json.Unmarshal(body, &data); err != nil {
		result.Error = fmt.Errorf("unmarshal forecast: %w", err)
		return nil, string(body), result, result.Error
	}

	days, parseErrors := parseForecastDays(loc, data)
	result.RecordCount = len(days)
	result.ParseErrors = parseErrors
	if parseErrors > 0 {
		result.ParseError = fmt.Sprintf("%d days had unparseable dates", parseErrors)
	}
	return days, string(body), result, nil
}

func parseForecastDays(loc models.Location, data forecastResponse) ([]models.DailyWeather, int) {
	var days []models.DailyWeather
	parseErrors := 0

	for i, ds := range data.Daily.Time {
		date, err := time.Parse("2006-01-02", ds)
		if err != nil {
			parseErrors++
			continue
		}
		d := models.DailyWeather{
			LocationID: loc.ID,
			Date:       date,
			TempMax:    floatAt(data.Daily.TempMax, i),
			TempMin:    floatAt(data.Daily.TempMin, i),
			Precip:     floatAt(data.Daily.PrecipSum, i),
			ET0:        floatAt(data.Daily.ET0, i),
			Humidity:   floatAt(data.Daily.HumidityMean, i),
			WindSpeed:  floatAt(data.Daily.WindSpeedMean, i),
			ET0Source:  "model",
		}
		if !d.ET0.Valid {
			d.ET0 = sql.NullFloat64{Float64: agro.EstimateET0(agro.ET0Inputs{
				TempMax:   d.TempMax,
				TempMin:   d.TempMin,
				WindSpeed: d.WindSpeed,
				Humidity:  d.Humidity,
			}), Valid: true}
			d.ET0Source = "estimated"
		}
		days = append(days, d)
	}
	return days, parseErrors
}

func floatAt(arr []*float64, i int) sql.NullFloat64 {
	if i >= len(arr) || arr[i] == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *arr[i], Valid: true}
}

func retryPolicy() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxElapsedTime = 45 * time.Second
	return policy
}
