package ingest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jfarrand/cropcast/internal/httputil"
	"github.com/jfarrand/cropcast/internal/models"
)

const defaultStationBaseURL = "https://et.water.ca.gov/api/data"

// StationClient fetches measured daily ET from the state station network.
// Values come back in inches per day with a per-record QC flag.
type StationClient struct {
	baseURL string
	appKey  string
	client  *http.Client
}

func NewStationClient(appKey string) *StationClient {
	return &StationClient{
		baseURL: defaultStationBaseURL,
		appKey:  appKey,
		// The station API is slow for multi-day ranges.
		client: httputil.NewClientWithTimeout(60 * time.Second),
	}
}

// SetBaseURL points the client at a mock server in tests.
func (c *StationClient) SetBaseURL(u string) {
	c.baseURL = u
}

// stationResponse mirrors the provider's nested record envelope. Values are
// strings in the payload and parsed leniently; a record with an unparseable
// value keeps its date but carries a null reading.
type stationResponse struct {
	Data struct {
		Providers []struct {
			Records []stationRecord `json:"Records"`
		} `json:"Providers"`
	} `json:"Data"`
}

type stationRecord struct {
	Date    string `json:"Date"`
	Station string `json:"Station"`
	DayETo  struct {
		Value string `json:"Value"`
		QC    string `json:"Qc"`
	} `json:"DayEto"`
}

// FetchActuals returns measured daily ET for one station over [from, to]
// inclusive. The station never reports future days; whatever the provider
// returns for the range is taken as-is.
func (c *StationClient) FetchActuals(stationID string, from, to time.Time) ([]models.StationActual, string, *FetchResult, error) {
	q := url.Values{}
	q.Set("appKey", c.appKey)
	q.Set("targets", stationID)
	q.Set("startDate", from.Format("2006-01-02"))
	q.Set("endDate", to.Format("2006-01-02"))
	q.Set("dataItems", "day-eto")
	q.Set("unitOfMeasure", "E")

	result := &FetchResult{}
	var body []byte

	operation := func() error {
		resp, err := c.client.Get(c.baseURL + "?" + q.Encode())
		if err != nil {
			return fmt.Errorf("fetch station %s: %w", stationID, err)
		}
		defer resp.Body.Close()
		result.HTTPStatus = resp.StatusCode

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("fetch station %s: status %d", stationID, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			result.ResponseSize = len(b)
			return backoff.Permanent(fmt.Errorf("fetch station %s: status %d: %s", stationID, resp.StatusCode, string(b)))
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

	var data stationResponse
	if err := json.Unmarshal(body, &data); err != nil {
		result.Error = fmt.Errorf("unmarshal station response: %w", err)
		return nil, string(body), result, result.Error
	}

	var actuals []models.StationActual
	parseErrors := 0
	for _, provider := range data.Data.Providers {
		for _, rec := range provider.Records {
			date, err := time.Parse("2006-01-02", rec.Date)
			if err != nil {
				parseErrors++
				continue
			}
			a := models.StationActual{
				StationID: stationID,
				Date:      date,
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(rec.DayETo.Value), 64); err == nil {
				a.ETActual = sql.NullFloat64{Float64: v, Valid: true}
			}
			if qc := strings.TrimSpace(rec.DayETo.QC); qc != "" {
				a.QCFlag = sql.NullString{String: qc, Valid: true}
			}
			actuals = append(actuals, a)
		}
	}

	result.RecordCount = len(actuals)
	result.ParseErrors = parseErrors
	if parseErrors > 0 {
		result.ParseError = fmt.Sprintf("%d records had unparseable dates", parseErrors)
	}
	return actuals, string(body), result, nil
}
