package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderAPICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropcast_provider_api_calls_total",
			Help: "Total weather/station provider API calls",
		},
		[]string{"provider", "endpoint", "status"},
	)

	ProviderAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cropcast_provider_api_latency_seconds",
			Help:    "Provider API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "endpoint"},
	)

	WeatherDaysIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropcast_weather_days_ingested_total",
			Help: "Daily weather rows successfully ingested",
		},
		[]string{"location"},
	)

	StationDaysIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropcast_station_days_ingested_total",
			Help: "Station-actual ET rows successfully ingested",
		},
		[]string{"station"},
	)

	ReportsExported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropcast_reports_exported_total",
			Help: "Reports rendered for download, by output format",
		},
		[]string{"format"},
	)

	ReportBuildSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cropcast_report_build_seconds",
			Help:    "Time spent aggregating and rendering a report",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"format"},
	)
)
