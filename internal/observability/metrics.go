package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesRequested = promauto.NewCounter(prometheus.CounterOpts{Namespace: "safe_ride", Name: "rides_requested_total", Help: "Total rides created"})
	RidesAccepted  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "safe_ride", Name: "rides_accepted_total", Help: "Total rides claimed by a driver"})
	AcceptConflict = promauto.NewCounter(prometheus.CounterOpts{Namespace: "safe_ride", Name: "accept_conflicts_total", Help: "Accept attempts that lost the claim race"})

	GeocodeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safe_ride", Name: "geocode_requests_total", Help: "Geocoder lookups by result"},
		[]string{"result"},
	)
	GeocodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "safe_ride",
		Name:      "geocode_duration_seconds",
		Help:      "Geocoder lookup latency",
		Buckets:   prometheus.DefBuckets,
	})

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "safe_ride", Name: "ws_clients", Help: "Currently connected realtime clients"})
	EventsDropped    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "safe_ride", Name: "events_dropped_total", Help: "Realtime events dropped on full buffers"})
	LocationReports  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "safe_ride", Name: "location_reports_total", Help: "Driver position reports ingested"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safe_ride", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "safe_ride",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
