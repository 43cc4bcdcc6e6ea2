// Package metrics exposes the bridge's Prometheus collector.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	TripUpdates      prometheus.Gauge
	VehiclePositions prometheus.Gauge
	OperatingTrips   prometheus.Gauge

	SiriRequests     *prometheus.CounterVec // result label: ok|error
	VehiclesIngested prometheus.Counter
	MatchOutcomes    *prometheus.CounterVec // reason label
	SweepEvictions   *prometheus.CounterVec // kind label: trip_update|vehicle_position
	RefreshFailures  prometheus.Counter

	PollDuration prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TripUpdates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_trip_updates",
			Help: "Number of trip updates currently held in the store.",
		}),
		VehiclePositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_vehicle_positions",
			Help: "Number of vehicle positions currently held in the store.",
		}),
		OperatingTrips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_operating_trips",
			Help: "Number of scheduled trips operating on the current service date.",
		}),
		SiriRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_siri_requests_total",
			Help: "Total vehicle monitoring requests.",
		}, []string{"result"}),
		VehiclesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_vehicles_ingested_total",
			Help: "Total telemetry records processed.",
		}),
		MatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_match_outcomes_total",
			Help: "Trip matching outcomes by reason.",
		}, []string{"reason"}),
		SweepEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_sweep_evictions_total",
			Help: "Entities evicted by the staleness sweep.",
		}, []string{"kind"}),
		RefreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_refresh_failures_total",
			Help: "Failed schedule or line-list refreshes.",
		}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_poll_duration_seconds",
			Help:    "Duration of one line's poll cycle.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	reg.MustRegister(
		c.TripUpdates, c.VehiclePositions, c.OperatingTrips,
		c.SiriRequests, c.VehiclesIngested, c.MatchOutcomes,
		c.SweepEvictions, c.RefreshFailures, c.PollDuration,
	)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }
