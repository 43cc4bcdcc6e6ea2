// Package poller drives ingestion: it round-robins the monitored
// lines against the SIRI endpoint under a rate limit, and runs the
// periodic staleness sweep and schedule refresh in the background.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/config"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/converter"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/gtfs"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/metrics"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/realtime"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/siri"
)

// Poller owns the ingestion loop. One line is fetched per cycle;
// failures are retried once and never stop the loop.
type Poller struct {
	cfg       config.AppConfig
	client    *siri.Client
	conv      *converter.Converter
	store     *realtime.Store
	snapshots *gtfs.SnapshotHolder
	collector *metrics.Collector
	log       zerolog.Logger

	mu      sync.Mutex
	lines   []string
	lineIdx int
}

// New wires a poller. The snapshot holder must already carry the
// initial schedule snapshot; see Bootstrap.
func New(cfg config.AppConfig, client *siri.Client, conv *converter.Converter, store *realtime.Store, snapshots *gtfs.SnapshotHolder, collector *metrics.Collector, log zerolog.Logger) *Poller {
	return &Poller{
		cfg:       cfg,
		client:    client,
		conv:      conv,
		store:     store,
		snapshots: snapshots,
		collector: collector,
		log:       log,
	}
}

// Bootstrap loads the initial schedule snapshot and line list. A
// failed lines discovery falls back to the configured refs; a failed
// schedule load is fatal since there is nothing to match against.
func (p *Poller) Bootstrap(ctx context.Context) error {
	schedule, err := gtfs.LoadSchedule(ctx, p.cfg.GTFS.StaticURL, p.cfg.GTFS.Timezone)
	if err != nil {
		return err
	}
	p.publishSnapshot(schedule, time.Now())

	lines, err := p.client.DiscoverLines(ctx)
	if err != nil || len(lines) == 0 {
		p.log.Warn().Err(err).Msg("Lines discovery failed, using configured line refs")
		lines = p.cfg.SIRI.LineRefs
	}
	p.setLines(lines)
	p.log.Info().Msgf("Monitoring %d lines", len(lines))
	return nil
}

// Run blocks until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	go p.sweepLoop(ctx)
	go p.refreshLoop(ctx)

	minInterval := time.Duration(p.cfg.SIRI.MinRequestIntervalMS) * time.Millisecond
	for {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		p.pollNextLine(ctx)
		if remainder := minInterval - time.Since(start); remainder > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(remainder):
			}
		}
	}
}

func (p *Poller) pollNextLine(ctx context.Context) {
	lineRef, ok := p.nextLine()
	if !ok {
		return
	}
	snap := p.snapshots.Load()
	if snap == nil {
		return
	}
	now := time.Now()
	if date := gtfs.ServiceDate(now, snap.Schedule.Timezone); date != snap.Operating.Date {
		p.log.Info().Str("date", date.String()).Msg("Service date changed, recomputing operating set")
		p.publishSnapshot(snap.Schedule, now)
		snap = p.snapshots.Load()
	}

	start := time.Now()
	activities, err := p.fetchWithRetry(ctx, lineRef)
	p.collector.PollDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.collector.SiriRequests.WithLabelValues("error").Inc()
		p.log.Warn().Err(err).Str("line", lineRef).Msg("Vehicle monitoring failed, advancing to next line")
		return
	}
	p.collector.SiriRequests.WithLabelValues("ok").Inc()
	p.conv.Process(activities, snap, time.Now())
}

// fetchWithRetry attempts a line fetch and retries exactly once on
// failure.
func (p *Poller) fetchWithRetry(ctx context.Context, lineRef string) ([]siri.VehicleActivity, error) {
	var activities []siri.VehicleActivity
	op := func() error {
		var err error
		activities, err = p.client.FetchVehicles(ctx, lineRef)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), 1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return activities, nil
}

func (p *Poller) sweepLoop(ctx context.Context) {
	interval := time.Duration(p.cfg.Sweep.IntervalSec) * time.Second
	threshold := time.Duration(p.cfg.Sweep.ThresholdSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removedTU, removedVP := p.store.Sweep(now, threshold)
			if removedTU > 0 || removedVP > 0 {
				p.log.Info().Int("trip_updates", removedTU).Int("vehicle_positions", removedVP).Msg("Swept stale entities")
			}
			p.collector.SweepEvictions.WithLabelValues("trip_update").Add(float64(removedTU))
			p.collector.SweepEvictions.WithLabelValues("vehicle_position").Add(float64(removedVP))
			tripUpdates, vehiclePositions := p.store.Len()
			p.collector.TripUpdates.Set(float64(tripUpdates))
			p.collector.VehiclePositions.Set(float64(vehiclePositions))
		}
	}
}

// refreshLoop reloads the schedule and line list on a long interval.
// Failures keep the last-known-good snapshot.
func (p *Poller) refreshLoop(ctx context.Context) {
	interval := time.Duration(p.cfg.Refresh.IntervalMin) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	schedule, err := gtfs.LoadSchedule(ctx, p.cfg.GTFS.StaticURL, p.cfg.GTFS.Timezone)
	if err != nil {
		p.collector.RefreshFailures.Inc()
		p.log.Warn().Err(err).Msg("Schedule refresh failed, keeping previous snapshot")
	} else {
		p.publishSnapshot(schedule, time.Now())
		p.log.Info().Int("trips", len(schedule.Trips)).Msg("Schedule refreshed")
	}

	lines, err := p.client.DiscoverLines(ctx)
	if err != nil || len(lines) == 0 {
		p.collector.RefreshFailures.Inc()
		p.log.Warn().Err(err).Msg("Lines refresh failed, keeping previous list")
		return
	}
	p.setLines(lines)
}

func (p *Poller) publishSnapshot(schedule *gtfs.Schedule, now time.Time) {
	date := gtfs.ServiceDate(now, schedule.Timezone)
	operating := gtfs.NewOperatingSet(schedule, date)
	p.snapshots.Store(&gtfs.Snapshot{Schedule: schedule, Operating: operating})
	p.collector.OperatingTrips.Set(float64(operating.Size()))
}

func (p *Poller) setLines(lines []string) {
	p.mu.Lock()
	p.lines = lines
	if p.lineIdx >= len(lines) {
		p.lineIdx = 0
	}
	p.mu.Unlock()
}

func (p *Poller) nextLine() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.lines) == 0 {
		return "", false
	}
	line := p.lines[p.lineIdx]
	p.lineIdx = (p.lineIdx + 1) % len(p.lines)
	return line, true
}
