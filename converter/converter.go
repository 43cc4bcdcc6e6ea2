package converter

import (
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/rs/zerolog"

	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/geo"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/gtfs"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/metrics"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/realtime"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/siri"
)

// Converter drives one telemetry record through matching, delay
// projection and coordinate conversion, and upserts the results.
type Converter struct {
	matcher   *Matcher
	projector geo.Projector
	store     *realtime.Store
	collector *metrics.Collector
	log       zerolog.Logger
}

// New wires a converter. The collector may be nil in tests.
func New(matcher *Matcher, projector geo.Projector, store *realtime.Store, collector *metrics.Collector, log zerolog.Logger) *Converter {
	return &Converter{
		matcher:   matcher,
		projector: projector,
		store:     store,
		collector: collector,
		log:       log,
	}
}

// Process ingests one line's telemetry against a schedule snapshot.
// Every record is handled independently; a bad record never stops
// the batch.
func (c *Converter) Process(activities []siri.VehicleActivity, snap *gtfs.Snapshot, now time.Time) {
	for i := range activities {
		c.processOne(&activities[i], snap, now)
	}
}

func (c *Converter) processOne(activity *siri.VehicleActivity, snap *gtfs.Snapshot, now time.Time) {
	if c.collector != nil {
		c.collector.VehiclesIngested.Inc()
	}
	vehicleID := activity.VehicleID()
	mvj := &activity.MonitoredVehicleJourney

	match, reason := c.matcher.Match(activity, snap, now)
	if c.collector != nil {
		c.collector.MatchOutcomes.WithLabelValues(reason.String()).Inc()
	}
	if reason != MatchOK {
		c.logOutcome(vehicleID, mvj, reason)
		if vp := c.positionOnly(activity, vehicleID, reason); vp != nil {
			c.store.UpsertVehiclePosition(vehicleID, vp)
		}
		return
	}

	trip := match.Trip
	call := mvj.MonitoredCall
	expected, haveExpected := siri.ParseCallTime(call.ExpectedDepartureTime)
	if !haveExpected {
		expected, haveExpected = siri.ParseCallTime(call.ExpectedArrivalTime)
	}
	aimed, haveAimed := siri.ParseCallTime(call.AimedDepartureTime)
	if !haveAimed {
		aimed, _ = siri.ParseCallTime(call.AimedArrivalTime)
	}

	var delay time.Duration
	if haveExpected {
		delay = expected.Sub(aimed)
	} else {
		// The operator sometimes reports no expected times but
		// still announces a delay.
		delay = time.Duration(siri.ParseDelay(mvj.Delay)) * time.Second
		expected = aimed.Add(delay)
	}

	atStop := call.VehicleAtStop || (match.StopIndex == 0 && now.Before(expected))
	events := ProjectDelay(trip, match.StopIndex, delay, atStop, snap.Operating.Date, snap.Schedule.Timezone, expected)

	descriptor := &gtfsrtpb.TripDescriptor{
		TripId:      ptr(trip.ID),
		RouteId:     ptr(trip.RouteID),
		DirectionId: ptr(uint32(trip.DirectionID)),
	}
	vehicle := &gtfsrtpb.VehicleDescriptor{Id: ptr(vehicleID), Label: ptr(vehicleID)}
	recorded := uint64(activity.RecordedAtTime.Unix())

	if len(events) > 0 {
		c.store.UpsertTripUpdate(trip.ID, &gtfsrtpb.TripUpdate{
			Trip:           descriptor,
			Vehicle:        vehicle,
			Timestamp:      ptr(recorded),
			StopTimeUpdate: stopTimeUpdates(events),
		})
	}

	lat, lon, err := c.invertLocation(mvj.VehicleLocation)
	if err != nil {
		c.log.Warn().Err(err).Str("vehicle", vehicleID).Msg("Dropping vehicle position")
		return
	}
	status := gtfsrtpb.VehiclePosition_IN_TRANSIT_TO
	currentSeq := uint32(trip.StopTimes[len(trip.StopTimes)-1].Sequence)
	if len(events) > 0 {
		currentSeq = uint32(events[0].Sequence)
	}
	if atStop || len(events) == 0 {
		status = gtfsrtpb.VehiclePosition_STOPPED_AT
	}
	c.store.UpsertVehiclePosition(vehicleID, &gtfsrtpb.VehiclePosition{
		Trip:    descriptor,
		Vehicle: vehicle,
		Position: &gtfsrtpb.Position{
			Latitude:  ptr(float32(lat)),
			Longitude: ptr(float32(lon)),
			Bearing:   ptr(float32(mvj.Bearing)),
		},
		CurrentStopSequence: ptr(currentSeq),
		CurrentStatus:       &status,
		Timestamp:           ptr(recorded),
	})
}

// positionOnly builds a trip-less vehicle position for records that
// could not be matched but still carry a usable location.
func (c *Converter) positionOnly(activity *siri.VehicleActivity, vehicleID string, reason MatchReason) *gtfsrtpb.VehiclePosition {
	switch reason {
	case ReasonNotMonitored, ReasonNoLocation:
		return nil
	}
	mvj := &activity.MonitoredVehicleJourney
	lat, lon, err := c.invertLocation(mvj.VehicleLocation)
	if err != nil {
		c.log.Warn().Err(err).Str("vehicle", vehicleID).Msg("Dropping vehicle position")
		return nil
	}
	return &gtfsrtpb.VehiclePosition{
		Vehicle: &gtfsrtpb.VehicleDescriptor{Id: ptr(vehicleID), Label: ptr(vehicleID)},
		Position: &gtfsrtpb.Position{
			Latitude:  ptr(float32(lat)),
			Longitude: ptr(float32(lon)),
			Bearing:   ptr(float32(mvj.Bearing)),
		},
		Timestamp: ptr(uint64(activity.RecordedAtTime.Unix())),
	}
}

func (c *Converter) invertLocation(loc *siri.VehicleLocation) (float64, float64, error) {
	x, y, err := geo.ParsePair(loc.Coordinates)
	if err != nil {
		return 0, 0, err
	}
	return c.projector.Invert(x, y)
}

func (c *Converter) logOutcome(vehicleID string, mvj *siri.MonitoredVehicleJourney, reason MatchReason) {
	lineID := siri.ParseRef(mvj.LineRef)
	switch reason {
	case ReasonNoCandidates, ReasonNoCallMatch, ReasonOverTolerance:
		c.log.Warn().
			Str("vehicle", vehicleID).
			Str("line", lineID).
			Str("reason", reason.String()).
			Msg("No trip found for vehicle")
	default:
		c.log.Debug().
			Str("vehicle", vehicleID).
			Str("line", lineID).
			Str("reason", reason.String()).
			Msg("Skipping vehicle")
	}
}

func stopTimeUpdates(events []StopTimeEvent) []*gtfsrtpb.TripUpdate_StopTimeUpdate {
	updates := make([]*gtfsrtpb.TripUpdate_StopTimeUpdate, 0, len(events))
	for _, ev := range events {
		update := &gtfsrtpb.TripUpdate_StopTimeUpdate{
			StopId:               ptr(ev.StopID),
			StopSequence:         ptr(uint32(ev.Sequence)),
			ScheduleRelationship: ptr(gtfsrtpb.TripUpdate_StopTimeUpdate_SCHEDULED),
		}
		event := &gtfsrtpb.TripUpdate_StopTimeEvent{
			Delay: ptr(int32(ev.Delay / time.Second)),
			Time:  ptr(ev.Time.Unix()),
		}
		if ev.HasArrival {
			update.Arrival = event
		}
		if ev.HasDeparture {
			update.Departure = event
		}
		updates = append(updates, update)
	}
	return updates
}

// ptr returns a pointer to v, for proto literal fields.
func ptr[T any](v T) *T { return &v }
