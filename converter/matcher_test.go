package converter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/config"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/gtfs"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/siri"
)

var allDays = &gtfs.Service{
	ID:       "DAILY",
	Weekdays: [7]bool{true, true, true, true, true, true, true},
	Start:    time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	End:      time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
}

// testSnapshot builds a snapshot for Monday 2026-06-01 in UTC.
func testSnapshot(t *testing.T, trips ...*gtfs.Trip) *gtfs.Snapshot {
	t.Helper()
	schedule := gtfs.NewSchedule(time.UTC, trips)
	operating := gtfs.NewOperatingSet(schedule, gtfs.Date{Year: 2026, Month: time.June, Day: 1})
	return &gtfs.Snapshot{Schedule: schedule, Operating: operating}
}

func lineTrip(id string, departures ...time.Duration) *gtfs.Trip {
	stops := []gtfs.StopTime{
		{StopID: "S1", StopName: "Gare", Sequence: 1},
		{StopID: "S2", StopName: "Mairie", Sequence: 2},
		{StopID: "S3", StopName: "Université", Sequence: 3},
		{StopID: "S4", StopName: "Piscine", Sequence: 4},
		{StopID: "Z", StopName: "Terminus", Sequence: 5},
	}
	for i := range stops {
		stops[i].Departure = departures[i]
		stops[i].Arrival = departures[i]
	}
	return &gtfs.Trip{ID: id, RouteID: "03", DirectionID: 0, Service: allDays, StopTimes: stops}
}

func testActivity() siri.VehicleActivity {
	return siri.VehicleActivity{
		RecordedAtTime: time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC),
		MonitoredVehicleJourney: siri.MonitoredVehicleJourney{
			LineRef:         "DEMO:Line::03:LOC",
			DirectionName:   "A",
			DestinationRef:  "DEMO:StopPoint::Z:LOC",
			DestinationName: "Terminus",
			VehicleRef:      "DEMO:Vehicle::412:LOC",
			Monitored:       true,
			VehicleLocation: &siri.VehicleLocation{Coordinates: "700000 6600000"},
			MonitoredCall: &siri.MonitoredCall{
				StopPointRef:       "DEMO:StopPoint::S4:LOC",
				StopPointName:      "Piscine",
				Order:              4,
				AimedDepartureTime: "2026-06-01T08:00:00Z",
			},
		},
	}
}

func defaultMatcher() *Matcher {
	return NewMatcher(config.MatcherConfig{ToleranceSec: 120, NonCommercialDestinations: []string{"Dépôt", "Pause conducteur"}})
}

func TestMatchSelectsSmallestDelta(t *testing.T) {
	// T1's schedule at the monitored stop is 30s off the aimed time,
	// T2's is 90s off.
	near := lineTrip("T1", 7*time.Hour, 7*time.Hour+20*time.Minute, 7*time.Hour+40*time.Minute, 8*time.Hour+30*time.Second, 8*time.Hour+20*time.Minute)
	far := lineTrip("T2", 7*time.Hour, 7*time.Hour+20*time.Minute, 7*time.Hour+40*time.Minute, 7*time.Hour+58*time.Minute+30*time.Second, 8*time.Hour+20*time.Minute)
	snap := testSnapshot(t, near, far)

	activity := testActivity()
	match, reason := defaultMatcher().Match(&activity, snap, activity.RecordedAtTime)
	require.Equal(t, MatchOK, reason)
	assert.Equal(t, "T1", match.Trip.ID)
	assert.Equal(t, 3, match.StopIndex)
}

func TestMatchOverToleranceIsNotFound(t *testing.T) {
	// Single candidate, 150s off with a 120s tolerance.
	only := lineTrip("T1", 7*time.Hour, 7*time.Hour+20*time.Minute, 7*time.Hour+40*time.Minute, 8*time.Hour+150*time.Second, 8*time.Hour+20*time.Minute)
	snap := testSnapshot(t, only)

	activity := testActivity()
	_, reason := defaultMatcher().Match(&activity, snap, activity.RecordedAtTime)
	assert.Equal(t, ReasonOverTolerance, reason)
}

func TestMatchTieBreakFirstEncountered(t *testing.T) {
	a := lineTrip("T1", 7*time.Hour, 7*time.Hour+20*time.Minute, 7*time.Hour+40*time.Minute, 8*time.Hour+time.Minute, 8*time.Hour+20*time.Minute)
	b := lineTrip("T2", 7*time.Hour, 7*time.Hour+20*time.Minute, 7*time.Hour+40*time.Minute, 8*time.Hour+time.Minute, 8*time.Hour+20*time.Minute)
	snap := testSnapshot(t, a, b)

	activity := testActivity()
	match, reason := defaultMatcher().Match(&activity, snap, activity.RecordedAtTime)
	require.Equal(t, MatchOK, reason)
	assert.Equal(t, "T1", match.Trip.ID)
}

func TestMatchDestinationNameFallback(t *testing.T) {
	trip := lineTrip("T1", 7*time.Hour, 7*time.Hour+20*time.Minute, 7*time.Hour+40*time.Minute, 8*time.Hour, 8*time.Hour+20*time.Minute)
	snap := testSnapshot(t, trip)

	activity := testActivity()
	// Destination ref does not resolve, name still does.
	activity.MonitoredVehicleJourney.DestinationRef = "DEMO:StopPoint::UNKNOWN:LOC"
	activity.MonitoredVehicleJourney.DestinationName = "terminus"

	match, reason := defaultMatcher().Match(&activity, snap, activity.RecordedAtTime)
	require.Equal(t, MatchOK, reason)
	assert.Equal(t, "T1", match.Trip.ID)
}

func TestMatchCallByOrderFallback(t *testing.T) {
	trip := lineTrip("T1", 7*time.Hour, 7*time.Hour+20*time.Minute, 7*time.Hour+40*time.Minute, 8*time.Hour, 8*time.Hour+20*time.Minute)
	snap := testSnapshot(t, trip)

	activity := testActivity()
	activity.MonitoredVehicleJourney.MonitoredCall.StopPointRef = "DEMO:StopPoint::UNKNOWN:LOC"
	activity.MonitoredVehicleJourney.MonitoredCall.StopPointName = ""

	match, reason := defaultMatcher().Match(&activity, snap, activity.RecordedAtTime)
	require.Equal(t, MatchOK, reason)
	assert.Equal(t, 3, match.StopIndex)
}

func TestMatchAimedArrivalFallback(t *testing.T) {
	trip := lineTrip("T1", 7*time.Hour, 7*time.Hour+20*time.Minute, 7*time.Hour+40*time.Minute, 8*time.Hour, 8*time.Hour+20*time.Minute)
	snap := testSnapshot(t, trip)

	activity := testActivity()
	activity.MonitoredVehicleJourney.MonitoredCall.AimedDepartureTime = ""
	activity.MonitoredVehicleJourney.MonitoredCall.AimedArrivalTime = "2026-06-01T08:00:20Z"

	_, reason := defaultMatcher().Match(&activity, snap, activity.RecordedAtTime)
	assert.Equal(t, MatchOK, reason)
}

func TestMatchAimedArrivalComparesScheduledArrival(t *testing.T) {
	// A dwell at the monitored stop: arrival 08:00, departure 08:03.
	// The aimed arrival is 30s off the scheduled arrival but 150s off
	// the departure, so comparing like with like is what keeps the
	// match inside the 120s tolerance.
	trip := lineTrip("T1", 7*time.Hour, 7*time.Hour+20*time.Minute, 7*time.Hour+40*time.Minute, 8*time.Hour+3*time.Minute, 8*time.Hour+20*time.Minute)
	trip.StopTimes[3].Arrival = 8 * time.Hour
	snap := testSnapshot(t, trip)

	activity := testActivity()
	activity.MonitoredVehicleJourney.MonitoredCall.AimedDepartureTime = ""
	activity.MonitoredVehicleJourney.MonitoredCall.AimedArrivalTime = "2026-06-01T08:00:30Z"

	match, reason := defaultMatcher().Match(&activity, snap, activity.RecordedAtTime)
	require.Equal(t, MatchOK, reason)
	assert.Equal(t, "T1", match.Trip.ID)
	assert.Equal(t, 3, match.StopIndex)
}

func TestMatchPreconditions(t *testing.T) {
	trip := lineTrip("T1", 7*time.Hour, 7*time.Hour+20*time.Minute, 7*time.Hour+40*time.Minute, 8*time.Hour, 8*time.Hour+20*time.Minute)
	snap := testSnapshot(t, trip)
	m := defaultMatcher()

	cases := []struct {
		name   string
		mutate func(*siri.VehicleActivity)
		want   MatchReason
	}{
		{"unmonitored", func(a *siri.VehicleActivity) { a.MonitoredVehicleJourney.Monitored = false }, ReasonNotMonitored},
		{"no location", func(a *siri.VehicleActivity) { a.MonitoredVehicleJourney.VehicleLocation = nil }, ReasonNoLocation},
		{"no call", func(a *siri.VehicleActivity) { a.MonitoredVehicleJourney.MonitoredCall = nil }, ReasonNoMonitoredCall},
		{"non-commercial destination", func(a *siri.VehicleActivity) { a.MonitoredVehicleJourney.DestinationName = "dépôt" }, ReasonNonCommercial},
		{"unknown direction", func(a *siri.VehicleActivity) { a.MonitoredVehicleJourney.DirectionName = "X" }, ReasonUnknownDirection},
		{"unknown line", func(a *siri.VehicleActivity) { a.MonitoredVehicleJourney.LineRef = "DEMO:Line::99:LOC" }, ReasonNoCandidates},
		{"no aimed time", func(a *siri.VehicleActivity) { a.MonitoredVehicleJourney.MonitoredCall.AimedDepartureTime = "no report" }, ReasonNoAimedTime},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			activity := testActivity()
			tc.mutate(&activity)
			_, reason := m.Match(&activity, snap, activity.RecordedAtTime)
			assert.Equal(t, tc.want, reason)
		})
	}
}
