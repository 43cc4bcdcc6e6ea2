package converter

import (
	"strings"
	"time"

	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/config"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/gtfs"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/siri"
)

// Match is a resolved telemetry record: the scheduled trip and the
// index of the monitored call within its stop list.
type Match struct {
	Trip      *gtfs.Trip
	StopIndex int
}

// Matcher resolves telemetry records against an operating set. It is
// a pure function of its inputs; equal inputs in equal order give
// equal results.
type Matcher struct {
	tolerance     time.Duration
	nonCommercial map[string]struct{}
}

// NewMatcher builds a matcher from configuration.
func NewMatcher(cfg config.MatcherConfig) *Matcher {
	nc := make(map[string]struct{}, len(cfg.NonCommercialDestinations))
	for _, name := range cfg.NonCommercialDestinations {
		nc[normalizeName(name)] = struct{}{}
	}
	return &Matcher{
		tolerance:     time.Duration(cfg.ToleranceSec) * time.Second,
		nonCommercial: nc,
	}
}

// Match resolves one telemetry record to a scheduled trip.
//
// Candidates are the operating trips of the record's line and
// direction whose destination equals the announced one, id first and
// name as fallback. Among those containing a stop matching the
// monitored call (by id, name or order), the trip whose schedule at
// that stop is closest to the aimed time wins, first encountered on
// ties. A best Δ above the tolerance is still a failure.
func (m *Matcher) Match(activity *siri.VehicleActivity, snap *gtfs.Snapshot, now time.Time) (Match, MatchReason) {
	mvj := &activity.MonitoredVehicleJourney
	if !mvj.Monitored {
		return Match{}, ReasonNotMonitored
	}
	if mvj.VehicleLocation == nil || mvj.VehicleLocation.Coordinates == "" {
		return Match{}, ReasonNoLocation
	}
	call := mvj.MonitoredCall
	if call == nil {
		return Match{}, ReasonNoMonitoredCall
	}
	if _, ok := m.nonCommercial[normalizeName(mvj.DestinationName)]; ok {
		return Match{}, ReasonNonCommercial
	}
	directionID, ok := siri.DirectionID(mvj.DirectionName)
	if !ok {
		return Match{}, ReasonUnknownDirection
	}

	lineID := siri.ParseRef(mvj.LineRef)
	destID := siri.ParseRef(mvj.DestinationRef)
	candidates := destinationMatches(snap.Operating.Candidates(lineID, directionID), destID, mvj.DestinationName)
	if len(candidates) == 0 {
		return Match{}, ReasonNoCandidates
	}

	aimed, ok := siri.ParseCallTime(call.AimedDepartureTime)
	aimedIsArrival := false
	if !ok {
		aimed, ok = siri.ParseCallTime(call.AimedArrivalTime)
		aimedIsArrival = true
	}
	if !ok {
		return Match{}, ReasonNoAimedTime
	}

	midnight := snap.Operating.Date.Midnight(snap.Schedule.Timezone)
	best := Match{StopIndex: -1}
	bestDelta := time.Duration(-1)
	sawCallMatch := false
	for _, trip := range candidates {
		idx := callStopIndex(trip, call)
		if idx < 0 {
			continue
		}
		sawCallMatch = true
		// Compare the aimed time against the scheduled time of the
		// same kind; the two differ at stops with dwell.
		scheduledOffset := trip.StopTimes[idx].Departure
		if aimedIsArrival {
			scheduledOffset = trip.StopTimes[idx].Arrival
		}
		scheduled := midnight.Add(scheduledOffset)
		delta := aimed.Sub(scheduled)
		if delta < 0 {
			delta = -delta
		}
		if bestDelta < 0 || delta < bestDelta {
			best = Match{Trip: trip, StopIndex: idx}
			bestDelta = delta
		}
	}
	if !sawCallMatch {
		return Match{}, ReasonNoCallMatch
	}
	if bestDelta > m.tolerance {
		return Match{}, ReasonOverTolerance
	}
	return best, MatchOK
}

// destinationMatches keeps the trips whose final stop equals the
// announced destination.
func destinationMatches(trips []*gtfs.Trip, destID, destName string) []*gtfs.Trip {
	out := make([]*gtfs.Trip, 0, len(trips))
	for _, t := range trips {
		last := t.Destination()
		if last == nil {
			continue
		}
		if last.StopID == destID || nameEqual(last.StopName, destName) {
			out = append(out, t)
		}
	}
	return out
}

// callStopIndex finds the stop of a trip matching the monitored
// call, by id first, then name, then declared order.
func callStopIndex(trip *gtfs.Trip, call *siri.MonitoredCall) int {
	stopID := siri.ParseRef(call.StopPointRef)
	for i := range trip.StopTimes {
		st := &trip.StopTimes[i]
		if st.StopID == stopID || nameEqual(st.StopName, call.StopPointName) || (call.Order > 0 && st.Sequence == call.Order) {
			return i
		}
	}
	return -1
}

func nameEqual(a, b string) bool {
	return a != "" && b != "" && normalizeName(a) == normalizeName(b)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
