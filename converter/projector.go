package converter

import (
	"time"

	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/gtfs"
)

// StopTimeEvent is one projected call of a trip update.
type StopTimeEvent struct {
	StopID       string
	Sequence     int
	Delay        time.Duration
	Time         time.Time
	HasArrival   bool
	HasDeparture bool
}

// rolloverGuard decides when a projected time that precedes the
// reference event belongs to the next calendar day. Half a day keeps
// genuine early-running (a vehicle a few minutes ahead of schedule)
// on the same day.
const rolloverGuard = 12 * time.Hour

// ProjectDelay propagates an observed delay onto the remaining stops
// of a matched trip.
//
// The slice starts at the matched stop while the vehicle is still
// serving it, at the next stop otherwise. Each projected time is the
// scheduled time on the reference service date plus the delay, pushed
// a day forward when the schedule wrapped past midnight. The first
// emitted stop carries no arrival and the last no departure.
func ProjectDelay(trip *gtfs.Trip, matchedIdx int, delay time.Duration, atStop bool, date gtfs.Date, tz *time.Location, reference time.Time) []StopTimeEvent {
	if matchedIdx < 0 || matchedIdx >= len(trip.StopTimes) {
		return nil
	}
	start := matchedIdx
	if !atStop {
		start++
	}
	if start >= len(trip.StopTimes) {
		return nil
	}
	midnight := date.Midnight(tz)
	events := make([]StopTimeEvent, 0, len(trip.StopTimes)-start)
	for i := start; i < len(trip.StopTimes); i++ {
		st := &trip.StopTimes[i]
		projected := midnight.Add(st.Departure).Add(delay)
		if projected.Before(reference.Add(-rolloverGuard)) {
			projected = projected.Add(24 * time.Hour)
		}
		events = append(events, StopTimeEvent{
			StopID:       st.StopID,
			Sequence:     st.Sequence,
			Delay:        delay,
			Time:         projected,
			HasArrival:   i != start,
			HasDeparture: i != len(trip.StopTimes)-1,
		})
	}
	// A one-stop slice is the terminus: keep its arrival.
	if len(events) == 1 {
		events[0].HasArrival = true
	}
	return events
}
