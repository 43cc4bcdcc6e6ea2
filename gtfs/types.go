package gtfs

import (
	"fmt"
	"sync"
	"time"
)

// serviceDayCutoff shifts the civil date used as the service date:
// trips running after midnight belong to the previous service day
// until this hour.
const serviceDayCutoff = 4*time.Hour + 30*time.Minute

// Date is a civil date in the operator's timezone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the civil date of t in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ServiceDate returns the service date for the instant now: the civil
// date of now minus the after-midnight cutoff, in tz.
func ServiceDate(now time.Time, tz *time.Location) Date {
	return DateOf(now.In(tz).Add(-serviceDayCutoff))
}

// Midnight returns the start of the date in tz. Scheduled stop times
// are offsets from this instant, so values of 24h and more land on
// the following civil day.
func (d Date) Midnight(tz *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, tz)
}

// Weekday returns the day of week of the date.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

func (d Date) String() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}

// StopTime is one scheduled call of a trip.
type StopTime struct {
	StopID   string
	StopName string
	Sequence int
	// Arrival and Departure are offsets from service-day midnight.
	// Values of 24h and more denote calls after midnight.
	Arrival   time.Duration
	Departure time.Duration
}

// Trip is a scheduled trip with its ordered calls.
type Trip struct {
	ID          string
	RouteID     string
	DirectionID int
	Headsign    string
	Service     *Service
	StopTimes   []StopTime
}

// Destination returns the last call of the trip, the one a
// destination announced by the vehicle is compared against.
func (t *Trip) Destination() *StopTime {
	if len(t.StopTimes) == 0 {
		return nil
	}
	return &t.StopTimes[len(t.StopTimes)-1]
}

// Service is a calendar entry with its exception dates.
type Service struct {
	ID       string
	Weekdays [7]bool
	Start    time.Time
	End      time.Time
	Added    []time.Time
	Removed  []time.Time

	// Calendar checks repeat for every candidate trip of a poll
	// cycle, almost always for the same date. One memoized slot per
	// service covers that.
	mu       sync.Mutex
	memoDate Date
	memoOK   bool
	memoSet  bool
}

// OperatesOn reports whether the service runs on date. An excluded
// exception wins over an included one, and both win over the date
// range and weekly pattern.
func (s *Service) OperatesOn(date Date) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memoSet && s.memoDate == date {
		return s.memoOK
	}
	ok := s.operatesOn(date)
	s.memoDate = date
	s.memoOK = ok
	s.memoSet = true
	return ok
}

func (s *Service) operatesOn(date Date) bool {
	day := date.Midnight(time.UTC)
	for _, d := range s.Removed {
		if sameCivilDay(d, day) {
			return false
		}
	}
	for _, d := range s.Added {
		if sameCivilDay(d, day) {
			return true
		}
	}
	if !s.Start.IsZero() && day.Before(s.Start) {
		return false
	}
	if !s.End.IsZero() && day.After(s.End) {
		return false
	}
	return s.Weekdays[date.Weekday()]
}

func sameCivilDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Schedule is the indexed static dataset.
type Schedule struct {
	Timezone *time.Location
	Trips    map[string]*Trip
	Services map[string]*Service
	// byLineDirection groups trips under "routeId:directionId".
	byLineDirection map[string][]*Trip
	stopNames       map[string]string
}

func lineDirectionKey(routeID string, directionID int) string {
	return fmt.Sprintf("%s:%d", routeID, directionID)
}

// NewSchedule indexes trips for matching lookups. Stop names are
// collected from the trips' own calls; LoadSchedule overlays names
// of stops not served by any trip.
func NewSchedule(tz *time.Location, trips []*Trip) *Schedule {
	s := &Schedule{
		Timezone:        tz,
		Trips:           make(map[string]*Trip, len(trips)),
		Services:        make(map[string]*Service),
		byLineDirection: make(map[string][]*Trip),
		stopNames:       make(map[string]string),
	}
	for _, t := range trips {
		s.Trips[t.ID] = t
		if t.Service != nil {
			s.Services[t.Service.ID] = t.Service
		}
		for i := range t.StopTimes {
			st := &t.StopTimes[i]
			if st.StopName != "" {
				s.stopNames[st.StopID] = st.StopName
			}
		}
		key := lineDirectionKey(t.RouteID, t.DirectionID)
		s.byLineDirection[key] = append(s.byLineDirection[key], t)
	}
	return s
}

// TripsFor returns the trips of a line in a direction, in dataset
// order.
func (s *Schedule) TripsFor(routeID string, directionID int) []*Trip {
	return s.byLineDirection[lineDirectionKey(routeID, directionID)]
}

// StopName resolves a stop id to its name, empty when unknown.
func (s *Schedule) StopName(stopID string) string {
	return s.stopNames[stopID]
}

// OperatingSet is the subset of the schedule that runs on one service
// date, grouped for candidate lookup.
type OperatingSet struct {
	Date  Date
	byKey map[string][]*Trip
}

// NewOperatingSet filters the schedule down to the trips whose
// service operates on date.
func NewOperatingSet(s *Schedule, date Date) *OperatingSet {
	set := &OperatingSet{Date: date, byKey: make(map[string][]*Trip)}
	for key, trips := range s.byLineDirection {
		for _, t := range trips {
			if t.Service != nil && t.Service.OperatesOn(date) {
				set.byKey[key] = append(set.byKey[key], t)
			}
		}
	}
	return set
}

// Candidates returns the operating trips of a line in a direction.
func (o *OperatingSet) Candidates(routeID string, directionID int) []*Trip {
	return o.byKey[lineDirectionKey(routeID, directionID)]
}

// Size returns the number of operating trips across all lines.
func (o *OperatingSet) Size() int {
	n := 0
	for _, trips := range o.byKey {
		n += len(trips)
	}
	return n
}
