package realtime

import (
	"sort"
	"strconv"
	"sync"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// Store is the concurrency-safe owner of the derived entities.
// Writers (upsert, sweep) insert and remove whole values only, so a
// reader sees each entity either fully or not at all.
type Store struct {
	mu          sync.RWMutex
	tripUpdates map[string]*gtfsrtpb.TripUpdate
	vehicles    map[string]*gtfsrtpb.VehiclePosition
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		tripUpdates: make(map[string]*gtfsrtpb.TripUpdate),
		vehicles:    make(map[string]*gtfsrtpb.VehiclePosition),
	}
}

// UpsertTripUpdate replaces the trip update of a trip. The entity
// must be fully built; the store never mutates it.
func (s *Store) UpsertTripUpdate(tripID string, tu *gtfsrtpb.TripUpdate) {
	s.mu.Lock()
	s.tripUpdates[tripID] = tu
	s.mu.Unlock()
}

// UpsertVehiclePosition replaces the position of a vehicle.
func (s *Store) UpsertVehiclePosition(vehicleID string, vp *gtfsrtpb.VehiclePosition) {
	s.mu.Lock()
	s.vehicles[vehicleID] = vp
	s.mu.Unlock()
}

// TripUpdates returns the current trip updates ordered by trip id.
func (s *Store) TripUpdates() []*gtfsrtpb.TripUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tripUpdates))
	for id := range s.tripUpdates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*gtfsrtpb.TripUpdate, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.tripUpdates[id])
	}
	return out
}

// VehiclePositions returns the current positions ordered by vehicle
// id, numerically when both ids are numbers.
func (s *Store) VehiclePositions() []*gtfsrtpb.VehiclePosition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.vehicles))
	for id := range s.vehicles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return vehicleIDLess(ids[i], ids[j]) })
	out := make([]*gtfsrtpb.VehiclePosition, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.vehicles[id])
	}
	return out
}

// Len returns the current entity counts.
func (s *Store) Len() (tripUpdates, vehiclePositions int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tripUpdates), len(s.vehicles)
}

// Sweep evicts stale entities and reports how many of each kind were
// removed.
//
// A trip update is stale when it carries no stop-time events and its
// snapshot is older than the threshold, or when its final projected
// arrival is further in the past than the threshold. A late trip is
// measured against the projected arrival itself, an early or on-time
// one against the undelayed scheduled time, so early running never
// shortens the retention window.
//
// A vehicle position is stale once its snapshot is older than the
// threshold, except that a vehicle still bound to a trip whose final
// arrival lies in the future is always kept.
func (s *Store) Sweep(now time.Time, threshold time.Duration) (removedTU, removedVP int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, tu := range s.tripUpdates {
		if tripUpdateStale(tu, now, threshold) {
			delete(s.tripUpdates, id)
			removedTU++
		}
	}
	for id, vp := range s.vehicles {
		if s.vehicleStale(vp, now, threshold) {
			delete(s.vehicles, id)
			removedVP++
		}
	}
	return removedTU, removedVP
}

func tripUpdateStale(tu *gtfsrtpb.TripUpdate, now time.Time, threshold time.Duration) bool {
	last := lastStopTimeEvent(tu)
	if last == nil {
		return snapshotAge(tu.GetTimestamp(), now) > threshold
	}
	arrival := time.Unix(last.GetTime(), 0)
	if last.GetDelay() > 0 {
		return now.Sub(arrival) > threshold
	}
	scheduled := arrival.Add(-time.Duration(last.GetDelay()) * time.Second)
	return now.Sub(scheduled) > threshold
}

func (s *Store) vehicleStale(vp *gtfsrtpb.VehiclePosition, now time.Time, threshold time.Duration) bool {
	age := snapshotAge(vp.GetTimestamp(), now)
	if tripID := vp.GetTrip().GetTripId(); tripID != "" {
		if tu, ok := s.tripUpdates[tripID]; ok {
			if last := lastStopTimeEvent(tu); last != nil && time.Unix(last.GetTime(), 0).After(now) {
				return false
			}
		}
	}
	return age > threshold
}

// lastStopTimeEvent returns the final call's arrival, falling back
// to its departure for trips whose last emitted stop has none.
func lastStopTimeEvent(tu *gtfsrtpb.TripUpdate) *gtfsrtpb.TripUpdate_StopTimeEvent {
	updates := tu.GetStopTimeUpdate()
	if len(updates) == 0 {
		return nil
	}
	last := updates[len(updates)-1]
	if last.GetArrival() != nil {
		return last.GetArrival()
	}
	return last.GetDeparture()
}

func snapshotAge(ts uint64, now time.Time) time.Duration {
	return now.Sub(time.Unix(int64(ts), 0))
}

func vehicleIDLess(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}
