package realtime

import (
	"testing"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

var now = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

const threshold = 600 * time.Second

func tripUpdate(tripID string, snapshot time.Time, lastDelay int32, lastArrival time.Time) *gtfsrtpb.TripUpdate {
	return &gtfsrtpb.TripUpdate{
		Trip:      &gtfsrtpb.TripDescriptor{TripId: ptr(tripID)},
		Timestamp: ptr(uint64(snapshot.Unix())),
		StopTimeUpdate: []*gtfsrtpb.TripUpdate_StopTimeUpdate{
			{
				StopId:  ptr("S9"),
				Arrival: &gtfsrtpb.TripUpdate_StopTimeEvent{Delay: ptr(lastDelay), Time: ptr(lastArrival.Unix())},
			},
		},
	}
}

func vehiclePosition(vehicleID, tripID string, snapshot time.Time) *gtfsrtpb.VehiclePosition {
	vp := &gtfsrtpb.VehiclePosition{
		Vehicle:   &gtfsrtpb.VehicleDescriptor{Id: ptr(vehicleID)},
		Timestamp: ptr(uint64(snapshot.Unix())),
	}
	if tripID != "" {
		vp.Trip = &gtfsrtpb.TripDescriptor{TripId: ptr(tripID)}
	}
	return vp
}

func TestUpsertVisibleInSnapshot(t *testing.T) {
	store := NewStore()
	store.UpsertTripUpdate("T1", tripUpdate("T1", now, 60, now.Add(10*time.Minute)))
	store.UpsertVehiclePosition("412", vehiclePosition("412", "T1", now))

	require.Len(t, store.TripUpdates(), 1)
	require.Len(t, store.VehiclePositions(), 1)
	assert.Equal(t, "T1", store.TripUpdates()[0].GetTrip().GetTripId())

	// Replacing an entry keeps a single entity.
	store.UpsertTripUpdate("T1", tripUpdate("T1", now.Add(time.Minute), 30, now.Add(11*time.Minute)))
	require.Len(t, store.TripUpdates(), 1)
	assert.Equal(t, int32(30), store.TripUpdates()[0].GetStopTimeUpdate()[0].GetArrival().GetDelay())
}

func TestSnapshotOrdering(t *testing.T) {
	store := NewStore()
	store.UpsertTripUpdate("T2", tripUpdate("T2", now, 0, now))
	store.UpsertTripUpdate("T1", tripUpdate("T1", now, 0, now))
	store.UpsertVehiclePosition("100", vehiclePosition("100", "", now))
	store.UpsertVehiclePosition("12", vehiclePosition("12", "", now))
	store.UpsertVehiclePosition("9", vehiclePosition("9", "", now))

	updates := store.TripUpdates()
	assert.Equal(t, "T1", updates[0].GetTrip().GetTripId())
	assert.Equal(t, "T2", updates[1].GetTrip().GetTripId())

	positions := store.VehiclePositions()
	ids := []string{
		positions[0].GetVehicle().GetId(),
		positions[1].GetVehicle().GetId(),
		positions[2].GetVehicle().GetId(),
	}
	assert.Equal(t, []string{"9", "12", "100"}, ids)
}

func TestSweepLateTripUpdate(t *testing.T) {
	store := NewStore()
	// Delay +300s, final arrival 601s in the past: stale.
	store.UpsertTripUpdate("GONE", tripUpdate("GONE", now, 300, now.Add(-601*time.Second)))
	// Same delay, arrival 599s in the past: kept.
	store.UpsertTripUpdate("KEPT", tripUpdate("KEPT", now, 300, now.Add(-599*time.Second)))

	removedTU, _ := store.Sweep(now, threshold)
	assert.Equal(t, 1, removedTU)
	require.Len(t, store.TripUpdates(), 1)
	assert.Equal(t, "KEPT", store.TripUpdates()[0].GetTrip().GetTripId())
}

func TestSweepEarlyTripUpdateUsesScheduledTime(t *testing.T) {
	store := NewStore()
	// Early runner: arrival 601s past, but the undelayed scheduled
	// time is only 301s past.
	store.UpsertTripUpdate("KEPT", tripUpdate("KEPT", now, -300, now.Add(-601*time.Second)))
	// Scheduled time 601s past once the early delay is backed out.
	store.UpsertTripUpdate("GONE", tripUpdate("GONE", now, -300, now.Add(-901*time.Second)))

	removedTU, _ := store.Sweep(now, threshold)
	assert.Equal(t, 1, removedTU)
	require.Len(t, store.TripUpdates(), 1)
	assert.Equal(t, "KEPT", store.TripUpdates()[0].GetTrip().GetTripId())
}

func TestSweepEventlessTripUpdate(t *testing.T) {
	store := NewStore()
	stale := &gtfsrtpb.TripUpdate{
		Trip:      &gtfsrtpb.TripDescriptor{TripId: ptr("EMPTY")},
		Timestamp: ptr(uint64(now.Add(-601 * time.Second).Unix())),
	}
	store.UpsertTripUpdate("EMPTY", stale)

	removedTU, _ := store.Sweep(now, threshold)
	assert.Equal(t, 1, removedTU)
	assert.Empty(t, store.TripUpdates())
}

func TestSweepVehicleWithoutTrip(t *testing.T) {
	store := NewStore()
	store.UpsertVehiclePosition("OLD", vehiclePosition("OLD", "", now.Add(-601*time.Second)))
	store.UpsertVehiclePosition("FRESH", vehiclePosition("FRESH", "", now.Add(-599*time.Second)))

	_, removedVP := store.Sweep(now, threshold)
	assert.Equal(t, 1, removedVP)
	require.Len(t, store.VehiclePositions(), 1)
	assert.Equal(t, "FRESH", store.VehiclePositions()[0].GetVehicle().GetId())
}

func TestSweepVehicleKeptWhileTripOngoing(t *testing.T) {
	store := NewStore()
	// The bound trip still has its final arrival in the future, so
	// the old position survives.
	store.UpsertTripUpdate("T1", tripUpdate("T1", now, 120, now.Add(20*time.Minute)))
	store.UpsertVehiclePosition("412", vehiclePosition("412", "T1", now.Add(-2*threshold)))

	_, removedVP := store.Sweep(now, threshold)
	assert.Zero(t, removedVP)
	require.Len(t, store.VehiclePositions(), 1)
}

func TestSweepVehicleEvictedAfterTripEnds(t *testing.T) {
	store := NewStore()
	store.UpsertTripUpdate("T1", tripUpdate("T1", now, 0, now.Add(-time.Minute)))
	store.UpsertVehiclePosition("412", vehiclePosition("412", "T1", now.Add(-2*threshold)))

	_, removedVP := store.Sweep(now, threshold)
	assert.Equal(t, 1, removedVP)
	assert.Empty(t, store.VehiclePositions())
}
