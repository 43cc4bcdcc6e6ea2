package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/metrics"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/realtime"
)

func ptr[T any](v T) *T { return &v }

func testServer(t *testing.T) (*Server, *realtime.Store) {
	t.Helper()
	store := realtime.NewStore()
	return New(0, store, metrics.NewCollector(), zerolog.Nop()), store
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	return rec
}

func TestBinaryFeedEmptyStore(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s, "/gtfs-rt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-protobuf", rec.Header().Get("Content-Type"))

	var msg gtfsrtpb.FeedMessage
	require.NoError(t, proto.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "2.0", msg.Header.GetGtfsRealtimeVersion())
	assert.Empty(t, msg.Entity)
}

func TestFeedRoutesFilterByKind(t *testing.T) {
	s, store := testServer(t)
	store.UpsertTripUpdate("T1", &gtfsrtpb.TripUpdate{
		Trip: &gtfsrtpb.TripDescriptor{TripId: ptr("T1")},
	})
	store.UpsertVehiclePosition("412", &gtfsrtpb.VehiclePosition{
		Vehicle: &gtfsrtpb.VehicleDescriptor{Id: ptr("412")},
	})

	var msg gtfsrtpb.FeedMessage
	rec := get(t, s, "/gtfs-rt/trip-updates")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, proto.Unmarshal(rec.Body.Bytes(), &msg))
	require.Len(t, msg.Entity, 1)
	assert.Equal(t, "SM:T1", msg.Entity[0].GetId())

	rec = get(t, s, "/gtfs-rt/vehicle-positions")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, proto.Unmarshal(rec.Body.Bytes(), &msg))
	require.Len(t, msg.Entity, 1)
	assert.Equal(t, "VM:412", msg.Entity[0].GetId())

	rec = get(t, s, "/gtfs-rt")
	require.NoError(t, proto.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Len(t, msg.Entity, 2)
}

func TestJSONFeed(t *testing.T) {
	s, store := testServer(t)
	store.UpsertTripUpdate("T1", &gtfsrtpb.TripUpdate{
		Trip: &gtfsrtpb.TripDescriptor{TripId: ptr("T1")},
	})

	rec := get(t, s, "/gtfs-rt.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "SM:T1")
}

func TestHealth(t *testing.T) {
	s, store := testServer(t)
	store.UpsertVehiclePosition("412", &gtfsrtpb.VehiclePosition{
		Vehicle: &gtfsrtpb.VehicleDescriptor{Id: ptr("412")},
	})

	rec := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["trip_updates"])
	assert.Equal(t, float64(1), body["vehicle_positions"])
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bridge_trip_updates")
}
