// Package feed renders the store's entities as GTFS-RT feed
// messages, in the binary wire format and the protojson equivalent.
package feed

import (
	"fmt"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/realtime"
)

// TripUpdates builds a full-dataset feed of the current trip updates.
func TripUpdates(store *realtime.Store, now time.Time) *gtfsrtpb.FeedMessage {
	return &gtfsrtpb.FeedMessage{
		Header: header(now),
		Entity: tripUpdateEntities(store),
	}
}

// VehiclePositions builds a full-dataset feed of the current vehicle
// positions.
func VehiclePositions(store *realtime.Store, now time.Time) *gtfsrtpb.FeedMessage {
	return &gtfsrtpb.FeedMessage{
		Header: header(now),
		Entity: vehicleEntities(store),
	}
}

// Combined builds one feed carrying both entity kinds, trip updates
// first.
func Combined(store *realtime.Store, now time.Time) *gtfsrtpb.FeedMessage {
	entities := tripUpdateEntities(store)
	entities = append(entities, vehicleEntities(store)...)
	return &gtfsrtpb.FeedMessage{
		Header: header(now),
		Entity: entities,
	}
}

// Encode serializes a feed message to the binary wire format.
func Encode(msg *gtfsrtpb.FeedMessage) ([]byte, error) {
	return proto.Marshal(msg)
}

// EncodeJSON serializes a feed message to its canonical JSON form.
func EncodeJSON(msg *gtfsrtpb.FeedMessage) ([]byte, error) {
	return protojson.Marshal(msg)
}

func header(now time.Time) *gtfsrtpb.FeedHeader {
	return &gtfsrtpb.FeedHeader{
		GtfsRealtimeVersion: ptr("2.0"),
		Incrementality:      ptr(gtfsrtpb.FeedHeader_FULL_DATASET),
		Timestamp:           ptr(uint64(now.Unix())),
	}
}

func tripUpdateEntities(store *realtime.Store) []*gtfsrtpb.FeedEntity {
	updates := store.TripUpdates()
	entities := make([]*gtfsrtpb.FeedEntity, 0, len(updates))
	for _, tu := range updates {
		entities = append(entities, &gtfsrtpb.FeedEntity{
			Id:         ptr(fmt.Sprintf("SM:%s", tu.GetTrip().GetTripId())),
			TripUpdate: tu,
		})
	}
	return entities
}

func vehicleEntities(store *realtime.Store) []*gtfsrtpb.FeedEntity {
	positions := store.VehiclePositions()
	entities := make([]*gtfsrtpb.FeedEntity, 0, len(positions))
	for _, vp := range positions {
		entities = append(entities, &gtfsrtpb.FeedEntity{
			Id:      ptr(fmt.Sprintf("VM:%s", vp.GetVehicle().GetId())),
			Vehicle: vp,
		})
	}
	return entities
}

func ptr[T any](v T) *T { return &v }
