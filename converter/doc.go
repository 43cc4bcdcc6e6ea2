// Package converter turns raw vehicle telemetry into realtime feed
// entities: it resolves each record to a scheduled trip, projects the
// observed delay onto the trip's remaining stops, converts the
// reported position to WGS84 and upserts the results into the store.
package converter
