// Package server exposes the derived feeds over HTTP: binary and
// JSON endpoints per entity kind, a combined feed, health and
// metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/feed"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/metrics"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/realtime"
)

// Server serves the current store snapshots. Responses degrade to an
// empty feed when nothing has been ingested yet; they never error.
type Server struct {
	store *realtime.Store
	http  *http.Server
	log   zerolog.Logger
}

// New builds the HTTP surface on the given port.
func New(port int, store *realtime.Store, collector *metrics.Collector, log zerolog.Logger) *Server {
	s := &Server{store: store, log: log}

	router := httprouter.New()
	router.GET("/gtfs-rt", s.binary(feed.Combined))
	router.GET("/gtfs-rt.json", s.jsonFeed(feed.Combined))
	router.GET("/gtfs-rt/trip-updates", s.binary(feed.TripUpdates))
	router.GET("/gtfs-rt/trip-updates.json", s.jsonFeed(feed.TripUpdates))
	router.GET("/gtfs-rt/vehicle-positions", s.binary(feed.VehiclePositions))
	router.GET("/gtfs-rt/vehicle-positions.json", s.jsonFeed(feed.VehiclePositions))
	router.GET("/health", s.health)
	router.Handler(http.MethodGet, "/metrics", collector.Handler())

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start listens in the background until the context is cancelled,
// then drains with a shutdown grace period.
func (s *Server) Start(ctx context.Context) {
	go func() {
		s.log.Info().Msgf("Server listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Fatal().Err(err).Msg("Server error")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("Server shutdown error")
		}
	}()
}

type buildFunc func(*realtime.Store, time.Time) *gtfsrtpb.FeedMessage

func (s *Server) binary(build buildFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		payload, err := feed.Encode(build(s.store, time.Now()))
		if err != nil {
			s.log.Error().Err(err).Msg("Feed encoding failed")
			http.Error(w, "encoding failure", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		_, _ = w.Write(payload)
	}
}

func (s *Server) jsonFeed(build buildFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		payload, err := feed.EncodeJSON(build(s.store, time.Now()))
		if err != nil {
			s.log.Error().Err(err).Msg("Feed encoding failed")
			http.Error(w, "encoding failure", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	tripUpdates, vehiclePositions := s.store.Len()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":            "ok",
		"trip_updates":      tripUpdates,
		"vehicle_positions": vehiclePositions,
	})
}
