package gtfs

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

// LoadSchedule downloads the static dataset zip and indexes it.
func LoadSchedule(ctx context.Context, staticURL, timezone string) (*Schedule, error) {
	tz, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	b, err := fetchZip(ctx, staticURL)
	if err != nil {
		return nil, fmt.Errorf("fetch static dataset: %w", err)
	}
	archive, err := parseZip(b)
	if err != nil {
		return nil, fmt.Errorf("parse static dataset: %w", err)
	}
	return indexArchive(archive, tz), nil
}

// downloadClient bounds the whole zip transfer; datasets are a few
// megabytes at most.
var downloadClient = &http.Client{Timeout: 30 * time.Second}

func fetchZip(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := downloadClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

type tripRecord struct {
	RouteID     string `csv:"route_id"`
	ServiceID   string `csv:"service_id"`
	ID          string `csv:"trip_id"`
	Headsign    string `csv:"trip_headsign"`
	DirectionID int    `csv:"direction_id"`
}

type stopTimeRecord struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  int    `csv:"stop_sequence"`
}

type stopRecord struct {
	ID   string `csv:"stop_id"`
	Name string `csv:"stop_name"`
}

type calendarRecord struct {
	ServiceID string `csv:"service_id"`
	Monday    int    `csv:"monday"`
	Tuesday   int    `csv:"tuesday"`
	Wednesday int    `csv:"wednesday"`
	Thursday  int    `csv:"thursday"`
	Friday    int    `csv:"friday"`
	Saturday  int    `csv:"saturday"`
	Sunday    int    `csv:"sunday"`
	Start     string `csv:"start_date"`
	End       string `csv:"end_date"`
}

type calendarDateRecord struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType int    `csv:"exception_type"`
}

type staticArchive struct {
	Trips         []tripRecord
	StopTimes     []stopTimeRecord
	Stops         []stopRecord
	Calendars     []calendarRecord
	CalendarDates []calendarDateRecord
}

func parseZip(b []byte) (*staticArchive, error) {
	// Allow records with missing trailing columns.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		return r
	})

	reader, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, err
	}

	var archive staticArchive
	fileMap := map[string]interface{}{
		"trips.txt":          &archive.Trips,
		"stop_times.txt":     &archive.StopTimes,
		"stops.txt":          &archive.Stops,
		"calendar.txt":       &archive.Calendars,
		"calendar_dates.txt": &archive.CalendarDates,
	}
	for _, zipFile := range reader.File {
		destination, wanted := fileMap[zipFile.Name]
		if !wanted {
			continue
		}
		file, err := zipFile.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", zipFile.Name, err)
		}
		err = gocsv.Unmarshal(file, destination)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", zipFile.Name, err)
		}
	}
	return &archive, nil
}

func indexArchive(archive *staticArchive, tz *time.Location) *Schedule {
	services := make(map[string]*Service, len(archive.Calendars))
	for _, cal := range archive.Calendars {
		services[cal.ServiceID] = &Service{
			ID: cal.ServiceID,
			Weekdays: [7]bool{
				time.Sunday:    cal.Sunday == 1,
				time.Monday:    cal.Monday == 1,
				time.Tuesday:   cal.Tuesday == 1,
				time.Wednesday: cal.Wednesday == 1,
				time.Thursday:  cal.Thursday == 1,
				time.Friday:    cal.Friday == 1,
				time.Saturday:  cal.Saturday == 1,
			},
			Start: parseGTFSDate(cal.Start),
			End:   parseGTFSDate(cal.End),
		}
	}
	for _, exc := range archive.CalendarDates {
		svc, ok := services[exc.ServiceID]
		if !ok {
			// Services defined by exceptions only, without a weekly row.
			svc = &Service{ID: exc.ServiceID}
			services[exc.ServiceID] = svc
		}
		day := parseGTFSDate(exc.Date)
		if day.IsZero() {
			continue
		}
		switch exc.ExceptionType {
		case 1:
			svc.Added = append(svc.Added, day)
		case 2:
			svc.Removed = append(svc.Removed, day)
		}
	}

	stopNames := make(map[string]string, len(archive.Stops))
	for _, stop := range archive.Stops {
		stopNames[stop.ID] = stop.Name
	}

	callsByTrip := make(map[string][]StopTime, len(archive.Trips))
	for _, rec := range archive.StopTimes {
		departure, ok := parseGTFSTime(rec.DepartureTime)
		if !ok {
			departure, ok = parseGTFSTime(rec.ArrivalTime)
		}
		arrival, arrOK := parseGTFSTime(rec.ArrivalTime)
		if !arrOK {
			arrival = departure
		}
		if !ok && !arrOK {
			continue
		}
		callsByTrip[rec.TripID] = append(callsByTrip[rec.TripID], StopTime{
			StopID:    rec.StopID,
			StopName:  stopNames[rec.StopID],
			Sequence:  rec.StopSequence,
			Arrival:   arrival,
			Departure: departure,
		})
	}

	trips := make([]*Trip, 0, len(archive.Trips))
	for _, rec := range archive.Trips {
		calls := callsByTrip[rec.ID]
		sort.Slice(calls, func(a, b int) bool {
			return calls[a].Sequence < calls[b].Sequence
		})
		trips = append(trips, &Trip{
			ID:          rec.ID,
			RouteID:     rec.RouteID,
			DirectionID: rec.DirectionID,
			Headsign:    rec.Headsign,
			Service:     services[rec.ServiceID],
			StopTimes:   calls,
		})
	}

	s := NewSchedule(tz, trips)
	for id, svc := range services {
		s.Services[id] = svc
	}
	for id, name := range stopNames {
		if name != "" {
			s.stopNames[id] = name
		}
	}
	return s
}

// parseGTFSTime converts a "HH:MM:SS" scheduled time into an offset
// from service-day midnight. Hours of 24 and above encode calls after
// midnight.
func parseGTFSTime(s string) (time.Duration, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	sec, errS := strconv.Atoi(parts[2])
	if errH != nil || errM != nil || errS != nil || h < 0 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, false
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, true
}

// parseGTFSDate converts a "YYYYMMDD" calendar date. Unparsable values
// yield the zero time, which the calendar treats as an open bound.
func parseGTFSDate(s string) time.Time {
	t, err := time.Parse("20060102", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}
