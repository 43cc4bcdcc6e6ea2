package siri

import (
	"strconv"
	"strings"
	"time"

	"github.com/senseyeio/duration"
)

// ParseRef extracts the bare identifier from a structured SIRI
// reference such as "CODESPACE:Line::05:LOC" or
// "CODESPACE:StopPoint:BP:ARGH1:LOC". The identifier is the segment
// before the trailing qualifier. Unstructured values pass through
// unchanged.
func ParseRef(ref string) string {
	parts := strings.Split(ref, ":")
	if len(parts) < 2 {
		return ref
	}
	return parts[len(parts)-2]
}

// ParseDelay converts a SIRI ISO 8601 delay such as "PT2M30S" or
// "-PT45S" into signed seconds. Unparsable values count as zero
// delay.
func ParseDelay(s string) int {
	if s == "" {
		return 0
	}
	neg := strings.HasPrefix(s, "-")
	d, err := duration.ParseISO8601(strings.TrimPrefix(s, "-"))
	if err != nil {
		return 0
	}
	seconds := d.TH*3600 + d.TM*60 + d.TS
	if neg {
		return -seconds
	}
	return seconds
}

// DirectionID maps a SIRI direction name to a GTFS direction id:
// outbound "A" is 0, return "R" is 1, numeric values pass through.
func DirectionID(name string) (int, bool) {
	switch strings.TrimSpace(name) {
	case "A", "a":
		return 0, true
	case "R", "r":
		return 1, true
	}
	if n, err := strconv.Atoi(strings.TrimSpace(name)); err == nil && (n == 0 || n == 1) {
		return n, true
	}
	return 0, false
}

// ParseCallTime parses a monitored-call timestamp. The operator's
// "no report" sentinels and empty fields return false.
func ParseCallTime(s string) (time.Time, bool) {
	if s == "" || s == "no report" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
