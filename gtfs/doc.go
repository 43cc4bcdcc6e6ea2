// Package gtfs holds the in-memory static schedule and the
// operating-set resolver.
//
// The dataset zip is decoded file by file with gocsv and indexed for
// the lookups the matcher needs: trips grouped by line
// and direction, and per-service calendar checks where the
// calendar_dates exceptions take precedence over the weekly pattern.
package gtfs
