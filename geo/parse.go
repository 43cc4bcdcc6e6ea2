package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidCoordinate marks raw coordinates that cannot be converted
// to a WGS84 position.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// ParsePair splits a raw "x y" coordinate string into two finite
// numbers.
func ParsePair(raw string) (x, y float64, err error) {
	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("%w: pair %q", ErrInvalidCoordinate, raw)
	}
	x, errX := strconv.ParseFloat(fields[0], 64)
	y, errY := strconv.ParseFloat(fields[1], 64)
	if errX != nil || errY != nil || math.IsInf(x, 0) || math.IsInf(y, 0) || math.IsNaN(x) || math.IsNaN(y) {
		return 0, 0, fmt.Errorf("%w: pair %q", ErrInvalidCoordinate, raw)
	}
	return x, y, nil
}
