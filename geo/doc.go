// Package geo converts the planar coordinates reported by vehicles
// into WGS84 latitude and longitude.
//
// The operator has broadcast positions in two conventions over the
// years: a Lambert conformal conic projection (Lambert 93 by
// default) and plain degrees multiplied by a fixed scale. Both are
// supported and selected by configuration.
package geo
