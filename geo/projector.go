package geo

import (
	"fmt"
	"math"

	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/config"
)

// Projector converts raw planar coordinates to WGS84 degrees.
type Projector interface {
	Invert(x, y float64) (lat, lon float64, err error)
}

// NewProjector builds a projector from configuration.
func NewProjector(cfg config.ProjectionConfig) (Projector, error) {
	scale := cfg.UnitScale
	if scale == 0 {
		scale = 1
	}
	switch cfg.Mode {
	case "", "lambert":
		return newLambert(cfg, scale)
	case "scaled-degrees":
		switch cfg.ScaledAxisOrder {
		case "", "lonlat":
			return &scaledDegrees{scale: scale}, nil
		case "latlon":
			return &scaledDegrees{scale: scale, latFirst: true}, nil
		default:
			return nil, fmt.Errorf("unknown scaled axis order %q", cfg.ScaledAxisOrder)
		}
	default:
		return nil, fmt.Errorf("unknown projection mode %q", cfg.Mode)
	}
}

// scaledDegrees handles the older feed convention where coordinates
// are degrees times a constant. The operator emitted lon-first and
// lat-first pairs in different eras, so the axis order is part of the
// configuration.
type scaledDegrees struct {
	scale    float64
	latFirst bool
}

func (p *scaledDegrees) Invert(x, y float64) (float64, float64, error) {
	lon := x / p.scale
	lat := y / p.scale
	if p.latFirst {
		lat, lon = lon, lat
	}
	if err := checkBounds(lat, lon); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

// lambert is the inverse of a two-standard-parallel Lambert conformal
// conic projection on an ellipsoid (Snyder, Map Projections — A
// Working Manual, formulas 15-1..15-11 inverted).
type lambert struct {
	scale float64
	a     float64 // semi-major axis
	e     float64 // first eccentricity
	n     float64 // cone constant
	bigF  float64
	rho0  float64
	lon0  float64 // radians
	fe    float64
	fn    float64
}

func newLambert(cfg config.ProjectionConfig, scale float64) (*lambert, error) {
	if cfg.SemiMajorAxis <= 0 || cfg.InverseFlattening <= 0 {
		return nil, fmt.Errorf("invalid ellipsoid: a=%v 1/f=%v", cfg.SemiMajorAxis, cfg.InverseFlattening)
	}
	f := 1 / cfg.InverseFlattening
	e := math.Sqrt(f * (2 - f))
	phi1 := deg2rad(cfg.StdParallel1)
	phi2 := deg2rad(cfg.StdParallel2)
	phi0 := deg2rad(cfg.OriginLat)

	m1 := conicM(phi1, e)
	m2 := conicM(phi2, e)
	t0 := conicT(phi0, e)
	t1 := conicT(phi1, e)
	t2 := conicT(phi2, e)

	var n float64
	if phi1 == phi2 {
		n = math.Sin(phi1)
	} else {
		n = (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	}
	if n == 0 {
		return nil, fmt.Errorf("degenerate cone constant for parallels %v, %v", cfg.StdParallel1, cfg.StdParallel2)
	}
	bigF := m1 / (n * math.Pow(t1, n))
	return &lambert{
		scale: scale,
		a:     cfg.SemiMajorAxis,
		e:     e,
		n:     n,
		bigF:  bigF,
		rho0:  cfg.SemiMajorAxis * bigF * math.Pow(t0, n),
		lon0:  deg2rad(cfg.OriginLon),
		fe:    cfg.FalseEasting,
		fn:    cfg.FalseNorthing,
	}, nil
}

func (p *lambert) Invert(x, y float64) (float64, float64, error) {
	x = x/p.scale - p.fe
	y = p.rho0 - (y/p.scale - p.fn)

	rho := math.Hypot(x, y)
	if p.n < 0 {
		rho = -rho
		x, y = -x, -y
	}
	if rho == 0 {
		return 0, 0, fmt.Errorf("point at projection origin pole")
	}
	theta := math.Atan2(x, y)
	t := math.Pow(rho/(p.a*p.bigF), 1/p.n)

	lon := theta/p.n + p.lon0
	lat := p.inverseLatitude(t)
	latDeg, lonDeg := rad2deg(lat), rad2deg(lon)
	if err := checkBounds(latDeg, lonDeg); err != nil {
		return 0, 0, err
	}
	return latDeg, lonDeg, nil
}

// inverseLatitude solves t(phi)=t by fixed-point iteration. The
// series converges in a handful of steps for any transit-range
// latitude.
func (p *lambert) inverseLatitude(t float64) float64 {
	phi := math.Pi/2 - 2*math.Atan(t)
	for i := 0; i < 15; i++ {
		es := p.e * math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(t*math.Pow((1-es)/(1+es), p.e/2))
		if math.Abs(next-phi) < 1e-12 {
			return next
		}
		phi = next
	}
	return phi
}

func conicM(phi, e float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-e*e*s*s)
}

func conicT(phi, e float64) float64 {
	s := math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-e*s)/(1+e*s), e/2)
}

func checkBounds(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: lat=%v lon=%v out of range", ErrInvalidCoordinate, lat, lon)
	}
	return nil
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }
