package config

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0"`
}

// GTFSConfig contains the static schedule source configuration
type GTFSConfig struct {
	StaticURL string `yaml:"staticURL" validate:"required"`
	Timezone  string `yaml:"timezone"`
}

// SIRIConfig contains the vehicle-monitoring endpoint configuration
type SIRIConfig struct {
	Endpoint             string   `yaml:"endpoint" validate:"required,url"`
	RequestorRef         string   `yaml:"requestorRef"`
	MinRequestIntervalMS int      `yaml:"minRequestIntervalMS" validate:"gte=0"`
	TimeoutMS            int      `yaml:"timeoutMS" validate:"gte=0"`
	// LineRefs is the fallback monitored-line list, used when lines
	// discovery fails at startup.
	LineRefs []string `yaml:"lineRefs"`
}

// MatcherConfig contains trip-matching tuning
type MatcherConfig struct {
	ToleranceSec int `yaml:"toleranceSec" validate:"gte=0"`
	// NonCommercialDestinations lists the operator's sentinel
	// destination names for dead runs (depot trips, driver breaks).
	NonCommercialDestinations []string `yaml:"nonCommercialDestinations"`
}

// SweepConfig controls staleness eviction of realtime entities
type SweepConfig struct {
	ThresholdSec int `yaml:"thresholdSec" validate:"gte=0"`
	IntervalSec  int `yaml:"intervalSec" validate:"gte=0"`
}

// RefreshConfig controls schedule and line-list refresh cadence
type RefreshConfig struct {
	IntervalMin int `yaml:"intervalMin" validate:"gte=0"`
}

// ProjectionConfig describes the operator's planar coordinate system.
// The operator has changed projection and unit conventions over time,
// so every parameter stays configurable.
type ProjectionConfig struct {
	Mode string `yaml:"mode" validate:"omitempty,oneof=lambert scaled-degrees"`

	// Lambert conformal conic parameters (mode: lambert). Angles in
	// decimal degrees, distances in meters.
	SemiMajorAxis     float64 `yaml:"semiMajorAxis"`
	InverseFlattening float64 `yaml:"inverseFlattening"`
	StdParallel1      float64 `yaml:"stdParallel1"`
	StdParallel2      float64 `yaml:"stdParallel2"`
	OriginLat         float64 `yaml:"originLat"`
	OriginLon         float64 `yaml:"originLon"`
	FalseEasting      float64 `yaml:"falseEasting"`
	FalseNorthing     float64 `yaml:"falseNorthing"`

	// UnitScale divides both raw coordinate fields before the inverse
	// transform. In scaled-degrees mode the division alone yields
	// longitude/latitude.
	UnitScale float64 `yaml:"unitScale"`

	// ScaledAxisOrder names the axis of the first raw field in
	// scaled-degrees mode. The operator's feeds have emitted both
	// orders over the years, so the era in service must be configured.
	ScaledAxisOrder string `yaml:"scaledAxisOrder" validate:"omitempty,oneof=lonlat latlon"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	GTFS       GTFSConfig       `yaml:"gtfs" validate:"required"`
	SIRI       SIRIConfig       `yaml:"siri" validate:"required"`
	Matcher    MatcherConfig    `yaml:"matcher"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Projection ProjectionConfig `yaml:"projection"`
}
