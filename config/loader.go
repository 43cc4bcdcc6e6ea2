package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the global application configuration
var Config AppConfig

// LoadAppConfig loads and validates the application configuration.
// The config file path can be overridden with SIRI_GTFSRT_CONFIG.
func LoadAppConfig() error {
	_ = godotenv.Load()

	paths := []string{"config.yml", "./config/config.yml"}
	if p := os.Getenv("SIRI_GTFSRT_CONFIG"); p != "" {
		paths = []string{p}
	}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	applyDefaults(&cfg)
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return err
	}
	Config = cfg
	return nil
}

func applyDefaults(c *AppConfig) {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.GTFS.Timezone == "" {
		c.GTFS.Timezone = "Europe/Paris"
	}
	if c.SIRI.RequestorRef == "" {
		c.SIRI.RequestorRef = "opendata"
	}
	if c.SIRI.MinRequestIntervalMS == 0 {
		c.SIRI.MinRequestIntervalMS = 500
	}
	if c.SIRI.TimeoutMS == 0 {
		c.SIRI.TimeoutMS = 10000
	}
	if c.Matcher.ToleranceSec == 0 {
		c.Matcher.ToleranceSec = 120
	}
	if c.Sweep.ThresholdSec == 0 {
		c.Sweep.ThresholdSec = 600
	}
	if c.Sweep.IntervalSec == 0 {
		c.Sweep.IntervalSec = 60
	}
	if c.Refresh.IntervalMin == 0 {
		c.Refresh.IntervalMin = 10
	}
	if c.Projection.Mode == "" {
		c.Projection.Mode = "lambert"
	}
	if c.Projection.Mode == "lambert" && c.Projection.SemiMajorAxis == 0 {
		// Lambert 93 on GRS80.
		c.Projection.SemiMajorAxis = 6378137
		c.Projection.InverseFlattening = 298.257222101
		c.Projection.StdParallel1 = 44
		c.Projection.StdParallel2 = 49
		c.Projection.OriginLat = 46.5
		c.Projection.OriginLon = 3
		c.Projection.FalseEasting = 700000
		c.Projection.FalseNorthing = 6600000
	}
	if c.Projection.UnitScale == 0 {
		c.Projection.UnitScale = 1
	}
	if c.Projection.ScaledAxisOrder == "" {
		c.Projection.ScaledAxisOrder = "lonlat"
	}
}
