// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml (overridable via the
// SIRI_GTFSRT_CONFIG environment variable) and validated using struct
// tags. Missing optional values fall back to operator defaults.
package config
