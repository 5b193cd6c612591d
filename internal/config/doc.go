// Package config loads and validates the YAML settings shared by the boiler
// binaries: listen addresses, data directory, sensor, history retention,
// alarm thresholds, SMS portal credentials and operator token settings.
// Validate fills defaults for everything optional.
package config
