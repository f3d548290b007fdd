// Package config loads, normalizes, and validates dcmcanon configuration data.
//
// It supplies repository defaults (including the default DCMTK tool chain),
// expands user paths, reads TOML files, and honours environment fallbacks such
// as DCMCANON_WORKERS. The Config type centralizes every knob the CLI and the
// conversion pipeline need so they can be resolved in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a non-empty tool chain, and clear validation errors.
package config
