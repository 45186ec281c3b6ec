// Package config loads, normalizes, and validates vimeodl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// VIMEODL_OUTPUT_DIR and VIMEODL_USER_AGENT. The Config type centralizes every
// knob the CLI, native messaging host, and HTTP server need.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log levels, and clear validation errors.
package config
