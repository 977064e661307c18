// Package config loads, normalizes, and validates imdbratings configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY and RATINGS_API_URL. The Config type centralizes every knob the
// daemon, CLI, and resolution pipeline need, so search pacing, scoring
// thresholds, and episode estimation are decided once at the boundary.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
