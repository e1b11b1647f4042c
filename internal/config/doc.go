// Package config loads, normalizes, and validates auctionload configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GOOGLE_APPLICATION_CREDENTIALS and AUCTIONLOAD_FOLDER_ID. The Config type
// centralizes every knob the CLI needs, so the source folder, the warehouse
// target, and the filter thresholds are discovered in one pass instead of
// being embedded as constants.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
