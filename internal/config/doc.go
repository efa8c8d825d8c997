// Package config loads, normalizes, and validates strmhook configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// ALIST_URL and STRM_SAVE_DIR, optionally sourced from a .env file. The Config
// type centralizes every knob the webhook daemon and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a canonical playback prefix, and clear validation errors.
package config
