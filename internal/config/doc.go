// Package config loads, normalizes, and validates dymgr configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// DYMGR_API_URL and DYMGR_TOKEN. The Config type centralizes every knob the
// CLI needs: backend address and timeout, where the persisted credential
// lives, how the session treats a restored token, and log output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
