// Package config loads, normalizes, and validates sedeck configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DISCORD_BOT_TOKEN. The Config type centralizes every knob the CLI needs so
// download, output, and catalog locations are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
