// Package config loads, normalizes, and validates TrustFrame configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files and honours environment fallbacks such as TRUSTFRAME_LOG_LEVEL.
// Every option the CLI exposes as a flag has a config counterpart here, so
// frame sampling, algorithms and similarity buckets can be pinned per machine.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical algorithm names, and clear validation errors.
package config
