// Package config loads, normalizes, and validates splitmerge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and applies the environment overrides
// LLM_API_KEY (or OPENAI_API_KEY), LLM_MODEL, AZURE_ENDPOINT and FILEPATH.
// A non-blank environment value always replaces the file value. The Config type is
// constructed once at startup and passed explicitly to the runner; pipeline
// packages never consult the environment themselves.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
