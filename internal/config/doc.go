// Package config loads and validates the study configuration from
// environment variables (CBCR_ prefix) and an optional YAML file.
// Environment values take precedence over file values, which take
// precedence over struct-tag defaults.
package config
