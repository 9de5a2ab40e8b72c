// Package config loads and validates the bridge configuration from a YAML
// file with ${VAR} environment expansion, or directly from environment
// variables when no config file is present.
package config
