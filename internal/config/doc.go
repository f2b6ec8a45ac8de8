// Package config loads and validates the studybuddy-gateway YAML
// configuration, expanding ${ENV_VAR} references and parsing duration
// strings into time.Duration values.
package config
