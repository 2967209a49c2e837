// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation,
// which is the usual way to keep the feed token and database password out of the file.
package config
