// Package config holds the pipeline configuration: file-loadable, overlaid
// by environment variables, validated once, and passed by value into jobs.
//
// Precedence, lowest to highest: built-in defaults, config file (JSON or
// YAML by extension), legacy environment names (AWS_*/CLEVERTAP_*/S3_*, kept
// for drop-in compatibility with the predecessor deployment), CARTSYNC_*
// names.
package config
