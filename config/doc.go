// Package config loads the sbscand configuration from YAML.
//
// All settings have working defaults; a missing file is only an error when a
// path was given explicitly. Scan parameters are deliberately not exposed
// here: they are fixed for the life of the process.
package config
