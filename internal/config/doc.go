// Package config handles YAML configuration loading with environment variable substitution.
//
// A .env file next to the working directory is loaded first when present, then
// ${VAR} references in the YAML are expanded from the environment. Every
// binary accepts a config path via -config; research binaries also run with no
// file at all, on defaults.
package config
