//go:build !linux && !darwin

package config

const DefaultConfigFile = "contahub-app-sheets.toml"
