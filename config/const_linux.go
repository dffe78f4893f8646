package config

const (
	_etc = "/usr/local/etc/contahub"

	DefaultConfigFile = _etc + "/contahub-app-sheets.toml"
)
