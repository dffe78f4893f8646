package config

const (
	_etc = "/usr/local/etc/com.github.ordinario"

	DefaultConfigFile = _etc + "/contahub-app-sheets.toml"
)
