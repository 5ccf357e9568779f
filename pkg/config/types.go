package config

// EffectiveConfigResult bundles the merged configuration with the resolved
// listen address, DB path and the winning source ("flags", "env", "config").
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string
}
