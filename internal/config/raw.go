package config

// RawConfig mirrors the YAML file with pointer fields so that an
// absent key is distinguishable from a zero value and leaves the
// default in place.
type RawConfig struct {
	LogLevel  *string       `yaml:"log_level"`
	LogFormat *string       `yaml:"log_format"`
	Display   *string       `yaml:"display"`
	IPC       *RawIPCConfig `yaml:"ipc"`
}

type RawIPCConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// apply overlays the raw file contents onto cfg.
func (r *RawConfig) apply(cfg *Config) {
	if r.LogLevel != nil {
		cfg.LogLevel = *r.LogLevel
	}
	if r.LogFormat != nil {
		cfg.LogFormat = *r.LogFormat
	}
	if r.Display != nil {
		cfg.Display = *r.Display
	}
	if r.IPC != nil && r.IPC.Enabled != nil {
		cfg.IPC.Enabled = *r.IPC.Enabled
	}
}
