package ascs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config drives the demo acceptor: how many endpoints of each direction
// the attribute table advertises, how many client slots to provision,
// and how the run is logged and traced.
type Config struct {
	SinkASEs   int    `yaml:"sink_ases"`
	SourceASEs int    `yaml:"source_ases"`
	MaxClients int    `yaml:"max_clients"`
	LogLevel   string `yaml:"log_level"`
	TraceFile  string `yaml:"trace_file"` // strftime pattern
	Caching    bool   `yaml:"caching"`
}

func DefaultConfig() Config {
	return Config{
		SinkASEs:   2,
		SourceASEs: 1,
		MaxClients: 2,
		LogLevel:   "info",
		TraceFile:  "ascs-trace-%Y%m%d-%H%M%S.log",
		Caching:    true,
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse %s: %w", path, err)
	}

	if config.SinkASEs < 0 || config.SourceASEs < 0 || config.SinkASEs+config.SourceASEs == 0 {
		return config, fmt.Errorf("%s: need at least one sink or source ASE", path)
	}
	if config.MaxClients < 1 {
		return config, fmt.Errorf("%s: max_clients must be at least 1", path)
	}
	return config, nil
}
