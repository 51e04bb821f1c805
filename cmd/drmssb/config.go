package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds optional defaults loaded from a YAML file via -config, so
// a station doesn't need to repeat the same flags on every invocation.
type Config struct {
	MIME          string `yaml:"mime"`
	DeviceName    string `yaml:"device_name"`
	SampleRate    int    `yaml:"sample_rate"`
}

func defaultConfig() Config {
	return Config{MIME: "image/jpeg", SampleRate: 44100}
}

// loadConfig reads and parses a YAML config file. A missing path is not
// an error: the caller gets defaultConfig() back.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
