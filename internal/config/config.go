package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ztkent/lightmeter/tsl2561"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Sensor  SensorConfig  `yaml:"sensor"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// ---- SENSOR ----

type SensorConfig struct {
	Transport   string `yaml:"transport"` // devfs | periph
	Bus         string `yaml:"bus"`
	Address     uint16 `yaml:"address"`
	Gain        string `yaml:"gain"`
	Integration string `yaml:"integration"`
	AutoGain    *bool  `yaml:"autogain"`
}

// Timing returns the configured gain and integration mode.
func (s SensorConfig) Timing() (tsl2561.Gain, tsl2561.IntegrationMode, error) {
	gain, err := tsl2561.ParseGain(s.Gain)
	if err != nil {
		return 0, 0, err
	}
	mode, err := tsl2561.ParseIntegrationMode(s.Integration)
	if err != nil {
		return 0, 0, err
	}
	return gain, mode, nil
}

// ---- SERVER ----

type ServerConfig struct {
	Listen    string   `yaml:"listen"`
	TLS       bool     `yaml:"tls"`
	CertFile  string   `yaml:"cert_file"`
	KeyFile   string   `yaml:"key_file"`
	Hosts     []string `yaml:"hosts"`
	LocalOnly bool     `yaml:"local_only"`
	Timezone  string   `yaml:"timezone"`
}

// ---- STORAGE ----

type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// ---- LOGGING ----

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads a YAML config file. An empty path yields an empty config, which
// Normalize fills with defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
