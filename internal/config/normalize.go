package config

import (
	"os"

	"github.com/ztkent/lightmeter/internal/bus"
	"github.com/ztkent/lightmeter/tsl2561"
)

const (
	DefaultDevfsBus = "/dev/i2c-1"
	DefaultDBPath   = "lightmeter.db"
	DefaultLogFile  = "lightmeter.log"
	DefaultTimezone = "America/Indiana/Indianapolis"
)

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	s := &cfg.Sensor
	if s.Transport == "" {
		s.Transport = bus.TransportDevfs
	}
	if s.Bus == "" && s.Transport == bus.TransportDevfs {
		s.Bus = DefaultDevfsBus
	}
	if s.Address == 0 {
		s.Address = tsl2561.TSL2561_ADDR_FLOAT
	}
	if s.Gain == "" {
		s.Gain = "low"
	}
	if s.Integration == "" {
		s.Integration = "medium"
	}
	if s.AutoGain == nil {
		autoGain := true
		s.AutoGain = &autoGain
	}

	srv := &cfg.Server
	if srv.Listen == "" {
		if srv.TLS {
			srv.Listen = ":443"
		} else {
			srv.Listen = ":80"
		}
	}
	if srv.CertFile == "" {
		srv.CertFile = "cert.pem"
		srv.KeyFile = "key.pem"
	}
	if len(srv.Hosts) == 0 {
		srv.Hosts = []string{"localhost"}
	}
	if srv.Timezone == "" {
		srv.Timezone = DefaultTimezone
	}

	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = DefaultDBPath
	}

	// LOG_LEVEL is still honoured when the file does not set a level
	if cfg.Log.Level == "" {
		cfg.Log.Level = os.Getenv("LOG_LEVEL")
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = DefaultLogFile
	}
}
