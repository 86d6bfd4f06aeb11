package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ztkent/lightmeter/internal/bus"
	"github.com/ztkent/lightmeter/tsl2561"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ------------------------------------------------------------
	// SENSOR
	// ------------------------------------------------------------

	switch cfg.Sensor.Transport {
	case "", bus.TransportDevfs, bus.TransportPeriph:
	default:
		return fmt.Errorf("sensor.transport %q: must be %q or %q", cfg.Sensor.Transport, bus.TransportDevfs, bus.TransportPeriph)
	}

	switch cfg.Sensor.Address {
	case 0, tsl2561.TSL2561_ADDR_LOW, tsl2561.TSL2561_ADDR_FLOAT, tsl2561.TSL2561_ADDR_HIGH:
	default:
		return fmt.Errorf("sensor.address 0x%02x: must be 0x29, 0x39 or 0x49", cfg.Sensor.Address)
	}

	if cfg.Sensor.Gain != "" {
		if _, err := tsl2561.ParseGain(cfg.Sensor.Gain); err != nil {
			return fmt.Errorf("sensor.gain: %w", err)
		}
	}
	if cfg.Sensor.Integration != "" {
		if _, err := tsl2561.ParseIntegrationMode(cfg.Sensor.Integration); err != nil {
			return fmt.Errorf("sensor.integration: %w", err)
		}
	}

	// ------------------------------------------------------------
	// SERVER
	// ------------------------------------------------------------

	if (cfg.Server.CertFile == "") != (cfg.Server.KeyFile == "") {
		return fmt.Errorf("server: cert_file and key_file must be set together")
	}
	if cfg.Server.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Server.Timezone); err != nil {
			return fmt.Errorf("server.timezone: %w", err)
		}
	}

	// ------------------------------------------------------------
	// LOGGING
	// ------------------------------------------------------------

	if cfg.Log.Level != "" {
		if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}

	return nil
}
