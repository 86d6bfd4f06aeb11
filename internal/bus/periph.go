package bus

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// OpenPeriph initializes the periph.io host drivers and opens a bus by name.
// A periph i2c.Bus already has the drivers.I2C method set.
func OpenPeriph(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("Failed to initialize periph host: %w", err)
	}
	return openRegistered(name)
}

func openRegistered(name string) (i2c.BusCloser, error) {
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("Failed to open I2C bus %q: %w", name, err)
	}
	return b, nil
}
