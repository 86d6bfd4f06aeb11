package bus

import (
	"fmt"

	"golang.org/x/exp/io/i2c"
	"golang.org/x/exp/io/i2c/driver"
)

// Devfs is a Linux i2c-dev connection. i2c-dev binds a file descriptor to a
// single target address, so a Devfs only talks to the address it was opened
// with.
type Devfs struct {
	dev  *i2c.Device
	addr uint16
}

func OpenDevfs(path string, addr uint16) (*Devfs, error) {
	if path == "" {
		// i2c-1 is the default I2C bus for the Raspberry Pi
		path = "/dev/i2c-1"
	}
	d, err := openDevfs(&i2c.Devfs{Dev: path}, addr)
	if err != nil {
		return nil, fmt.Errorf("Failed to open %s: %w", path, err)
	}
	return d, nil
}

func openDevfs(o driver.Opener, addr uint16) (*Devfs, error) {
	dev, err := i2c.Open(o, int(addr))
	if err != nil {
		return nil, err
	}
	return &Devfs{dev: dev, addr: addr}, nil
}

// Tx implements drivers.I2C.
func (d *Devfs) Tx(addr uint16, w, r []byte) error {
	if addr != d.addr {
		return fmt.Errorf("devfs: bus opened for 0x%02x, not 0x%02x", d.addr, addr)
	}
	switch {
	case len(r) == 0:
		return d.dev.Write(w)
	case len(w) == 0:
		return d.dev.Read(r)
	case len(w) == 1:
		return d.dev.ReadReg(w[0], r)
	default:
		return fmt.Errorf("devfs: write of %d bytes before a read is not supported", len(w))
	}
}

func (d *Devfs) Close() error {
	return d.dev.Close()
}
