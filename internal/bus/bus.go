// Package bus opens the two-wire bus a TSL2561 sits on.
//
// Every transport satisfies tinygo's drivers.I2C, so the sensor driver never
// sees which one is in use.
package bus

import (
	"fmt"
	"strings"
)

// Conn is an open bus.
type Conn interface {
	Tx(addr uint16, w, r []byte) error
	Close() error
}

const (
	TransportDevfs  = "devfs"
	TransportPeriph = "periph"
)

// Open opens the named bus with the given transport. For devfs, name is the
// device node (e.g. /dev/i2c-1) and the connection is bound to addr. For
// periph, name is a periph bus name or number ("" selects the first bus).
func Open(transport, name string, addr uint16) (Conn, error) {
	switch strings.ToLower(transport) {
	case "", TransportDevfs:
		d, err := OpenDevfs(name, addr)
		if err != nil {
			return nil, err
		}
		return d, nil
	case TransportPeriph:
		b, err := OpenPeriph(name)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown bus transport %q", transport)
	}
}
