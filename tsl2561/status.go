package tsl2561

import (
	"errors"
	"fmt"
	"syscall"
)

// BusStatus is the outcome of the most recent bus transaction.
type BusStatus byte

// Transport outcomes. The numeric values match the status codes returned by
// the Arduino/Particle Wire library so logs from either side line up.
const (
	BusOK          BusStatus = 0 // Success
	BusDataTooLong BusStatus = 1 // Data too long to fit in transmit buffer
	BusAddressNack BusStatus = 2 // Received NACK on transmit of address
	BusDataNack    BusStatus = 3 // Received NACK on transmit of data
	BusOther       BusStatus = 4 // Other error
)

func (s BusStatus) String() string {
	switch s {
	case BusOK:
		return "ok"
	case BusDataTooLong:
		return "data_too_long"
	case BusAddressNack:
		return "address_nack"
	case BusDataNack:
		return "data_nack"
	default:
		return "other"
	}
}

var (
	ErrNotFound       = errors.New("tsl2561: no TSL2561 responded on the bus")
	ErrInvalidAddress = errors.New("tsl2561: invalid I2C address")
	ErrInvalidGain    = errors.New("tsl2561: invalid gain")
	ErrInvalidMode    = errors.New("tsl2561: invalid integration mode")
)

// BusError reports a failed register access.
type BusError struct {
	Kind BusStatus
	Op   string
	Reg  byte
	Err  error
}

func (e *BusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tsl2561: %s reg 0x%02x: %s: %v", e.Op, e.Reg, e.Kind, e.Err)
	}
	return fmt.Sprintf("tsl2561: %s reg 0x%02x: %s", e.Op, e.Reg, e.Kind)
}

func (e *BusError) Unwrap() error { return e.Err }

// StatusOf extracts the bus status carried by err. A nil error is BusOK and
// an error that did not come from the bus is BusOther.
func StatusOf(err error) BusStatus {
	if err == nil {
		return BusOK
	}
	var be *BusError
	if errors.As(err, &be) {
		return be.Kind
	}
	return BusOther
}

// classify maps a transport error onto the bus status taxonomy.
func classify(err error) BusStatus {
	if err == nil {
		return BusOK
	}
	var be *BusError
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, syscall.ENXIO) {
		return BusAddressNack
	}
	for _, errno := range dataNackErrnos {
		if errors.Is(err, errno) {
			return BusDataNack
		}
	}
	return BusOther
}
