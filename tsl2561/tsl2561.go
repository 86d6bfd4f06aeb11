package tsl2561

/*
 * tsl2561 - Package for interacting with TSL2561 lux sensors.
 *
 * Ref:
 * https://github.com/sparkfun/SparkFun_TSL2561_Arduino_Library
 * https://github.com/adafruit/Adafruit_TSL2561
 *
 */

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/drivers"
)

var l *logrus.Logger

func init() {
	l = logrus.New()
	// Setup the logger, so it can be parsed by datadog
	l.Formatter = &logrus.JSONFormatter{}
	l.SetOutput(os.Stdout)
	// Set the log level
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))
	switch logLevel {
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "info":
		l.SetLevel(logrus.InfoLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
}

// Config is the gain and integration time last written to the timing register.
type Config struct {
	Gain        Gain
	Integration IntegrationMode
}

// RawSample holds one pair of channel readings.
// Channel 0 is broadband (visible + infrared), channel 1 is infrared only.
type RawSample struct {
	Channel0 uint16
	Channel1 uint16
}

// TSL2561 is not safe for concurrent use; callers sharing a device must
// serialize access themselves.
type TSL2561 struct {
	Address uint16
	Log     logrus.FieldLogger

	bus    drivers.I2C
	config Config
	status BusStatus
}

// New binds a TSL2561 at addr on the given bus. It does not touch the device.
// An address of 0 selects the default (ADDR pin floating).
func New(bus drivers.I2C, addr uint16) (*TSL2561, error) {
	if addr == 0 {
		addr = TSL2561_ADDR_FLOAT
	}
	switch addr {
	case TSL2561_ADDR_LOW, TSL2561_ADDR_FLOAT, TSL2561_ADDR_HIGH:
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidAddress, addr)
	}
	return &TSL2561{
		Address: addr,
		Log:     l,
		bus:     bus,
		config: Config{
			Gain:        TSL2561_GAIN_1X,
			Integration: TSL2561_INTEGRATIONTIME_101MS,
		},
	}, nil
}

// Begin verifies that a TSL2561 answers at the configured address.
func (tsl *TSL2561) Begin() error {
	id, err := tsl.ID()
	if err != nil {
		return err
	}
	if id&TSL2561_PART_ID_MASK != TSL2561_PART_ID {
		return fmt.Errorf("%w: id 0x%02x at address 0x%02x", ErrNotFound, id, tsl.Address)
	}
	tsl.Log.Debugf("Found TSL2561, id 0x%02x", id)
	return nil
}

// ID returns the part number and revision byte.
func (tsl *TSL2561) ID() (byte, error) {
	return tsl.readByte(TSL2561_REGISTER_ID)
}

// Config returns the configuration last written to the device.
func (tsl *TSL2561) Config() Config {
	return tsl.config
}

// LastStatus returns the outcome of the most recent bus transaction.
func (tsl *TSL2561) LastStatus() BusStatus {
	return tsl.status
}

// Power up the sensor and start the oscillator
func (tsl *TSL2561) PowerUp() error {
	return tsl.writeByte(TSL2561_REGISTER_CONTROL, TSL2561_CONTROL_POWERON)
}

// Power down the sensor
func (tsl *TSL2561) PowerDown() error {
	return tsl.writeByte(TSL2561_REGISTER_CONTROL, TSL2561_CONTROL_POWEROFF)
}

// Configure sets the gain and integration mode with a read-modify-write of
// the timing register. It returns the nominal integration time in ms for the
// requested mode (0 for manual). The cached configuration only changes once
// the write succeeds.
func (tsl *TSL2561) Configure(gain Gain, mode IntegrationMode) (uint16, error) {
	if gain != TSL2561_GAIN_1X && gain != TSL2561_GAIN_16X {
		return 0, fmt.Errorf("%w: 0x%02x", ErrInvalidGain, byte(gain))
	}
	if mode > TSL2561_INTEGRATIONTIME_MANUAL {
		return 0, fmt.Errorf("%w: 0x%02x", ErrInvalidMode, byte(mode))
	}
	ms := mode.Milliseconds()

	timing, err := tsl.readByte(TSL2561_REGISTER_TIMING)
	if err != nil {
		return ms, err
	}
	timing &^= TSL2561_TIMING_GAIN
	timing |= byte(gain)
	timing &^= TSL2561_TIMING_INTEG
	timing |= byte(mode) & TSL2561_TIMING_INTEG

	if err := tsl.writeByte(TSL2561_REGISTER_TIMING, timing); err != nil {
		return ms, err
	}
	tsl.config = Config{Gain: gain, Integration: mode}
	tsl.Log.Debugf("Set - Gain: %v, Integration Time: %v", gain, mode)
	return ms, nil
}

// SetTiming is Configure without the nominal integration time.
func (tsl *TSL2561) SetTiming(gain Gain, mode IntegrationMode) error {
	_, err := tsl.Configure(gain, mode)
	return err
}

// ManualStart switches to manual integration and begins an integration
// period. Call ManualStop to end it. Gain is unchanged.
func (tsl *TSL2561) ManualStart() error {
	timing, err := tsl.readByte(TSL2561_REGISTER_TIMING)
	if err != nil {
		return err
	}
	timing |= byte(TSL2561_INTEGRATIONTIME_MANUAL)
	if err := tsl.writeByte(TSL2561_REGISTER_TIMING, timing); err != nil {
		return err
	}
	tsl.config.Integration = TSL2561_INTEGRATIONTIME_MANUAL

	timing |= TSL2561_TIMING_MANUAL
	return tsl.writeByte(TSL2561_REGISTER_TIMING, timing)
}

// ManualStop ends a manual integration period.
func (tsl *TSL2561) ManualStop() error {
	timing, err := tsl.readByte(TSL2561_REGISTER_TIMING)
	if err != nil {
		return err
	}
	timing &^= TSL2561_TIMING_MANUAL
	return tsl.writeByte(TSL2561_REGISTER_TIMING, timing)
}

// GetData reads both channels. With autoGain set, a reading outside the
// expected range for the current integration time triggers at most one gain
// switch and one re-read; the re-read is returned as-is even if it is still
// out of range.
func (tsl *TSL2561) GetData(autoGain bool) (RawSample, error) {
	sample, err := tsl.readChannels()
	if err != nil {
		return RawSample{}, err
	}
	if !autoGain {
		return sample, nil
	}

	hi, lo := autoGainThresholds(tsl.config.Integration)
	var next Gain
	switch {
	case sample.Channel0 < lo && tsl.config.Gain == TSL2561_GAIN_1X:
		next = TSL2561_GAIN_16X
	case sample.Channel0 > hi && tsl.config.Gain == TSL2561_GAIN_16X:
		next = TSL2561_GAIN_1X
	default:
		// Either in range, or already at the limit of the chip.
		return sample, nil
	}

	tsl.Log.WithFields(logrus.Fields{
		"channel0": sample.Channel0,
		"from":     tsl.config.Gain.String(),
		"to":       next.String(),
	}).Info("Autogain switching sensor gain")
	if _, err := tsl.Configure(next, tsl.config.Integration); err != nil {
		return RawSample{}, err
	}
	return tsl.readChannels()
}

func autoGainThresholds(mode IntegrationMode) (hi, lo uint16) {
	switch mode {
	case TSL2561_INTEGRATIONTIME_13MS:
		return TSL2561_AGC_THI_13MS, TSL2561_AGC_TLO_13MS
	case TSL2561_INTEGRATIONTIME_101MS:
		return TSL2561_AGC_THI_101MS, TSL2561_AGC_TLO_101MS
	default:
		return TSL2561_AGC_THI_402MS, TSL2561_AGC_TLO_402MS
	}
}

func (tsl *TSL2561) readChannels() (RawSample, error) {
	ch0, err := tsl.readWord(TSL2561_REGISTER_DATA_0)
	if err != nil {
		return RawSample{}, err
	}
	ch1, err := tsl.readWord(TSL2561_REGISTER_DATA_1)
	if err != nil {
		return RawSample{}, err
	}
	tsl.Log.Debugf("Channel 0: %v, Channel 1: %v", ch0, ch1)
	return RawSample{Channel0: ch0, Channel1: ch1}, nil
}

// SetInterruptControl configures the interrupt output.
// control: 0 disables the output, 1 selects level interrupts.
// persist: 0 interrupts every integration cycle, 1 on any value outside the
// threshold, 2-15 once the value has been outside the threshold for that
// many cycles.
func (tsl *TSL2561) SetInterruptControl(control, persist byte) error {
	return tsl.writeByte(TSL2561_REGISTER_INTCTL, (control&0x03)<<4|persist&0x0F)
}

// SetInterruptThreshold sets the channel 0 interrupt window.
func (tsl *TSL2561) SetInterruptThreshold(low, high uint16) error {
	if err := tsl.writeWord(TSL2561_REGISTER_THRESH_LOW, low); err != nil {
		return err
	}
	return tsl.writeWord(TSL2561_REGISTER_THRESH_HIGH, high)
}

// ClearInterrupt clears an active interrupt.
func (tsl *TSL2561) ClearInterrupt() error {
	return tsl.tx("clear", TSL2561_CMD_CLEAR, []byte{TSL2561_CMD_CLEAR}, nil)
}

func (tsl *TSL2561) tx(op string, reg byte, w, r []byte) error {
	if len(w) > TSL2561_TX_BUFFER_LEN {
		tsl.status = BusDataTooLong
		return &BusError{Kind: BusDataTooLong, Op: op, Reg: reg}
	}
	err := tsl.bus.Tx(tsl.Address, w, r)
	tsl.status = classify(err)
	if err != nil {
		return &BusError{Kind: tsl.status, Op: op, Reg: reg, Err: err}
	}
	return nil
}

func (tsl *TSL2561) readByte(reg byte) (byte, error) {
	buf := make([]byte, 1)
	if err := tsl.tx("read", reg, []byte{TSL2561_COMMAND_BIT | reg&0x0F}, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (tsl *TSL2561) writeByte(reg byte, value byte) error {
	return tsl.tx("write", reg, []byte{TSL2561_COMMAND_BIT | reg&0x0F, value}, nil)
}

// 16-bit registers are little-endian, low byte at the lower address.
func (tsl *TSL2561) readWord(reg byte) (uint16, error) {
	buf := make([]byte, 2)
	if err := tsl.tx("read", reg, []byte{TSL2561_COMMAND_BIT | reg&0x0F}, buf); err != nil {
		return 0, err
	}
	tsl.Log.Debugf("Bytes read: %v", buf)
	return binary.LittleEndian.Uint16(buf), nil
}

func (tsl *TSL2561) writeWord(reg byte, value uint16) error {
	if err := tsl.writeByte(reg, byte(value)); err != nil {
		return err
	}
	return tsl.writeByte(reg+1, byte(value>>8))
}
