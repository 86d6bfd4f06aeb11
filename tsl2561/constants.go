package tsl2561

const (
	TSL2561_ADDR_LOW   uint16 = 0x29 ///< ADDR pin tied to GND
	TSL2561_ADDR_FLOAT uint16 = 0x39 ///< Default I2C address, ADDR pin floating
	TSL2561_ADDR_HIGH  uint16 = 0x49 ///< ADDR pin tied to VDD

	TSL2561_COMMAND_BIT byte = 0x80 ///< 1000 0000: selects the command register
	TSL2561_CMD_CLEAR   byte = 0xC0 ///< Command byte that clears a pending interrupt

	TSL2561_CONTROL_POWERON  byte = 0x03 ///< Power up, oscillator running
	TSL2561_CONTROL_POWEROFF byte = 0x00 ///< Power down

	TSL2561_TIMING_GAIN   byte = 0x10 ///< Gain bit of the timing register
	TSL2561_TIMING_MANUAL byte = 0x08 ///< Begin/stop manual integration
	TSL2561_TIMING_INTEG  byte = 0x03 ///< Integration time field

	TSL2561_PART_ID      byte = 0x50 ///< Upper nibble of the ID register for TSL2561 parts
	TSL2561_PART_ID_MASK byte = 0xF0

	TSL2561_TX_BUFFER_LEN = 32 ///< Largest write a single transaction may carry
)

// TSL2561 Register map
const (
	TSL2561_REGISTER_CONTROL     byte = 0x00 // Control register
	TSL2561_REGISTER_TIMING      byte = 0x01 // Integration time / gain
	TSL2561_REGISTER_THRESH_LOW  byte = 0x02 // Interrupt low threshold, low byte (0x03 high byte)
	TSL2561_REGISTER_THRESH_HIGH byte = 0x04 // Interrupt high threshold, low byte (0x05 high byte)
	TSL2561_REGISTER_INTCTL      byte = 0x06 // Interrupt control
	TSL2561_REGISTER_ID          byte = 0x0A // Part number / revision
	TSL2561_REGISTER_DATA_0      byte = 0x0C // Channel 0 data, low byte (0x0D high byte)
	TSL2561_REGISTER_DATA_1      byte = 0x0E // Channel 1 data, low byte (0x0F high byte)
)

// Gain is the value of the gain bit in the timing register.
type Gain byte

// Constants for adjusting the sensor gain
const (
	TSL2561_GAIN_1X  Gain = 0x00 /// low gain (1x)
	TSL2561_GAIN_16X Gain = 0x10 /// high gain (16x)
)

// IntegrationMode is the value of the integration field in the timing register.
type IntegrationMode byte

// Constants for adjusting the sensor integration timing
const (
	TSL2561_INTEGRATIONTIME_13MS   IntegrationMode = 0x00 // 13.7 millis
	TSL2561_INTEGRATIONTIME_101MS  IntegrationMode = 0x01 // 101 millis
	TSL2561_INTEGRATIONTIME_402MS  IntegrationMode = 0x02 // 402 millis
	TSL2561_INTEGRATIONTIME_MANUAL IntegrationMode = 0x03 // manual start/stop
)

// Auto-gain thresholds
const (
	TSL2561_AGC_THI_13MS  uint16 = 4850  // Max value at Ti 13ms = 5047
	TSL2561_AGC_TLO_13MS  uint16 = 100
	TSL2561_AGC_THI_101MS uint16 = 36000 // Max value at Ti 101ms = 37177
	TSL2561_AGC_TLO_101MS uint16 = 200
	TSL2561_AGC_THI_402MS uint16 = 63000 // Max value at Ti 402ms = 65535
	TSL2561_AGC_TLO_402MS uint16 = 500
)

// Clipping thresholds for the integer lux calculation
const (
	TSL2561_CLIPPING_13MS  uint16 = 4900
	TSL2561_CLIPPING_101MS uint16 = 37000
	TSL2561_CLIPPING_402MS uint16 = 65000
)

// Fixed point scales
const (
	TSL2561_LUX_LUXSCALE      = 14     // Scale by 2^14
	TSL2561_LUX_RATIOSCALE    = 9      // Scale ratio by 2^9
	TSL2561_LUX_CHSCALE       = 10     // Scale channel values by 2^10
	TSL2561_LUX_CHSCALE_TINT0 = 0x7517 // 322/11 * 2^TSL2561_LUX_CHSCALE
	TSL2561_LUX_CHSCALE_TINT1 = 0x0FE7 // 322/81 * 2^TSL2561_LUX_CHSCALE
)

// Piecewise linear lux coefficients (T, FN and CL packages)
const (
	TSL2561_LUX_K1T = 0x0040 // 0.125 * 2^RATIO_SCALE
	TSL2561_LUX_B1T = 0x01f2 // 0.0304 * 2^LUX_SCALE
	TSL2561_LUX_M1T = 0x01be // 0.0272 * 2^LUX_SCALE
	TSL2561_LUX_K2T = 0x0080 // 0.250 * 2^RATIO_SCALE
	TSL2561_LUX_B2T = 0x0214 // 0.0325 * 2^LUX_SCALE
	TSL2561_LUX_M2T = 0x02d1 // 0.0440 * 2^LUX_SCALE
	TSL2561_LUX_K3T = 0x00c0 // 0.375 * 2^RATIO_SCALE
	TSL2561_LUX_B3T = 0x023f // 0.0351 * 2^LUX_SCALE
	TSL2561_LUX_M3T = 0x037b // 0.0544 * 2^LUX_SCALE
	TSL2561_LUX_K4T = 0x0100 // 0.50 * 2^RATIO_SCALE
	TSL2561_LUX_B4T = 0x0270 // 0.0381 * 2^LUX_SCALE
	TSL2561_LUX_M4T = 0x03fe // 0.0624 * 2^LUX_SCALE
	TSL2561_LUX_K5T = 0x0138 // 0.61 * 2^RATIO_SCALE
	TSL2561_LUX_B5T = 0x016f // 0.0224 * 2^LUX_SCALE
	TSL2561_LUX_M5T = 0x01fc // 0.0310 * 2^LUX_SCALE
	TSL2561_LUX_K6T = 0x019a // 0.80 * 2^RATIO_SCALE
	TSL2561_LUX_B6T = 0x00d2 // 0.0128 * 2^LUX_SCALE
	TSL2561_LUX_M6T = 0x00fb // 0.0153 * 2^LUX_SCALE
	TSL2561_LUX_K7T = 0x029a // 1.3 * 2^RATIO_SCALE
	TSL2561_LUX_B7T = 0x0018 // 0.00146 * 2^LUX_SCALE
	TSL2561_LUX_M7T = 0x0012 // 0.00112 * 2^LUX_SCALE
	TSL2561_LUX_B8T = 0x0000 // 0.000 * 2^LUX_SCALE
	TSL2561_LUX_M8T = 0x0000 // 0.000 * 2^LUX_SCALE
)

func (m IntegrationMode) String() string {
	switch m {
	case TSL2561_INTEGRATIONTIME_13MS:
		return "13.7ms"
	case TSL2561_INTEGRATIONTIME_101MS:
		return "101ms"
	case TSL2561_INTEGRATIONTIME_402MS:
		return "402ms"
	case TSL2561_INTEGRATIONTIME_MANUAL:
		return "Manual"
	default:
		return "Unknown"
	}
}

// Milliseconds returns the nominal integration time reported to callers.
// Manual integration has no nominal duration and reports 0.
func (m IntegrationMode) Milliseconds() uint16 {
	switch m {
	case TSL2561_INTEGRATIONTIME_13MS:
		return 14
	case TSL2561_INTEGRATIONTIME_101MS:
		return 101
	case TSL2561_INTEGRATIONTIME_402MS:
		return 402
	default:
		return 0
	}
}

func (g Gain) String() string {
	switch g {
	case TSL2561_GAIN_1X:
		return "Low gain (1x)"
	case TSL2561_GAIN_16X:
		return "High gain (16x)"
	default:
		return "Unknown"
	}
}
