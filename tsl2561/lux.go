package tsl2561

import "math"

const (
	TSL2561_VISIBLE      byte = 2 ///< channel 0 - channel 1
	TSL2561_INFRARED     byte = 1 ///< channel 1
	TSL2561_FULLSPECTRUM byte = 0 ///< channel 0
)

// LuxResult is the outcome of the floating point conversion. When Saturated
// is set, Lux is 0 and carries no information.
type LuxResult struct {
	Lux       float64
	Saturated bool
}

// LuxIntResult is the outcome of the fixed point conversion. When Saturated
// is set, Lux is 0 and carries no information.
type LuxIntResult struct {
	Lux       uint32
	Saturated bool
}

// CalculateLux converts a sample to lux using the current gain.
// ms is the integration time, from Configure or a timed manual integration.
func (tsl *TSL2561) CalculateLux(ms uint16, ch0, ch1 uint16) LuxResult {
	return Lux(tsl.config, ms, ch0, ch1)
}

// CalculateLuxInt converts a sample to lux without floating point, using the
// current gain and integration mode. Manual integration is treated as 402ms.
func (tsl *TSL2561) CalculateLuxInt(ch0, ch1 uint16) LuxIntResult {
	return LuxInt(tsl.config, ch0, ch1)
}

// Lux implements the datasheet's empirical lux formula.
func Lux(cfg Config, ms uint16, ch0, ch1 uint16) LuxResult {
	// Either channel saturated, the calculation would not be accurate
	if ch0 == 0xFFFF || ch1 == 0xFFFF {
		return LuxResult{Saturated: true}
	}

	d0, d1 := float64(ch0), float64(ch1)

	// With ch0 == 0 this is NaN or +Inf, which fails every comparison below
	// and ends up in the zero branch.
	ratio := d1 / d0

	// Normalize for integration time
	d0 *= 402.0 / float64(ms)
	d1 *= 402.0 / float64(ms)

	// Normalize for gain
	if cfg.Gain == TSL2561_GAIN_1X {
		d0 *= 16
		d1 *= 16
	}

	var lux float64
	switch {
	case ratio < 0.50:
		lux = 0.0304*d0 - 0.062*d0*math.Pow(ratio, 1.4)
	case ratio < 0.61:
		lux = 0.0224*d0 - 0.031*d1
	case ratio < 0.80:
		lux = 0.0128*d0 - 0.0153*d1
	case ratio < 1.30:
		lux = 0.00146*d0 - 0.00112*d1
	default:
		lux = 0.0
	}
	return LuxResult{Lux: lux}
}

type luxSegment struct {
	k, b, m uint64
}

var luxSegments = [...]luxSegment{
	{TSL2561_LUX_K1T, TSL2561_LUX_B1T, TSL2561_LUX_M1T},
	{TSL2561_LUX_K2T, TSL2561_LUX_B2T, TSL2561_LUX_M2T},
	{TSL2561_LUX_K3T, TSL2561_LUX_B3T, TSL2561_LUX_M3T},
	{TSL2561_LUX_K4T, TSL2561_LUX_B4T, TSL2561_LUX_M4T},
	{TSL2561_LUX_K5T, TSL2561_LUX_B5T, TSL2561_LUX_M5T},
	{TSL2561_LUX_K6T, TSL2561_LUX_B6T, TSL2561_LUX_M6T},
	{TSL2561_LUX_K7T, TSL2561_LUX_B7T, TSL2561_LUX_M7T},
}

func luxCoefficients(ratio uint64) (b, m uint64) {
	for _, s := range luxSegments {
		if ratio <= s.k {
			return s.b, s.m
		}
	}
	return TSL2561_LUX_B8T, TSL2561_LUX_M8T
}

// LuxInt is the integer approximation of Lux. It stays within about 2% of
// the floating point result, which is below the sensor's own accuracy.
func LuxInt(cfg Config, ch0, ch1 uint16) LuxIntResult {
	var clipThreshold uint16
	var chScale uint64
	switch cfg.Integration {
	case TSL2561_INTEGRATIONTIME_13MS:
		clipThreshold = TSL2561_CLIPPING_13MS
		chScale = TSL2561_LUX_CHSCALE_TINT0
	case TSL2561_INTEGRATIONTIME_101MS:
		clipThreshold = TSL2561_CLIPPING_101MS
		chScale = TSL2561_LUX_CHSCALE_TINT1
	default: // No scaling ... integration time = 402ms
		clipThreshold = TSL2561_CLIPPING_402MS
		chScale = 1 << TSL2561_LUX_CHSCALE
	}

	if ch0 > clipThreshold || ch1 > clipThreshold {
		return LuxIntResult{Saturated: true}
	}

	// Scale for gain (1x or 16x)
	if cfg.Gain == TSL2561_GAIN_1X {
		chScale <<= 4
	}

	channel0 := (uint64(ch0) * chScale) >> TSL2561_LUX_CHSCALE
	channel1 := (uint64(ch1) * chScale) >> TSL2561_LUX_CHSCALE

	var ratio1 uint64
	if channel0 != 0 {
		ratio1 = (channel1 << (TSL2561_LUX_RATIOSCALE + 1)) / channel0
	}
	ratio := (ratio1 + 1) >> 1

	b, m := luxCoefficients(ratio)
	temp := int64(channel0*b) - int64(channel1*m)
	if temp < 0 {
		temp = 0
	}

	// round lsb (2^(LUX_SCALE-1)), then strip off the fractional portion
	temp += 1 << (TSL2561_LUX_LUXSCALE - 1)
	return LuxIntResult{Lux: uint32(temp >> TSL2561_LUX_LUXSCALE)}
}

// Returns the normalized output for a given spectrum type
func GetNormalizedOutput(spectrumType byte, ch0, ch1 uint16) float64 {
	switch spectrumType {
	case TSL2561_VISIBLE:
		visible := float64(ch0) - float64(ch1)
		if visible < 0 {
			visible = 0
		}
		return visible / 0xFFFF
	case TSL2561_INFRARED:
		return float64(ch1) / 0xFFFF
	case TSL2561_FULLSPECTRUM:
		return float64(ch0) / 0xFFFF
	default:
		return 0
	}
}

func (s RawSample) Visible() float64 {
	return GetNormalizedOutput(TSL2561_VISIBLE, s.Channel0, s.Channel1)
}

func (s RawSample) Infrared() float64 {
	return GetNormalizedOutput(TSL2561_INFRARED, s.Channel0, s.Channel1)
}

func (s RawSample) FullSpectrum() float64 {
	return GetNormalizedOutput(TSL2561_FULLSPECTRUM, s.Channel0, s.Channel1)
}
