package tsl2561

import (
	"fmt"
	"strings"
)

// ParseGain accepts "low"/"1x" or "high"/"16x".
func ParseGain(s string) (Gain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "1x", "1":
		return TSL2561_GAIN_1X, nil
	case "high", "16x", "16":
		return TSL2561_GAIN_16X, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidGain, s)
	}
}

// ParseIntegrationMode accepts the preset names (fast, medium, long, manual)
// or their nominal durations.
func ParseIntegrationMode(s string) (IntegrationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fast", "13ms", "13.7ms", "14ms":
		return TSL2561_INTEGRATIONTIME_13MS, nil
	case "medium", "101ms":
		return TSL2561_INTEGRATIONTIME_101MS, nil
	case "long", "402ms":
		return TSL2561_INTEGRATIONTIME_402MS, nil
	case "manual":
		return TSL2561_INTEGRATIONTIME_MANUAL, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}
