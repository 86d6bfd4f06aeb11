package tsl2561

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	long16x   = Config{Gain: TSL2561_GAIN_16X, Integration: TSL2561_INTEGRATIONTIME_402MS}
	long1x    = Config{Gain: TSL2561_GAIN_1X, Integration: TSL2561_INTEGRATIONTIME_402MS}
	medium16x = Config{Gain: TSL2561_GAIN_16X, Integration: TSL2561_INTEGRATIONTIME_101MS}
	medium1x  = Config{Gain: TSL2561_GAIN_1X, Integration: TSL2561_INTEGRATIONTIME_101MS}
	fast16x   = Config{Gain: TSL2561_GAIN_16X, Integration: TSL2561_INTEGRATIONTIME_13MS}
)

func TestLux_LowLight(t *testing.T) {
	res := Lux(long16x, 402, 100, 30)
	require.False(t, res.Saturated)
	want := 0.0304*100 - 0.062*100*math.Pow(0.30, 1.4)
	assert.InDelta(t, want, res.Lux, 1e-9)
	assert.InDelta(t, 1.82, res.Lux, 0.1)
}

func TestLux_Saturated(t *testing.T) {
	for _, cfg := range []Config{long16x, long1x, fast16x} {
		res := Lux(cfg, cfg.Integration.Milliseconds(), 0xFFFF, 0xFFFF)
		assert.Equal(t, LuxResult{Saturated: true}, res)

		assert.True(t, Lux(cfg, 402, 0xFFFF, 10).Saturated)
		assert.True(t, Lux(cfg, 402, 10, 0xFFFF).Saturated)
		assert.False(t, Lux(cfg, 402, 0xFFFE, 0xFFFE).Saturated)
	}
}

func TestLux_NeverSaturatedBelowMax(t *testing.T) {
	rnd := rand.New(rand.NewSource(2561))
	for i := 0; i < 10000; i++ {
		ch0 := uint16(rnd.Intn(0xFFFF))
		ch1 := uint16(rnd.Intn(0xFFFF))
		assert.False(t, Lux(long1x, 402, ch0, ch1).Saturated, "ch0=%d ch1=%d", ch0, ch1)
	}
}

func TestLux_RatioBoundaries(t *testing.T) {
	// ratios landing exactly on a breakpoint use the next branch
	tests := []struct {
		name     string
		ch0, ch1 uint16
		want     float64
	}{
		{"below 0.50", 1000, 499, 0.0304*1000 - 0.062*1000*math.Pow(0.499, 1.4)},
		{"0.50", 1000, 500, 0.0224*1000 - 0.031*500},
		{"0.61", 100, 61, 0.0128*100 - 0.0153*61},
		{"0.80", 100, 80, 0.00146*100 - 0.00112*80},
		{"1.30", 100, 130, 0},
		{"above 1.30", 100, 500, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Lux(long16x, 402, tt.ch0, tt.ch1)
			assert.InDelta(t, tt.want, res.Lux, 1e-9)
		})
	}
}

func TestLux_ZeroChannel0(t *testing.T) {
	res := Lux(long16x, 402, 0, 0)
	assert.Equal(t, LuxResult{}, res)

	res = Lux(long16x, 402, 0, 25)
	assert.Equal(t, LuxResult{}, res)
}

func TestLux_Normalization(t *testing.T) {
	high := Lux(long16x, 402, 1000, 300).Lux
	low := Lux(long1x, 402, 1000, 300).Lux
	assert.InDelta(t, 16*high, low, 1e-9)

	medium := Lux(medium16x, 101, 1000, 300).Lux
	assert.InDelta(t, high*402.0/101.0, medium, 1e-9)
}

func TestLuxInt_Saturated(t *testing.T) {
	tests := []struct {
		cfg  Config
		clip uint16
	}{
		{fast16x, TSL2561_CLIPPING_13MS},
		{medium16x, TSL2561_CLIPPING_101MS},
		{long16x, TSL2561_CLIPPING_402MS},
		{Config{Gain: TSL2561_GAIN_1X, Integration: TSL2561_INTEGRATIONTIME_MANUAL}, TSL2561_CLIPPING_402MS},
	}
	for _, tt := range tests {
		assert.False(t, LuxInt(tt.cfg, tt.clip, tt.clip).Saturated, "%v", tt.cfg.Integration)
		assert.Equal(t, LuxIntResult{Saturated: true}, LuxInt(tt.cfg, tt.clip+1, 0), "%v", tt.cfg.Integration)
		assert.Equal(t, LuxIntResult{Saturated: true}, LuxInt(tt.cfg, 0, tt.clip+1), "%v", tt.cfg.Integration)
		assert.Equal(t, LuxIntResult{Saturated: true}, LuxInt(tt.cfg, 0xFFFF, 0xFFFF), "%v", tt.cfg.Integration)
	}
}

func TestLuxInt(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		ch0, ch1 uint16
		want     uint32
	}{
		{"segment 1", long16x, 60000, 3000, 1742},
		{"segment 3", long16x, 60000, 18000, 1127},
		{"low gain", long1x, 1000, 300, 300},
		{"101ms", medium16x, 1000, 300, 75},
		{"13ms", fast16x, 1000, 300, 550},
		{"segment 8", long16x, 40000, 60000, 0},
		{"rounds to zero", long16x, 1000, 1000, 0},
		{"dark", long16x, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, LuxIntResult{Lux: tt.want}, LuxInt(tt.cfg, tt.ch0, tt.ch1))
		})
	}
}

func TestLuxCoefficients(t *testing.T) {
	b, m := luxCoefficients(0)
	assert.Equal(t, uint64(TSL2561_LUX_B1T), b)
	assert.Equal(t, uint64(TSL2561_LUX_M1T), m)

	b, m = luxCoefficients(TSL2561_LUX_K5T)
	assert.Equal(t, uint64(TSL2561_LUX_B5T), b)
	assert.Equal(t, uint64(TSL2561_LUX_M5T), m)

	b, m = luxCoefficients(TSL2561_LUX_K5T + 1)
	assert.Equal(t, uint64(TSL2561_LUX_B6T), b)
	assert.Equal(t, uint64(TSL2561_LUX_M6T), m)

	b, m = luxCoefficients(TSL2561_LUX_K7T + 1)
	assert.Zero(t, b)
	assert.Zero(t, m)
}

// The two conversions agree within 2%, or within 2 lux where the result is
// small enough for the integer rounding and the 0.80-1.30 segment constants
// to dominate.
func TestLux_Agreement(t *testing.T) {
	tests := []struct {
		cfg      Config
		ch0, ch1 uint16
	}{
		{long16x, 40000, 2000},
		{long16x, 40000, 8000},
		{long16x, 40000, 12000},
		{long16x, 40000, 18000},
		{long16x, 40000, 22000},
		{long16x, 40000, 28000},
		{long16x, 40000, 36000},
		{long16x, 40000, 40000},
		{long16x, 40000, 48000},
		{long16x, 40000, 60000},
		{fast16x, 4000, 1200},
		{medium16x, 30000, 9000},
		{long1x, 3000, 900},
		{medium1x, 2000, 1100},
	}
	for _, tt := range tests {
		f := Lux(tt.cfg, tt.cfg.Integration.Milliseconds(), tt.ch0, tt.ch1)
		i := LuxInt(tt.cfg, tt.ch0, tt.ch1)
		require.False(t, f.Saturated)
		require.False(t, i.Saturated)

		tolerance := math.Max(0.02*f.Lux, 2)
		assert.InDelta(t, f.Lux, float64(i.Lux), tolerance, "ch0=%d ch1=%d %v", tt.ch0, tt.ch1, tt.cfg.Integration)
	}
}

func TestCalculateLux_UsesDeviceConfig(t *testing.T) {
	tsl := newTestDevice(t,
		readOp(TSL2561_REGISTER_TIMING, 0x02),
		writeOp(TSL2561_REGISTER_TIMING, 0x12),
	)
	ms, err := tsl.Configure(TSL2561_GAIN_16X, TSL2561_INTEGRATIONTIME_402MS)
	require.NoError(t, err)

	assert.Equal(t, Lux(long16x, ms, 1000, 300), tsl.CalculateLux(ms, 1000, 300))
	assert.Equal(t, LuxInt(long16x, 1000, 300), tsl.CalculateLuxInt(1000, 300))
}

func TestGetNormalizedOutput(t *testing.T) {
	assert.InDelta(t, 1.0, GetNormalizedOutput(TSL2561_FULLSPECTRUM, 0xFFFF, 0), 1e-12)
	assert.InDelta(t, 0.5, GetNormalizedOutput(TSL2561_INFRARED, 0, 0xFFFF/2+1), 1e-4)
	assert.Zero(t, GetNormalizedOutput(TSL2561_VISIBLE, 10, 20))
	assert.Zero(t, GetNormalizedOutput(9, 10, 20))
}

func TestRawSample_Normalized(t *testing.T) {
	s := RawSample{Channel0: 0xFFFF, Channel1: 0xFFFF / 4}
	assert.InDelta(t, 1.0, s.FullSpectrum(), 1e-12)
	assert.InDelta(t, 0.25, s.Infrared(), 1e-4)
	assert.InDelta(t, 0.75, s.Visible(), 1e-4)
}
