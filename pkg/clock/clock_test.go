package clock_test

import (
	"os"
	"strings"
	"testing"

	log "github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/gptimer/pkg/clock"
)

func discard() log.Logger {
	return log.New(os.Stderr).Level(log.Disabled)
}

func TestGettimeofdayAdvances(t *testing.T) {
	c, err := clock.New(clock.Gettimeofday, discard())
	require.NoError(t, err)
	require.Equal(t, "gettimeofday", c.Name)

	t1 := c.Now()
	t2 := c.Now()
	require.GreaterOrEqual(t, t1, 0.0)
	require.GreaterOrEqual(t, t2, t1)
}

func TestClockGettimeAdvances(t *testing.T) {
	c, err := clock.New(clock.ClockGettime, discard())
	require.NoError(t, err)

	t1 := c.Now()
	t2 := c.Now()
	require.GreaterOrEqual(t, t2, t1)
}

func TestPlaceboReturnsZero(t *testing.T) {
	c, err := clock.New(clock.Placebo, discard())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.Equal(t, 0.0, c.Now())
	}
}

func TestUnknownSource(t *testing.T) {
	_, err := clock.New(clock.Source(42), discard())
	require.ErrorIs(t, err, clock.ErrUnavailable)
}

func TestMPIWtimeUnavailableUntilRegistered(t *testing.T) {
	_, err := clock.New(clock.MPIWtime, discard())
	require.ErrorIs(t, err, clock.ErrUnavailable)

	clock.SetMPIWtime(func() float64 { return 42.0 })
	defer clock.SetMPIWtime(nil)

	c, err := clock.New(clock.MPIWtime, discard())
	require.NoError(t, err)
	require.Equal(t, 42.0, c.Now())
}

func TestPAPITimeSubtractsReference(t *testing.T) {
	usec := int64(1_000_000)
	clock.SetPAPIRealUsec(func() int64 { return usec })
	defer clock.SetPAPIRealUsec(nil)

	c, err := clock.New(clock.PAPITime, discard())
	require.NoError(t, err)

	require.Equal(t, 0.0, c.Now())
	usec += 500_000
	require.InDelta(t, 0.5, c.Now(), 1e-9)
}

func TestParseMaxFreq(t *testing.T) {
	mhz, err := clock.ParseMaxFreq(strings.NewReader("3400000\n"))
	require.NoError(t, err)
	require.InDelta(t, 3400.0, mhz, 1e-9)

	_, err = clock.ParseMaxFreq(strings.NewReader(""))
	require.Error(t, err)

	_, err = clock.ParseMaxFreq(strings.NewReader("0\n"))
	require.Error(t, err)
}

func TestParseCPUInfo(t *testing.T) {
	cpuinfo := `processor	: 0
vendor_id	: GenuineIntel
cpu MHz		: 2893.203
cache size	: 25344 KB
`
	mhz, err := clock.ParseCPUInfo(strings.NewReader(cpuinfo))
	require.NoError(t, err)
	require.InDelta(t, 2893.203, mhz, 1e-9)

	_, err = clock.ParseCPUInfo(strings.NewReader("processor : 0\n"))
	require.Error(t, err)
}
