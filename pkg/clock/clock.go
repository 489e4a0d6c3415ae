package clock

import (
	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Source identifies one of the underlying wallclock routines.
type Source int

const (
	Gettimeofday Source = iota
	Nanotime
	MPIWtime
	ClockGettime
	PAPITime
	Placebo
)

var ErrUnavailable = errors.New("time source unavailable")

// Func returns wallclock seconds. It must be reentrant and must not have
// side effects beyond reading the clock.
type Func func() float64

// Clock is an initialized time source.
type Clock struct {
	Source Source
	Name   string
	Now    Func

	// MHz and FreqFrom are set only by the nanotime source, for reporting.
	MHz      float64
	FreqFrom string
}

type driver struct {
	src  Source
	name string
	init func(c *Clock, logger log.Logger) error
}

var drivers = []driver{
	{Gettimeofday, "gettimeofday", initGettimeofday},
	{Nanotime, "nanotime", initNanotime},
	{MPIWtime, "MPI_Wtime", initMPIWtime},
	{ClockGettime, "clock_gettime", initClockGettime},
	{PAPITime, "PAPI_get_real_usec", initPAPITime},
	{Placebo, "placebo", initPlacebo},
}

// New initializes the requested time source. A source whose init fails
// returns ErrUnavailable; the caller decides whether to fall back.
func New(src Source, logger log.Logger) (*Clock, error) {
	for _, d := range drivers {
		if d.src != src {
			continue
		}
		c := &Clock{Source: src, Name: d.name}
		if err := d.init(c, logger); err != nil {
			if !errors.Is(err, ErrUnavailable) {
				err = errors.Wrap(ErrUnavailable, err.Error())
			}
			return nil, errors.Wrapf(err, "init %s", d.name)
		}
		return c, nil
	}

	return nil, errors.Wrapf(ErrUnavailable, "unknown time source %d", src)
}

// Subtracting a reference second captured at init preserves double
// precision over long runs.
func initGettimeofday(c *Clock, _ log.Logger) error {
	var tv unix.Timeval
	if err := unix.Gettimeofday(&tv); err != nil {
		return errors.Wrap(err, "gettimeofday")
	}
	ref := tv.Sec
	c.Now = func() float64 {
		var tv unix.Timeval
		if err := unix.Gettimeofday(&tv); err != nil {
			return -1
		}
		return float64(tv.Sec-ref) + 1.e-6*float64(tv.Usec)
	}

	return nil
}

func initClockGettime(c *Clock, _ log.Logger) error {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &ts); err != nil {
		return errors.Wrap(err, "clock_gettime")
	}
	ref := ts.Sec
	c.Now = func() float64 {
		var ts unix.Timespec
		if err := unix.ClockGettime(unix.CLOCK_REALTIME, &ts); err != nil {
			return -1
		}
		return float64(ts.Sec-ref) + 1.e-9*float64(ts.Nsec)
	}

	return nil
}

func initNanotime(c *Clock, logger log.Logger) error {
	if !tscSupported {
		return errors.Wrap(ErrUnavailable, "nanotime requires the TSC register")
	}
	mhz, from, err := clockFreq()
	if err != nil {
		return errors.Wrap(err, "cannot get clock freq")
	}
	logger.Debug().Float64("mhz", mhz).Str("source", from).Msg("nanotime clock rate")

	cyc2sec := 1. / (mhz * 1.e6)
	c.MHz = mhz
	c.FreqFrom = from
	c.Now = func() float64 {
		return float64(rdtsc()) * cyc2sec
	}

	return nil
}

func initPlacebo(c *Clock, _ log.Logger) error {
	c.Now = func() float64 { return 0. }
	return nil
}
