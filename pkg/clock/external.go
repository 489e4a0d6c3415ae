package clock

import (
	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
)

// The MPI and hardware-counter time sources are provided by external
// collaborators: an aggregation layer registers its MPI_Wtime equivalent,
// a counter adapter registers its real-usec clock. Until registered the
// corresponding sources are unavailable.
var (
	mpiWtime     Func
	papiRealUsec func() int64
)

// SetMPIWtime registers the walltime routine of the multiprocess layer.
func SetMPIWtime(f Func) {
	mpiWtime = f
}

// SetPAPIRealUsec registers the real-usec clock of the counter adapter.
func SetPAPIRealUsec(f func() int64) {
	papiRealUsec = f
}

func initMPIWtime(c *Clock, _ log.Logger) error {
	if mpiWtime == nil {
		return errors.Wrap(ErrUnavailable, "no MPI walltime routine registered")
	}
	c.Now = mpiWtime

	return nil
}

func initPAPITime(c *Clock, _ log.Logger) error {
	if papiRealUsec == nil {
		return errors.Wrap(ErrUnavailable, "no counter adapter clock registered")
	}
	ref := papiRealUsec()
	c.Now = func() float64 {
		return float64(papiRealUsec()-ref) * 1.e-6
	}

	return nil
}
