package timer

import (
	"github.com/pkg/errors"
)

// Error kinds returned by the engine. Call sites wrap them with context;
// test with errors.Is.
var (
	ErrNotInitialized        = errors.New("initialize has not been called")
	ErrAlreadyInitialized    = errors.New("initialize has already been called")
	ErrBadOption             = errors.New("unknown option")
	ErrBadValue              = errors.New("bad option value")
	ErrThreadOverflow        = errors.New("more threads than maxthreads")
	ErrStackOverflow         = errors.New("timer stack too deep")
	ErrUnbalancedStop        = errors.New("stop of a timer that is not on")
	ErrUnknownTimer          = errors.New("unknown timer")
	ErrTimeSourceUnavailable = errors.New("time source unavailable")
	ErrIO                    = errors.New("cannot open output file")
)

// errorf is the central error path. With abort_on_error set it logs at
// Fatal level, which terminates the process.
func (p *Profiler) errorf(err error, format string, args ...interface{}) error {
	wrapped := errors.Wrapf(err, format, args...)
	if p.abortOnError {
		p.logger.Fatal().Err(wrapped).Msg("aborting on error")
	}

	return wrapped
}
