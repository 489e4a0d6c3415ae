package timer

import (
	log "github.com/rs/zerolog"

	"github.com/maxgio92/gptimer/pkg/clock"
	"github.com/maxgio92/gptimer/pkg/counters"
	"github.com/maxgio92/gptimer/pkg/thread"
)

// Option identifies a settable engine option. Options may only be set
// before Initialize.
type Option int

const (
	OptionWall Option = iota + 1
	OptionCPU
	OptionAbortOnError
	OptionOverhead
	OptionDepthLimit
	OptionVerbose
	OptionPercent
	OptionPreamble
	OptionThreadSort
	OptionMultParent
	OptionCollision
	OptionMemUsage
	OptionPrintMethod
	OptionTableSize
	OptionMaxThreads
)

// Method selects how a region with several recorded parents is attached
// when the call tree is built for printing.
type Method int

const (
	FirstParent Method = iota
	LastParent
	MostFrequent
	FullTree
)

func (m Method) String() string {
	switch m {
	case FirstParent:
		return "first_parent"
	case LastParent:
		return "last_parent"
	case MostFrequent:
		return "most_frequent"
	case FullTree:
		return "full_tree"
	}

	return "unknown"
}

const (
	defaultTableSize  = 1023
	defaultMaxThreads = 64
	defaultDepthLimit = 99999
)

// config is frozen by Initialize and restored to defaults by Finalize.
type config struct {
	wallEnabled     bool
	cpuEnabled      bool
	overheadEnabled bool
	abortOnError    bool
	verbose         bool
	percent         bool
	doPreamble      bool
	doThreadSort    bool
	doMultParent    bool
	doCollision     bool
	doMemUsage      bool
	method          Method
	tablesize       int
	maxthreads      int
	depthlimit      int
	source          clock.Source
}

func defaultConfig() config {
	return config{
		wallEnabled:     true,
		overheadEnabled: true,
		doPreamble:      true,
		doThreadSort:    true,
		doMultParent:    true,
		doCollision:     true,
		method:          FullTree,
		tablesize:       defaultTableSize,
		maxthreads:      defaultMaxThreads,
		depthlimit:      defaultDepthLimit,
		source:          clock.Gettimeofday,
	}
}

// SetOption sets option to val. Unrecognized options are offered to the
// counter adapter before being rejected.
func (p *Profiler) SetOption(option Option, val int) error {
	if p.initialized {
		return p.errorf(ErrAlreadyInitialized, "SetOption must be called before Initialize")
	}
	b := val != 0

	switch option {
	case OptionWall:
		p.wallEnabled = b
	case OptionCPU:
		p.cpuEnabled = b
	case OptionAbortOnError:
		p.abortOnError = b
	case OptionOverhead:
		p.overheadEnabled = b
	case OptionDepthLimit:
		p.depthlimit = val
	case OptionVerbose:
		p.verbose = b
	case OptionPercent:
		p.percent = b
	case OptionPreamble:
		p.doPreamble = b
	case OptionThreadSort:
		p.doThreadSort = b
	case OptionMultParent:
		p.doMultParent = b
	case OptionCollision:
		p.doCollision = b
	case OptionMemUsage:
		p.doMemUsage = b
	case OptionPrintMethod:
		m := Method(val)
		if m.String() == "unknown" {
			return p.errorf(ErrBadValue, "print method %d", val)
		}
		p.method = m
	case OptionTableSize:
		if val < 1 {
			return p.errorf(ErrBadValue, "tablesize must be positive, got %d", val)
		}
		p.tablesize = val
	case OptionMaxThreads:
		if val < 1 {
			return p.errorf(ErrBadValue, "maxthreads must be positive, got %d", val)
		}
		p.maxthreads = val
	default:
		if p.adapter != nil {
			handled, err := p.adapter.SetOption(int(option), val)
			if err != nil {
				return p.errorf(err, "counter adapter option %d", option)
			}
			if handled {
				return nil
			}
		}

		return p.errorf(ErrBadOption, "option %d", option)
	}

	if p.verbose {
		p.logger.Info().Int("option", int(option)).Int("val", val).Msg("option set")
	}

	return nil
}

// SetTimeSource selects the underlying wallclock routine. An unavailable
// source returns ErrTimeSourceUnavailable; the selection still sticks, and
// Initialize will retry it and fall back to gettimeofday on failure.
func (p *Profiler) SetTimeSource(src clock.Source) error {
	if p.initialized {
		return p.errorf(ErrAlreadyInitialized, "SetTimeSource must be called before Initialize")
	}
	p.source = src
	if _, err := clock.New(src, p.logger); err != nil {
		return p.errorf(ErrTimeSourceUnavailable, "source %d: %v", src, err)
	}

	return nil
}

// ProfilerOption configures a Profiler at construction.
type ProfilerOption func(*Profiler)

func WithLogger(logger log.Logger) ProfilerOption {
	return func(p *Profiler) {
		p.logger = logger
	}
}

// WithRegistry overrides the thread registry back-end. The default is the
// pinned (OS thread id) registry.
func WithRegistry(r thread.Registry) ProfilerOption {
	return func(p *Profiler) {
		p.registry = r
	}
}

// WithAdapter plugs in a hardware-counter adapter.
func WithAdapter(a counters.Adapter) ProfilerOption {
	return func(p *Profiler) {
		p.adapter = a
	}
}
