// Package timer is the region-timing engine: nested start/stop pairs
// aggregate wallclock and CPU statistics per region per thread, and a
// hierarchical report renders the recorded call tree.
//
// Each thread owns its region set, hash index and call stack outright;
// the hot path shares no mutable state across threads. Initialize and
// Finalize must run single-threaded.
package timer

import (
	"os"
	"sync/atomic"

	log "github.com/rs/zerolog"

	"github.com/maxgio92/gptimer/pkg/clock"
	"github.com/maxgio92/gptimer/pkg/counters"
	"github.com/maxgio92/gptimer/pkg/thread"
)

// threadState is the per-thread slice of the engine. Index 0 of the call
// stack is the permanent sentinel root, so every real region has a parent.
type threadState struct {
	root       *Region
	last       *Region // tail of the insertion-ordered list
	hash       []bucket
	callstack  [MaxStack]*Region
	stackidx   int
	maxNameLen int
	maxDepth   int
	nregions   int // regions excluding the sentinel
}

// Profiler holds the whole engine state. Production code normally uses
// the package-level Default instance; tests instantiate their own.
type Profiler struct {
	config

	logger   log.Logger
	registry thread.Registry
	adapter  counters.Adapter
	nevents  int

	clk *clock.Clock
	now clock.Func

	initialized bool
	disabled    atomic.Bool

	threads []*threadState
}

func New(opts ...ProfilerOption) *Profiler {
	p := &Profiler{
		config: defaultConfig(),
		logger: log.New(os.Stderr).Level(log.WarnLevel),
	}
	for _, f := range opts {
		f(p)
	}
	if p.registry == nil {
		p.registry = thread.NewPinned()
	}

	return p
}

// Initialize freezes the configuration, sets up the per-thread state and
// brings up the selected time source, falling back to gettimeofday when
// its init fails. Must be called from a single thread before any timing
// call.
func (p *Profiler) Initialize() error {
	if p.initialized {
		return p.errorf(ErrAlreadyInitialized, "Initialize")
	}

	if err := p.registry.Init(p.maxthreads, p.onNewThread); err != nil {
		return p.errorf(err, "thread registry init")
	}

	if p.adapter != nil {
		if err := p.adapter.Init(p.maxthreads); err != nil {
			return p.errorf(err, "counter adapter init")
		}
		p.nevents = len(p.adapter.EventNames())
	}

	p.threads = make([]*threadState, p.maxthreads)
	for t := range p.threads {
		p.threads[t] = newThreadState(p.tablesize)
	}

	clk, err := clock.New(p.source, p.logger)
	if err != nil {
		p.logger.Warn().Err(err).Msg("time source init failed, reverting to gettimeofday")
		p.source = clock.Gettimeofday
		if clk, err = clock.New(p.source, p.logger); err != nil {
			return p.errorf(ErrTimeSourceUnavailable, "gettimeofday fallback: %v", err)
		}
	}
	p.clk = clk
	p.now = clk.Now

	if p.verbose {
		t1 := p.now()
		t2 := p.now()
		p.logger.Info().Str("utr", clk.Name).Float64("per_call_est", t2-t1).Msg("underlying wallclock routine ready")
	}

	p.initialized = true

	return nil
}

func newThreadState(tablesize int) *threadState {
	root := &Region{name: rootName, onflg: true}
	ts := &threadState{
		root: root,
		last: root,
		hash: make([]bucket, tablesize),
	}
	ts.callstack[0] = root

	return ts
}

// onNewThread runs under the registry's allocation lock for each newly
// seen thread.
func (p *Profiler) onNewThread(t int) error {
	if p.adapter != nil {
		return p.adapter.ThreadInit(t)
	}

	return nil
}

// Finalize releases all engine state and restores default configuration.
// Must run single-threaded with no timers in flight.
func (p *Profiler) Finalize() error {
	if !p.initialized {
		return p.errorf(ErrNotInitialized, "Finalize")
	}

	p.threads = nil
	p.registry.Finalize()
	if p.adapter != nil {
		p.adapter.Finalize()
	}
	p.nevents = 0
	p.clk = nil
	p.now = nil
	p.config = defaultConfig()
	p.disabled.Store(false)
	p.initialized = false

	return nil
}

// Enable re-enables timing after Disable.
func (p *Profiler) Enable() { p.disabled.Store(false) }

// Disable makes all start/stop calls no-ops until Enable.
func (p *Profiler) Disable() { p.disabled.Store(true) }

func (p *Profiler) IsInitialized() bool { return p.initialized }

// Reset zeroes every region's accumulators and counts on all threads,
// keeping the set of known names and their recorded parents.
func (p *Profiler) Reset() error {
	if !p.initialized {
		return p.errorf(ErrNotInitialized, "Reset")
	}

	for t := 0; t < p.registry.NumThreads(); t++ {
		for r := p.threads[t].root; r != nil; r = r.next {
			r.onflg = false
			r.count = 0
			r.nrecurse = 0
			r.recurselvl = 0
			r.wall = wallStats{}
			r.cpu = cpuStats{}
			if r.aux != nil {
				r.aux.Reset()
			}
		}
	}

	if p.verbose {
		p.logger.Info().Msg("accumulators for all timers set to zero")
	}

	return nil
}

// Stamp returns a one-shot timestamp of wallclock, user CPU and system
// CPU, all in seconds.
func (p *Profiler) Stamp() (wall, usr, sys float64, err error) {
	if !p.initialized {
		return 0, 0, 0, p.errorf(ErrNotInitialized, "Stamp")
	}

	u, s, err := cpuStamp()
	if err != nil {
		return 0, 0, 0, p.errorf(err, "cpu stamp")
	}

	return p.now(), float64(u) * 1.e-6, float64(s) * 1.e-6, nil
}
