package timer

import (
	"fmt"

	"github.com/maxgio92/gptimer/pkg/counters"
)

// Start opens the named region on the calling thread, creating it on
// first use. Re-entering a region that is already on counts as recursion:
// the reported time reflects only the outermost layer.
func (p *Profiler) Start(name string) error {
	if p.disabled.Load() {
		return nil
	}
	if !p.initialized {
		return p.errorf(ErrNotInitialized, "Start %q", name)
	}

	t, err := p.registry.Current()
	if err != nil {
		return p.errorf(err, "Start %q", name)
	}
	ts := p.threads[t]

	// Beyond the depth limit nothing is interned or timed; the matching
	// stop undoes the increment.
	if ts.stackidx >= p.depthlimit {
		ts.stackidx++
		return nil
	}

	name = truncateName(name)
	r, indx := ts.getEntry(name)

	return p.startLocated(t, ts, r, indx, func() *Region {
		return &Region{name: name}
	})
}

// StartHandle behaves like Start but caches the resolved region in h on
// first use, skipping the hash lookup on subsequent calls. A handle is
// bound to the thread that filled it.
func (p *Profiler) StartHandle(name string, h *Handle) error {
	if p.disabled.Load() {
		return nil
	}
	if !p.initialized {
		return p.errorf(ErrNotInitialized, "StartHandle %q", name)
	}

	t, err := p.registry.Current()
	if err != nil {
		return p.errorf(err, "StartHandle %q", name)
	}
	ts := p.threads[t]

	if ts.stackidx >= p.depthlimit {
		ts.stackidx++
		return nil
	}

	name = truncateName(name)
	var (
		r    *Region
		indx = -1
	)
	if h.r != nil {
		r = h.r
	} else {
		r, indx = ts.getEntry(name)
	}

	if err := p.startLocated(t, ts, r, indx, func() *Region {
		return &Region{name: name}
	}); err != nil {
		return err
	}

	if h.r == nil {
		// The entry exists now even if startLocated took the recursion
		// path, so a lookup cannot miss.
		if h.r, _ = ts.getEntry(name); h.r == nil {
			return p.errorf(ErrUnknownTimer, "StartHandle %q: entry vanished", name)
		}
	}

	return nil
}

// StartInstr opens a region keyed by instrumentation address, for entry
// hooks inserted by the compiler. The textual form of the address serves
// as the region name.
func (p *Profiler) StartInstr(addr uintptr) error {
	if p.disabled.Load() {
		return nil
	}
	if !p.initialized {
		return p.errorf(ErrNotInitialized, "StartInstr %#x", addr)
	}

	t, err := p.registry.Current()
	if err != nil {
		return p.errorf(err, "StartInstr %#x", addr)
	}
	ts := p.threads[t]

	if ts.stackidx >= p.depthlimit {
		ts.stackidx++
		return nil
	}

	r, indx := ts.getEntryInstr(addr)

	return p.startLocated(t, ts, r, indx, func() *Region {
		return &Region{name: fmt.Sprintf("%x", addr), address: addr}
	})
}

// startLocated is the common tail of the start paths: recursion check,
// stack push, parent bookkeeping, then turning the region on. A nil r
// with a valid bucket index means a new region must be interned.
func (p *Profiler) startLocated(t int, ts *threadState, r *Region, indx int, create func() *Region) error {
	if r != nil && r.onflg {
		r.recurselvl++
		return nil
	}

	// The increment is unconditional so that stop can decrement
	// unconditionally.
	ts.stackidx++
	if ts.stackidx > MaxStack-1 {
		return p.errorf(ErrStackOverflow, "thread %d", t)
	}

	if r == nil {
		r = create()
		if p.nevents > 0 {
			r.aux = counters.NewValues(p.nevents)
		}
		ts.insert(r, indx)
	}

	ts.observeParent(r)

	return p.turnOn(t, r)
}

// observeParent records r's parent as the stack element one below the new
// top. Known parents bump their per-parent count; an empty stack bumps
// the orphan count (kept although the sentinel makes it unreachable in
// practice).
func (ts *threadState) observeParent(r *Region) {
	ts.callstack[ts.stackidx] = r

	if ts.stackidx == 0 {
		r.norphan++
		return
	}

	parent := ts.callstack[ts.stackidx-1]
	for i, pr := range r.parents {
		if pr == parent {
			r.parentCount[i]++
			return
		}
	}
	r.parents = append(r.parents, parent)
	r.parentCount = append(r.parentCount, 1)
}

// turnOn samples the enabled clocks into the region's last-start slots.
func (p *Profiler) turnOn(t int, r *Region) error {
	r.onflg = true

	if p.cpuEnabled {
		usr, sys, err := cpuStamp()
		if err != nil {
			return p.errorf(err, "cpu stamp for %q", r.name)
		}
		r.cpu.lastUser = usr
		r.cpu.lastSys = sys
	}

	if p.wallEnabled {
		r.wall.last = p.now()
	}

	if p.adapter != nil && p.nevents > 0 {
		if err := p.adapter.Start(t, r.aux); err != nil {
			return p.errorf(err, "counter start for %q", r.name)
		}
	}

	return nil
}

// Handle caches a resolved region so repeated start/stop pairs skip the
// hash walk entirely.
type Handle struct {
	r *Region
}
