package timer

// Stop closes the named region and folds the elapsed interval into its
// statistics. The clocks are sampled before the entry lookup so lookup
// cost does not bias the measurement.
func (p *Profiler) Stop(name string) error {
	if p.disabled.Load() {
		return nil
	}
	if !p.initialized {
		return p.errorf(ErrNotInitialized, "Stop %q", name)
	}

	wall, usr, sys, err := p.stopStamp()
	if err != nil {
		return p.errorf(err, "Stop %q", name)
	}

	t, err := p.registry.Current()
	if err != nil {
		return p.errorf(err, "Stop %q", name)
	}
	ts := p.threads[t]

	if ts.stackidx > p.depthlimit {
		ts.stackidx--
		return nil
	}

	name = truncateName(name)
	r, _ := ts.getEntry(name)
	if r == nil {
		return p.errorf(ErrUnknownTimer, "Stop %q thread %d: timer had not been started", name, t)
	}

	return p.stopEntry(t, ts, r, wall, usr, sys)
}

// StopHandle requires the handle filled by StartHandle; the name is used
// only for diagnostics.
func (p *Profiler) StopHandle(name string, h *Handle) error {
	if p.disabled.Load() {
		return nil
	}
	if !p.initialized {
		return p.errorf(ErrNotInitialized, "StopHandle %q", name)
	}

	wall, usr, sys, err := p.stopStamp()
	if err != nil {
		return p.errorf(err, "StopHandle %q", name)
	}

	t, err := p.registry.Current()
	if err != nil {
		return p.errorf(err, "StopHandle %q", name)
	}
	ts := p.threads[t]

	if ts.stackidx > p.depthlimit {
		ts.stackidx--
		return nil
	}

	if h == nil || h.r == nil {
		return p.errorf(ErrUnknownTimer, "StopHandle %q: bad input handle", name)
	}

	return p.stopEntry(t, ts, h.r, wall, usr, sys)
}

// StopInstr closes a region keyed by instrumentation address.
func (p *Profiler) StopInstr(addr uintptr) error {
	if p.disabled.Load() {
		return nil
	}
	if !p.initialized {
		return p.errorf(ErrNotInitialized, "StopInstr %#x", addr)
	}

	wall, usr, sys, err := p.stopStamp()
	if err != nil {
		return p.errorf(err, "StopInstr %#x", addr)
	}

	t, err := p.registry.Current()
	if err != nil {
		return p.errorf(err, "StopInstr %#x", addr)
	}
	ts := p.threads[t]

	if ts.stackidx > p.depthlimit {
		ts.stackidx--
		return nil
	}

	r, _ := ts.getEntryInstr(addr)
	if r == nil {
		return p.errorf(ErrUnknownTimer, "StopInstr %#x: timer had not been started", addr)
	}

	return p.stopEntry(t, ts, r, wall, usr, sys)
}

// stopStamp samples the enabled clocks for a stop.
func (p *Profiler) stopStamp() (wall float64, usr, sys int64, err error) {
	if p.wallEnabled {
		wall = p.now()
	}
	if p.cpuEnabled {
		if usr, sys, err = cpuStamp(); err != nil {
			return 0, 0, 0, err
		}
	}

	return wall, usr, sys, nil
}

// stopEntry is the common tail of the stop paths.
func (p *Profiler) stopEntry(t int, ts *threadState, r *Region, wall float64, usr, sys int64) error {
	if !r.onflg {
		return p.errorf(ErrUnbalancedStop, "timer %q was already off", r.name)
	}

	r.count++

	// Inside recursion only the bookkeeping moves; the timer keeps
	// running for the outermost layer.
	if r.recurselvl > 0 {
		r.nrecurse++
		r.recurselvl--
		return nil
	}

	return p.updateStats(t, ts, r, wall, usr, sys)
}

func (p *Profiler) updateStats(t int, ts *threadState, r *Region, wall float64, usr, sys int64) error {
	r.onflg = false

	ts.stackidx--
	if ts.stackidx < -1 {
		ts.stackidx = -1
		return p.errorf(ErrUnbalancedStop, "tree depth has become negative")
	}

	if p.adapter != nil && p.nevents > 0 {
		if err := p.adapter.Stop(t, r.aux); err != nil {
			return p.errorf(err, "counter stop for %q", r.name)
		}
	}

	if p.wallEnabled {
		delta := wall - r.wall.last
		r.wall.accum += delta

		if delta < 0 {
			p.logger.Warn().Str("timer", r.name).Float64("delta", delta).Msg("negative wallclock delta")
		}

		if r.count == 1 {
			r.wall.max = delta
			r.wall.min = delta
		} else {
			if delta > r.wall.max {
				r.wall.max = delta
			}
			if delta < r.wall.min {
				r.wall.min = delta
			}
		}
	}

	if p.cpuEnabled {
		r.cpu.accumUser += usr - r.cpu.lastUser
		r.cpu.accumSys += sys - r.cpu.lastSys
		r.cpu.lastUser = usr
		r.cpu.lastSys = sys
	}

	return nil
}
