package timer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unsafe"

	"github.com/maxgio92/gptimer/pkg/clock"
)

const (
	cpuHeader      = "Usr       sys       usr+sys   "
	wallHeader     = "Wallclock max       min       "
	overheadHeader = "UTR_Overhead  "
)

// Pr writes the report to "timing.<id>" in the current directory.
func (p *Profiler) Pr(id int) error {
	if id < 0 || id > 999999 {
		return p.errorf(ErrBadValue, "bad id=%d for output file, must be in [0, 1000000)", id)
	}

	return p.PrFile(fmt.Sprintf("timing.%d", id))
}

// PrFile writes the report to the named file. If the file cannot be
// opened the report is diverted to stderr and ErrIO is returned.
func (p *Profiler) PrFile(path string) error {
	if !p.initialized {
		return p.errorf(ErrNotInitialized, "PrFile")
	}

	f, err := os.Create(path)
	if err != nil {
		p.logger.Warn().Err(err).Str("path", path).Msg("diverting report to stderr")
		if werr := p.WriteReport(os.Stderr); werr != nil {
			return werr
		}

		return p.errorf(ErrIO, "%s: %v", path, err)
	}
	defer f.Close()

	return p.WriteReport(f)
}

// WriteReport renders the full report: preamble, per-thread trees, the
// cross-thread sort, multiple-parent details, hash diagnostics, memory
// accounting and the thread map. All timers must be stopped.
func (p *Profiler) WriteReport(w io.Writer) error {
	if !p.initialized {
		return p.errorf(ErrNotInitialized, "WriteReport")
	}

	nthreads := p.registry.NumThreads()
	utrOverhead := p.utrOverhead()

	p.writePreamble(w, utrOverhead)

	// Sum of overhead across timers is meaningful per thread; kept for
	// the cross-thread section below.
	sum := make([]float64, nthreads)

	for t := 0; t < nthreads; t++ {
		ts := p.threads[t]
		p.constructTree(ts)
		ts.maxDepth = treeDepth(ts.root, 0)

		if t > 0 {
			fmt.Fprintf(w, "\n")
		}
		fmt.Fprintf(w, "Stats for thread %d:\n", t)

		fmt.Fprintf(w, "%s%s", strings.Repeat("  ", ts.maxDepth+1), strings.Repeat(" ", ts.maxNameLen))
		p.writeColumnHeaders(w)

		p.printSelfAndChildren(w, ts, ts.root, t, -1, utrOverhead)

		// Factor of 2: two clock reads per start/stop pair.
		var totcount uint64
		for r := ts.root.next; r != nil; r = r.next {
			sum[t] += float64(r.count) * 2 * utrOverhead
			totcount += r.count
		}
		if p.wallEnabled && p.overheadEnabled {
			fmt.Fprintf(w, "\n")
		}
		fmt.Fprintf(w, "Overhead sum = %9.3g wallclock seconds\n", sum[t])
		if totcount < prThresh {
			fmt.Fprintf(w, "Total calls  = %d\n", totcount)
		} else {
			fmt.Fprintf(w, "Total calls  = %9.3e\n", float64(totcount))
		}
	}

	if p.doThreadSort && nthreads > 1 {
		p.writeThreadSorted(w, nthreads, sum, utrOverhead)
	}

	if p.doMultParent {
		p.writeMultParent(w, nthreads)
	}

	if p.doCollision {
		p.writeCollisions(w, nthreads)
	}

	if p.doMemUsage {
		p.writeMemUsage(w, nthreads)
	}

	p.writeThreadMapping(w)

	return nil
}

func (p *Profiler) writePreamble(w io.Writer, utrOverhead float64) {
	if p.clk.Source == clock.Nanotime {
		fmt.Fprintf(w, "Clock rate = %f MHz\n", p.clk.MHz)
		fmt.Fprintf(w, "Source of clock rate was %s\n", p.clk.FreqFrom)
		if strings.Contains(p.clk.FreqFrom, "cpuinfo") && !strings.Contains(p.clk.FreqFrom, "cpufreq") {
			fmt.Fprintf(w, "WARNING: The contents of /proc/cpuinfo can change in variable frequency CPUs\n")
			fmt.Fprintf(w, "Therefore the use of nanotime (register read) is not recommended on machines so equipped\n")
		}
	}

	fmt.Fprintf(w, "Threading backend was %s\n", p.registry.Name())
	fmt.Fprintf(w, "Underlying timing routine was %s.\n", p.clk.Name)
	fmt.Fprintf(w, "Per-call utr overhead est: %g sec.\n", utrOverhead)

	if p.doPreamble {
		fmt.Fprintf(w, "If overhead stats are printed, roughly half the estimated number is\n"+
			"embedded in the wallclock stats for each timer.\n"+
			"Print method was %s.\n", p.method)
		fmt.Fprintf(w, "If a '%%_of' field is present, it is w.r.t. the first timer for thread 0.\n"+
			"A '*' in column 1 below means the timer had multiple parents, though the\n"+
			"values printed are for all calls.\n"+
			"Further down the listing may be more detailed information about multiple\n"+
			"parents. Look for 'Multiple parent info'\n\n")
	}
}

func (p *Profiler) writeColumnHeaders(w io.Writer) {
	fmt.Fprintf(w, "Called  Recurse ")
	if p.cpuEnabled {
		fmt.Fprintf(w, "%s", cpuHeader)
	}
	if p.wallEnabled {
		fmt.Fprintf(w, "%s", wallHeader)
		if p.percent && p.threads[0].root.next != nil {
			fmt.Fprintf(w, "%%_of_%5.5s ", p.threads[0].root.next.name)
		}
		if p.overheadEnabled {
			fmt.Fprintf(w, "%s", overheadHeader)
		}
	}
	if p.adapter != nil {
		for _, e := range p.adapter.EventNames() {
			fmt.Fprintf(w, "%16.16s ", e)
		}
	}
	fmt.Fprintf(w, "\n")
}

// printSelfAndChildren walks the constructed tree depth first. Depth -1
// marks the sentinel root, which is not printed.
func (p *Profiler) printSelfAndChildren(w io.Writer, ts *threadState, r *Region, t, depth int, utrOverhead float64) {
	if depth > -1 {
		p.printStats(w, ts, r, depth, true, utrOverhead)
	}
	for _, c := range r.children {
		p.printSelfAndChildren(w, ts, c, t, depth+1, utrOverhead)
	}
}

// printStats renders a single region row.
func (p *Profiler) printStats(w io.Writer, ts *threadState, r *Region, depth int, doindent bool, utrOverhead float64) {
	if r.onflg && p.verbose {
		p.logger.Warn().Str("timer", r.name).Msg("timer had not been turned off at print")
	}

	if doindent {
		// Regions with several parents get flagged in column 1.
		if len(r.parents) > 1 {
			fmt.Fprintf(w, "* ")
		} else {
			fmt.Fprintf(w, "  ")
		}
		fmt.Fprintf(w, "%s", strings.Repeat("  ", depth))
	}

	fmt.Fprintf(w, "%s", r.name)
	if n := ts.maxNameLen - len(r.name); n > 0 {
		fmt.Fprintf(w, "%s", strings.Repeat(" ", n))
	}
	if doindent {
		fmt.Fprintf(w, "%s", strings.Repeat("  ", ts.maxDepth-depth))
	}

	if r.count < prThresh {
		if r.nrecurse > 0 {
			fmt.Fprintf(w, "%8d %6d ", r.count, r.nrecurse)
		} else {
			fmt.Fprintf(w, "%8d    -   ", r.count)
		}
	} else {
		if r.nrecurse > 0 {
			fmt.Fprintf(w, "%9.1e %6.0e ", float64(r.count), float64(r.nrecurse))
		} else {
			fmt.Fprintf(w, "%9.1e    -   ", float64(r.count))
		}
	}

	if p.cpuEnabled {
		fusr := float64(r.cpu.accumUser) * 1.e-6
		fsys := float64(r.cpu.accumSys) * 1.e-6
		fmt.Fprintf(w, "%9.3f %9.3f %9.3f ", fusr, fsys, fusr+fsys)
	}

	if p.wallEnabled {
		for _, v := range []float64{r.wall.accum, r.wall.max, r.wall.min} {
			if v < 0.01 {
				fmt.Fprintf(w, "%9.2e ", v)
			} else {
				fmt.Fprintf(w, "%9.3f ", v)
			}
		}

		if p.percent && p.threads[0].root.next != nil {
			ratio := 0.
			if first := p.threads[0].root.next; first.wall.accum > 0. {
				ratio = r.wall.accum * 100. / first.wall.accum
			}
			fmt.Fprintf(w, " %9.2f ", ratio)
		}

		if p.overheadEnabled {
			fmt.Fprintf(w, "%13.3f ", float64(r.count)*2*utrOverhead)
		}
	}

	if r.aux != nil {
		for _, v := range r.aux.Accum {
			fmt.Fprintf(w, "%16d ", v)
		}
	}

	fmt.Fprintf(w, "\n")
}

// writeThreadSorted prints, for each region on thread 0, the rows of
// every thread that knows it plus a SUM row. Regions that exist only on
// non-zero threads do not appear: the walk follows thread 0's list.
func (p *Profiler) writeThreadSorted(w io.Writer, nthreads int, sum []float64, utrOverhead float64) {
	ts0 := p.threads[0]

	fmt.Fprintf(w, "\nSame stats sorted by timer for threaded regions:\n")
	fmt.Fprintf(w, "Thd %s", strings.Repeat(" ", ts0.maxNameLen))
	p.writeColumnHeaders(w)

	for r := ts0.root.next; r != nil; r = r.next {
		foundany := false
		first := true
		sumstats := *r
		sumstats.aux = nil
		if r.aux != nil {
			sumstats.aux = r.aux.Clone()
		}

		for t := 1; t < nthreads; t++ {
			for tr := p.threads[t].root.next; tr != nil; tr = tr.next {
				if tr.name != r.name {
					continue
				}
				// Print the thread-0 row only once a match exists.
				if first {
					first = false
					fmt.Fprintf(w, "%3.3d ", 0)
					p.printStats(w, ts0, r, 0, false, utrOverhead)
				}
				foundany = true
				fmt.Fprintf(w, "%3.3d ", t)
				p.printStats(w, ts0, tr, 0, false, utrOverhead)
				sumstats.add(tr, p.wallEnabled, p.cpuEnabled)
				break
			}
		}

		if foundany {
			fmt.Fprintf(w, "SUM ")
			p.printStats(w, ts0, &sumstats, 0, false, utrOverhead)
			fmt.Fprintf(w, "\n")
		}
	}

	if p.wallEnabled && p.overheadEnabled {
		osum := 0.
		for t := 0; t < nthreads; t++ {
			fmt.Fprintf(w, "OVERHEAD.%3.3d (wallclock seconds) = %9.3g\n", t, sum[t])
			osum += sum[t]
		}
		fmt.Fprintf(w, "OVERHEAD.SUM (wallclock seconds) = %9.3g\n", osum)
	}
}

func (p *Profiler) writeMultParent(w io.Writer, nthreads int) {
	for t := 0; t < nthreads; t++ {
		ts := p.threads[t]

		some := false
		for r := ts.root.next; r != nil; r = r.next {
			if len(r.parents) > 1 {
				some = true
				break
			}
		}
		if !some {
			continue
		}

		fmt.Fprintf(w, "\nMultiple parent info for thread %d:\n", t)
		if p.doPreamble && t == 0 {
			fmt.Fprintf(w, "Columns are count and name for the listed child\n"+
				"Rows are each parent, with their common child being the last entry, which is indented.\n"+
				"Count next to each parent is the number of times it called the child.\n"+
				"Count next to child is total number of times it was called by the listed parents.\n\n")
		}

		for r := ts.root.next; r != nil; r = r.next {
			if len(r.parents) > 1 {
				printMultParentInfo(w, r)
			}
		}
	}
}

func printMultParentInfo(w io.Writer, r *Region) {
	if r.norphan > 0 {
		if r.norphan < prThresh {
			fmt.Fprintf(w, "%8d %-32s\n", r.norphan, "ORPHAN")
		} else {
			fmt.Fprintf(w, "%8.1e %-32s\n", float64(r.norphan), "ORPHAN")
		}
	}

	for i, pr := range r.parents {
		if r.parentCount[i] < prThresh {
			fmt.Fprintf(w, "%8d %-32s\n", r.parentCount[i], pr.name)
		} else {
			fmt.Fprintf(w, "%8.1e %-32s\n", float64(r.parentCount[i]), pr.name)
		}
	}

	if r.count < prThresh {
		fmt.Fprintf(w, "%8d   %-32s\n\n", r.count, r.name)
	} else {
		fmt.Fprintf(w, "%8.1e   %-32s\n\n", float64(r.count), r.name)
	}
}

func (p *Profiler) writeCollisions(w io.Writer, nthreads int) {
	for t := 0; t < nthreads; t++ {
		ts := p.threads[t]

		first := true
		totent := 0
		numZero, numOne, numTwo, numMore := 0, 0, 0, 0
		most := 0

		for i := range ts.hash {
			nument := len(ts.hash[i].entries)
			if nument > 1 {
				totent += nument - 1
				if first {
					first = false
					fmt.Fprintf(w, "\nthread %d had some hash collisions:\n", t)
				}
				fmt.Fprintf(w, "hashtable[%d][%d] had %d entries:", t, i, nument)
				for _, r := range ts.hash[i].entries {
					fmt.Fprintf(w, " %s", r.name)
				}
				fmt.Fprintf(w, "\n")
			}
			switch nument {
			case 0:
				numZero++
			case 1:
				numOne++
			case 2:
				numTwo++
			default:
				numMore++
			}
			if nument > most {
				most = nument
			}
		}

		if totent > 0 {
			fmt.Fprintf(w, "Total collisions thread %d = %d\n", t, totent)
			fmt.Fprintf(w, "Entry information:\n")
			fmt.Fprintf(w, "num_zero = %d num_one = %d num_two = %d num_more = %d\n",
				numZero, numOne, numTwo, numMore)
			fmt.Fprintf(w, "Most = %d\n", most)
		}
	}
	fmt.Fprintf(w, "Size of hash table was %d\n", p.tablesize)
}

func (p *Profiler) writeMemUsage(w io.Writer, nthreads int) {
	const ptrSize = float64(unsafe.Sizeof((*Region)(nil)))

	hashmem := float64(unsafe.Sizeof(bucket{})) * float64(p.tablesize) * float64(p.maxthreads)
	regionmem := 0.
	pchmem := 0.

	for t := 0; t < nthreads; t++ {
		numtimers := 0
		for r := p.threads[t].root.next; r != nil; r = r.next {
			numtimers++
			pchmem += ptrSize * float64(len(r.children)+len(r.parents))
		}
		hashmem += float64(numtimers) * ptrSize
		regionmem += float64(numtimers) * float64(unsafe.Sizeof(Region{}))
	}

	totmem := hashmem + regionmem + pchmem
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Total memory usage = %g KB\n", totmem*.001)
	fmt.Fprintf(w, "Components:\n")
	fmt.Fprintf(w, "Hashmem             = %g KB\n"+
		"Regionmem           = %g KB\n"+
		"Parent/child arrays = %g KB\n",
		hashmem*.001, regionmem*.001, pchmem*.001)
}

func (p *Profiler) writeThreadMapping(w io.Writer) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Thread mapping:\n")
	for t, id := range p.registry.Mapping() {
		fmt.Fprintf(w, "threadid[%d] = %d\n", t, id)
	}
}

// utrOverhead estimates the per-call cost of the underlying timing
// routine by reading it 100 times.
func (p *Profiler) utrOverhead() float64 {
	val1 := p.now()
	var val2 float64
	for i := 0; i < 100; i++ {
		val2 = p.now()
	}

	return 0.01 * (val2 - val1)
}

// ReportString renders the report into a string, for diagnostics.
func (p *Profiler) ReportString() (string, error) {
	var b strings.Builder
	if err := p.WriteReport(&b); err != nil {
		return "", err
	}

	return b.String(), nil
}
