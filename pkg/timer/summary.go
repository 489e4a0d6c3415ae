package timer

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// Global carries per-region statistics reduced across the threads of one
// rank, as consumed by the multiprocess aggregation collaborator. Mean
// and M2 follow the one-pass scheme of Chan et al. over per-rank wallmax
// values, so records merge pairwise in a log-depth tree reduction.
type Global struct {
	Name     string
	TotCalls uint64
	TotTasks int

	WallMax       float64
	WallMaxRank   int
	WallMaxThread int
	WallMin       float64
	WallMinRank   int
	WallMinThread int

	Mean float64
	M2   float64

	// Per counter event, max/min accumulated value with producers.
	EvtMax       []float64
	EvtMaxRank   []int
	EvtMaxThread []int
	EvtMin       []float64
	EvtMinRank   []int
	EvtMinThread []int
}

// GetThreadStats gathers stats for the named region across this rank's
// threads: total calls, wall max/min with the producing (rank, thread),
// and the same per counter event. The record comes back primed for
// merging (TotTasks=1, Mean=WallMax, M2=0).
func (p *Profiler) GetThreadStats(rank int, name string) (Global, error) {
	if !p.initialized {
		return Global{}, p.errorf(ErrNotInitialized, "GetThreadStats %q", name)
	}

	g := Global{Name: truncateName(name)}
	if p.nevents > 0 {
		g.EvtMax = make([]float64, p.nevents)
		g.EvtMaxRank = make([]int, p.nevents)
		g.EvtMaxThread = make([]int, p.nevents)
		g.EvtMin = make([]float64, p.nevents)
		g.EvtMinRank = make([]int, p.nevents)
		g.EvtMinThread = make([]int, p.nevents)
	}

	for t := 0; t < p.registry.NumThreads(); t++ {
		r, _ := p.threads[t].getEntry(g.Name)
		if r == nil {
			continue
		}
		g.TotCalls += r.count

		if r.wall.accum > g.WallMax {
			g.WallMax = r.wall.accum
			g.WallMaxRank = rank
			g.WallMaxThread = t
		}
		// WallMin is zero until the first thread contributes.
		if r.wall.accum < g.WallMin || g.WallMin == 0. {
			g.WallMin = r.wall.accum
			g.WallMinRank = rank
			g.WallMinThread = t
		}

		if r.aux != nil {
			for e := 0; e < p.nevents && e < len(r.aux.Accum); e++ {
				v := float64(r.aux.Accum[e])
				if v > g.EvtMax[e] {
					g.EvtMax[e] = v
					g.EvtMaxRank[e] = rank
					g.EvtMaxThread[e] = t
				}
				if v < g.EvtMin[e] || g.EvtMin[e] == 0. {
					g.EvtMin[e] = v
					g.EvtMinRank[e] = rank
					g.EvtMinThread[e] = t
				}
			}
		}
	}

	g.Mean = g.WallMax
	g.M2 = 0.
	g.TotTasks = 1

	return g, nil
}

// MergeGlobals folds src into dst: counts accumulate, max/min extend with
// their producers, and the running mean and M2 merge by the parallel
// variance update of Chan et al.
func MergeGlobals(dst *Global, src *Global) {
	dst.TotCalls += src.TotCalls

	if src.WallMax > dst.WallMax {
		dst.WallMax = src.WallMax
		dst.WallMaxRank = src.WallMaxRank
		dst.WallMaxThread = src.WallMaxThread
	}
	if src.WallMin < dst.WallMin {
		dst.WallMin = src.WallMin
		dst.WallMinRank = src.WallMinRank
		dst.WallMinThread = src.WallMinThread
	}

	tsksum := src.TotTasks + dst.TotTasks
	delta := src.Mean - dst.Mean
	dst.Mean += delta * float64(src.TotTasks) / float64(tsksum)
	dst.M2 += src.M2 + delta*delta*float64(src.TotTasks)*float64(dst.TotTasks)/float64(tsksum)
	dst.TotTasks = tsksum

	for e := 0; e < len(dst.EvtMax) && e < len(src.EvtMax); e++ {
		if src.EvtMax[e] > dst.EvtMax[e] {
			dst.EvtMax[e] = src.EvtMax[e]
			dst.EvtMaxRank[e] = src.EvtMaxRank[e]
			dst.EvtMaxThread[e] = src.EvtMaxThread[e]
		}
		if src.EvtMin[e] < dst.EvtMin[e] {
			dst.EvtMin[e] = src.EvtMin[e]
			dst.EvtMinRank[e] = src.EvtMinRank[e]
			dst.EvtMinThread[e] = src.EvtMinThread[e]
		}
	}
}

// Sigma returns the standard deviation implied by the merged M2.
func (g *Global) Sigma() float64 {
	if g.TotTasks > 1 {
		return math.Sqrt(g.M2 / float64(g.TotTasks-1))
	}

	return 0.
}

// PrSummary writes the single-process summary to the named file,
// diverting to stderr when the file cannot be opened.
func (p *Profiler) PrSummary(path string) error {
	if !p.initialized {
		return p.errorf(ErrNotInitialized, "PrSummary")
	}

	f, err := os.Create(path)
	if err != nil {
		p.logger.Warn().Err(err).Str("path", path).Msg("diverting summary to stderr")
		if werr := p.WriteSummary(os.Stderr); werr != nil {
			return werr
		}

		return p.errorf(ErrIO, "%s: %v", path, err)
	}
	defer f.Close()

	return p.WriteSummary(f)
}

// WriteSummary prints per-region totals across this process's threads.
// The multiprocess variant belongs to the aggregation collaborator, which
// reduces GetThreadStats records with MergeGlobals instead.
func (p *Profiler) WriteSummary(w io.Writer) error {
	if !p.initialized {
		return p.errorf(ErrNotInitialized, "WriteSummary")
	}

	nthreads := p.registry.NumThreads()
	multithread := nthreads > 1

	fmt.Fprintf(w, "Summary for a single process\n")
	fmt.Fprintf(w, "nthreads=%d\n", nthreads)
	fmt.Fprintf(w, "'ncalls': number of times the region was invoked across threads.\n")

	ts0 := p.threads[0]
	fmt.Fprintf(w, "\nname")
	if n := ts0.maxNameLen - len("name"); n > 0 {
		fmt.Fprintf(w, "%s", strings.Repeat(" ", n))
	}
	if multithread {
		fmt.Fprintf(w, "   ncalls   wallmax (thred)   wallmin (thred)")
	} else {
		fmt.Fprintf(w, "   ncalls   walltim")
	}
	fmt.Fprintf(w, "\n")

	for r := ts0.root.next; r != nil; r = r.next {
		g, err := p.GetThreadStats(0, r.name)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%s", g.Name)
		if n := ts0.maxNameLen - len(g.Name); n > 0 {
			fmt.Fprintf(w, "%s", strings.Repeat(" ", n))
		}
		if multithread {
			if g.TotCalls < prThresh {
				fmt.Fprintf(w, " %8d %9.3f (%5d) %9.3f (%5d)",
					g.TotCalls, g.WallMax, g.WallMaxThread, g.WallMin, g.WallMinThread)
			} else {
				fmt.Fprintf(w, " %8.1e %9.3f (%5d) %9.3f (%5d)",
					float64(g.TotCalls), g.WallMax, g.WallMaxThread, g.WallMin, g.WallMinThread)
			}
		} else {
			if g.TotCalls < prThresh {
				fmt.Fprintf(w, " %8d %9.3f", g.TotCalls, g.WallMax)
			} else {
				fmt.Fprintf(w, " %8.1e %9.3f", float64(g.TotCalls), g.WallMax)
			}
		}
		fmt.Fprintf(w, "\n")
	}

	return nil
}
