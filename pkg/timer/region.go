package timer

import (
	"github.com/maxgio92/gptimer/pkg/counters"
)

const (
	// MaxChars is the longest region name kept. Longer names are
	// truncated silently, so names sharing their first MaxChars bytes
	// land in one region.
	MaxChars = 63
	// MaxStack bounds the per-thread nesting depth of open regions.
	MaxStack = 128
	// Counts below prThresh print as integers; region rows of the report
	// print larger counts as %9.1e.
	prThresh = 1000000

	rootName = "GPTIMER_ROOT"
)

type wallStats struct {
	last  float64 // timestamp from the last start
	accum float64
	max   float64 // longest single start/stop pair
	min   float64 // shortest single start/stop pair
}

type cpuStats struct {
	lastUser  int64 // microseconds, saved at start
	lastSys   int64
	accumUser int64
	accumSys  int64
}

// Region aggregates statistics for one named code section on one thread.
// A region is created on its owning thread's first start and lives until
// Finalize; nothing in here is shared across threads.
type Region struct {
	name    string
	address uintptr // set only by the instr entry points

	wall wallStats
	cpu  cpuStats
	aux  *counters.Values

	count      uint64 // completed start/stop calls
	nrecurse   uint64 // of which recursive
	recurselvl int    // current recursive re-entry depth
	norphan    int    // times observed with an empty stack
	onflg      bool

	next *Region // insertion-ordered list, hanging off the sentinel root

	parents     []*Region
	parentCount []int // calls made by parents[i], parallel to parents
	children    []*Region
}

// Name returns the region name as stored (truncated to MaxChars).
func (r *Region) Name() string { return r.name }

// add merges the statistics of in, for the cross-thread SUM rows.
func (r *Region) add(in *Region, wall, cpu bool) {
	r.count += in.count

	if wall {
		r.wall.accum += in.wall.accum
		if in.wall.max > r.wall.max {
			r.wall.max = in.wall.max
		}
		if in.wall.min < r.wall.min {
			r.wall.min = in.wall.min
		}
	}

	if cpu {
		r.cpu.accumUser += in.cpu.accumUser
		r.cpu.accumSys += in.cpu.accumSys
	}

	if r.aux != nil && in.aux != nil {
		r.aux.Add(in.aux)
	}
}

// truncateName caps a name at MaxChars bytes. All lookups and inserts see
// the truncated form.
func truncateName(name string) string {
	if len(name) > MaxChars {
		return name[:MaxChars]
	}

	return name
}
