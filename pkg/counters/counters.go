// Package counters defines the interface the timing engine expects from a
// hardware-counter adapter (a PAPI-like collaborator). The engine only
// samples counters around start/stop pairs and prints accumulated values;
// event programming, multiplexing and derived events are the adapter's
// business.
package counters

// Values holds per-region event accumulators, one slot per enabled event.
type Values struct {
	Last  []int64
	Accum []int64
}

func NewValues(nevents int) *Values {
	return &Values{
		Last:  make([]int64, nevents),
		Accum: make([]int64, nevents),
	}
}

// Add merges the accumulators of in into v.
func (v *Values) Add(in *Values) {
	for i := range v.Accum {
		if i < len(in.Accum) {
			v.Accum[i] += in.Accum[i]
		}
	}
}

// Clone returns an independent copy, used when summing across threads.
func (v *Values) Clone() *Values {
	out := NewValues(len(v.Accum))
	copy(out.Last, v.Last)
	copy(out.Accum, v.Accum)

	return out
}

// Reset zeroes the accumulators, keeping the event set.
func (v *Values) Reset() {
	for i := range v.Accum {
		v.Accum[i] = 0
		v.Last[i] = 0
	}
}

type Adapter interface {
	// Init programs the configured events. Called once from the engine's
	// Initialize with the fixed thread capacity.
	Init(maxthreads int) error
	// ThreadInit brings up counting for a newly registered thread. In the
	// mutex-guarded thread back-end it runs inside the registry mutex.
	ThreadInit(t int) error
	// Start snapshots current counter values into v.Last.
	Start(t int, v *Values) error
	// Stop accumulates deltas since the matching Start into v.Accum.
	Stop(t int, v *Values) error
	EventNames() []string
	// SetOption receives options the engine does not recognize. It
	// reports whether the option was handled.
	SetOption(option, val int) (bool, error)
	// RealUsec exposes the adapter's real-time microsecond clock, usable
	// as an engine time source.
	RealUsec() int64
	Finalize()
}

// Noop is the adapter used when no hardware counters are configured.
type Noop struct{}

func (Noop) Init(int) error                   { return nil }
func (Noop) ThreadInit(int) error             { return nil }
func (Noop) Start(int, *Values) error         { return nil }
func (Noop) Stop(int, *Values) error          { return nil }
func (Noop) EventNames() []string             { return nil }
func (Noop) SetOption(int, int) (bool, error) { return false, nil }
func (Noop) RealUsec() int64                  { return 0 }
func (Noop) Finalize()                        {}
