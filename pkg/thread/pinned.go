package thread

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Pinned registers threads by OS thread id. Goroutines that start and
// stop timers must be pinned with runtime.LockOSThread so their id is
// stable. Slot allocation is serialized by a mutex; once a thread holds a
// slot its lookups are lock-free.
type Pinned struct {
	mu    sync.Mutex
	slots sync.Map // tid (uint64) -> slot (int)
	ids   []uint64
	n     int
	max   int
	onNew NewThreadFunc
}

func NewPinned() *Pinned {
	return &Pinned{}
}

func (r *Pinned) Init(maxthreads int, onNew NewThreadFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ids = make([]uint64, maxthreads)
	r.max = maxthreads
	r.n = 0
	r.onNew = onNew
	r.slots = sync.Map{}

	return nil
}

func (r *Pinned) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ids = nil
	r.n = 0
	r.max = 0
	r.onNew = nil
	r.slots = sync.Map{}
}

func (r *Pinned) Current() (int, error) {
	tid := uint64(unix.Gettid())
	if v, ok := r.slots.Load(tid); ok {
		return v.(int), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Lost a race with ourselves after an unpinned migration? Re-check.
	if v, ok := r.slots.Load(tid); ok {
		return v.(int), nil
	}
	if r.n >= r.max {
		return -1, errors.Wrapf(ErrOverflow, "tid %d needs a new slot, maxthreads=%d", tid, r.max)
	}
	t := r.n
	if r.onNew != nil {
		if err := r.onNew(t); err != nil {
			return -1, err
		}
	}
	r.ids[t] = tid
	r.slots.Store(tid, t)
	r.n++

	return t, nil
}

func (r *Pinned) NumThreads() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.n
}

func (r *Pinned) Mapping() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]uint64, r.n)
	copy(out, r.ids[:r.n])

	return out
}

func (r *Pinned) Name() string { return "pinned" }
