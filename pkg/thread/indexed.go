package thread

import (
	"sync"

	"github.com/pkg/errors"
)

// Indexed trusts a caller-supplied index routine, the equivalent of a
// runtime that already numbers its threads (an OpenMP-style backend).
// Each index is owned by exactly one thread, so the seen/ids slots are
// only ever written by their own thread.
type Indexed struct {
	fn    func() int
	mu    sync.Mutex
	seen  []bool
	ids   []uint64
	n     int
	max   int
	onNew NewThreadFunc
}

func NewIndexed(fn func() int) *Indexed {
	return &Indexed{fn: fn}
}

func (r *Indexed) Init(maxthreads int, onNew NewThreadFunc) error {
	if r.fn == nil {
		return errors.New("indexed registry needs an index routine")
	}
	r.seen = make([]bool, maxthreads)
	r.ids = make([]uint64, maxthreads)
	r.max = maxthreads
	r.n = 0
	r.onNew = onNew

	return nil
}

func (r *Indexed) Finalize() {
	r.seen = nil
	r.ids = nil
	r.n = 0
	r.max = 0
	r.onNew = nil
}

func (r *Indexed) Current() (int, error) {
	t := r.fn()
	if t < 0 || t >= r.max {
		return -1, errors.Wrapf(ErrOverflow, "index %d out of range, maxthreads=%d", t, r.max)
	}
	if r.seen[t] {
		return t, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.onNew != nil {
		if err := r.onNew(t); err != nil {
			return -1, err
		}
	}
	r.ids[t] = uint64(t)
	r.seen[t] = true
	if t+1 > r.n {
		r.n = t + 1
	}

	return t, nil
}

func (r *Indexed) NumThreads() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.n
}

func (r *Indexed) Mapping() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]uint64, r.n)
	copy(out, r.ids[:r.n])

	return out
}

func (r *Indexed) Name() string { return "indexed" }
