// Package thread maps the calling OS thread to a dense 0-based logical
// index. Three interchangeable back-ends cover the parallel case with a
// mutex-guarded table, the case where the runtime already provides an
// index, and the single-threaded case.
package thread

import (
	"github.com/pkg/errors"
)

var ErrOverflow = errors.New("more threads than maxthreads")

// NewThreadFunc runs once for every newly registered thread, before its
// slot becomes visible. The counter adapter hooks its per-thread init in
// here; in the pinned back-end it runs inside the registry mutex.
type NewThreadFunc func(t int) error

type Registry interface {
	// Init fixes the slot capacity. Must be called before Current.
	Init(maxthreads int, onNew NewThreadFunc) error
	Finalize()
	// Current returns the stable 0-based index of the calling thread,
	// allocating a slot on first call.
	Current() (int, error)
	NumThreads() int
	// Mapping returns the underlying thread identifier per logical index.
	Mapping() []uint64
	Name() string
}
