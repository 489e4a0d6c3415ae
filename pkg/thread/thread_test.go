package thread_test

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/gptimer/pkg/thread"
)

func TestSingleAlwaysZero(t *testing.T) {
	r := thread.NewSingle()
	require.NoError(t, r.Init(1, nil))

	for i := 0; i < 3; i++ {
		n, err := r.Current()
		require.NoError(t, err)
		require.Equal(t, 0, n)
	}
	require.Equal(t, 1, r.NumThreads())
	require.Equal(t, []uint64{0}, r.Mapping())
}

func TestPinnedStableSlot(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	r := thread.NewPinned()
	require.NoError(t, r.Init(4, nil))

	first, err := r.Current()
	require.NoError(t, err)
	again, err := r.Current()
	require.NoError(t, err)
	require.Equal(t, first, again)
	require.Equal(t, 1, r.NumThreads())
}

func TestPinnedDistinctSlots(t *testing.T) {
	r := thread.NewPinned()
	require.NoError(t, r.Init(8, nil))

	// Hold every OS thread until all workers have registered, so the
	// runtime cannot reuse a thread id between workers.
	const workers = 4
	slots := make(chan int, workers)
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			n, err := r.Current()
			require.NoError(t, err)
			slots <- n
			<-release
		}()
	}
	collected := make([]int, 0, workers)
	for i := 0; i < workers; i++ {
		collected = append(collected, <-slots)
	}
	close(release)
	wg.Wait()

	seen := make(map[int]bool)
	for _, n := range collected {
		require.GreaterOrEqual(t, n, 0)
		require.Less(t, n, 8)
		require.False(t, seen[n], "slot %d assigned twice", n)
		seen[n] = true
	}
}

func TestPinnedOnNewThreadHook(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var got []int
	r := thread.NewPinned()
	require.NoError(t, r.Init(2, func(n int) error {
		got = append(got, n)
		return nil
	}))

	_, err := r.Current()
	require.NoError(t, err)
	_, err = r.Current()
	require.NoError(t, err)
	require.Equal(t, []int{0}, got, "hook must run once per thread")
}

func TestIndexedOverflow(t *testing.T) {
	idx := 0
	r := thread.NewIndexed(func() int { return idx })
	require.NoError(t, r.Init(2, nil))

	n, err := r.Current()
	require.NoError(t, err)
	require.Equal(t, 0, n)

	idx = 2
	_, err = r.Current()
	require.ErrorIs(t, err, thread.ErrOverflow)
}

func TestIndexedNumThreads(t *testing.T) {
	idx := 0
	r := thread.NewIndexed(func() int { return idx })
	require.NoError(t, r.Init(4, nil))

	for _, i := range []int{0, 2, 1} {
		idx = i
		_, err := r.Current()
		require.NoError(t, err)
	}
	require.Equal(t, 3, r.NumThreads())
}
