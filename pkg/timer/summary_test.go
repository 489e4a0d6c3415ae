package timer_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/gptimer/pkg/timer"
)

func TestGetThreadStatsSingleThread(t *testing.T) {
	p := newSingle(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Start("work"))
		require.NoError(t, p.Stop("work"))
	}

	g, err := p.GetThreadStats(7, "work")
	require.NoError(t, err)
	require.Equal(t, "work", g.Name)
	require.Equal(t, uint64(3), g.TotCalls)
	require.Equal(t, 7, g.WallMaxRank)
	require.Equal(t, 0, g.WallMaxThread)
	require.Equal(t, 1, g.TotTasks)
	require.Equal(t, g.WallMax, g.Mean)
	require.Equal(t, 0.0, g.M2)
}

func TestGetThreadStatsUnknownName(t *testing.T) {
	p := newSingle(t)

	g, err := p.GetThreadStats(0, "never")
	require.NoError(t, err)
	require.Equal(t, uint64(0), g.TotCalls)
}

// Merging rank records pairwise must reproduce the two-pass mean and
// standard deviation of the per-rank wallmax values.
func TestMergeGlobalsMeanAndSigma(t *testing.T) {
	walls := []float64{0.5, 1.5, 2.0, 4.0, 8.0}

	ranks := make([]timer.Global, len(walls))
	for i, w := range walls {
		ranks[i] = timer.Global{
			Name:     "region",
			TotCalls: 10,
			TotTasks: 1,
			WallMax:  w,
			WallMin:  w,
			Mean:     w,
			M2:       0,
		}
		ranks[i].WallMaxRank = i
		ranks[i].WallMinRank = i
	}

	// Tree reduction: merge pairs, then merge the partial results.
	left, right := ranks[0], ranks[2]
	timer.MergeGlobals(&left, &ranks[1])
	timer.MergeGlobals(&right, &ranks[3])
	timer.MergeGlobals(&right, &ranks[4])
	timer.MergeGlobals(&left, &right)

	mean := 0.0
	for _, w := range walls {
		mean += w
	}
	mean /= float64(len(walls))
	variance := 0.0
	for _, w := range walls {
		variance += (w - mean) * (w - mean)
	}
	sigma := math.Sqrt(variance / float64(len(walls)-1))

	require.Equal(t, uint64(50), left.TotCalls)
	require.Equal(t, len(walls), left.TotTasks)
	require.InDelta(t, mean, left.Mean, 1e-12)
	require.InDelta(t, sigma, left.Sigma(), 1e-12)
	require.Equal(t, 8.0, left.WallMax)
	require.Equal(t, 4, left.WallMaxRank)
	require.Equal(t, 0.5, left.WallMin)
	require.Equal(t, 0, left.WallMinRank)
}

func TestWriteSummarySingleThread(t *testing.T) {
	p := newSingle(t)

	require.NoError(t, p.Start("alpha"))
	require.NoError(t, p.Stop("alpha"))
	require.NoError(t, p.Start("beta"))
	require.NoError(t, p.Stop("beta"))

	var buf bytes.Buffer
	require.NoError(t, p.WriteSummary(&buf))
	out := buf.String()

	require.Contains(t, out, "nthreads=1")
	require.Contains(t, out, "ncalls   walltim")
	require.Contains(t, out, "alpha")
	require.Contains(t, out, "beta")
}
