package timer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/gptimer/pkg/timer"
)

// runMultiParent drives C under both A and B.
func runMultiParent(t *testing.T, p *timer.Profiler) {
	t.Helper()

	require.NoError(t, p.Start("A"))
	require.NoError(t, p.Start("C"))
	require.NoError(t, p.Stop("C"))
	require.NoError(t, p.Stop("A"))
	require.NoError(t, p.Start("B"))
	require.NoError(t, p.Start("C"))
	require.NoError(t, p.Stop("C"))
	require.NoError(t, p.Stop("B"))
	require.NoError(t, p.Start("B"))
	require.NoError(t, p.Start("C"))
	require.NoError(t, p.Stop("C"))
	require.NoError(t, p.Stop("B"))
}

func edgeSet(edges [][2]string) map[[2]string]int {
	set := map[[2]string]int{}
	for _, e := range edges {
		set[e]++
	}

	return set
}

func TestFullTreeKeepsEveryParent(t *testing.T) {
	p := newSingle(t)
	runMultiParent(t, p)

	set := edgeSet(p.TreeEdges(0))
	require.Equal(t, 1, set[[2]string{"A", "C"}])
	require.Equal(t, 1, set[[2]string{"B", "C"}])
	require.Equal(t, 1, set[[2]string{timer.RootName, "A"}])
	require.Equal(t, 1, set[[2]string{timer.RootName, "B"}])
}

func TestFirstParentPolicy(t *testing.T) {
	p := newSingle(t, func(p *timer.Profiler) error {
		return p.SetOption(timer.OptionPrintMethod, int(timer.FirstParent))
	})
	runMultiParent(t, p)

	set := edgeSet(p.TreeEdges(0))
	require.Equal(t, 1, set[[2]string{"A", "C"}])
	require.Equal(t, 0, set[[2]string{"B", "C"}])
}

func TestLastParentPolicy(t *testing.T) {
	p := newSingle(t, func(p *timer.Profiler) error {
		return p.SetOption(timer.OptionPrintMethod, int(timer.LastParent))
	})
	runMultiParent(t, p)

	set := edgeSet(p.TreeEdges(0))
	require.Equal(t, 0, set[[2]string{"A", "C"}])
	require.Equal(t, 1, set[[2]string{"B", "C"}])
}

func TestMostFrequentPolicy(t *testing.T) {
	p := newSingle(t, func(p *timer.Profiler) error {
		return p.SetOption(timer.OptionPrintMethod, int(timer.MostFrequent))
	})
	runMultiParent(t, p) // B called C twice, A once

	set := edgeSet(p.TreeEdges(0))
	require.Equal(t, 0, set[[2]string{"A", "C"}])
	require.Equal(t, 1, set[[2]string{"B", "C"}])
}

// Mutually recursive call patterns must not produce a cyclic print tree.
func TestCyclicParentsStayAcyclic(t *testing.T) {
	p := newSingle(t)

	// A invokes B, and elsewhere B invokes A.
	require.NoError(t, p.Start("A"))
	require.NoError(t, p.Start("B"))
	require.NoError(t, p.Stop("B"))
	require.NoError(t, p.Stop("A"))
	require.NoError(t, p.Start("B"))
	require.NoError(t, p.Start("A"))
	require.NoError(t, p.Stop("A"))
	require.NoError(t, p.Stop("B"))

	set := edgeSet(p.TreeEdges(0))
	// One direction of the A<->B edge must have been rejected.
	require.Equal(t, 1, set[[2]string{"A", "B"}]+set[[2]string{"B", "A"}])

	// Every region stays reachable from the sentinel.
	require.ElementsMatch(t, []string{"A", "B"}, p.ReachableFromRoot(0))
}

func TestTreeRebuildIsIdempotent(t *testing.T) {
	p := newSingle(t)
	runMultiParent(t, p)

	first := p.TreeEdges(0)
	second := p.TreeEdges(0)
	require.Equal(t, first, second)
}
