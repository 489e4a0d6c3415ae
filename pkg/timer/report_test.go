package timer_test

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/gptimer/pkg/timer"
)

func render(t *testing.T, p *timer.Profiler) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, p.WriteReport(&buf))

	return buf.String()
}

func TestReportSimpleNesting(t *testing.T) {
	p := newSingle(t)

	require.NoError(t, p.Start("outer"))
	require.NoError(t, p.Start("inner"))
	require.NoError(t, p.Stop("inner"))
	require.NoError(t, p.Stop("outer"))

	out := render(t, p)

	require.Contains(t, out, "Stats for thread 0:")
	require.Contains(t, out, "Called  Recurse ")
	require.Contains(t, out, "Wallclock max       min       ")
	require.Contains(t, out, "Overhead sum =")
	require.Contains(t, out, "Total calls  = 2")

	// inner is indented one level deeper than outer.
	outerLine, innerLine := "", ""
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "outer") {
			outerLine = line
		}
		if strings.Contains(line, "inner") {
			innerLine = line
		}
	}
	require.NotEmpty(t, outerLine)
	require.NotEmpty(t, innerLine)
	require.Regexp(t, regexp.MustCompile(`^  outer`), outerLine)
	require.Regexp(t, regexp.MustCompile(`^    inner`), innerLine)

	// Zero recursion prints as a dash.
	require.Regexp(t, regexp.MustCompile(`outer\s+1\s+-`), outerLine)
}

func TestReportMarksMultipleParents(t *testing.T) {
	p := newSingle(t)
	runMultiParent(t, p)

	out := render(t, p)

	// C rows carry the marker in column 1; the multiple parent section
	// lists both parents with their contribution and C's total.
	marked := false
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "* ") && strings.Contains(line, "C") {
			marked = true
		}
	}
	require.True(t, marked, "expected a '*' marker on C:\n%s", out)

	require.Contains(t, out, "Multiple parent info for thread 0:")
	require.Regexp(t, regexp.MustCompile(`\s1 A\s`), out)
	require.Regexp(t, regexp.MustCompile(`\s2 B\s`), out)
	require.Regexp(t, regexp.MustCompile(`\s3\s+C\s`), out)
}

func TestReportSmallWallUsesExponent(t *testing.T) {
	p := newSingle(t)

	require.NoError(t, p.Start("quick"))
	require.NoError(t, p.Stop("quick"))

	out := render(t, p)
	line := ""
	for _, l := range strings.Split(out, "\n") {
		if strings.Contains(l, "quick") {
			line = l
		}
	}
	// Sub-10ms walls print in %9.2e form.
	require.Regexp(t, regexp.MustCompile(`quick.*\de[-+]\d\d`), line)
}

func TestReportCollisionDiagnostics(t *testing.T) {
	p := newSingle(t, func(p *timer.Profiler) error {
		return p.SetOption(timer.OptionTableSize, 1)
	})

	require.NoError(t, p.Start("one"))
	require.NoError(t, p.Stop("one"))
	require.NoError(t, p.Start("two"))
	require.NoError(t, p.Stop("two"))

	out := render(t, p)
	require.Contains(t, out, "thread 0 had some hash collisions:")
	require.Contains(t, out, "hashtable[0][0] had 2 entries: one two")
	require.Contains(t, out, "Total collisions thread 0 = 1")
	require.Contains(t, out, "Size of hash table was 1")
}

func TestReportMemUsage(t *testing.T) {
	p := newSingle(t, func(p *timer.Profiler) error {
		return p.SetOption(timer.OptionMemUsage, 1)
	})

	require.NoError(t, p.Start("a"))
	require.NoError(t, p.Stop("a"))

	out := render(t, p)
	require.Contains(t, out, "Total memory usage =")
	require.Contains(t, out, "Hashmem")
	require.Contains(t, out, "Parent/child arrays")
}

func TestReportThreadMapping(t *testing.T) {
	p := newSingle(t)
	require.NoError(t, p.Start("a"))
	require.NoError(t, p.Stop("a"))

	out := render(t, p)
	require.Contains(t, out, "Thread mapping:")
	require.Contains(t, out, "threadid[0] = 0")
}

func TestReportPercentColumn(t *testing.T) {
	p := newSingle(t, func(p *timer.Profiler) error {
		return p.SetOption(timer.OptionPercent, 1)
	})

	require.NoError(t, p.Start("whole"))
	require.NoError(t, p.Start("part"))
	require.NoError(t, p.Stop("part"))
	require.NoError(t, p.Stop("whole"))

	out := render(t, p)
	require.Contains(t, out, "%_of_whole ")
}

func TestReportPreambleToggle(t *testing.T) {
	p := newSingle(t, func(p *timer.Profiler) error {
		return p.SetOption(timer.OptionPreamble, 0)
	})
	require.NoError(t, p.Start("a"))
	require.NoError(t, p.Stop("a"))

	out := render(t, p)
	require.NotContains(t, out, "Print method was")
	require.Contains(t, out, "Underlying timing routine was")
}

func TestPrWritesFile(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(cwd) }()

	p := newSingle(t)
	require.NoError(t, p.Start("outer"))
	require.NoError(t, p.Stop("outer"))

	require.NoError(t, p.Pr(0))
	data, err := os.ReadFile(filepath.Join(dir, "timing.0"))
	require.NoError(t, err)
	require.Contains(t, string(data), "outer")

	require.ErrorIs(t, p.Pr(-1), timer.ErrBadValue)
	require.ErrorIs(t, p.Pr(1000000), timer.ErrBadValue)
}

func TestPrFileDivertsOnOpenFailure(t *testing.T) {
	p := newSingle(t)
	require.NoError(t, p.Start("a"))
	require.NoError(t, p.Stop("a"))

	err := p.PrFile(filepath.Join(t.TempDir(), "no", "such", "dir", "timing.0"))
	require.ErrorIs(t, err, timer.ErrIO)
}

func TestReportOverheadSumGating(t *testing.T) {
	p := newSingle(t, func(p *timer.Profiler) error {
		return p.SetOption(timer.OptionOverhead, 0)
	})
	require.NoError(t, p.Start("a"))
	require.NoError(t, p.Stop("a"))

	out := render(t, p)
	// The sum line prints even with the overhead column off; only the
	// preceding blank line is gated.
	require.Contains(t, out, "Overhead sum =")
	require.NotContains(t, out, "UTR_Overhead")
}
