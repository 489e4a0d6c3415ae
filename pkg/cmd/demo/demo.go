package demo

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maxgio92/gptimer/internal/output"
	"github.com/maxgio92/gptimer/internal/settings"
	"github.com/maxgio92/gptimer/pkg/clock"
	"github.com/maxgio92/gptimer/pkg/thread"
	"github.com/maxgio92/gptimer/pkg/timer"
)

const CmdName = "demo"

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   CmdName,
		Short: "Run an instrumented synthetic workload and write its timing report",
		Long: fmt.Sprintf(`
%s runs a nested, recursive, multi-goroutine workload through the region
timing engine and writes the per-thread report to timing.<id>.
`, CmdName),
		DisableAutoGenTag: true,
		RunE:              o.Run,
	}
	cmd.Flags().IntVarP(&o.workers, "threads", "t", 2, "Number of worker goroutines, each pinned to an OS thread")
	cmd.Flags().IntVarP(&o.iters, "iters", "n", 1000, "Workload iterations per worker")
	cmd.Flags().IntVar(&o.depth, "depth", 3, "Nesting depth of the recursive region")
	cmd.Flags().IntVar(&o.reportID, "id", settings.DefaultReportID, "Report file id (writes timing.<id>)")
	cmd.Flags().BoolVar(&o.summary, "summary", false, fmt.Sprintf("Also write %s", settings.DefaultSummaryFile))
	cmd.Flags().BoolVar(&o.cpu, "cpu", false, "Collect user and system CPU stats")
	cmd.Flags().BoolVar(&o.percent, "percent", false, "Print wallclock also as percent of the first region")
	cmd.Flags().StringVar(&o.method, "method", "full_tree", "Parent selection for printing (first_parent, last_parent, most_frequent, full_tree)")
	cmd.Flags().StringVar(&o.source, "time-source", "gettimeofday", "Underlying wallclock routine (gettimeofday, nanotime, clock_gettime, placebo)")
	cmd.Flags().BoolVar(&o.status, "status", true, "Periodically print workload progress")

	return cmd
}

var methods = map[string]timer.Method{
	"first_parent":  timer.FirstParent,
	"last_parent":   timer.LastParent,
	"most_frequent": timer.MostFrequent,
	"full_tree":     timer.FullTree,
}

var sources = map[string]clock.Source{
	"gettimeofday":  clock.Gettimeofday,
	"nanotime":      clock.Nanotime,
	"clock_gettime": clock.ClockGettime,
	"placebo":       clock.Placebo,
}

func (o *Options) Run(_ *cobra.Command, _ []string) error {
	logLevel, err := log.ParseLevel(o.LogLevel)
	if err != nil {
		o.Logger.Fatal().Err(err).Msg("invalid log level")
	}
	o.Logger = o.Logger.Level(logLevel)

	method, ok := methods[o.method]
	if !ok {
		return errors.Errorf("unknown print method %q", o.method)
	}
	source, ok := sources[o.source]
	if !ok {
		return errors.Errorf("unknown time source %q", o.source)
	}

	p := timer.New(
		timer.WithRegistry(thread.NewPinned()),
		timer.WithLogger(o.Logger),
	)
	if err := p.SetOption(timer.OptionPrintMethod, int(method)); err != nil {
		return errors.Wrap(err, "failed to set print method")
	}
	if o.cpu {
		if err := p.SetOption(timer.OptionCPU, 1); err != nil {
			return errors.Wrap(err, "failed to enable cpu stats")
		}
	}
	if o.percent {
		if err := p.SetOption(timer.OptionPercent, 1); err != nil {
			return errors.Wrap(err, "failed to enable percent stats")
		}
	}
	if err := p.SetTimeSource(source); err != nil {
		// Initialize falls back to gettimeofday.
		o.Logger.Warn().Err(err).Msg("requested time source unavailable")
	}
	if err := p.Initialize(); err != nil {
		return errors.Wrap(err, "failed to initialize the timing engine")
	}

	var done atomic.Uint64
	total := uint64(o.workers * o.iters)

	statusCtx, stopStatus := context.WithCancel(o.Ctx)
	if o.status {
		var prev uint64
		go output.StatusBar(statusCtx, 100*time.Millisecond, func() {
			cur := done.Load()
			// Ten refreshes per second.
			fmt.Print(output.PrettyDemoStatus(cur, total, (cur-prev)*10))
			prev = cur
		})
	}

	g, ctx := errgroup.WithContext(o.Ctx)
	for i := 0; i < o.workers; i++ {
		g.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			for n := 0; n < o.iters; n++ {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				if err := o.iteration(p, n); err != nil {
					return err
				}
				done.Add(1)
			}

			return nil
		})
	}
	err = g.Wait()
	stopStatus()
	if err != nil {
		return errors.Wrap(err, "workload failed")
	}

	if o.status {
		output.PrintRight("workload complete")
		fmt.Println()
	}

	if err := p.Pr(o.reportID); err != nil {
		return errors.Wrap(err, "failed to write the report")
	}
	o.Logger.Info().Str("file", fmt.Sprintf("timing.%d", o.reportID)).Msg("report written")

	if o.summary {
		if err := p.PrSummary(settings.DefaultSummaryFile); err != nil {
			return errors.Wrap(err, "failed to write the summary")
		}
		o.Logger.Info().Str("file", settings.DefaultSummaryFile).Msg("summary written")
	}

	return errors.Wrap(p.Finalize(), "failed to finalize the timing engine")
}

// iteration exercises nesting, recursion and a region with two distinct
// parents.
func (o *Options) iteration(p *timer.Profiler, n int) error {
	if err := p.Start("work"); err != nil {
		return err
	}

	if err := p.Start("compute"); err != nil {
		return err
	}
	if err := o.recurse(p, o.depth); err != nil {
		return err
	}
	if err := p.Start("shared"); err != nil {
		return err
	}
	spin(50)
	if err := p.Stop("shared"); err != nil {
		return err
	}
	if err := p.Stop("compute"); err != nil {
		return err
	}

	if n%2 == 0 {
		if err := p.Start("io"); err != nil {
			return err
		}
		if err := p.Start("shared"); err != nil {
			return err
		}
		spin(20)
		if err := p.Stop("shared"); err != nil {
			return err
		}
		if err := p.Stop("io"); err != nil {
			return err
		}
	}

	return p.Stop("work")
}

func (o *Options) recurse(p *timer.Profiler, depth int) error {
	if depth == 0 {
		spin(10)
		return nil
	}
	if err := p.Start("fib"); err != nil {
		return err
	}
	if err := o.recurse(p, depth-1); err != nil {
		return err
	}

	return p.Stop("fib")
}

var sink float64

func spin(n int) {
	x := 1.0001
	for i := 0; i < n; i++ {
		x *= x
		if x > 1e300 {
			x = 1.0001
		}
	}
	sink = x
}
