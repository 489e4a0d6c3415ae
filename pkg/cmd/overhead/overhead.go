package overhead

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxgio92/gptimer/pkg/clock"
	"github.com/maxgio92/gptimer/pkg/cmd/options"
	"github.com/maxgio92/gptimer/pkg/thread"
	"github.com/maxgio92/gptimer/pkg/timer"
)

const CmdName = "overhead"

type Options struct {
	pairs int

	*options.CommonOptions
}

type Option func(o *Options)

func NewOptions(opts ...Option) *Options {
	o := new(Options)
	o.CommonOptions = new(options.CommonOptions)

	for _, f := range opts {
		f(o)
	}

	return o
}

func WithCommonOptions(common *options.CommonOptions) Option {
	return func(o *Options) {
		o.CommonOptions = common
	}
}

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               CmdName,
		Short:             "Measure the start/stop pair cost for each available time source",
		DisableAutoGenTag: true,
		RunE:              o.Run,
	}
	cmd.Flags().IntVarP(&o.pairs, "pairs", "n", 100000, "Start/stop pairs per time source")

	return cmd
}

var candidates = []struct {
	name string
	src  clock.Source
}{
	{"gettimeofday", clock.Gettimeofday},
	{"clock_gettime", clock.ClockGettime},
	{"nanotime", clock.Nanotime},
	{"placebo", clock.Placebo},
}

func (o *Options) Run(_ *cobra.Command, _ []string) error {
	logLevel, err := log.ParseLevel(o.LogLevel)
	if err != nil {
		o.Logger.Fatal().Err(err).Msg("invalid log level")
	}
	o.Logger = o.Logger.Level(logLevel)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tPAIRS\tNS/PAIR")

	for _, c := range candidates {
		nsPerPair, err := o.measure(c.src)
		if err != nil {
			o.Logger.Warn().Err(err).Str("source", c.name).Msg("skipping unavailable time source")
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%.0f\n", c.name, o.pairs, nsPerPair)
	}

	return errors.Wrap(w.Flush(), "failed to flush the table")
}

// measure times name-based start/stop pairs against the wall clock and
// returns nanoseconds per pair.
func (o *Options) measure(src clock.Source) (float64, error) {
	p := timer.New(
		timer.WithRegistry(thread.NewSingle()),
		timer.WithLogger(o.Logger),
	)
	if err := p.SetTimeSource(src); err != nil {
		return 0, err
	}
	if err := p.Initialize(); err != nil {
		return 0, err
	}
	defer func() { _ = p.Finalize() }()

	// Warm up interns the region, so the measured loop never allocates.
	if err := p.Start("bench"); err != nil {
		return 0, err
	}
	if err := p.Stop("bench"); err != nil {
		return 0, err
	}

	begin := time.Now()
	for i := 0; i < o.pairs; i++ {
		if err := p.Start("bench"); err != nil {
			return 0, err
		}
		if err := p.Stop("bench"); err != nil {
			return 0, err
		}
	}
	elapsed := time.Since(begin)

	return float64(elapsed.Nanoseconds()) / float64(o.pairs), nil
}
