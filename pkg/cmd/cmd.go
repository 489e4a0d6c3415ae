package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxgio92/gptimer/internal/settings"
	"github.com/maxgio92/gptimer/pkg/cmd/demo"
	"github.com/maxgio92/gptimer/pkg/cmd/options"
	"github.com/maxgio92/gptimer/pkg/cmd/overhead"
)

const logLevelInfo = "info"

func NewRootCmd(opts *options.CommonOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:               settings.CmdName,
		Short:             "gptimer is an in-process region timing profiler",
		Long:              `gptimer instruments code regions with nested start/stop pairs and prints a hierarchical report of wallclock and CPU statistics per region per thread.`,
		DisableAutoGenTag: true,
	}
	cmd.AddCommand(demo.NewCommand(demo.NewOptions(demo.WithCommonOptions(opts))))
	cmd.AddCommand(overhead.NewCommand(overhead.NewOptions(overhead.WithCommonOptions(opts))))
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", logLevelInfo, "Log level (trace, debug, info, warn, error, fatal, panic)")

	return cmd
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	logger := log.New(
		log.ConsoleWriter{Out: os.Stderr},
	).With().Timestamp().Logger()

	go func() {
		<-ctx.Done()
		cancel()
	}()

	opts := options.NewCommonOptions(
		options.WithContext(ctx),
		options.WithLogger(logger),
	)

	if err := NewRootCmd(opts).Execute(); err != nil {
		os.Exit(1)
	}
}
