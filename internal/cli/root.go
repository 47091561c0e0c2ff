// Package cli implements the toolmemo command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonwraymond/toolmemo/internal/digest"
	"github.com/jonwraymond/toolmemo/observe"
)

// BuildInfo identifies the binary. Fields are set via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// app holds state shared by subcommands for one execution.
type app struct {
	info       BuildInfo
	viper      *viper.Viper
	configPath string

	config   Config
	observer observe.Observer

	// produce computes one file digest. Tests replace it.
	produce func(context.Context, string) (string, error)
}

// NewRootCmd creates the toolmemo root command.
func NewRootCmd(info BuildInfo) *cobra.Command {
	a := &app{
		info:    info,
		viper:   newViper(),
		produce: digest.File,
	}

	root := &cobra.Command{
		Use:           "toolmemo",
		Short:         "Memoized file digests",
		Long:          `Compute file digests through a TTL and size bounded memo cache, from the command line or over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./toolmemo.yaml)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error, off")
	_ = a.viper.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newHashCmd(a), newServeCmd(a), newVersionCmd(info))
	return root
}

// run wraps fn with configuration loading and telemetry setup. The observer
// is flushed when fn returns.
func (a *app) run(fn func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a.config, err = loadConfig(a.viper, a.configPath)
		if err != nil {
			return err
		}

		obsConfig := a.config.Observe(a.info.Version)
		obsConfig.Output = cmd.ErrOrStderr()
		a.observer, err = observe.NewObserver(ctx, obsConfig)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			err = errors.Join(err, a.observer.Shutdown(shutdownCtx))
		}()

		return fn(ctx, cmd, args)
	}
}

// Execute runs the command line with args and returns the process exit code.
func Execute(ctx context.Context, info BuildInfo, args []string) int {
	root := NewRootCmd(info)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(root.ErrOrStderr(), "toolmemo: %v\n", err)
		return 1
	}
	return 0
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "toolmemo %s\n", info.Version)
			_, _ = fmt.Fprintf(out, "commit: %s\n", info.Commit)
			_, _ = fmt.Fprintf(out, "built: %s\n", info.BuildDate)
		},
	}
}
