package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newHashCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hash FILE...",
		Short: "Print base64 SHA-256 digests of files",
		Long: `Print "<digest>  <path>" for each file, in argument order.
Files are read concurrently and a path named more than once is read once.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			d, err := newDigester(a.config, a.observer, a.produce)
			if err != nil {
				return err
			}
			return runHash(ctx, d, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		}),
	}
}

// runHash digests paths concurrently and prints the results in order.
// Failures are reported on errOut and do not stop the other files.
func runHash(ctx context.Context, d *digester, paths []string, out, errOut io.Writer) error {
	digests := make([]string, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			digests[i], errs[i] = d.Digest(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, path := range paths {
		if errs[i] != nil {
			failed++
			_, _ = fmt.Fprintf(errOut, "toolmemo: %s: %v\n", path, errs[i])
			continue
		}
		_, _ = fmt.Fprintf(out, "%s  %s\n", digests[i], path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}
