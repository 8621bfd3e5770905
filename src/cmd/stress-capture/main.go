package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"floating-dictionary/src/config"
	"floating-dictionary/src/singleinstance"
)

type stressOptions struct {
	n        int
	port     int
	deadline time.Duration
}

// tally counts verdicts from concurrent clients.
type tally struct {
	ok, busy, failed, absent atomic.Int32
}

func (t *tally) String() string {
	return fmt.Sprintf("ok=%d busy=%d err=%d absent=%d", t.ok.Load(), t.busy.Load(), t.failed.Load(), t.absent.Load())
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-capture",
		Short:         "Fire concurrent CAPTURE requests at a resident instance",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.port == 0 {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				opts.port = cfg.ResidentPort
			}
			return runWithOptions(cmd.Context(), *opts, os.Stdout)
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().IntVar(&opts.port, "port", 0, "resident port (default from SINGLEINSTANCE_PORT)")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

// runWithOptions launches opts.n clients at once. With a resident idle at
// the start exactly one should get a session; the rest should read BUSY.
func runWithOptions(ctx context.Context, opts stressOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var wg sync.WaitGroup
	var t tally

	start := time.Now()
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(ctx, opts.deadline)
			defer cancel()
			delegated, v, err := singleinstance.NewClient(opts.port).TryCapture(ctx)
			switch {
			case !delegated:
				t.absent.Add(1)
			case err != nil:
				t.failed.Add(1)
			case v.Status == singleinstance.StatusOK:
				t.ok.Add(1)
			case v.Status == singleinstance.StatusBusy:
				t.busy.Add(1)
			default:
				t.failed.Add(1)
			}
		}()
	}
	wg.Wait()
	fmt.Fprintf(out, "launched=%d %s elapsed=%s\n", opts.n, &t, time.Since(start))
	return nil
}
