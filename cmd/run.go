package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mezonai/blockarchive/logx"
	"github.com/mezonai/blockarchive/producer"
)

var (
	runInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Produce blocks on demand or on a fixed interval",
	Long: `Start the block producer.

Without --interval the command reads lines from stdin:
  produce | p | <empty line>   produce one block from the pending records
  stop | q | quit | exit       stop

With --interval a block is attempted on every tick until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		defer s.close()
		s.startMetricsServer()

		p, err := s.newProducer()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logx.Info("RUN", "Producer started, pending=", s.store.PendingDir, " blocks=", s.store.BlocksDir)
		if runInterval > 0 {
			return runOnInterval(ctx, cmd.OutOrStdout(), p, runInterval)
		}
		return runInteractive(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), p)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "Produce a block every interval instead of reading commands from stdin")
}

// cycleRunner is the part of the producer the loops drive.
type cycleRunner interface {
	RunCycle(ctx context.Context) producer.CycleResult
}

// runInteractive handles one command per input line until stop, EOF or ctx is done.
// A failed cycle is reported and the loop keeps going; retry is the operator's call.
func runInteractive(ctx context.Context, in io.Reader, out io.Writer, p cycleRunner) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	fmt.Fprintln(out, "Type 'produce' to create a block, 'stop' to exit.")
	for {
		fmt.Fprint(out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}

			switch cmd := strings.ToLower(strings.TrimSpace(line)); cmd {
			case "", "p", "produce":
				res := p.RunCycle(ctx)
				fmt.Fprintln(out, res.String())
			case "q", "quit", "stop", "exit":
				return nil
			default:
				fmt.Fprintf(out, "unknown command %q\n", cmd)
			}
		}
	}
}

// runOnInterval attempts one cycle per tick until ctx is done.
func runOnInterval(ctx context.Context, out io.Writer, p cycleRunner, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			res := p.RunCycle(ctx)
			if !res.Empty() {
				fmt.Fprintln(out, res.String())
			}
		}
	}
}
