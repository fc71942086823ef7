package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Go-routine-4595/sensor-watch/config"
)

type rootOptions struct {
	configFile string
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "sensor-watch",
		Short:        "Ingest sensor telemetry from a serial line and raise alarms",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", config.DefaultFile, "configuration file")

	root.AddCommand(newRunCommand(opts), newSimulateCommand(opts))
	return root
}

// Execute runs the CLI until it finishes or SIGINT/SIGTERM is received.
func Execute() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		sig    chan os.Signal
	)

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	sig = make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		processError(err)
	}
}

func processError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(2)
}
