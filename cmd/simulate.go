package cmd

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Go-routine-4595/sensor-watch/adapters/simulator"
	"github.com/Go-routine-4595/sensor-watch/adapters/transport/serialport"
	"github.com/Go-routine-4595/sensor-watch/config"
	"github.com/Go-routine-4595/sensor-watch/logging"
)

func newSimulateCommand(root *rootOptions) *cobra.Command {
	var stdout bool

	c := &cobra.Command{
		Use:   "simulate",
		Short: "Write simulated readings for every configured sensor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				out io.Writer
				wg  = &sync.WaitGroup{}
			)

			conf, err := config.Load(root.configFile)
			if err != nil {
				return err
			}
			// frames may go to stdout, keep the log out of the way
			logger := logging.NewWithWriter(os.Stderr, conf.LogLevel)

			ranges, errs := conf.SensorConfig.Bounds()
			for _, err := range errs {
				logger.Warn().Err(err).Msg("sensor range skipped")
			}
			if len(ranges) == 0 {
				return errors.New("no sensor range configured, nothing to simulate")
			}

			if stdout {
				out = os.Stdout
			} else {
				port, err := serialport.Open(conf.SerialConfig)
				if err != nil {
					return err
				}
				defer port.Close()
				out = port
			}

			simulator.NewSimulator(conf.SimulatorConfig, ranges, out, logging.Component(logger, "simulator")).Start(cmd.Context(), wg)
			wg.Wait()
			return nil
		},
	}
	c.Flags().BoolVar(&stdout, "stdout", false, "write frames to stdout instead of the serial port")
	return c
}
