package cmd

import (
	"context"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Go-routine-4595/sensor-watch/adapters/api"
	"github.com/Go-routine-4595/sensor-watch/adapters/controller"
	"github.com/Go-routine-4595/sensor-watch/adapters/gateway/display"
	"github.com/Go-routine-4595/sensor-watch/adapters/gateway/event-hub"
	"github.com/Go-routine-4595/sensor-watch/adapters/gateway/mqtt"
	"github.com/Go-routine-4595/sensor-watch/adapters/gateway/rabbitmq"
	"github.com/Go-routine-4595/sensor-watch/adapters/gateway/webhook"
	"github.com/Go-routine-4595/sensor-watch/adapters/observability"
	"github.com/Go-routine-4595/sensor-watch/adapters/transport/serialport"
	"github.com/Go-routine-4595/sensor-watch/config"
	"github.com/Go-routine-4595/sensor-watch/logging"
	"github.com/Go-routine-4595/sensor-watch/model"
	"github.com/Go-routine-4595/sensor-watch/service"
	"github.com/Go-routine-4595/sensor-watch/service/alarm"
	"github.com/Go-routine-4595/sensor-watch/service/frame"
	"github.com/Go-routine-4595/sensor-watch/service/notify"
	"github.com/Go-routine-4595/sensor-watch/service/series"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	var stdin bool

	c := &cobra.Command{
		Use:   "run",
		Short: "Start the ingestion pipeline, the alarm notifier and the query API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.Load(root.configFile)
			if err != nil {
				return err
			}
			logger := logging.New(conf.LogLevel)

			var src io.Reader
			if stdin {
				src = controller.Detach(os.Stdin)
			} else {
				src = openSerial(conf.SerialConfig, logger)
			}
			return run(cmd.Context(), conf, src, logger)
		},
	}
	c.Flags().BoolVar(&stdin, "stdin", false, "read frames from stdin instead of the serial port")
	return c
}

func run(ctx context.Context, conf config.Config, src io.Reader, logger zerolog.Logger) error {
	var (
		wg  = &sync.WaitGroup{}
		reg = prometheus.NewRegistry()
		p   *pipeline
	)

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p = newPipeline(ctx, wg, conf, src, reg, logger)
	p.controller.Start(ctx, wg)
	api.NewAPI(p.service, reg, logging.Component(logger, "api")).Start(ctx, wg, conf.APIConfig)

	<-ctx.Done()
	wg.Wait()
	return nil
}

type pipeline struct {
	service    *service.Service
	controller *controller.Controller
	dispatcher *notify.Dispatcher
}

// newPipeline builds every component and starts the dispatcher. The caller
// starts the controller.
func newPipeline(ctx context.Context, wg *sync.WaitGroup, conf config.Config, src io.Reader, reg prometheus.Registerer, logger zerolog.Logger) *pipeline {
	var (
		ranges   map[string]model.Bounds
		errs     []error
		registry *model.Registry
		metrics  *observability.PromObs
		p        = &pipeline{}
	)

	ranges, errs = conf.SensorConfig.Bounds()
	for _, err := range errs {
		logger.Warn().Err(err).Msg("sensor range skipped")
	}
	registry = model.NewRegistry(ranges)
	logger.Info().Strs("sensors", registry.Names()).Msg("sensor registry loaded")

	metrics = observability.NewPromObs(reg)

	p.dispatcher = notify.NewDispatcher(
		logging.Component(logger, "notify"),
		buildSinks(ctx, wg, conf, logger),
		notify.WithWorkers(conf.Workers),
		notify.WithQueueSize(conf.QueueSize),
		notify.WithTimeout(conf.NotifierConfig.Timeout()),
		notify.WithMetrics(metrics),
	)
	p.dispatcher.Start(ctx, wg)

	p.service = service.NewService(
		series.NewBuffer(conf.Window(), conf.MaxPoints),
		alarm.NewEvaluator(registry, alarm.WithLogger(logging.Component(logger, "alarm"))),
		p.dispatcher,
		service.WithLogger(logging.Component(logger, "pipeline")),
		service.WithMetrics(metrics),
	)

	p.controller = controller.NewController(
		src,
		p.service,
		logging.Component(logger, "controller"),
		metrics,
		frame.WithReadTimeout(conf.ReadTimeout()),
	)
	return p
}

// buildSinks creates every configured sink. A sink that fails to start is
// logged and left out; with no sink at all alarms go to the display.
func buildSinks(ctx context.Context, wg *sync.WaitGroup, conf config.Config, logger zerolog.Logger) []notify.Sink {
	var sinks []notify.Sink

	if conf.WebhookConfig.URL != "" {
		sinks = append(sinks, notify.Sink{Name: "webhook", Sink: webhook.NewWebhook(conf.WebhookConfig, &http.Client{})})
	}

	if conf.MqttConf.Connection != "" {
		m, err := mqtt.NewMqtt(ctx, wg, conf.MqttConf, logging.Component(logger, "mqtt"))
		if err != nil {
			logger.Error().Err(err).Msg("mqtt sink disabled")
		} else {
			sinks = append(sinks, notify.Sink{Name: "mqtt", Sink: m})
		}
	}

	if conf.RabbitMQConfig.ConnectionString != "" {
		r := rabbitmq.NewRabbitMQ(conf.RabbitMQConfig, logging.Component(logger, "rabbitmq"))
		r.Start(ctx, wg)
		sinks = append(sinks, notify.Sink{Name: "rabbitmq", Sink: r})
	}

	if conf.EventHubConfig.Connection != "" {
		eh, err := event_hub.NewEventHub(ctx, wg, conf.EventHubConfig, logging.Component(logger, "event-hub"))
		if err != nil {
			logger.Error().Err(err).Msg("event hub sink disabled")
		} else {
			sinks = append(sinks, notify.Sink{Name: "event-hub", Sink: eh})
		}
	}

	if len(sinks) == 0 {
		sinks = append(sinks, notify.Sink{Name: "display", Sink: display.NewDisplay()})
	}
	return sinks
}

// openSerial returns nil, not an error, when the port cannot be opened so the
// pipeline runs without data.
func openSerial(conf serialport.SerialConfig, logger zerolog.Logger) io.Reader {
	port, err := serialport.Open(conf)
	if err != nil {
		logger.Warn().Err(err).Msg("Serial Error, running in simulation mode (no hardware)")
		return nil
	}
	return port
}
