package controller

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/sensor-watch/model"
	"github.com/Go-routine-4595/sensor-watch/service/frame"
)

// IProcessor handles one complete frame.
type IProcessor interface {
	Process(line string) error
}

// Controller owns the ingestion loop: one goroutine reads frames and hands
// them, one at a time, to the processor.
type Controller struct {
	reader  *frame.Reader
	source  io.Reader
	svc     IProcessor
	logger  zerolog.Logger
	metrics model.IMetrics
}

// NewController reads from src. A nil src runs the loop without data, as when
// no hardware is attached.
func NewController(src io.Reader, svc IProcessor, logger zerolog.Logger, metrics model.IMetrics, opts ...frame.Option) *Controller {
	c := &Controller{
		source:  src,
		svc:     svc,
		logger:  logger,
		metrics: metrics,
	}
	if c.metrics == nil {
		c.metrics = model.NopMetrics{}
	}
	opts = append(opts, frame.WithErrorHandler(c.frameError))
	c.reader = frame.NewReader(src, opts...)
	return c
}

func (c *Controller) frameError(err error) {
	if errors.Is(err, frame.ErrTransportUnavailable) {
		c.logger.Warn().Err(err).Msg("no data source, running in simulation mode")
		return
	}
	c.metrics.IncCounter(model.MetricFrameErrors, 1)
	c.logger.Warn().Err(err).Msg("frame dropped")
}

// Start runs the loop in its own goroutine. When ctx is cancelled the source
// is closed, if it can be, so a blocked read returns.
func (c *Controller) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Run(ctx)
	}()

	if closer, ok := c.source.(io.Closer); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			if err := closer.Close(); err != nil {
				c.logger.Warn().Err(err).Msg("closing data source")
			}
		}()
	}
}

// Run polls until ctx is cancelled. Cancellation is checked between reads;
// every frame of a completed read is processed in full.
func (c *Controller) Run(ctx context.Context) {
	var (
		processed int
		rejected  int
	)

	c.logger.Info().Bool("degraded", c.reader.Degraded()).Msg("Controller: ingestion started")
	for ctx.Err() == nil {
		for _, line := range c.reader.Poll(ctx) {
			processed++
			if err := c.svc.Process(line); err != nil {
				rejected++
			}
		}
	}
	c.logger.Info().
		Int("processed", processed).
		Int("rejected", rejected).
		Msg("Controller: context received signal, shutting down...")
}

// Detach copies r into a pipe from its own goroutine and returns the read end.
// Closing the returned reader unblocks a pending Read even when r is a
// blocking file such as os.Stdin. The copying goroutine ends with r.
func Detach(r io.Reader) *io.PipeReader {
	pr, pw := io.Pipe()
	go func() {
		_, err := io.Copy(pw, r)
		pw.CloseWithError(err)
	}()
	return pr
}
