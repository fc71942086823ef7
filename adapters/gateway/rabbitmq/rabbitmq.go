package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/Go-routine-4595/sensor-watch/model"
)

const (
	reconnectDelay = 5 * time.Second
	connectTimeout = 10 * time.Second
	heartbeat      = 10 * time.Second
)

type RabbitMQConfig struct {
	ConnectionString string `yaml:"ConnectionString"`
	QueueName        string `yaml:"QueueName"`
}

// RabbitMQ publishes alarm events to a durable queue. Publishing is serialised
// on one channel; a failed publish drops the connection so the next call
// reconnects. No call outlives its context, including the wait for the
// channel and the broker handshake.
type RabbitMQ struct {
	ConnectionString string
	QueueName        string
	logger           zerolog.Logger

	// lock is a one slot semaphore so callers can give up waiting.
	lock chan struct{}
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitMQ(config RabbitMQConfig, l zerolog.Logger) *RabbitMQ {
	return &RabbitMQ{
		ConnectionString: config.ConnectionString,
		QueueName:        config.QueueName,
		logger:           l,
		lock:             make(chan struct{}, 1),
	}
}

func (r *RabbitMQ) acquire(ctx context.Context) error {
	select {
	case r.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.Join(ctx.Err(), errors.New("rabbitmq busy"))
	}
}

func (r *RabbitMQ) release() {
	<-r.lock
}

// contextDialer bounds the TCP connect and the AMQP handshake by ctx. The
// client clears the deadline once the connection is open.
func contextDialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		var d net.Dialer

		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(connectTimeout)
		}
		if err = conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// connect establishes a new connection and channel. Callers hold the lock.
func (r *RabbitMQ) connect(ctx context.Context) error {
	var (
		err error
	)
	r.conn, err = amqp.DialConfig(r.ConnectionString, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      contextDialer(ctx),
	})
	if err != nil {
		r.conn = nil
		return err
	}

	r.ch, err = r.conn.Channel()
	if err != nil {
		r.conn.Close()
		r.conn = nil
		return err
	}

	_, err = r.ch.QueueDeclare(
		r.QueueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		r.closeLocked()
		return err
	}

	return nil
}

// reconnect retries connect until it succeeds or ctx ends.
func (r *RabbitMQ) reconnect(ctx context.Context) error {
	for {
		r.logger.Info().Msg("Attempting to reconnect to RabbitMQ...")
		err := r.connect(ctx)
		if err == nil {
			r.logger.Info().Msg("Successfully reconnected to RabbitMQ...")
			return nil
		}
		r.logger.Error().Err(err).Msg("Reconnect failed")

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(reconnectDelay):
		}
	}
}

// Start connects once and closes the connection when ctx is cancelled. A
// failed first connection is not fatal, SendAlarm retries it.
func (r *RabbitMQ) Start(ctx context.Context, wg *sync.WaitGroup) {
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	err := r.acquire(cctx)
	if err == nil {
		err = r.connect(cctx)
		r.release()
	}
	cancel()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to connect to RabbitMQ")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		r.Close()
		r.logger.Info().Msg("Received interrupt signal, closing connection")
	}()
}

func (r *RabbitMQ) SendAlarm(ctx context.Context, event model.AlarmEvent) error {
	var (
		msg []byte
		err error
	)

	msg, err = json.Marshal(event)
	if err != nil {
		return errors.Join(err, errors.New("failed to marshal event rabbitmq.SendAlarm"))
	}

	if err = r.acquire(ctx); err != nil {
		return err
	}
	defer r.release()

	if r.ch == nil {
		if err = r.reconnect(ctx); err != nil {
			return errors.Join(err, errors.New("rabbitmq unavailable"))
		}
	}

	err = r.ch.Publish(
		"",          // Exchange
		r.QueueName, // Routing key (queue name)
		false,       // Mandatory
		false,       // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID.String(),
			Timestamp:    time.Now().UTC(),
			Body:         msg,
		},
	)
	if err != nil {
		r.closeLocked()
		return errors.Join(err, errors.New("failed to publish a message"))
	}
	return nil
}

// Close gracefully shuts down the connection and channel.
func (r *RabbitMQ) Close() error {
	r.lock <- struct{}{}
	defer r.release()
	return r.closeLocked()
}

func (r *RabbitMQ) closeLocked() error {
	var err error

	if r.ch != nil {
		err = r.ch.Close()
		r.ch = nil
	}
	if r.conn != nil {
		err = errors.Join(err, r.conn.Close())
		r.conn = nil
	}
	return err
}
