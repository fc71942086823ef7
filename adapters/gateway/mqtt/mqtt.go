package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"sync"
	"time"

	pmqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	uuid "github.com/satori/go.uuid"

	"github.com/Go-routine-4595/sensor-watch/model"
)

const connectTimeout = 10 * time.Second

// MqttConf holds the configuration for the MQTT client.
type MqttConf struct {
	Connection string `yaml:"Connection"`
	Topic      string `yaml:"Topic"`
	Insecure   bool   `yaml:"Insecure"`
}

// Mqtt publishes alarm events on a single topic.
type Mqtt struct {
	Topic    string
	MgtUrl   string
	logger   zerolog.Logger
	opt      *pmqtt.ClientOptions
	ClientID uuid.UUID
	client   pmqtt.Client
}

// NewMqtt connects to the broker and disconnects when ctx is cancelled. The
// client reconnects on its own after a lost connection.
func NewMqtt(ctx context.Context, wg *sync.WaitGroup, conf MqttConf, l zerolog.Logger) (*Mqtt, error) {
	var (
		err        error
		cid        uuid.UUID
		mqttClient *Mqtt
	)

	cid = uuid.NewV4()
	mqttClient = &Mqtt{
		Topic:    conf.Topic,
		MgtUrl:   conf.Connection,
		logger:   l,
		ClientID: cid,
		opt: pmqtt.NewClientOptions().
			AddBroker(conf.Connection).
			SetClientID("sensor-watch-" + cid.String()).
			SetCleanSession(true).
			SetAutoReconnect(true).
			SetTLSConfig(&tls.Config{
				InsecureSkipVerify: conf.Insecure,
			}).
			SetConnectionLostHandler(ConnectLostHandler(l)).
			SetOnConnectHandler(ConnectHandler(l)),
	}

	err = mqttClient.Connect()
	if err != nil {
		return nil, err
	}

	mqttClient.setupContextListener(ctx, wg)

	return mqttClient, nil
}

// setupContextListener ensures proper disconnection when the context is canceled.
func (m *Mqtt) setupContextListener(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		m.client.Disconnect(250)
		m.logger.Warn().Msg("Mqtt disconnected")
	}()
}

// SendAlarm publishes the event with QoS 1 and waits for the broker ack or ctx.
func (m *Mqtt) SendAlarm(ctx context.Context, event model.AlarmEvent) error {
	var (
		err   error
		b     []byte
		token pmqtt.Token
	)

	b, err = json.Marshal(event)
	if err != nil {
		return errors.Join(err, errors.New("failed to marshal event"))
	}

	token = m.client.Publish(m.Topic, 1, false, b)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return errors.Join(ctx.Err(), errors.New("timeout exceeded during publishing"))
	}
	if token.Error() != nil {
		return errors.Join(token.Error(), errors.New("failed to publish alarm"))
	}
	return nil
}

func (m *Mqtt) Connect() error {
	m.client = pmqtt.NewClient(m.opt)
	token := m.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return errors.New("timeout connecting to mqtt broker")
	}
	if token.Error() != nil {
		m.logger.Error().Err(token.Error()).Msg("Error connecting to mqtt broker")
		return errors.Join(token.Error(), errors.New("error connecting to mqtt broker"))
	}
	return nil
}

func ConnectHandler(logger zerolog.Logger) func(client pmqtt.Client) {
	return func(client pmqtt.Client) {
		logger.Info().Msg("Connected to mqtt broker")
	}
}

func ConnectLostHandler(logger zerolog.Logger) func(client pmqtt.Client, err error) {
	return func(client pmqtt.Client, err error) {
		logger.Warn().Err(err).Msg("Connection Lost")
	}
}
