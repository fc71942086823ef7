package event_hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azeventhubs"
	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/sensor-watch/model"
)

const contentType = "application/json"

// connection string can have the event hub name like this
// Endpoint=sb://<namespace>.servicebus.windows.net/;SharedAccessKeyName=<KeyName>;SharedAccessKey=<KeyValue>;EntityPath=<hub>
// see https://learn.microsoft.com/en-us/azure/event-hubs/event-hubs-get-connection-string

type EventHubConfig struct {
	Connection   string `yaml:"connection"`
	EventHubName string `yaml:"EventHubName"`
}

type EventHub struct {
	producerClient *azeventhubs.ProducerClient
	logger         zerolog.Logger
}

func NewEventHub(ctx context.Context, wg *sync.WaitGroup, conf EventHubConfig, l zerolog.Logger) (*EventHub, error) {
	var (
		err            error
		producerClient *azeventhubs.ProducerClient
	)
	producerClient, err = azeventhubs.NewProducerClientFromConnectionString(conf.Connection, conf.EventHubName, nil)
	if err != nil {
		return nil, errors.Join(err, errors.New("failed to create producer client"))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if err := producerClient.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close producer client")
		}
	}()

	return &EventHub{
		producerClient: producerClient,
		logger:         l,
	}, nil
}

// SendAlarm sends the event as a batch of one. The service picks the partition.
func (e *EventHub) SendAlarm(ctx context.Context, event model.AlarmEvent) error {
	var (
		buf   []byte
		err   error
		batch *azeventhubs.EventDataBatch
	)

	buf, err = json.Marshal(event)
	if err != nil {
		return errors.Join(err, errors.New("failed to marshal event event_hub.SendAlarm"))
	}

	batch, err = e.producerClient.NewEventDataBatch(ctx, &azeventhubs.EventDataBatchOptions{})
	if err != nil {
		return errors.Join(err, errors.New("failed to create event data batch"))
	}

	err = batch.AddEventData(createEventForAlarm(event, buf), nil)
	if errors.Is(err, azeventhubs.ErrEventDataTooLarge) {
		// This one event is too large for a batch, even on its own.
		return errors.Join(err, errors.New("failed to send alarm event is too large"))
	} else if err != nil {
		return errors.Join(err, errors.New("failed to send alarm"))
	}

	if err = e.producerClient.SendEventDataBatch(ctx, batch, nil); err != nil {
		return errors.Join(err, errors.New("failed to send alarm couldn't send the event"))
	}
	return nil
}

func createEventForAlarm(event model.AlarmEvent, buf []byte) *azeventhubs.EventData {
	id := event.ID.String()
	ct := contentType
	return &azeventhubs.EventData{
		Body:        buf,
		ContentType: &ct,
		MessageID:   &id,
		Properties: map[string]any{
			"sensor": event.Sensor,
			"kind":   event.Kind.String(),
		},
	}
}
