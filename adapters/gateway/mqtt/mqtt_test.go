package mqtt

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewMqttBrokerUnavailable(t *testing.T) {
	var wg sync.WaitGroup

	m, err := NewMqtt(context.Background(), &wg, MqttConf{Connection: "tcp://127.0.0.1:1", Topic: "alarms"}, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, m)
}
