package serialport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestWithDefaults(t *testing.T) {
	c := SerialConfig{Port: "/dev/ttyUSB0"}.WithDefaults()

	assert.Equal(t, SerialConfig{
		Port:           "/dev/ttyUSB0",
		BaudRate:       115200,
		ByteSize:       8,
		Parity:         "N",
		StopBits:       1,
		TimeoutSeconds: 1,
	}, c)
	assert.Equal(t, time.Second, c.ReadTimeout())
}

func TestMode(t *testing.T) {
	mode, err := SerialConfig{BaudRate: 9600, ByteSize: 7, Parity: "e", StopBits: 2, TimeoutSeconds: 0.5}.Mode()
	require.NoError(t, err)

	assert.Equal(t, 9600, mode.BaudRate)
	assert.Equal(t, 7, mode.DataBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
}

func TestModeRejectsInvalid(t *testing.T) {
	valid := SerialConfig{}.WithDefaults()

	cases := map[string]SerialConfig{}
	c := valid
	c.Parity = "X"
	cases["parity"] = c
	c = valid
	c.ByteSize = 9
	cases["byte size"] = c
	c = valid
	c.StopBits = 3
	cases["stop bits"] = c
	c = valid
	c.BaudRate = -1
	cases["baud rate"] = c
	c = valid
	c.TimeoutSeconds = -1
	cases["timeout"] = c

	for name, conf := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := conf.Mode()
			assert.Error(t, err)
		})
	}
}

func TestOpenWithoutPort(t *testing.T) {
	_, err := Open(SerialConfig{})
	assert.Error(t, err)
}
