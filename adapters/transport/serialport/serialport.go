package serialport

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
)

const (
	DefaultBaudRate = 115200
	DefaultByteSize = 8
	DefaultParity   = "N"
	DefaultStopBits = 1
	DefaultTimeout  = 1.0
)

type SerialConfig struct {
	Port           string  `yaml:"Port"`
	BaudRate       int     `yaml:"BaudRate"`
	ByteSize       int     `yaml:"ByteSize"`
	Parity         string  `yaml:"Parity"`
	StopBits       float64 `yaml:"StopBits"`
	TimeoutSeconds float64 `yaml:"TimeoutSeconds"`
}

// WithDefaults fills every zero field with the 115200 8N1, 1s timeout settings.
func (c SerialConfig) WithDefaults() SerialConfig {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ByteSize == 0 {
		c.ByteSize = DefaultByteSize
	}
	if c.Parity == "" {
		c.Parity = DefaultParity
	}
	if c.StopBits == 0 {
		c.StopBits = DefaultStopBits
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeout
	}
	return c
}

func (c SerialConfig) ReadTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

// Mode validates the configuration and converts it to a serial.Mode.
func (c SerialConfig) Mode() (*serial.Mode, error) {
	var (
		mode serial.Mode
		err  error
	)

	if c.BaudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", c.BaudRate)
	}
	mode.BaudRate = c.BaudRate

	if c.ByteSize < 5 || c.ByteSize > 8 {
		return nil, fmt.Errorf("invalid byte size %d, want 5 to 8", c.ByteSize)
	}
	mode.DataBits = c.ByteSize

	mode.Parity, err = parity(c.Parity)
	if err != nil {
		return nil, err
	}

	mode.StopBits, err = stopBits(c.StopBits)
	if err != nil {
		return nil, err
	}

	if c.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid timeout %v, must be positive", c.TimeoutSeconds)
	}
	return &mode, nil
}

func parity(p string) (serial.Parity, error) {
	switch strings.ToUpper(p) {
	case "N":
		return serial.NoParity, nil
	case "E":
		return serial.EvenParity, nil
	case "O":
		return serial.OddParity, nil
	}
	return serial.NoParity, fmt.Errorf("invalid parity %q, want N, E or O", p)
}

func stopBits(s float64) (serial.StopBits, error) {
	switch s {
	case 1:
		return serial.OneStopBit, nil
	case 1.5:
		return serial.OnePointFiveStopBits, nil
	case 2:
		return serial.TwoStopBits, nil
	}
	return serial.OneStopBit, fmt.Errorf("invalid stop bits %v, want 1, 1.5 or 2", s)
}

// Port is an open serial port whose reads end with io.EOF once the port is closed.
type Port struct {
	serial.Port
}

func (p Port) Read(b []byte) (int, error) {
	var perr *serial.PortError

	n, err := p.Port.Read(b)
	if errors.As(err, &perr) && perr.Code() == serial.PortClosed {
		return n, io.EOF
	}
	return n, err
}

// Open opens the configured port with the configured read timeout, so a Read
// returns (0, nil) when no byte arrived in time.
func Open(conf SerialConfig) (*Port, error) {
	var (
		mode *serial.Mode
		port serial.Port
		err  error
	)

	conf = conf.WithDefaults()
	if conf.Port == "" {
		return nil, errors.New("no serial port configured")
	}

	mode, err = conf.Mode()
	if err != nil {
		return nil, errors.Join(err, errors.New("invalid serial configuration"))
	}

	port, err = serial.Open(conf.Port, mode)
	if err != nil {
		return nil, errors.Join(err, fmt.Errorf("open serial port %s", conf.Port))
	}

	err = port.SetReadTimeout(conf.ReadTimeout())
	if err != nil {
		port.Close()
		return nil, errors.Join(err, errors.New("set serial read timeout"))
	}

	return &Port{Port: port}, nil
}
