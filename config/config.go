package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Go-routine-4595/sensor-watch/adapters/api"
	"github.com/Go-routine-4595/sensor-watch/adapters/gateway/event-hub"
	"github.com/Go-routine-4595/sensor-watch/adapters/gateway/mqtt"
	"github.com/Go-routine-4595/sensor-watch/adapters/gateway/rabbitmq"
	"github.com/Go-routine-4595/sensor-watch/adapters/gateway/webhook"
	"github.com/Go-routine-4595/sensor-watch/adapters/simulator"
	"github.com/Go-routine-4595/sensor-watch/adapters/transport/serialport"
	"github.com/Go-routine-4595/sensor-watch/model"
	"github.com/Go-routine-4595/sensor-watch/service/notify"
	"github.com/Go-routine-4595/sensor-watch/service/series"
)

const DefaultFile = "config.yaml"

type Config struct {
	LogLevel int `yaml:"LogLevel"`

	serialport.SerialConfig   `yaml:"SerialConfig"`
	SensorConfig              `yaml:"SensorConfig"`
	NotifierConfig            `yaml:"NotifierConfig"`
	webhook.WebhookConfig     `yaml:"WebhookConfig"`
	mqtt.MqttConf             `yaml:"MqttConf"`
	rabbitmq.RabbitMQConfig   `yaml:"RabbitConfig"`
	event_hub.EventHubConfig  `yaml:"EventHubConfig"`
	api.APIConfig             `yaml:"APIConfig"`
	simulator.SimulatorConfig `yaml:"SimulatorConfig"`
}

// RawBounds keeps missing bounds distinguishable from zero.
type RawBounds struct {
	Low  *float64 `json:"low" yaml:"low"`
	High *float64 `json:"high" yaml:"high"`
}

type SensorConfig struct {
	RangesFile    string               `yaml:"RangesFile"`
	Ranges        map[string]RawBounds `yaml:"Ranges"`
	WindowSeconds float64              `yaml:"WindowSeconds"`
	MaxPoints     int                  `yaml:"MaxPoints"`
}

func (s SensorConfig) Window() time.Duration {
	return time.Duration(s.WindowSeconds * float64(time.Second))
}

type NotifierConfig struct {
	Workers        int     `yaml:"Workers"`
	QueueSize      int     `yaml:"QueueSize"`
	TimeoutSeconds float64 `yaml:"TimeoutSeconds"`
}

func (n NotifierConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds * float64(time.Second))
}

// Load reads the YAML file at path and fills defaults.
func Load(path string) (Config, error) {
	var (
		conf Config
		f    *os.File
		err  error
	)

	if path == "" {
		path = DefaultFile
	}

	f, err = os.Open(path)
	if err != nil {
		return Config{}, errors.Join(err, fmt.Errorf("open %s file", path))
	}
	defer f.Close()

	err = yaml.NewDecoder(f).Decode(&conf)
	if err != nil {
		return Config{}, errors.Join(err, fmt.Errorf("decode %s file", path))
	}

	conf.applyDefaults()
	return conf, nil
}

func (c *Config) applyDefaults() {
	c.SerialConfig = c.SerialConfig.WithDefaults()

	if c.WindowSeconds <= 0 {
		c.WindowSeconds = series.DefaultWindow.Seconds()
	}
	if c.MaxPoints <= 0 {
		c.MaxPoints = series.DefaultMaxPoints
	}
	if c.Workers <= 0 {
		c.Workers = notify.DefaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = notify.DefaultQueueSize
	}
	if c.NotifierConfig.TimeoutSeconds <= 0 {
		c.NotifierConfig.TimeoutSeconds = notify.DefaultTimeout.Seconds()
	}
	if c.Listen == "" {
		c.Listen = ":8080"
	}
}

// Bounds merges the ranges file with the inline ranges, inline entries
// winning. Entries that cannot be used are skipped and reported in the
// returned errors; none of them is fatal.
func (s SensorConfig) Bounds() (map[string]model.Bounds, []error) {
	var (
		raw  = map[string]RawBounds{}
		out  = map[string]model.Bounds{}
		errs []error
	)

	if s.RangesFile != "" {
		fromFile, err := readRangesFile(s.RangesFile)
		if err != nil {
			errs = append(errs, err)
		}
		for name, b := range fromFile {
			raw[name] = b
		}
	}
	for name, b := range s.Ranges {
		raw[name] = b
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := raw[name].validate(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[name] = b
	}
	return out, errs
}

func (r RawBounds) validate(name string) (model.Bounds, error) {
	switch {
	case name == "":
		return model.Bounds{}, errors.New("sensor range with an empty name")
	case r.Low == nil || r.High == nil:
		return model.Bounds{}, fmt.Errorf("sensor %q: range needs both low and high", name)
	case *r.Low > *r.High:
		return model.Bounds{}, fmt.Errorf("sensor %q: low %v above high %v", name, *r.Low, *r.High)
	}
	return model.Bounds{Low: *r.Low, High: *r.High}, nil
}

// readRangesFile reads a JSON object of the form {"Temperature": {"low": 10, "high": 40}}.
// Entries that are not objects are reported and skipped.
func readRangesFile(path string) (map[string]RawBounds, error) {
	var (
		buf     []byte
		entries map[string]json.RawMessage
		out     = map[string]RawBounds{}
		errs    []error
		err     error
	)

	buf, err = os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(err, fmt.Errorf("read ranges file %s", path))
	}
	err = json.Unmarshal(buf, &entries)
	if err != nil {
		return nil, errors.Join(err, fmt.Errorf("decode ranges file %s", path))
	}

	for name, msg := range entries {
		var b RawBounds
		if err := json.Unmarshal(msg, &b); err != nil {
			errs = append(errs, errors.Join(err, fmt.Errorf("sensor %q: malformed range in %s", name, path)))
			continue
		}
		out[name] = b
	}
	return out, errors.Join(errs...)
}
