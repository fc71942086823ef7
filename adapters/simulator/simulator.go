package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/sensor-watch/model"
)

type SimulatorConfig struct {
	Frequency    float64 `yaml:"Frequency"`
	MaxDataPoint int     `yaml:"MaxDataPoint"`
	FaultRate    float64 `yaml:"FaultRate"`
	Seed         int64   `yaml:"Seed"`
}

// Simulator writes wire format frames for a set of sensors, one goroutine per
// sensor. Values follow a random walk inside the sensor bounds; with
// probability FaultRate a reading is out of range or reported FAULTY.
type Simulator struct {
	frequency    time.Duration
	maxDataPoint int
	faultRate    float64
	names        []string
	ranges       map[string]model.Bounds
	logger       zerolog.Logger
	now          func() time.Time

	outMu sync.Mutex
	out   io.Writer

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewSimulator(conf SimulatorConfig, ranges map[string]model.Bounds, out io.Writer, logger zerolog.Logger) *Simulator {
	var names []string

	for name := range ranges {
		names = append(names, name)
	}
	sort.Strings(names)

	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	freq := time.Duration(conf.Frequency * float64(time.Second))
	if freq <= 0 {
		freq = time.Second
	}

	return &Simulator{
		frequency:    freq,
		maxDataPoint: conf.MaxDataPoint,
		faultRate:    conf.FaultRate,
		names:        names,
		ranges:       ranges,
		logger:       logger,
		now:          time.Now,
		out:          out,
		rnd:          rand.New(rand.NewSource(seed)),
	}
}

// Start runs every sensor until ctx is cancelled or MaxDataPoint readings
// were sent (0 means no limit).
func (s *Simulator) Start(ctx context.Context, wg *sync.WaitGroup) {
	for _, name := range s.names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			s.run(ctx, name)
		}(name)
	}
}

func (s *Simulator) run(ctx context.Context, name string) {
	var (
		b     = s.ranges[name]
		value = (b.Low + b.High) / 2
		rec   model.Record
		t     = time.NewTicker(s.frequency)
	)
	defer t.Stop()

	for i := 0; s.maxDataPoint <= 0 || i < s.maxDataPoint; i++ {
		rec = s.Reading(name, b, value)
		if rec.Status == model.StatusOK && b.Contains(rec.Value) {
			value = rec.Value
		}
		if err := s.Send(rec); err != nil {
			s.logger.Error().Err(err).Str("sensor", name).Msg("Simulator: send failed")
		}

		select {
		case <-ctx.Done():
			s.logger.Info().Str("sensor", name).Msg("Simulator: context received signal, shutting down...")
			return
		case <-t.C:
		}
	}
	s.logger.Info().Str("sensor", name).Msg("Simulator: done")
}

// Reading produces the next reading of a sensor whose last value was prev.
func (s *Simulator) Reading(name string, b model.Bounds, prev float64) model.Record {
	var (
		span   = b.High - b.Low
		r      float64
		value  float64
		status = model.StatusOK
	)

	s.rndMu.Lock()
	r = s.rnd.Float64()
	step := (s.rnd.Float64() - 0.5) * span * 0.1
	above := s.rnd.Intn(2) == 0
	s.rndMu.Unlock()

	switch {
	case r < s.faultRate/2:
		value = prev
		status = model.StatusFaulty
	case r < s.faultRate && above:
		value = b.High + span*0.1
	case r < s.faultRate:
		value = b.Low - span*0.1
	default:
		value = clamp(prev+step, b.Low, b.High)
	}

	return model.Record{
		Name:      name,
		Value:     value,
		Timestamp: s.now().Unix(),
		Status:    status,
	}
}

// Send writes one frame.
func (s *Simulator) Send(rec model.Record) error {
	var (
		buf []byte
		err error
	)

	buf, err = json.Marshal(rec)
	if err != nil {
		return errors.Join(err, errors.New("failed to marshal reading"))
	}
	buf = append(buf, '\n')

	s.outMu.Lock()
	defer s.outMu.Unlock()
	_, err = s.out.Write(buf)
	return err
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
