package device

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/chewxy/math32"
)

// SimulatedSensorConfig shapes the simulated climate
type SimulatedSensorConfig struct {
	StartTemp   float32
	StartHumi   float32
	TempStep    float32 // Max change per read, °C
	HumiStep    float32 // Max change per read, %
	FailureRate float64 // Probability in [0,1] that a read fails
	Seed        int64
}

// DefaultSimulatedSensorConfig returns an indoor climate that wanders across the default thresholds
func DefaultSimulatedSensorConfig() SimulatedSensorConfig {
	return SimulatedSensorConfig{
		StartTemp:   27,
		StartHumi:   55,
		TempStep:    0.6,
		HumiStep:    2.5,
		FailureRate: 0.02,
		Seed:        1,
	}
}

// SimulatedSensor is a bounded random walk standing in for the DHT20
type SimulatedSensor struct {
	config SimulatedSensorConfig

	mu   sync.Mutex
	rng  *rand.Rand
	temp float32
	humi float32
}

// NewSimulatedSensor creates a simulated sensor
func NewSimulatedSensor(config SimulatedSensorConfig) *SimulatedSensor {
	return &SimulatedSensor{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
		temp:   config.StartTemp,
		humi:   config.StartHumi,
	}
}

// Read advances the walk and returns the new sample
func (s *SimulatedSensor) Read(ctx context.Context) (float32, float32, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.FailureRate > 0 && s.rng.Float64() < s.config.FailureRate {
		return 0, 0, fmt.Errorf("%w: simulated bus error", ErrNoReading)
	}

	s.temp = clamp(s.temp+s.step(s.config.TempStep), -10, 60)
	s.humi = clamp(s.humi+s.step(s.config.HumiStep), 0, 100)
	return round1(s.temp), round1(s.humi), nil
}

func (s *SimulatedSensor) step(max float32) float32 {
	return (s.rng.Float32()*2 - 1) * max
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}

func round1(v float32) float32 {
	return math32.Round(v*10) / 10
}
