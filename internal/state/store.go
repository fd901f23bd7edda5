// Package state holds the process-wide shared state of the node.
//
// Ownership per field:
//   - Reading, levels and display state: written only by the acquisition loop.
//   - Inference result: written only by the inference task.
//   - Thresholds, LED pattern, colours and indicator flags: written by the
//     configuration collaborator after validation, never re-validated on read.
//
// Every field is an atomic value so readers never see a half-written field.
// Tables are replaced as whole snapshots.
package state

import (
	"math"
	"sync/atomic"

	"iot-monitor/internal/models"
	"iot-monitor/internal/signal"
)

// Store is the shared-state context handed to every task at construction
type Store struct {
	reading      atomic.Uint64 // temperature bits << 32 | humidity bits
	tempLevel    atomic.Uint32
	humiLevel    atomic.Uint32
	displayState atomic.Uint32

	thresholds atomic.Pointer[models.ThresholdSet]
	pattern    atomic.Pointer[models.PatternConfig]
	colors     atomic.Pointer[models.ColorConfig]

	tempLEDEnabled atomic.Bool
	humiLEDEnabled atomic.Bool

	inference atomic.Pointer[models.InferenceResult]

	// TempChanged wakes the LED task when the temperature level changes
	TempChanged *signal.Change
	// HumiChanged wakes the NeoPixel task when the humidity level or colours change
	HumiChanged *signal.Change
}

// NewStore creates a store populated with factory defaults
func NewStore() *Store {
	s := &Store{
		TempChanged: signal.New(),
		HumiChanged: signal.New(),
	}
	s.SetReading(models.Reading{})
	s.tempLevel.Store(uint32(models.LevelNormal))
	s.humiLevel.Store(uint32(models.LevelNormal))
	s.displayState.Store(uint32(models.DisplayNormal))
	s.SetThresholds(models.DefaultThresholds())
	s.SetPattern(models.DefaultPatternConfig())
	s.SetColors(models.DefaultColorConfig())
	s.tempLEDEnabled.Store(true)
	s.humiLEDEnabled.Store(true)
	s.inference.Store(&models.InferenceResult{})
	return s
}

// SetReading publishes the latest reading (last write wins)
func (s *Store) SetReading(r models.Reading) {
	packed := uint64(math.Float32bits(r.Temperature))<<32 | uint64(math.Float32bits(r.Humidity))
	s.reading.Store(packed)
}

// Reading returns the latest reading
func (s *Store) Reading() models.Reading {
	packed := s.reading.Load()
	return models.Reading{
		Temperature: math.Float32frombits(uint32(packed >> 32)),
		Humidity:    math.Float32frombits(uint32(packed)),
	}
}

// SetTempLevel publishes the temperature level
func (s *Store) SetTempLevel(l models.Level) { s.tempLevel.Store(uint32(l)) }

// TempLevel returns the latest temperature level
func (s *Store) TempLevel() models.Level { return models.Level(s.tempLevel.Load()) }

// SetHumiLevel publishes the humidity level
func (s *Store) SetHumiLevel(l models.Level) { s.humiLevel.Store(uint32(l)) }

// HumiLevel returns the latest humidity level
func (s *Store) HumiLevel() models.Level { return models.Level(s.humiLevel.Load()) }

// SetDisplayState publishes the aggregate display state
func (s *Store) SetDisplayState(d models.DisplayState) { s.displayState.Store(uint32(d)) }

// DisplayState returns the latest display state
func (s *Store) DisplayState() models.DisplayState {
	return models.DisplayState(s.displayState.Load())
}

// SetThresholds commits an already normalized threshold snapshot
func (s *Store) SetThresholds(t models.ThresholdSet) { s.thresholds.Store(&t) }

// Thresholds returns the current threshold snapshot
func (s *Store) Thresholds() models.ThresholdSet { return *s.thresholds.Load() }

// SetPattern commits an already clamped LED pattern table
func (s *Store) SetPattern(p models.PatternConfig) { s.pattern.Store(&p) }

// Pattern returns the current LED pattern table
func (s *Store) Pattern() models.PatternConfig { return *s.pattern.Load() }

// SetColors commits a NeoPixel colour table
func (s *Store) SetColors(c models.ColorConfig) { s.colors.Store(&c) }

// Colors returns the current NeoPixel colour table
func (s *Store) Colors() models.ColorConfig { return *s.colors.Load() }

// SetTempLEDEnabled toggles the temperature LED
func (s *Store) SetTempLEDEnabled(on bool) { s.tempLEDEnabled.Store(on) }

// TempLEDEnabled reports whether the temperature LED is enabled
func (s *Store) TempLEDEnabled() bool { return s.tempLEDEnabled.Load() }

// SetHumiLEDEnabled toggles the NeoPixel
func (s *Store) SetHumiLEDEnabled(on bool) { s.humiLEDEnabled.Store(on) }

// HumiLEDEnabled reports whether the NeoPixel is enabled
func (s *Store) HumiLEDEnabled() bool { return s.humiLEDEnabled.Load() }

// SetInference publishes the latest inference result
func (s *Store) SetInference(r models.InferenceResult) { s.inference.Store(&r) }

// Inference returns the latest inference result
func (s *Store) Inference() models.InferenceResult { return *s.inference.Load() }
