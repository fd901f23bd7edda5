package services

import (
	"context"
	"log"
	"time"

	"iot-monitor/internal/device"
	"iot-monitor/internal/models"
	"iot-monitor/internal/state"
)

// LEDService animates the temperature LED with the pattern of the cached level
type LEDService struct {
	store  *state.Store
	led    device.LED
	config LEDServiceConfig
	sleep  sleepFunc

	level models.Level
}

// LEDServiceConfig holds the fixed timings of the LED task
type LEDServiceConfig struct {
	IdleTick  time.Duration // Poll period while disabled
	HotBursts int           // On/off pairs in the hot pattern
	HotPause  time.Duration // Pause after a hot burst
}

// DefaultLEDServiceConfig returns default configuration
func DefaultLEDServiceConfig() LEDServiceConfig {
	return LEDServiceConfig{
		IdleTick:  100 * time.Millisecond,
		HotBursts: 3,
		HotPause:  700 * time.Millisecond,
	}
}

// NewLEDService creates the LED task with the level currently in the store
func NewLEDService(store *state.Store, led device.LED, config LEDServiceConfig) *LEDService {
	return &LEDService{
		store:  store,
		led:    led,
		config: config,
		sleep:  sleepContext,
		level:  store.TempLevel(),
	}
}

// Start runs the LED loop until ctx is cancelled
func (s *LEDService) Start(ctx context.Context) {
	log.Printf("LEDService: Starting with level %s", s.level.TempLabel())

	for s.step(ctx) {
	}

	s.led.Set(s.level, false)
	log.Println("LEDService: Shutdown complete")
}

// step runs one loop iteration and reports whether to continue
func (s *LEDService) step(ctx context.Context) bool {
	if !s.store.TempLEDEnabled() {
		s.led.Set(s.level, false)
		return s.sleep(ctx, s.config.IdleTick)
	}

	if s.store.TempChanged.TryTake() {
		s.level = s.store.TempLevel()
	}

	return s.blink(ctx)
}

// blink renders one full pattern for the cached level
func (s *LEDService) blink(ctx context.Context) bool {
	level := s.level
	if !level.Valid() {
		level = models.LevelNormal
	}
	timing := s.store.Pattern()[level]

	bursts := 1
	if level == models.LevelHigh {
		bursts = s.config.HotBursts
	}

	for i := 0; i < bursts; i++ {
		s.led.Set(level, true)
		if !s.sleep(ctx, timing.On()) {
			return false
		}
		s.led.Set(level, false)
		if !s.sleep(ctx, timing.Off()) {
			return false
		}
	}

	if level == models.LevelHigh {
		return s.sleep(ctx, s.config.HotPause)
	}
	return true
}
