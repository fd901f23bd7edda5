package services

import (
	"context"
	"log"
	"time"

	"github.com/chewxy/math32"

	"iot-monitor/internal/device"
	"iot-monitor/internal/levels"
	"iot-monitor/internal/metrics"
	"iot-monitor/internal/models"
	"iot-monitor/internal/state"
	"iot-monitor/internal/telemetry"
)

// MonitorService is the acquisition loop: it samples the sensor, classifies
// both dimensions, wakes the presentation tasks on level transitions, renders
// the display and forwards the reading
type MonitorService struct {
	store     *state.Store
	sensor    device.Sensor
	display   device.Display
	publisher telemetry.Publisher
	metrics   *metrics.Metrics
	config    MonitorServiceConfig
	sleep     sleepFunc

	// Last level that armed a signal, per dimension
	lastTempLevel models.Level
	lastHumiLevel models.Level
}

// MonitorServiceConfig holds configuration for the acquisition loop
type MonitorServiceConfig struct {
	Interval time.Duration // Time between two acquisitions
	Warmup   time.Duration // Splash duration before the first read
}

// DefaultMonitorServiceConfig returns default configuration
func DefaultMonitorServiceConfig() MonitorServiceConfig {
	return MonitorServiceConfig{
		Interval: 2 * time.Second,
		Warmup:   1500 * time.Millisecond,
	}
}

// splasher is implemented by displays that can show a start-up message
type splasher interface {
	Splash()
}

// NewMonitorService creates a new acquisition loop. The last-level caches
// start from the levels currently held by the store.
func NewMonitorService(
	store *state.Store,
	sensor device.Sensor,
	display device.Display,
	publisher telemetry.Publisher,
	m *metrics.Metrics,
	config MonitorServiceConfig,
) *MonitorService {
	return &MonitorService{
		store:         store,
		sensor:        sensor,
		display:       display,
		publisher:     publisher,
		metrics:       m,
		config:        config,
		sleep:         sleepContext,
		lastTempLevel: store.TempLevel(),
		lastHumiLevel: store.HumiLevel(),
	}
}

// Start runs the acquisition loop until ctx is cancelled
func (s *MonitorService) Start(ctx context.Context) {
	log.Println("MonitorService: Starting...")

	if sp, ok := s.display.(splasher); ok && s.config.Warmup > 0 {
		sp.Splash()
		if !s.sleep(ctx, s.config.Warmup) {
			log.Println("MonitorService: Shutdown complete")
			return
		}
	}

	log.Printf("MonitorService: Sampling every %v", s.config.Interval)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Initial cycle
	s.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("MonitorService: Shutdown complete")
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle performs one acquisition cycle
func (s *MonitorService) RunCycle(ctx context.Context) {
	reading := s.acquire(ctx)
	s.store.SetReading(reading)

	// One snapshot so both dimensions see the same thresholds
	thresholds := s.store.Thresholds()
	tempLevel, humiLevel := levels.ClassifyReading(reading, thresholds)

	s.store.SetTempLevel(tempLevel)
	s.store.SetHumiLevel(humiLevel)

	if tempLevel != s.lastTempLevel {
		log.Printf("MonitorService: Temperature level %s -> %s", s.lastTempLevel.TempLabel(), tempLevel.TempLabel())
		s.store.TempChanged.Give()
		s.lastTempLevel = tempLevel
		s.metrics.LevelTransition("temperature")
	}
	if humiLevel != s.lastHumiLevel {
		log.Printf("MonitorService: Humidity level %s -> %s", s.lastHumiLevel.HumiLabel(), humiLevel.HumiLabel())
		s.store.HumiChanged.Give()
		s.lastHumiLevel = humiLevel
		s.metrics.LevelTransition("humidity")
	}

	displayState := levels.Resolve(tempLevel, humiLevel)
	s.store.SetDisplayState(displayState)
	s.metrics.SetDisplayState(displayState)

	if s.display != nil {
		if err := s.display.Render(reading.Temperature, reading.Humidity, displayState); err != nil {
			log.Printf("MonitorService: Error rendering display: %v", err)
		}
	}

	if s.publisher != nil {
		s.publisher.Publish(models.TagSensor, map[string]any{
			"temp": reading.Temperature,
			"humi": reading.Humidity,
		})
	}

	s.metrics.MonitorCycle()
	log.Printf("MonitorService: %s temp=%s humi=%s state=%s",
		reading, tempLevel.TempLabel(), humiLevel.HumiLabel(), displayState)
}

// acquire reads the sensor, substituting the sentinel on failure
func (s *MonitorService) acquire(ctx context.Context) models.Reading {
	temp, humi, err := s.sensor.Read(ctx)
	if err == nil && (math32.IsNaN(temp) || math32.IsNaN(humi)) {
		err = device.ErrNoReading
	}
	if err != nil {
		log.Printf("MonitorService: Failed to read sensor: %v", err)
		s.metrics.SensorFailure()
		return models.SentinelReading()
	}
	return models.Reading{Temperature: temp, Humidity: humi}
}
