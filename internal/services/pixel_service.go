package services

import (
	"context"
	"log"
	"time"

	"iot-monitor/internal/device"
	"iot-monitor/internal/models"
	"iot-monitor/internal/state"
)

// Brightness used when the cached level cannot index the colour table
const fallbackBrightness uint8 = 150

// PixelService shows the humidity level as a solid colour whose brightness
// follows the raw humidity. It sleeps until the humidity signal wakes it.
type PixelService struct {
	store    *state.Store
	pixel    device.Pixel
	idleTick time.Duration
	sleep    sleepFunc

	level       models.Level
	needsRender bool
}

// NewPixelService creates the NeoPixel task
func NewPixelService(store *state.Store, pixel device.Pixel, idleTick time.Duration) *PixelService {
	return &PixelService{
		store:    store,
		pixel:    pixel,
		idleTick: idleTick,
		sleep:    sleepContext,
		level:    store.HumiLevel(),
	}
}

// Start renders the current level, then runs the pixel loop until ctx is cancelled
func (s *PixelService) Start(ctx context.Context) {
	log.Printf("PixelService: Starting with level %s", s.level.HumiLabel())

	s.pixel.Clear()
	s.apply()

	for s.step(ctx) {
	}

	s.pixel.Clear()
	log.Println("PixelService: Shutdown complete")
}

// step runs one loop iteration and reports whether to continue
func (s *PixelService) step(ctx context.Context) bool {
	if !s.store.HumiLEDEnabled() {
		s.pixel.Clear()
		s.needsRender = true
		return s.sleep(ctx, s.idleTick)
	}

	if s.needsRender {
		s.level = s.store.HumiLevel()
		s.apply()
		s.needsRender = false
		return ctx.Err() == nil
	}

	if !s.store.HumiChanged.Wait(ctx) {
		return false
	}

	// Woken by a toggle that switched the pixel off
	if !s.store.HumiLEDEnabled() {
		s.needsRender = true
		return true
	}

	s.level = s.store.HumiLevel()
	s.apply()
	return true
}

func (s *PixelService) apply() {
	colors := s.store.Colors()
	humidity := s.store.Reading().Humidity

	if !s.level.Valid() {
		c := colors[models.LevelNormal]
		s.pixel.SetPixel(c.R, c.G, c.B, fallbackBrightness)
		return
	}

	c := colors[s.level]
	brightness := PixelBrightness(s.level, humidity, s.store.Thresholds())
	s.pixel.SetPixel(c.R, c.G, c.B, brightness)
}

// PixelBrightness maps humidity into the brightness range of its level:
// dry [0,dry] -> [255,80], ok [dry,humid] -> [80,200], humid [humid,100] -> [80,255]
func PixelBrightness(level models.Level, humidity float32, t models.ThresholdSet) uint8 {
	switch level {
	case models.LevelLow:
		return mapBrightness(humidity, 0, t.HumiDry, 255, 80)
	case models.LevelHigh:
		return mapBrightness(humidity, t.HumiHumid, 100, 80, 255)
	case models.LevelNormal:
		return mapBrightness(humidity, t.HumiDry, t.HumiHumid, 80, 200)
	default:
		return fallbackBrightness
	}
}

func mapBrightness(x, inMin, inMax float32, outMin, outMax uint8) uint8 {
	if inMax-inMin == 0 {
		return outMin
	}

	if x < inMin {
		x = inMin
	}
	if x > inMax {
		x = inMax
	}

	ratio := (x - inMin) / (inMax - inMin)
	val := float32(outMin) + ratio*(float32(outMax)-float32(outMin))

	if val < 0 {
		val = 0
	}
	if val > 255 {
		val = 255
	}
	return uint8(val)
}
