// Package device holds the node's hardware collaborators: the climate sensor,
// the character LCD, the status LED and the NeoPixel. Each is an interface so
// the services can run against host implementations.
package device

import (
	"context"
	"errors"

	"iot-monitor/internal/models"
)

// ErrNoReading is returned when the sensor has nothing fresh to report
var ErrNoReading = errors.New("no sensor reading available")

// Sensor reads temperature (°C) and relative humidity (%)
type Sensor interface {
	Read(ctx context.Context) (temp, humi float32, err error)
}

// Display renders the aggregate state on a two-line character display
type Display interface {
	Render(temp, humi float32, state models.DisplayState) error
}

// LED drives the temperature status LED
type LED interface {
	Set(level models.Level, on bool)
}

// Pixel drives the single humidity NeoPixel
type Pixel interface {
	SetPixel(r, g, b, brightness uint8)
	Clear()
}
