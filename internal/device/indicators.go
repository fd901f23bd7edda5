package device

import (
	"log"
	"sync"

	"iot-monitor/internal/models"
)

// LogLED is a host stand-in for the temperature LED. Only edges that change
// the mode are logged so a blinking pattern does not flood the log.
type LogLED struct {
	pin int

	mu     sync.Mutex
	on     bool
	level  models.Level
	toggle uint64
}

// NewLogLED creates a log-backed LED on the given (opaque) pin
func NewLogLED(pin int) *LogLED {
	return &LogLED{pin: pin, level: models.LevelNormal}
}

// Set implements LED
func (l *LogLED) Set(level models.Level, on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level != l.level {
		log.Printf("LED: pin %d now blinking for %s", l.pin, level.TempLabel())
		l.level = level
	}
	if on != l.on {
		l.toggle++
	}
	l.on = on
}

// State returns the last level and output
func (l *LogLED) State() (models.Level, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level, l.on
}

// Toggles returns how many times the output changed
func (l *LogLED) Toggles() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.toggle
}

// LogPixel is a host stand-in for the humidity NeoPixel
type LogPixel struct {
	pin int

	mu      sync.Mutex
	color   models.RGB
	bright  uint8
	lit     bool
	renders uint64
}

// NewLogPixel creates a log-backed NeoPixel on the given (opaque) pin
func NewLogPixel(pin int) *LogPixel {
	return &LogPixel{pin: pin}
}

// SetPixel implements Pixel
func (p *LogPixel) SetPixel(r, g, b, brightness uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.color = models.RGB{R: r, G: g, B: b}
	p.bright = brightness
	p.lit = true
	p.renders++

	scaled := p.color.Scale(brightness)
	log.Printf("NeoPixel: pin %d #%02X%02X%02X brightness=%d -> (%d,%d,%d)",
		p.pin, r, g, b, brightness, scaled.R, scaled.G, scaled.B)
}

// Clear implements Pixel
func (p *LogPixel) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lit {
		log.Printf("NeoPixel: pin %d cleared", p.pin)
	}
	p.lit = false
}

// State returns the last colour, brightness and whether the pixel is lit
func (p *LogPixel) State() (models.RGB, uint8, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.color, p.bright, p.lit
}

// Renders returns how many times SetPixel was called
func (p *LogPixel) Renders() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renders
}
