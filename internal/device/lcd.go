package device

import (
	"fmt"
	"log"
	"sync"

	"iot-monitor/internal/models"
)

// LCDColumns is the width of the character display
const LCDColumns = 16

// Splash lines shown while the sensor warms up
const (
	SplashLine1 = "DHT20 starting.."
	SplashLine2 = "Please wait"
)

// FormatLCD returns the two display lines for a reading and display state
func FormatLCD(temp, humi float32, state models.DisplayState) (string, string) {
	var line1 string
	switch state {
	case models.DisplayCritical:
		line1 = "State: CRITIC!"
	case models.DisplayWarning:
		line1 = "State: WARN   "
	default:
		line1 = "State: NORMAL "
	}

	line2 := fmt.Sprintf("T:%.1fC H:%.0f%%", temp, humi)
	if len(line2) > LCDColumns {
		line2 = line2[:LCDColumns]
	}
	return line1, line2
}

// ConsoleLCD mirrors the character display into the log
type ConsoleLCD struct {
	mu    sync.Mutex
	line1 string
	line2 string
}

// NewConsoleLCD creates a log-backed display
func NewConsoleLCD() *ConsoleLCD {
	return &ConsoleLCD{}
}

// Render implements Display; lines are logged only when they change
func (d *ConsoleLCD) Render(temp, humi float32, state models.DisplayState) error {
	line1, line2 := FormatLCD(temp, humi, state)
	d.show(line1, line2)
	return nil
}

// Splash shows the warm-up message
func (d *ConsoleLCD) Splash() {
	d.show(SplashLine1, SplashLine2)
}

// Lines returns what the display currently shows
func (d *ConsoleLCD) Lines() (string, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.line1, d.line2
}

func (d *ConsoleLCD) show(line1, line2 string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if line1 == d.line1 && line2 == d.line2 {
		return
	}
	d.line1, d.line2 = line1, line2
	log.Printf("LCD: [%-16s] [%-16s]", line1, line2)
}
