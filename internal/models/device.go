package models

import "time"

// BlinkTiming is the on/off timing of the temperature LED for one level
type BlinkTiming struct {
	OnMs  uint16 `json:"on_ms"`
	OffMs uint16 `json:"off_ms"`
}

// On returns the on duration
func (b BlinkTiming) On() time.Duration { return time.Duration(b.OnMs) * time.Millisecond }

// Off returns the off duration
func (b BlinkTiming) Off() time.Duration { return time.Duration(b.OffMs) * time.Millisecond }

// PatternConfig maps each temperature level to its blink timing
type PatternConfig [LevelCount]BlinkTiming

// DefaultPatternConfig returns the factory LED patterns
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		LevelLow:    {OnMs: 1000, OffMs: 1000},
		LevelNormal: {OnMs: 200, OffMs: 800},
		LevelHigh:   {OnMs: 150, OffMs: 150},
	}
}

// RGB is a NeoPixel colour
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Scale returns the colour dimmed by brightness (0-255)
func (c RGB) Scale(brightness uint8) RGB {
	scale := func(v uint8) uint8 {
		return uint8(uint16(v) * uint16(brightness) / 255)
	}
	return RGB{R: scale(c.R), G: scale(c.G), B: scale(c.B)}
}

// ColorConfig maps each humidity level to its NeoPixel colour
type ColorConfig [LevelCount]RGB

// DefaultColorConfig returns the factory NeoPixel colours
func DefaultColorConfig() ColorConfig {
	return ColorConfig{
		LevelLow:    {R: 0, G: 0, B: 255},
		LevelNormal: {R: 0, G: 255, B: 0},
		LevelHigh:   {R: 255, G: 0, B: 0},
	}
}

// NetworkSettings are the Wi-Fi and CoreIoT settings entered on the dashboard
type NetworkSettings struct {
	SSID     string `json:"ssid" yaml:"ssid"`
	Password string `json:"password" yaml:"password"`
	Token    string `json:"token" yaml:"token"`
	Server   string `json:"server" yaml:"server"`
	Port     string `json:"port" yaml:"port"`
}

// TelemetryMessage is one tagged payload handed to the telemetry sinks
type TelemetryMessage struct {
	Tag       string         `json:"page"`
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields"`
}

// Telemetry tags emitted by the node
const (
	TagSensor = "sensor"
	TagTinyML = "tinyml"
)
