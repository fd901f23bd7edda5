package models

import (
	"fmt"
	"time"
)

// SentinelValue is substituted for both dimensions when the sensor read fails
const SentinelValue float32 = -1

// Reading represents one temperature/humidity acquisition
type Reading struct {
	Temperature float32 `json:"temp"` // Celsius
	Humidity    float32 `json:"humi"` // Percentage 0-100
}

// SentinelReading returns the reading published when acquisition fails
func SentinelReading() Reading {
	return Reading{Temperature: SentinelValue, Humidity: SentinelValue}
}

// IsSentinel reports whether r is the documented failure value
func (r Reading) IsSentinel() bool {
	return r.Temperature == SentinelValue && r.Humidity == SentinelValue
}

// String formats the reading for logs
func (r Reading) String() string {
	return fmt.Sprintf("T=%.2f°C H=%.2f%%", r.Temperature, r.Humidity)
}

// Level is the classification of one sensed dimension against its thresholds.
// The numeric value indexes the PatternConfig and ColorConfig tables.
type Level uint8

const (
	LevelLow Level = iota
	LevelNormal
	LevelHigh
)

// LevelCount is the size of every per-level table
const LevelCount = 3

// String returns the dimension-neutral name of the level
func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelNormal:
		return "normal"
	case LevelHigh:
		return "high"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// TempLabel returns the temperature-specific label (Cold/Normal/Hot)
func (l Level) TempLabel() string {
	switch l {
	case LevelLow:
		return "COLD"
	case LevelHigh:
		return "HOT"
	default:
		return "NORMAL"
	}
}

// HumiLabel returns the humidity-specific label (Dry/OK/Humid)
func (l Level) HumiLabel() string {
	switch l {
	case LevelLow:
		return "DRY"
	case LevelHigh:
		return "HUMID"
	default:
		return "OK"
	}
}

// Valid reports whether l can index a per-level table
func (l Level) Valid() bool {
	return l < LevelCount
}

// DisplayState is the aggregate severity derived from both levels
type DisplayState uint8

const (
	DisplayNormal DisplayState = iota
	DisplayWarning
	DisplayCritical
)

// String returns the display state name
func (s DisplayState) String() string {
	switch s {
	case DisplayNormal:
		return "normal"
	case DisplayWarning:
		return "warning"
	case DisplayCritical:
		return "critical"
	default:
		return fmt.Sprintf("display(%d)", uint8(s))
	}
}

// ThresholdSet holds the runtime-tunable boundaries of both dimensions.
// Committed values always satisfy TempCold < TempHot and
// 0 <= HumiDry < HumiHumid <= 100.
type ThresholdSet struct {
	TempCold  float32 `json:"tempCold" yaml:"temp_cold"`
	TempHot   float32 `json:"tempHot" yaml:"temp_hot"`
	HumiDry   float32 `json:"humiDry" yaml:"humi_dry"`
	HumiHumid float32 `json:"humiHumid" yaml:"humi_humid"`
}

// DefaultThresholds returns the factory thresholds
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		TempCold:  24,
		TempHot:   32,
		HumiDry:   30,
		HumiHumid: 80,
	}
}

// InferenceResult is the latest output of the inference task
type InferenceResult struct {
	Score       float32   `json:"score"`
	Predicted   bool      `json:"predicted"`
	GroundTruth bool      `json:"ground_truth"`
	Accuracy    float32   `json:"accuracy"` // Percentage 0-100
	Timestamp   time.Time `json:"timestamp"`
}

// AnomalyLabel renders an anomaly flag the way the dashboard and CoreIoT expect it
func AnomalyLabel(anomalous bool) string {
	if anomalous {
		return "ANOM"
	}
	return "OK"
}
