package levels

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"iot-monitor/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		value float32
		low   float32
		high  float32
		want  models.Level
	}{
		{name: "below low", value: 20, low: 24, high: 32, want: models.LevelLow},
		{name: "equal low", value: 24, low: 24, high: 32, want: models.LevelNormal},
		{name: "inside", value: 28, low: 24, high: 32, want: models.LevelNormal},
		{name: "equal high", value: 32, low: 24, high: 32, want: models.LevelNormal},
		{name: "above high", value: 35, low: 24, high: 32, want: models.LevelHigh},
		{name: "sentinel", value: models.SentinelValue, low: 24, high: 32, want: models.LevelLow},
		{name: "negative thresholds", value: -5, low: -10, high: 0, want: models.LevelNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.value, tt.low, tt.high))
		})
	}
}

func TestClassifyIffProperty(t *testing.T) {
	low, high := float32(30), float32(80)
	for v := float32(-10); v <= 110; v += 0.5 {
		got := Classify(v, low, high)
		assert.Equal(t, v < low, got == models.LevelLow, "value %v", v)
		assert.Equal(t, v > high, got == models.LevelHigh, "value %v", v)
		assert.Equal(t, v >= low && v <= high, got == models.LevelNormal, "value %v", v)
	}
}

func TestResolveAllCombinations(t *testing.T) {
	all := []models.Level{models.LevelLow, models.LevelNormal, models.LevelHigh}
	for _, temp := range all {
		for _, humi := range all {
			got := Resolve(temp, humi)
			switch {
			case temp == models.LevelHigh || humi == models.LevelHigh:
				assert.Equal(t, models.DisplayCritical, got, "temp=%s humi=%s", temp, humi)
			case temp == models.LevelLow || humi == models.LevelLow:
				assert.Equal(t, models.DisplayWarning, got, "temp=%s humi=%s", temp, humi)
			default:
				assert.Equal(t, models.DisplayNormal, got)
			}
		}
	}
}

func TestResolveHighBeatsLow(t *testing.T) {
	assert.Equal(t, models.DisplayCritical, Resolve(models.LevelHigh, models.LevelLow))
	assert.Equal(t, models.DisplayCritical, Resolve(models.LevelLow, models.LevelHigh))
}

func TestScenarioColdTemperatureWarns(t *testing.T) {
	th := models.ThresholdSet{TempCold: 24, TempHot: 32, HumiDry: 30, HumiHumid: 80}
	temp, humi := ClassifyReading(models.Reading{Temperature: 20, Humidity: 50}, th)

	assert.Equal(t, models.LevelLow, temp)
	assert.Equal(t, models.LevelNormal, humi)
	assert.Equal(t, models.DisplayWarning, Resolve(temp, humi))
}

func TestScenarioHotAndHumidIsCritical(t *testing.T) {
	temp, humi := ClassifyReading(models.Reading{Temperature: 35, Humidity: 85}, models.DefaultThresholds())

	assert.Equal(t, models.LevelHigh, temp)
	assert.Equal(t, models.LevelHigh, humi)
	assert.Equal(t, models.DisplayCritical, Resolve(temp, humi))
}

func TestGroundTruthAnomaly(t *testing.T) {
	th := models.DefaultThresholds()

	assert.False(t, GroundTruthAnomaly(models.Reading{Temperature: 28, Humidity: 50}, th))
	assert.False(t, GroundTruthAnomaly(models.Reading{Temperature: 24, Humidity: 80}, th))
	assert.True(t, GroundTruthAnomaly(models.Reading{Temperature: 33, Humidity: 50}, th))
	assert.True(t, GroundTruthAnomaly(models.Reading{Temperature: 28, Humidity: 20}, th))
	assert.True(t, GroundTruthAnomaly(models.SentinelReading(), th))
}
