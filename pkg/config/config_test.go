package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "simulated", cfg.SensorSource)
	assert.Equal(t, 2*time.Second, cfg.MonitorInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.MonitorWarmup)
	assert.Equal(t, 5*time.Second, cfg.InferenceInterval)
	assert.Equal(t, 0.6, cfg.InferenceScoreCut)
	assert.Equal(t, 30*time.Second, cfg.MQTTNetworkWait)
	assert.Equal(t, 32, cfg.TelemetryQueueSize)
	assert.False(t, cfg.ClickHouseEnabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SENSOR_SOURCE", "serial")
	t.Setenv("SERIAL_BAUD", "9600")
	t.Setenv("MONITOR_INTERVAL", "500ms")
	t.Setenv("INFERENCE_SCORE_CUT", "0.75")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_TOKEN", "abc")

	cfg := Load()

	assert.Equal(t, "serial", cfg.SensorSource)
	assert.Equal(t, 9600, cfg.SerialBaud)
	assert.Equal(t, 500*time.Millisecond, cfg.MonitorInterval)
	assert.Equal(t, 0.75, cfg.InferenceScoreCut)
	assert.True(t, cfg.MQTTEnabled)
	assert.Equal(t, "abc", cfg.MQTTToken)
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("SERIAL_BAUD", "fast")
	t.Setenv("MONITOR_INTERVAL", "2")
	t.Setenv("INFERENCE_SCORE_CUT", "high")
	t.Setenv("MQTT_ENABLED", "maybe")

	cfg := Load()

	assert.Equal(t, 115200, cfg.SerialBaud)
	assert.Equal(t, 2*time.Second, cfg.MonitorInterval)
	assert.Equal(t, 0.6, cfg.InferenceScoreCut)
	assert.False(t, cfg.MQTTEnabled)
}

func TestBrokerURL(t *testing.T) {
	cfg := &Config{MQTTBroker: "tcp://app.coreiot.io:1883"}

	assert.Equal(t, "tcp://app.coreiot.io:1883", cfg.BrokerURL("", ""))
	assert.Equal(t, "tcp://10.0.0.5:1883", cfg.BrokerURL("10.0.0.5", ""))
	assert.Equal(t, "tcp://broker.local:8883", cfg.BrokerURL("broker.local", "8883"))
}
