package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Node identity
	DeviceID string

	// Sensor Configuration
	SensorSource     string // "simulated" or "serial"
	SerialPort       string
	SerialBaud       int
	SensorStaleAfter time.Duration

	// Task periods
	MonitorInterval     time.Duration
	MonitorWarmup       time.Duration
	InferenceInterval   time.Duration
	InferenceRetryDelay time.Duration
	InferenceScoreCut   float64

	// ML Model Configuration
	ModelPath string

	// Indicator pins, echoed to the dashboard
	LEDPin int
	NeoPin int

	// CoreIoT MQTT Configuration
	MQTTEnabled           bool
	MQTTBroker            string
	MQTTClientID          string
	MQTTToken             string
	MQTTNetworkWait       time.Duration
	MQTTTelemetryInterval time.Duration

	// Local dashboard
	DashboardAddr string

	// Persisted Wi-Fi/CoreIoT settings
	SettingsFile string

	// Telemetry fan-out
	TelemetryQueueSize int

	// ClickHouse Configuration
	ClickHouseEnabled bool
	ClickHouseAddr    string
	ClickHouseDB      string
	ClickHouseUser    string
	ClickHousePass    string

	// InfluxDB Configuration
	InfluxEnabled bool
	InfluxURL     string
	InfluxToken   string
	InfluxOrg     string
	InfluxBucket  string

	// Logging
	LogFile string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		DeviceID: getEnv("DEVICE_ID", "esp32-monitor"),

		// Sensor Configuration
		SensorSource:     getEnv("SENSOR_SOURCE", "simulated"),
		SerialPort:       getEnv("SERIAL_PORT", "/dev/ttyUSB0"),
		SerialBaud:       getEnvInt("SERIAL_BAUD", 115200),
		SensorStaleAfter: getEnvDuration("SENSOR_STALE_AFTER", 10*time.Second),

		// Task periods
		MonitorInterval:     getEnvDuration("MONITOR_INTERVAL", 2*time.Second),
		MonitorWarmup:       getEnvDuration("MONITOR_WARMUP", 1500*time.Millisecond),
		InferenceInterval:   getEnvDuration("INFERENCE_INTERVAL", 5*time.Second),
		InferenceRetryDelay: getEnvDuration("INFERENCE_RETRY_DELAY", 2*time.Second),
		InferenceScoreCut:   getEnvFloat("INFERENCE_SCORE_CUT", 0.6),

		// ML Model Configuration
		ModelPath: getEnv("MODEL_PATH", "./model/anomaly_model.json"),

		LEDPin: getEnvInt("LED_PIN", 48),
		NeoPin: getEnvInt("NEO_PIN", 45),

		// CoreIoT MQTT Configuration
		MQTTEnabled:           getEnvBool("MQTT_ENABLED", false),
		MQTTBroker:            getEnv("MQTT_BROKER", "tcp://app.coreiot.io:1883"),
		MQTTClientID:          getEnv("MQTT_CLIENT_ID", ""),
		MQTTToken:             getEnv("MQTT_TOKEN", ""),
		MQTTNetworkWait:       getEnvDuration("MQTT_NETWORK_WAIT", 30*time.Second),
		MQTTTelemetryInterval: getEnvDuration("MQTT_TELEMETRY_INTERVAL", 5*time.Second),

		DashboardAddr: getEnv("DASHBOARD_ADDR", ":8080"),
		SettingsFile:  getEnv("SETTINGS_FILE", "./data/settings.yaml"),

		TelemetryQueueSize: getEnvInt("TELEMETRY_QUEUE_SIZE", 32),

		// ClickHouse Configuration
		ClickHouseEnabled: getEnvBool("CLICKHOUSE_ENABLED", false),
		ClickHouseAddr:    getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:      getEnv("CLICKHOUSE_DB", "iot"),
		ClickHouseUser:    getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass:    getEnv("CLICKHOUSE_PASS", ""),

		// InfluxDB Configuration
		InfluxEnabled: getEnvBool("INFLUX_ENABLED", false),
		InfluxURL:     getEnv("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:   getEnv("INFLUX_TOKEN", ""),
		InfluxOrg:     getEnv("INFLUX_ORG", "iot"),
		InfluxBucket:  getEnv("INFLUX_BUCKET", "monitor"),

		LogFile: getEnv("LOG_FILE", ""),
	}
}

// BrokerURL builds the MQTT broker address from a persisted server and port.
// Empty parts fall back to the configured broker.
func (c *Config) BrokerURL(server, port string) string {
	if server == "" {
		return c.MQTTBroker
	}
	if port == "" {
		port = "1883"
	}
	return "tcp://" + server + ":" + port
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as duration, using default: %v", key, err)
		return defaultValue
	}
	return d
}
