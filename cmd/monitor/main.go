package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"iot-monitor/internal/dashboard"
	"iot-monitor/internal/database"
	"iot-monitor/internal/device"
	"iot-monitor/internal/influx"
	"iot-monitor/internal/metrics"
	"iot-monitor/internal/ml"
	"iot-monitor/internal/mqtt"
	"iot-monitor/internal/services"
	"iot-monitor/internal/settings"
	"iot-monitor/internal/state"
	"iot-monitor/internal/telemetry"
	"iot-monitor/pkg/config"
)

func main() {
	log.Println("Starting ESP32 Climate Monitor...")

	// Load configuration
	cfg := config.Load()

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	// A factory reset restarts the node in-process with freshly loaded settings
	for run(cfg) {
		log.Println("=== Restarting after factory reset ===")
	}

	log.Println("Monitor stopped")
}

// run wires and runs the node until shutdown. It reports whether a restart was requested.
func run(cfg *config.Config) bool {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var restart atomic.Bool
	m := metrics.New()

	// === Shared state and configuration ===
	store := state.NewStore()
	manager := settings.NewManager(
		store,
		settings.NewFileStore(cfg.SettingsFile),
		settings.Pins{LED: cfg.LEDPin, Neo: cfg.NeoPin},
		func() {
			restart.Store(true)
			cancel()
		},
	)

	network, found, err := manager.LoadNetwork()
	if err != nil {
		log.Printf("Warning: ignoring settings file: %v", err)
	}

	// === Devices ===
	sensor, err := openSensor(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize sensor: %v", err)
	}
	if c, ok := sensor.(io.Closer); ok {
		defer c.Close()
	}

	display := device.NewConsoleLCD()
	led := device.NewLogLED(cfg.LEDPin)
	pixel := device.NewLogPixel(cfg.NeoPin)

	// === Model ===
	predictor := loadModel(cfg.ModelPath)

	// === Telemetry sinks ===
	dispatcherConfig := telemetry.DefaultDispatcherConfig()
	dispatcherConfig.QueueSize = cfg.TelemetryQueueSize
	dispatcher := telemetry.NewDispatcher(dispatcherConfig, m)

	hub := dashboard.NewHub(manager)
	register(dispatcher, hub)

	var mqttClient *mqtt.Client
	mqttConfig := mqtt.ClientConfig{
		Broker:      cfg.MQTTBroker,
		ClientID:    cfg.MQTTClientID,
		Token:       cfg.MQTTToken,
		NetworkWait: cfg.MQTTNetworkWait,
	}
	if found {
		mqttConfig.Broker = cfg.BrokerURL(network.Server, network.Port)
		if network.Token != "" {
			mqttConfig.Token = network.Token
		}
	}

	var coreiot *mqtt.TelemetryPublisher
	if cfg.MQTTEnabled || mqttConfig.Token != "" {
		log.Printf("Connecting to CoreIoT at %s...", mqttConfig.Broker)
		mqttClient, err = mqtt.NewClient(ctx, mqttConfig)
		if err != nil {
			log.Printf("Warning: CoreIoT disabled: %v", err)
		} else {
			defer mqttClient.Close()
			mqtt.NewRPCHandler(mqttClient, manager).Register()
			coreiot = mqtt.NewTelemetryPublisher(mqttClient, cfg.MQTTTelemetryInterval)
			register(dispatcher, coreiot)
		}
	}

	if cfg.ClickHouseEnabled {
		db, err := database.NewClickHouseDB(ctx, database.Config{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePass,
		}, cfg.DeviceID)
		if err != nil {
			log.Printf("Warning: ClickHouse disabled: %v", err)
		} else {
			defer db.Close()
			register(dispatcher, db)
		}
	}

	if cfg.InfluxEnabled {
		writer, err := influx.NewWriter(influx.Config{
			URL:    cfg.InfluxURL,
			Token:  cfg.InfluxToken,
			Org:    cfg.InfluxOrg,
			Bucket: cfg.InfluxBucket,
		}, cfg.DeviceID)
		if err != nil {
			log.Printf("Warning: InfluxDB disabled: %v", err)
		} else {
			defer writer.Close()
			register(dispatcher, writer)
		}
	}

	dispatcher.Start(ctx)

	// === Tasks ===
	monitorConfig := services.MonitorServiceConfig{
		Interval: cfg.MonitorInterval,
		Warmup:   cfg.MonitorWarmup,
	}
	monitor := services.NewMonitorService(store, sensor, display, dispatcher, m, monitorConfig)

	inferenceConfig := services.InferenceServiceConfig{
		Interval:   cfg.InferenceInterval,
		RetryDelay: cfg.InferenceRetryDelay,
		ScoreCut:   float32(cfg.InferenceScoreCut),
	}
	inference := services.NewInferenceService(store, predictor, dispatcher, m, inferenceConfig)

	ledConfig := services.DefaultLEDServiceConfig()
	ledService := services.NewLEDService(store, led, ledConfig)
	pixelService := services.NewPixelService(store, pixel, ledConfig.IdleTick)

	server := dashboard.NewServer(dashboard.ServerConfig{
		Addr:            cfg.DashboardAddr,
		ShutdownTimeout: dashboard.DefaultServerConfig().ShutdownTimeout,
	}, manager, hub, m)

	var wg sync.WaitGroup
	start := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}

	start(monitor.Start)
	start(ledService.Start)
	start(pixelService.Start)
	start(inference.Start)
	if coreiot != nil {
		start(coreiot.Start)
	}
	start(func(ctx context.Context) {
		if err := server.Start(ctx); err != nil {
			log.Printf("Dashboard error: %v", err)
			cancel()
		}
	})

	log.Println("=== ESP32 Climate Monitor is running ===")
	log.Printf("Device: %s, sensor: %s, dashboard: %s", cfg.DeviceID, cfg.SensorSource, cfg.DashboardAddr)
	log.Printf("Acquisition every %v, inference every %v", cfg.MonitorInterval, cfg.InferenceInterval)

	<-ctx.Done()
	log.Println("Shutting down...")

	wg.Wait()
	dispatcher.Wait()

	return restart.Load()
}

func openSensor(cfg *config.Config) (device.Sensor, error) {
	if cfg.SensorSource == "serial" {
		log.Printf("Opening sensor bridge on %s @ %d baud", cfg.SerialPort, cfg.SerialBaud)
		return device.OpenSerialSensor(cfg.SerialPort, cfg.SerialBaud, cfg.SensorStaleAfter)
	}
	log.Println("Using simulated sensor")
	return device.NewSimulatedSensor(device.DefaultSimulatedSensorConfig()), nil
}

// loadModel loads the anomaly model, creating the sample one on first run. A
// missing model is not fatal: the inference task keeps retrying.
func loadModel(path string) *ml.Predictor {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("Model not found at %s, creating sample model", path)
		if err := ml.CreateSampleModel(path); err != nil {
			log.Printf("Warning: failed to create sample model: %v", err)
		}
	}

	predictor, err := ml.NewPredictor(path)
	if err != nil {
		log.Printf("Warning: inference unavailable: %v", err)
		return nil
	}
	return predictor
}

func register(d *telemetry.Dispatcher, sink telemetry.Sink) {
	if err := d.Register(sink); err != nil {
		log.Printf("Warning: failed to register %s sink: %v", sink.Name(), err)
		return
	}
	log.Printf("Telemetry sink %s registered", sink.Name())
}
