// Package influx mirrors the node's telemetry into an InfluxDB bucket
package influx

import (
	"context"
	"fmt"
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"iot-monitor/internal/models"
)

// PointWriter writes points synchronously; api.WriteAPIBlocking satisfies it
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Config holds InfluxDB connection settings
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Writer is the InfluxDB telemetry sink. Each message becomes one point whose
// measurement is the telemetry tag.
type Writer struct {
	client   influxdb2.Client
	api      PointWriter
	deviceID string
}

// NewWriter creates a writer for cfg
func NewWriter(cfg Config, deviceID string) (*Writer, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	log.Printf("Influx: Writing to %s (org=%s bucket=%s)", cfg.URL, cfg.Org, cfg.Bucket)

	return &Writer{
		client:   client,
		api:      client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		deviceID: deviceID,
	}, nil
}

// NewWithAPI wraps an existing write API
func NewWithAPI(api PointWriter, deviceID string) *Writer {
	return &Writer{api: api, deviceID: deviceID}
}

// Name implements telemetry.Sink
func (w *Writer) Name() string {
	return "influx"
}

// Send implements telemetry.Sink
func (w *Writer) Send(ctx context.Context, msg models.TelemetryMessage) error {
	if err := w.api.WritePoint(ctx, w.point(msg)); err != nil {
		return fmt.Errorf("failed to write %s point: %w", msg.Tag, err)
	}
	return nil
}

func (w *Writer) point(msg models.TelemetryMessage) *write.Point {
	t := msg.Timestamp
	if t.IsZero() {
		t = time.Now()
	}

	tags := map[string]string{"device_id": w.deviceID}
	fields := make(map[string]interface{}, len(msg.Fields))
	for k, v := range msg.Fields {
		fields[k] = v
	}
	return influxdb2.NewPoint(msg.Tag, tags, fields, t)
}

// Close releases the HTTP client
func (w *Writer) Close() {
	if w.client != nil {
		w.client.Close()
	}
}
