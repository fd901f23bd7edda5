package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"iot-monitor/internal/models"
)

// TelemetryPublisher is the CoreIoT telemetry sink. Messages from the
// dispatcher are folded into one flat record which is published on a fixed
// period, so CoreIoT always sees the latest value of every key.
type TelemetryPublisher struct {
	broker   Broker
	interval time.Duration

	mu       sync.Mutex
	latest   map[string]any
	received bool
}

// NewTelemetryPublisher creates the sink. interval defaults to 5s.
// The tiny_* keys start at their idle values until the first inference.
func NewTelemetryPublisher(broker Broker, interval time.Duration) *TelemetryPublisher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &TelemetryPublisher{
		broker:   broker,
		interval: interval,
		latest: map[string]any{
			"tiny_score": 0,
			"tiny_pred":  models.AnomalyLabel(false),
			"tiny_gt":    models.AnomalyLabel(false),
			"tiny_acc":   0,
		},
	}
}

// Name implements telemetry.Sink
func (p *TelemetryPublisher) Name() string {
	return "coreiot"
}

// Send implements telemetry.Sink by folding msg into the pending record
func (p *TelemetryPublisher) Send(_ context.Context, msg models.TelemetryMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.received = true
	switch msg.Tag {
	case models.TagSensor:
		copyField(p.latest, "temperature", msg.Fields, "temp")
		copyField(p.latest, "humidity", msg.Fields, "humi")
	case models.TagTinyML:
		copyField(p.latest, "tiny_score", msg.Fields, "score")
		copyField(p.latest, "tiny_pred", msg.Fields, "pred")
		copyField(p.latest, "tiny_gt", msg.Fields, "gt")
		copyField(p.latest, "tiny_acc", msg.Fields, "acc")
	}
	return nil
}

func copyField(dst map[string]any, dstKey string, src map[string]any, srcKey string) {
	if v, ok := src[srcKey]; ok {
		dst[dstKey] = v
	}
}

// Start publishes the record every interval until ctx is cancelled
func (p *TelemetryPublisher) Start(ctx context.Context) {
	log.Printf("MQTT Publisher: Starting (interval=%v)...", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("MQTT Publisher: Context cancelled, shutting down...")
			return
		case <-ticker.C:
			if err := p.Flush(); err != nil {
				log.Printf("MQTT Publisher: %v", err)
			}
		}
	}
}

// Flush publishes the current record. Nothing is sent before the first
// message arrives or while the broker is offline.
func (p *TelemetryPublisher) Flush() error {
	if !p.broker.IsConnected() {
		return nil
	}

	p.mu.Lock()
	if !p.received {
		p.mu.Unlock()
		return nil
	}
	payload, err := json.Marshal(p.latest)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal telemetry: %w", err)
	}

	if err := p.broker.Publish(TopicTelemetry, payload); err != nil {
		return err
	}
	log.Printf("MQTT Publisher: Published telemetry %s", payload)
	return nil
}
