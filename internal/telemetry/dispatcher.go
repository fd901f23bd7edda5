// Package telemetry fans tagged payloads out to the node's reporting sinks
// (CoreIoT, the local dashboard, history stores) without ever blocking the
// producer.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"iot-monitor/internal/models"
)

var (
	// ErrQueueFull is returned by Enqueue when at least one sink dropped the message
	ErrQueueFull = errors.New("telemetry queue full")
	// ErrStarted is returned by Register after Start
	ErrStarted = errors.New("dispatcher already started")
)

// Publisher is the fire-and-forget reporting interface used by the tasks.
// fields must not be modified after the call.
type Publisher interface {
	Publish(tag string, fields map[string]any)
}

// Sink delivers one message to a destination
type Sink interface {
	Name() string
	Send(ctx context.Context, msg models.TelemetryMessage) error
}

// Recorder receives delivery statistics
type Recorder interface {
	TelemetryDropped(sink string)
	TelemetrySendFailed(sink string)
	SetBreakerState(sink string, state float64)
}

// DispatcherConfig holds configuration for the dispatcher
type DispatcherConfig struct {
	QueueSize       int           // Per-sink queue depth
	SendTimeout     time.Duration // Bound on a single Send
	BreakerFailures uint32        // Consecutive failures that open a sink's breaker
	BreakerOpen     time.Duration // How long an open breaker rejects sends
}

// DefaultDispatcherConfig returns default configuration
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		QueueSize:       32,
		SendTimeout:     5 * time.Second,
		BreakerFailures: 5,
		BreakerOpen:     30 * time.Second,
	}
}

type route struct {
	sink    Sink
	queue   chan models.TelemetryMessage
	breaker *gobreaker.CircuitBreaker
}

// Dispatcher owns one bounded queue and one worker per sink
type Dispatcher struct {
	config   DispatcherConfig
	recorder Recorder
	now      func() time.Time

	mu      sync.RWMutex
	routes  []*route
	started bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher; recorder may be nil
func NewDispatcher(config DispatcherConfig, recorder Recorder) *Dispatcher {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultDispatcherConfig().QueueSize
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Dispatcher{
		config:   config,
		recorder: recorder,
		now:      time.Now,
	}
}

// Register adds a sink. Sinks must be registered before Start.
func (d *Dispatcher) Register(sink Sink) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return fmt.Errorf("failed to register sink %s: %w", sink.Name(), ErrStarted)
	}

	name := sink.Name()
	rec := d.recorder
	r := &route{
		sink:  sink,
		queue: make(chan models.TelemetryMessage, d.config.QueueSize),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: d.config.BreakerOpen,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= d.config.BreakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("Telemetry: sink %s breaker %s -> %s", name, from, to)
				rec.SetBreakerState(name, float64(to))
			},
		}),
	}
	d.routes = append(d.routes, r)
	rec.SetBreakerState(name, float64(gobreaker.StateClosed))

	log.Printf("Telemetry: Registered sink %s (queue=%d)", name, d.config.QueueSize)
	return nil
}

// Publish implements Publisher
func (d *Dispatcher) Publish(tag string, fields map[string]any) {
	_ = d.Enqueue(models.TelemetryMessage{Tag: tag, Timestamp: d.now(), Fields: fields})
}

// Enqueue hands msg to every sink without blocking
func (d *Dispatcher) Enqueue(msg models.TelemetryMessage) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var dropped bool
	for _, r := range d.routes {
		select {
		case r.queue <- msg:
		default:
			dropped = true
			d.recorder.TelemetryDropped(r.sink.Name())
		}
	}
	if dropped {
		return ErrQueueFull
	}
	return nil
}

// Start launches one worker per registered sink. Workers stop when ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	d.started = true
	routes := append([]*route(nil), d.routes...)
	d.mu.Unlock()

	log.Printf("Telemetry: Starting %d sink workers", len(routes))

	for _, r := range routes {
		d.wg.Add(1)
		go func(r *route) {
			defer d.wg.Done()
			d.run(ctx, r)
		}(r)
	}
}

// Wait blocks until every worker has stopped
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, r *route) {
	name := r.sink.Name()
	for {
		select {
		case <-ctx.Done():
			log.Printf("Telemetry: sink %s worker stopped", name)
			return
		case msg := <-r.queue:
			d.deliver(ctx, r, msg)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, r *route, msg models.TelemetryMessage) {
	sendCtx := ctx
	if d.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.config.SendTimeout)
		defer cancel()
	}

	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.sink.Send(sendCtx, msg)
	})
	if err == nil {
		return
	}

	d.recorder.TelemetrySendFailed(r.sink.Name())
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return
	}
	log.Printf("Telemetry: sink %s failed to send %s: %v", r.sink.Name(), msg.Tag, err)
}

type noopRecorder struct{}

func (noopRecorder) TelemetryDropped(string) {}

func (noopRecorder) TelemetrySendFailed(string) {}

func (noopRecorder) SetBreakerState(string, float64) {}
