package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iot-monitor/internal/models"
)

type recordingSink struct {
	name string
	err  error

	mu   sync.Mutex
	got  []models.TelemetryMessage
	hits int
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Send(_ context.Context, msg models.TelemetryMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits++
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, msg)
	return nil
}

func (s *recordingSink) messages() []models.TelemetryMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TelemetryMessage(nil), s.got...)
}

func (s *recordingSink) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

type countingRecorder struct {
	mu      sync.Mutex
	dropped map[string]int
	failed  map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{dropped: map[string]int{}, failed: map[string]int{}}
}

func (r *countingRecorder) TelemetryDropped(sink string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped[sink]++
}

func (r *countingRecorder) TelemetrySendFailed(sink string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[sink]++
}

func (r *countingRecorder) SetBreakerState(string, float64) {}

func TestFanOutToEverySink(t *testing.T) {
	d := NewDispatcher(DefaultDispatcherConfig(), nil)
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	require.NoError(t, d.Register(a))
	require.NoError(t, d.Register(b))

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	d.Publish(models.TagSensor, map[string]any{"temp": float32(25), "humi": float32(50)})

	require.Eventually(t, func() bool {
		return len(a.messages()) == 1 && len(b.messages()) == 1
	}, time.Second, 5*time.Millisecond)

	msg := a.messages()[0]
	assert.Equal(t, models.TagSensor, msg.Tag)
	assert.Equal(t, float32(25), msg.Fields["temp"])
	assert.False(t, msg.Timestamp.IsZero())

	cancel()
	d.Wait()
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	rec := newCountingRecorder()
	cfg := DefaultDispatcherConfig()
	cfg.QueueSize = 2
	d := NewDispatcher(cfg, rec)
	require.NoError(t, d.Register(&recordingSink{name: "slow"}))

	// Not started: nothing drains the queue.
	msg := models.TelemetryMessage{Tag: models.TagSensor}
	assert.NoError(t, d.Enqueue(msg))
	assert.NoError(t, d.Enqueue(msg))
	assert.ErrorIs(t, d.Enqueue(msg), ErrQueueFull)

	assert.Equal(t, 1, rec.dropped["slow"])
}

func TestRegisterAfterStart(t *testing.T) {
	d := NewDispatcher(DefaultDispatcherConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	err := d.Register(&recordingSink{name: "late"})
	assert.ErrorIs(t, err, ErrStarted)
}

func TestBreakerOpensOnRepeatedFailure(t *testing.T) {
	rec := newCountingRecorder()
	cfg := DefaultDispatcherConfig()
	cfg.BreakerFailures = 2
	cfg.BreakerOpen = time.Hour
	d := NewDispatcher(cfg, rec)

	bad := &recordingSink{name: "bad", err: errors.New("unreachable")}
	require.NoError(t, d.Register(bad))

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	for i := 0; i < 5; i++ {
		d.Publish(models.TagSensor, nil)
	}

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.failed["bad"] == 5
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 2, bad.attempts(), "an open breaker must skip the sink")

	cancel()
	d.Wait()
}
