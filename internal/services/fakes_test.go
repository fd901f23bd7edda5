package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"iot-monitor/internal/models"
)

type sensorSample struct {
	temp, humi float32
	err        error
}

// fakeSensor replays samples; the last one repeats
type fakeSensor struct {
	samples []sensorSample
	calls   int
}

func (f *fakeSensor) Read(context.Context) (float32, float32, error) {
	i := f.calls
	if i >= len(f.samples) {
		i = len(f.samples) - 1
	}
	f.calls++
	s := f.samples[i]
	return s.temp, s.humi, s.err
}

type renderCall struct {
	temp, humi float32
	state      models.DisplayState
}

type fakeDisplay struct {
	calls []renderCall
	err   error
}

func (f *fakeDisplay) Render(temp, humi float32, s models.DisplayState) error {
	f.calls = append(f.calls, renderCall{temp, humi, s})
	return f.err
}

type published struct {
	tag    string
	fields map[string]any
}

type fakePublisher struct {
	mu  sync.Mutex
	out []published
}

func (f *fakePublisher) Publish(tag string, fields map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, published{tag, fields})
}

func (f *fakePublisher) messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.out...)
}

// fakeModel fails `failures` times, then returns score
type fakeModel struct {
	failures int
	score    float32
	calls    int
}

func (f *fakeModel) Invoke([2]float32) (float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return 0, errors.New("invoke failed")
	}
	return f.score, nil
}

type ledCall struct {
	level models.Level
	on    bool
}

type fakeLED struct {
	calls []ledCall
}

func (f *fakeLED) Set(level models.Level, on bool) {
	f.calls = append(f.calls, ledCall{level, on})
}

type pixelCall struct {
	color      models.RGB
	brightness uint8
	clear      bool
}

type fakePixel struct {
	mu    sync.Mutex
	calls []pixelCall
}

func (f *fakePixel) SetPixel(r, g, b, brightness uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pixelCall{color: models.RGB{R: r, G: g, B: b}, brightness: brightness})
}

func (f *fakePixel) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pixelCall{clear: true})
}

func (f *fakePixel) last() pixelCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakePixel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// sleepRecorder records requested pauses without waiting. After limit
// pauses (0 = unlimited) it reports cancellation.
type sleepRecorder struct {
	durations []time.Duration
	limit     int
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) bool {
	r.durations = append(r.durations, d)
	return r.limit == 0 || len(r.durations) < r.limit
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
