package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iot-monitor/internal/models"
)

type published struct {
	topic   string
	payload map[string]any
}

type fakeBroker struct {
	mu        sync.Mutex
	connected bool
	failPub   bool
	pubs      []published
	subs      map[string]func(string, []byte)
	onConnect []func()
}

func newFakeBroker(connected bool) *fakeBroker {
	return &fakeBroker{connected: connected, subs: make(map[string]func(string, []byte))}
}

func (b *fakeBroker) Publish(topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPub {
		return errors.New("broker down")
	}
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	b.pubs = append(b.pubs, published{topic: topic, payload: m})
	return nil
}

func (b *fakeBroker) Subscribe(topic string, handler func(string, []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = handler
	return nil
}

func (b *fakeBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBroker) OnConnect(fn func()) {
	b.mu.Lock()
	b.onConnect = append(b.onConnect, fn)
	b.mu.Unlock()
}

func (b *fakeBroker) connect() {
	b.mu.Lock()
	b.connected = true
	handlers := b.onConnect
	b.mu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}

func (b *fakeBroker) published() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.pubs...)
}

type fakeLEDs struct {
	temp, humi bool
}

func (l *fakeLEDs) SetTempLED(on bool) { l.temp = on }
func (l *fakeLEDs) SetHumiLED(on bool) { l.humi = on }
func (l *fakeLEDs) TempLEDEnabled() bool { return l.temp }
func (l *fakeLEDs) HumiLEDEnabled() bool { return l.humi }

func TestTelemetryPublisherMergesTags(t *testing.T) {
	broker := newFakeBroker(true)
	p := NewTelemetryPublisher(broker, 0)
	assert.Equal(t, "coreiot", p.Name())

	require.NoError(t, p.Flush())
	assert.Empty(t, broker.published(), "nothing is sent before the first message")

	ctx := context.Background()
	require.NoError(t, p.Send(ctx, models.TelemetryMessage{Tag: models.TagSensor, Fields: map[string]any{"temp": 27.5, "humi": 60.0}}))
	require.NoError(t, p.Send(ctx, models.TelemetryMessage{Tag: models.TagTinyML, Fields: map[string]any{
		"score": 0.25, "pred": "OK", "gt": "ANOM", "acc": 50.0,
	}}))
	require.NoError(t, p.Send(ctx, models.TelemetryMessage{Tag: models.TagSensor, Fields: map[string]any{"temp": 28.0, "humi": 61.0}}))
	require.NoError(t, p.Flush())

	pubs := broker.published()
	require.Len(t, pubs, 1)
	assert.Equal(t, TopicTelemetry, pubs[0].topic)
	assert.Equal(t, map[string]any{
		"temperature": 28.0,
		"humidity":    61.0,
		"tiny_score":  0.25,
		"tiny_pred":   "OK",
		"tiny_gt":     "ANOM",
		"tiny_acc":    50.0,
	}, pubs[0].payload)
}

func TestTelemetryPublisherSendsIdleInferenceKeys(t *testing.T) {
	broker := newFakeBroker(true)
	p := NewTelemetryPublisher(broker, 0)

	require.NoError(t, p.Send(context.Background(), models.TelemetryMessage{Tag: models.TagSensor, Fields: map[string]any{"temp": 22.0, "humi": 45.0}}))
	require.NoError(t, p.Flush())

	pubs := broker.published()
	require.Len(t, pubs, 1)
	assert.Equal(t, map[string]any{
		"temperature": 22.0,
		"humidity":    45.0,
		"tiny_score":  0.0,
		"tiny_pred":   "OK",
		"tiny_gt":     "OK",
		"tiny_acc":    0.0,
	}, pubs[0].payload)
}

func TestTelemetryPublisherSkipsWhileOffline(t *testing.T) {
	broker := newFakeBroker(false)
	p := NewTelemetryPublisher(broker, 0)

	require.NoError(t, p.Send(context.Background(), models.TelemetryMessage{Tag: models.TagSensor, Fields: map[string]any{"temp": 20.0}}))
	require.NoError(t, p.Flush())
	assert.Empty(t, broker.published())

	broker.connect()
	require.NoError(t, p.Flush())
	assert.Len(t, broker.published(), 1)
}

func TestTelemetryPublisherReportsPublishError(t *testing.T) {
	broker := newFakeBroker(true)
	broker.failPub = true
	p := NewTelemetryPublisher(broker, 0)

	require.NoError(t, p.Send(context.Background(), models.TelemetryMessage{Tag: models.TagSensor, Fields: map[string]any{"temp": 20.0}}))
	assert.Error(t, p.Flush())
}

func TestRPCSetTempLedPublishesAttributesBeforeResponse(t *testing.T) {
	broker := newFakeBroker(true)
	leds := &fakeLEDs{temp: true, humi: true}
	h := NewRPCHandler(broker, leds)

	h.HandleMessage("v1/devices/me/rpc/request/17", []byte(`{"method":"setTempLed","params":"off"}`))

	assert.False(t, leds.temp)
	pubs := broker.published()
	require.Len(t, pubs, 2)
	assert.Equal(t, TopicAttributes, pubs[0].topic)
	assert.Equal(t, map[string]any{"tempLed": false, "humiLed": true}, pubs[0].payload)
	assert.Equal(t, "v1/devices/me/rpc/response/17", pubs[1].topic)
	assert.Equal(t, map[string]any{"method": "setTempLed", "success": true, "tempLed": false}, pubs[1].payload)
}

func TestRPCSetHumiLed(t *testing.T) {
	broker := newFakeBroker(true)
	leds := &fakeLEDs{}
	h := NewRPCHandler(broker, leds)

	h.HandleMessage("v1/devices/me/rpc/request/3", []byte(`{"method":"setHumiLed","params":1}`))

	assert.True(t, leds.humi)
	pubs := broker.published()
	require.Len(t, pubs, 2)
	assert.Equal(t, map[string]any{"method": "setHumiLed", "success": true, "humiLed": true}, pubs[1].payload)
}

func TestRPCGetters(t *testing.T) {
	broker := newFakeBroker(true)
	h := NewRPCHandler(broker, &fakeLEDs{temp: true, humi: false})

	h.HandleMessage("v1/devices/me/rpc/request/1", []byte(`{"method":"getTempLed"}`))
	h.HandleMessage("v1/devices/me/rpc/request/2", []byte(`{"method":"getHumiLed"}`))

	pubs := broker.published()
	require.Len(t, pubs, 2, "getters do not publish attributes")
	assert.Equal(t, map[string]any{"method": "getTempLed", "tempLed": true}, pubs[0].payload)
	assert.Equal(t, "v1/devices/me/rpc/response/2", pubs[1].topic)
	assert.Equal(t, map[string]any{"method": "getHumiLed", "humiLed": false}, pubs[1].payload)
}

func TestRPCIgnoresMalformedRequests(t *testing.T) {
	broker := newFakeBroker(true)
	leds := &fakeLEDs{temp: true}
	h := NewRPCHandler(broker, leds)

	h.HandleMessage("v1/devices/me/rpc/request/1", []byte(`not json`))
	h.HandleMessage("v1/devices/me/rpc/request/1", []byte(`{"params":false}`))
	h.HandleMessage("v1/devices/me/rpc/request/1", []byte(`{"method":"reboot"}`))
	assert.Empty(t, broker.published())
	assert.True(t, leds.temp)

	// Without a request id the change still applies but no response is sent
	h.HandleMessage("v1/devices/me/rpc/request/", []byte(`{"method":"setTempLed","params":false}`))
	assert.False(t, leds.temp)
	pubs := broker.published()
	require.Len(t, pubs, 1)
	assert.Equal(t, TopicAttributes, pubs[0].topic)
}

func TestRPCRegisterSubscribesOnEveryConnect(t *testing.T) {
	broker := newFakeBroker(false)
	h := NewRPCHandler(broker, &fakeLEDs{temp: true, humi: true})
	h.Register()

	broker.connect()
	broker.connect()

	require.Contains(t, broker.subs, TopicRPCRequest)
	pubs := broker.published()
	require.Len(t, pubs, 2)
	for _, p := range pubs {
		assert.Equal(t, TopicAttributes, p.topic)
	}

	broker.subs[TopicRPCRequest]("v1/devices/me/rpc/request/9", []byte(`{"method":"getTempLed"}`))
	assert.Len(t, broker.published(), 3)
}

func TestExtractRequestID(t *testing.T) {
	assert.Equal(t, "42", extractRequestID("v1/devices/me/rpc/request/42"))
	assert.Equal(t, "", extractRequestID("v1/devices/me/rpc/request/"))
	assert.Equal(t, "", extractRequestID("norequest"))
}

func TestRPCParamToBool(t *testing.T) {
	tests := []struct {
		param any
		want  bool
	}{
		{true, true},
		{false, false},
		{float64(1), true},
		{float64(0), false},
		{float64(-3), true},
		{"ON", true},
		{"True", true},
		{"1", true},
		{"off", false},
		{"yes", false},
		{nil, false},
		{map[string]any{}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, rpcParamToBool(tt.param), "%v", tt.param)
	}
}

func TestNewClientID(t *testing.T) {
	id := NewClientID()
	assert.True(t, strings.HasPrefix(id, "ESP32-"))
	assert.Len(t, id, len("ESP32-")+8)
	assert.NotEqual(t, id, NewClientID())
}

func TestNewClientRequiresBroker(t *testing.T) {
	_, err := NewClient(context.Background(), ClientConfig{})
	assert.Error(t, err)
}

func TestNewClientDoesNotWaitForBroker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Now()
	c, err := NewClient(ctx, ClientConfig{Broker: "tcp://127.0.0.1:1", NetworkWait: 3 * time.Second})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.False(t, c.IsConnected())
	require.Error(t, c.Publish(TopicTelemetry, []byte(`{}`)))
}
