package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iot-monitor/internal/metrics"
	"iot-monitor/internal/models"
	"iot-monitor/internal/settings"
	"iot-monitor/internal/state"
)

type fixture struct {
	store    *state.Store
	manager  *settings.Manager
	hub      *Hub
	server   *httptest.Server
	restarts atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: state.NewStore()}
	files := settings.NewFileStore(filepath.Join(t.TempDir(), "settings.yaml"))
	f.manager = settings.NewManager(f.store, files, settings.Pins{LED: 48, Neo: 45}, func() { f.restarts.Add(1) })
	f.hub = NewHub(f.manager)

	srv := NewServer(DefaultServerConfig(), f.manager, f.hub, metrics.New())
	f.server = httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		f.hub.Close()
		f.server.Close()
	})
	return f
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, page string, value any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"page": page, "value": value}))
}

func recv(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestThresholdPageNormalizesAndReplies(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	send(t, conn, "threshold", map[string]any{"tempCold": 30, "tempHot": 28})

	assert.Equal(t, "threshold_saved", recv(t, conn)["page"])
	th := f.store.Thresholds()
	assert.Equal(t, float32(28.5), th.TempCold)
	assert.Equal(t, float32(29.5), th.TempHot)
	assert.Equal(t, float32(30), th.HumiDry)
}

func TestLEDPatternPage(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	send(t, conn, "led_pattern", map[string]any{"hotOn": 1, "hotOff": 50000})

	assert.Equal(t, "led_pattern_saved", recv(t, conn)["page"])
	assert.Equal(t, models.BlinkTiming{OnMs: 10, OffMs: 10000}, f.store.Pattern()[models.LevelHigh])
}

func TestNeoColorPageDefaultsMissingKeys(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	c := f.store.Colors()
	c[models.LevelNormal] = models.RGB{R: 1, G: 2, B: 3}
	f.store.SetColors(c)

	send(t, conn, "neo_color", map[string]any{"dry": "#101010"})

	assert.Equal(t, "neo_color_saved", recv(t, conn)["page"])
	got := f.store.Colors()
	assert.Equal(t, models.RGB{R: 0x10, G: 0x10, B: 0x10}, got[models.LevelLow])
	assert.Equal(t, models.DefaultColorConfig()[models.LevelNormal], got[models.LevelNormal])
	assert.True(t, f.store.HumiChanged.Pending())
}

func TestDevicePageTogglesIndicators(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	send(t, conn, "device", map[string]any{"name": "LED2", "status": "OFF", "gpio": 45})
	send(t, conn, "device", map[string]any{"name": "LED1", "status": "OFF"})
	send(t, conn, "get_config", nil)

	msg := recv(t, conn)
	require.Equal(t, "config", msg["page"])
	assert.False(t, f.store.HumiLEDEnabled())
	assert.False(t, f.store.TempLEDEnabled())

	devices := msg["value"].(map[string]any)["devices"].([]any)
	require.Len(t, devices, 2)
	assert.Equal(t, "OFF", devices[0].(map[string]any)["status"])
	assert.Equal(t, float64(45), devices[1].(map[string]any)["gpio"])
}

func TestSettingPagePersistsAndFactoryResetClears(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	send(t, conn, "setting", map[string]any{"ssid": "lab", "password": "pw", "token": "tok", "server": "app.coreiot.io", "port": "1883"})
	reply := recv(t, conn)
	assert.Equal(t, "setting_saved", reply["page"])
	assert.Equal(t, "ok", reply["status"])
	assert.Equal(t, "tok", f.manager.Network().Token)

	send(t, conn, "reset_factory", nil)
	assert.Equal(t, "reset_done", recv(t, conn)["page"])

	// The reply is sent before the reset runs; get_config orders after it
	send(t, conn, "get_config", nil)
	recv(t, conn)
	assert.Equal(t, int32(1), f.restarts.Load())
	assert.Equal(t, models.NetworkSettings{}, f.manager.Network())
}

func TestUnknownAndMalformedMessagesAreIgnored(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	send(t, conn, "reboot", nil)
	send(t, conn, "threshold", "bogus")
	send(t, conn, "get_config", nil)

	assert.Equal(t, "config", recv(t, conn)["page"], "the connection survives bad input")
	assert.Equal(t, models.DefaultThresholds(), f.store.Thresholds())
}

func TestHubBroadcastsTelemetry(t *testing.T) {
	f := newFixture(t)
	a := f.dial(t)
	b := f.dial(t)

	require.Eventually(t, func() bool { return f.hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, f.hub.Send(context.Background(), models.TelemetryMessage{
		Tag:    models.TagSensor,
		Fields: map[string]any{"temp": 27.5, "humi": 60.0},
	}))

	for _, conn := range []*websocket.Conn{a, b} {
		assert.Equal(t, map[string]any{"page": "sensor", "temp": 27.5, "humi": 60.0}, recv(t, conn))
	}
}

func TestHTTPRoutes(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/api/config")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var snap settings.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, models.DefaultThresholds(), snap.Thresholds)
	assert.Equal(t, "#00FF00", snap.NeoColors.OK)

	resp, err = http.Get(f.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{route="/api/config",status="200"} 1`)
}

func TestServerStartStopsOnCancel(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Addr = "127.0.0.1:0"
	hub := NewHub(nil)
	srv := NewServer(cfg, nil, hub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
