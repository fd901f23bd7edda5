package settings

import (
	"fmt"
	"log"
	"sync"

	"iot-monitor/internal/models"
	"iot-monitor/internal/state"
)

// ThresholdUpdate carries a partial threshold change; nil fields keep their value
type ThresholdUpdate struct {
	TempCold  *float32 `json:"tempCold,omitempty"`
	TempHot   *float32 `json:"tempHot,omitempty"`
	HumiDry   *float32 `json:"humiDry,omitempty"`
	HumiHumid *float32 `json:"humiHumid,omitempty"`
}

// PatternUpdate carries a partial LED pattern change in milliseconds
type PatternUpdate struct {
	ColdOn    *int `json:"coldOn,omitempty"`
	ColdOff   *int `json:"coldOff,omitempty"`
	NormalOn  *int `json:"normalOn,omitempty"`
	NormalOff *int `json:"normalOff,omitempty"`
	HotOn     *int `json:"hotOn,omitempty"`
	HotOff    *int `json:"hotOff,omitempty"`
}

// PatternView is the flat dashboard form of the LED pattern table
type PatternView struct {
	ColdOn    uint16 `json:"coldOn"`
	ColdOff   uint16 `json:"coldOff"`
	NormalOn  uint16 `json:"normalOn"`
	NormalOff uint16 `json:"normalOff"`
	HotOn     uint16 `json:"hotOn"`
	HotOff    uint16 `json:"hotOff"`
}

// ColorView is the hex form of the NeoPixel colour table
type ColorView struct {
	Dry   string `json:"dry"`
	OK    string `json:"ok"`
	Humid string `json:"humid"`
}

// DeviceStatus is one indicator toggle as shown on the dashboard
type DeviceStatus struct {
	Name   string `json:"name"`
	GPIO   int    `json:"gpio"`
	Status string `json:"status"`
}

// Dashboard names of the two indicators
const (
	DeviceTempLED = "LED1"
	DeviceHumiLED = "LED2"
)

// Snapshot is the full runtime configuration
type Snapshot struct {
	Thresholds models.ThresholdSet    `json:"thresholds"`
	LEDPattern PatternView            `json:"ledPattern"`
	NeoColors  ColorView              `json:"neoColors"`
	Devices    []DeviceStatus         `json:"devices"`
	Settings   models.NetworkSettings `json:"settings"`
}

// Pins are the opaque board pins echoed to the dashboard
type Pins struct {
	LED int
	Neo int
}

// Manager validates configuration updates and commits them to the store
type Manager struct {
	store   *state.Store
	files   *FileStore
	pins    Pins
	restart func()

	// Serializes read-modify-write updates from the dashboard and RPC
	mu      sync.Mutex
	network models.NetworkSettings
}

// NewManager creates a manager. restart is invoked after a factory reset; it may be nil.
func NewManager(store *state.Store, files *FileStore, pins Pins, restart func()) *Manager {
	return &Manager{
		store:   store,
		files:   files,
		pins:    pins,
		restart: restart,
	}
}

// LoadNetwork reads the persisted network settings, if any
func (m *Manager) LoadNetwork() (models.NetworkSettings, bool, error) {
	if m.files == nil {
		return models.NetworkSettings{}, false, nil
	}

	ns, found, err := m.files.Load()
	if err != nil {
		return models.NetworkSettings{}, false, err
	}

	m.mu.Lock()
	m.network = ns
	m.mu.Unlock()

	if found {
		log.Printf("Settings: Loaded network settings from %s (ssid=%q server=%q)", m.files.Path(), ns.SSID, ns.Server)
	}
	return ns, found, nil
}

// Network returns the current network settings
func (m *Manager) Network() models.NetworkSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.network
}

// ApplyThresholds merges, normalizes and commits a threshold update
func (m *Manager) ApplyThresholds(u ThresholdUpdate) models.ThresholdSet {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.store.Thresholds()
	setFloat(&t.TempCold, u.TempCold)
	setFloat(&t.TempHot, u.TempHot)
	setFloat(&t.HumiDry, u.HumiDry)
	setFloat(&t.HumiHumid, u.HumiHumid)

	t = NormalizeThresholds(t)
	m.store.SetThresholds(t)

	log.Printf("Settings: Thresholds TEMP_COLD=%.1f TEMP_HOT=%.1f HUMI_DRY=%.1f HUMI_HUMID=%.1f",
		t.TempCold, t.TempHot, t.HumiDry, t.HumiHumid)
	return t
}

// ApplyLEDPattern merges, clamps and commits an LED pattern update
func (m *Manager) ApplyLEDPattern(u PatternUpdate) models.PatternConfig {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.store.Pattern()
	setMs(&p[models.LevelLow].OnMs, u.ColdOn)
	setMs(&p[models.LevelLow].OffMs, u.ColdOff)
	setMs(&p[models.LevelNormal].OnMs, u.NormalOn)
	setMs(&p[models.LevelNormal].OffMs, u.NormalOff)
	setMs(&p[models.LevelHigh].OnMs, u.HotOn)
	setMs(&p[models.LevelHigh].OffMs, u.HotOff)

	m.store.SetPattern(p)

	log.Printf("Settings: LED pattern COLD=%d/%d NORMAL=%d/%d HOT=%d/%d ms",
		p[models.LevelLow].OnMs, p[models.LevelLow].OffMs,
		p[models.LevelNormal].OnMs, p[models.LevelNormal].OffMs,
		p[models.LevelHigh].OnMs, p[models.LevelHigh].OffMs)
	return p
}

// ApplyNeoColors commits the valid colours and wakes the NeoPixel task.
// Invalid entries keep the current colour and are reported in the error.
func (m *Manager) ApplyNeoColors(dry, ok, humid string) (models.ColorConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.store.Colors()
	var firstErr error
	for level, hex := range [models.LevelCount]string{dry, ok, humid} {
		rgb, err := ParseHexColor(hex)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s colour: %w", models.Level(level).HumiLabel(), err)
			}
			continue
		}
		c[level] = rgb
	}

	m.store.SetColors(c)
	m.store.HumiChanged.Give()

	log.Printf("Settings: NeoPixel colours DRY=%s OK=%s HUMID=%s",
		FormatHexColor(c[models.LevelLow]), FormatHexColor(c[models.LevelNormal]), FormatHexColor(c[models.LevelHigh]))
	return c, firstErr
}

// SetTempLED enables or disables the temperature LED
func (m *Manager) SetTempLED(on bool) {
	m.store.SetTempLEDEnabled(on)
	log.Printf("Settings: Device %s (GPIO %d) -> %s", DeviceTempLED, m.pins.LED, onOff(on))
}

// SetHumiLED enables or disables the NeoPixel and wakes its task
func (m *Manager) SetHumiLED(on bool) {
	m.store.SetHumiLEDEnabled(on)
	m.store.HumiChanged.Give()
	log.Printf("Settings: Device %s (GPIO %d) -> %s", DeviceHumiLED, m.pins.Neo, onOff(on))
}

// TempLEDEnabled reports whether the temperature LED is enabled
func (m *Manager) TempLEDEnabled() bool {
	return m.store.TempLEDEnabled()
}

// HumiLEDEnabled reports whether the NeoPixel is enabled
func (m *Manager) HumiLEDEnabled() bool {
	return m.store.HumiLEDEnabled()
}

// SetDevice toggles an indicator by its dashboard name
func (m *Manager) SetDevice(name string, on bool) error {
	switch name {
	case DeviceTempLED:
		m.SetTempLED(on)
	case DeviceHumiLED:
		m.SetHumiLED(on)
	default:
		return fmt.Errorf("unknown device %q", name)
	}
	return nil
}

// Snapshot returns the full runtime configuration
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	network := m.network
	m.mu.Unlock()

	p := m.store.Pattern()
	c := m.store.Colors()

	return Snapshot{
		Thresholds: m.store.Thresholds(),
		LEDPattern: PatternView{
			ColdOn:    p[models.LevelLow].OnMs,
			ColdOff:   p[models.LevelLow].OffMs,
			NormalOn:  p[models.LevelNormal].OnMs,
			NormalOff: p[models.LevelNormal].OffMs,
			HotOn:     p[models.LevelHigh].OnMs,
			HotOff:    p[models.LevelHigh].OffMs,
		},
		NeoColors: ColorView{
			Dry:   FormatHexColor(c[models.LevelLow]),
			OK:    FormatHexColor(c[models.LevelNormal]),
			Humid: FormatHexColor(c[models.LevelHigh]),
		},
		Devices: []DeviceStatus{
			{Name: DeviceTempLED, GPIO: m.pins.LED, Status: onOff(m.store.TempLEDEnabled())},
			{Name: DeviceHumiLED, GPIO: m.pins.Neo, Status: onOff(m.store.HumiLEDEnabled())},
		},
		Settings: network,
	}
}

// SaveNetwork persists new network settings
func (m *Manager) SaveNetwork(ns models.NetworkSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.files != nil {
		if err := m.files.Save(ns); err != nil {
			return fmt.Errorf("failed to save network settings: %w", err)
		}
	}
	m.network = ns

	log.Printf("Settings: Saved network settings (ssid=%q server=%q port=%q)", ns.SSID, ns.Server, ns.Port)
	return nil
}

// ResetFactory deletes the persisted settings and requests a restart
func (m *Manager) ResetFactory() error {
	log.Println("Settings: Factory reset requested")

	m.mu.Lock()
	if m.files != nil {
		if err := m.files.Delete(); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	m.network = models.NetworkSettings{}
	m.mu.Unlock()

	if m.restart != nil {
		m.restart()
	}
	return nil
}

func setFloat(dst *float32, v *float32) {
	if v != nil {
		*dst = *v
	}
}

func setMs(dst *uint16, v *int) {
	if v != nil {
		*dst = ClampMs(*v)
	}
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
