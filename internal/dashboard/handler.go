package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"

	"iot-monitor/internal/models"
	"iot-monitor/internal/settings"
)

// Controller applies configuration changes coming from the UI
type Controller interface {
	SetDevice(name string, on bool) error
	SaveNetwork(ns models.NetworkSettings) error
	ApplyThresholds(u settings.ThresholdUpdate) models.ThresholdSet
	ApplyLEDPattern(u settings.PatternUpdate) models.PatternConfig
	ApplyNeoColors(dry, ok, humid string) (models.ColorConfig, error)
	Snapshot() settings.Snapshot
	ResetFactory() error
}

type inbound struct {
	Page  string          `json:"page"`
	Value json.RawMessage `json:"value"`
}

type deviceValue struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	GPIO   *int   `json:"gpio"`
}

type neoColorValue struct {
	Dry   string `json:"dry"`
	OK    string `json:"ok"`
	Humid string `json:"humid"`
}

// handleMessage dispatches one inbound page message. Replies go to every
// connected client so all open pages stay in sync.
func (h *Hub) handleMessage(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Dashboard: Error unmarshaling message: %v", err)
		return
	}

	if err := h.dispatch(msg); err != nil {
		log.Printf("Dashboard: %s: %v", msg.Page, err)
	}
}

func (h *Hub) dispatch(msg inbound) error {
	switch msg.Page {
	case "device":
		var v deviceValue
		if err := decodeValue(msg.Value, &v); err != nil {
			return err
		}
		return h.controller.SetDevice(v.Name, v.Status == "ON")

	case "setting":
		var ns models.NetworkSettings
		if err := decodeValue(msg.Value, &ns); err != nil {
			return err
		}
		if err := h.controller.SaveNetwork(ns); err != nil {
			h.broadcastJSON(map[string]any{"status": "error", "page": "setting_saved", "error": err.Error()})
			return err
		}
		h.broadcastJSON(map[string]any{"status": "ok", "page": "setting_saved"})

	case "threshold":
		var u settings.ThresholdUpdate
		if err := decodeValue(msg.Value, &u); err != nil {
			return err
		}
		h.controller.ApplyThresholds(u)
		h.broadcastJSON(map[string]any{"page": "threshold_saved"})

	case "led_pattern":
		var u settings.PatternUpdate
		if err := decodeValue(msg.Value, &u); err != nil {
			return err
		}
		h.controller.ApplyLEDPattern(u)
		h.broadcastJSON(map[string]any{"page": "led_pattern_saved"})

	case "neo_color":
		defaults := models.DefaultColorConfig()
		v := neoColorValue{
			Dry:   settings.FormatHexColor(defaults[models.LevelLow]),
			OK:    settings.FormatHexColor(defaults[models.LevelNormal]),
			Humid: settings.FormatHexColor(defaults[models.LevelHigh]),
		}
		if err := decodeValue(msg.Value, &v); err != nil {
			return err
		}
		_, err := h.controller.ApplyNeoColors(v.Dry, v.OK, v.Humid)
		h.broadcastJSON(map[string]any{"page": "neo_color_saved"})
		return err

	case "get_config":
		h.broadcastJSON(map[string]any{"page": "config", "value": h.controller.Snapshot()})

	case "reset_factory":
		h.broadcastJSON(map[string]any{"page": "reset_done"})
		return h.controller.ResetFactory()

	default:
		return fmt.Errorf("unknown page %q", msg.Page)
	}
	return nil
}

// decodeValue leaves v untouched when the value is absent or null
func decodeValue(raw json.RawMessage, v any) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid value: %w", err)
	}
	return nil
}
