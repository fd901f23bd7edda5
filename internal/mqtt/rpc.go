package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// LEDControl is the indicator state the RPC methods read and write
type LEDControl interface {
	SetTempLED(on bool)
	SetHumiLED(on bool)
	TempLEDEnabled() bool
	HumiLEDEnabled() bool
}

type rpcRequest struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

// RPCHandler serves the CoreIoT server-side RPCs setTempLed, setHumiLed,
// getTempLed and getHumiLed
type RPCHandler struct {
	broker Broker
	leds   LEDControl
}

// NewRPCHandler creates the handler. Call Register once to hook it to the broker.
func NewRPCHandler(broker Broker, leds LEDControl) *RPCHandler {
	return &RPCHandler{broker: broker, leds: leds}
}

// Register subscribes to the RPC topic and republishes the LED attributes
// after every (re)connect
func (h *RPCHandler) Register() {
	h.broker.OnConnect(func() {
		if err := h.broker.Subscribe(TopicRPCRequest, h.HandleMessage); err != nil {
			log.Printf("MQTT RPC: %v", err)
			return
		}
		h.publishLEDStates()
	})
}

// HandleMessage processes one RPC request
func (h *RPCHandler) HandleMessage(topic string, payload []byte) {
	log.Printf("MQTT RPC: Recv %s", payload)

	var req rpcRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Printf("MQTT RPC: Error unmarshaling request: %v", err)
		return
	}
	if req.Method == "" {
		return
	}

	var resp map[string]any
	switch req.Method {
	case "setTempLed":
		h.leds.SetTempLED(rpcParamToBool(req.Params))
		h.publishLEDStates()
		resp = map[string]any{"method": req.Method, "success": true, "tempLed": h.leds.TempLEDEnabled()}
	case "setHumiLed":
		h.leds.SetHumiLED(rpcParamToBool(req.Params))
		h.publishLEDStates()
		resp = map[string]any{"method": req.Method, "success": true, "humiLed": h.leds.HumiLEDEnabled()}
	case "getTempLed":
		resp = map[string]any{"method": req.Method, "tempLed": h.leds.TempLEDEnabled()}
	case "getHumiLed":
		resp = map[string]any{"method": req.Method, "humiLed": h.leds.HumiLEDEnabled()}
	default:
		log.Printf("MQTT RPC: Unknown method %q", req.Method)
		return
	}

	h.respond(extractRequestID(topic), resp)
}

func (h *RPCHandler) respond(requestID string, resp map[string]any) {
	if requestID == "" {
		log.Println("MQTT RPC: No request id, skipping response")
		return
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		log.Printf("MQTT RPC: Error marshaling response: %v", err)
		return
	}
	if err := h.broker.Publish(fmt.Sprintf(topicRPCResponse, requestID), payload); err != nil {
		log.Printf("MQTT RPC: Response failed: %v", err)
		return
	}
	log.Printf("MQTT RPC: Response %s -> %s", requestID, payload)
}

func (h *RPCHandler) publishLEDStates() {
	payload, err := json.Marshal(map[string]bool{
		"tempLed": h.leds.TempLEDEnabled(),
		"humiLed": h.leds.HumiLEDEnabled(),
	})
	if err != nil {
		log.Printf("MQTT RPC: Error marshaling attributes: %v", err)
		return
	}
	if err := h.broker.Publish(TopicAttributes, payload); err != nil {
		log.Printf("MQTT RPC: Attribute publish failed: %v", err)
	}
}

// extractRequestID returns the last topic segment
// Example: "v1/devices/me/rpc/request/42" -> "42"
func extractRequestID(topic string) string {
	i := strings.LastIndexByte(topic, '/')
	if i < 0 {
		return ""
	}
	return topic[i+1:]
}

// rpcParamToBool accepts true/false, non-zero numbers and "on", "true" or "1"
func rpcParamToBool(param any) bool {
	switch v := param.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return strings.EqualFold(v, "on") || strings.EqualFold(v, "true") || v == "1"
	default:
		return false
	}
}
