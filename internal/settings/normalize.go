// Package settings is the configuration boundary of the node: every update
// from the dashboard or the cloud is validated and normalized here before it
// is committed to the shared store.
package settings

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/chewxy/math32"

	"iot-monitor/internal/models"
)

// LED pattern timing bounds in milliseconds
const (
	MinBlinkMs = 10
	MaxBlinkMs = 10000
)

// ErrInvalidColor is returned for colours not in "#RRGGBB" form
var ErrInvalidColor = errors.New("invalid colour")

// NormalizeThresholds enforces TempCold < TempHot and
// 0 <= HumiDry < HumiHumid <= 100. Inverted pairs are re-centred on their
// midpoint (±0.5 °C, ±1 %). NaN or infinite values fall back to the
// factory thresholds.
func NormalizeThresholds(t models.ThresholdSet) models.ThresholdSet {
	def := models.DefaultThresholds()
	t.TempCold = finiteOr(t.TempCold, def.TempCold)
	t.TempHot = finiteOr(t.TempHot, def.TempHot)
	t.HumiDry = clampPercent(finiteOr(t.HumiDry, def.HumiDry))
	t.HumiHumid = clampPercent(finiteOr(t.HumiHumid, def.HumiHumid))

	if t.TempCold >= t.TempHot {
		// float64 midpoint so the sum cannot overflow float32
		mid := (float64(t.TempCold) + float64(t.TempHot)) / 2
		t.TempCold = float32(mid - 0.5)
		t.TempHot = float32(mid + 0.5)
		if t.TempCold >= t.TempHot {
			// ±0.5 is below float32 resolution here; use adjacent values
			t.TempCold, t.TempHot = adjacent(float32(mid))
		}
	}

	if t.HumiDry >= t.HumiHumid {
		mid := (t.HumiDry + t.HumiHumid) * 0.5
		t.HumiDry = clampPercent(mid - 1)
		t.HumiHumid = clampPercent(mid + 1)
	}

	return t
}

func finiteOr(v, fallback float32) float32 {
	if math32.IsNaN(v) || math32.IsInf(v, 0) {
		return fallback
	}
	return v
}

// adjacent returns two consecutive finite float32 values around v
func adjacent(v float32) (float32, float32) {
	if v >= 0 {
		return math32.Nextafter(v, math32.Inf(-1)), v
	}
	return v, math32.Nextafter(v, math32.Inf(1))
}

func clampPercent(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ClampMs bounds a blink duration to [MinBlinkMs, MaxBlinkMs]
func ClampMs(v int) uint16 {
	if v < MinBlinkMs {
		return MinBlinkMs
	}
	if v > MaxBlinkMs {
		return MaxBlinkMs
	}
	return uint16(v)
}

// ParseHexColor parses "#RRGGBB"
func ParseHexColor(s string) (models.RGB, error) {
	if len(s) != 7 || s[0] != '#' {
		return models.RGB{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return models.RGB{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return models.RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// FormatHexColor renders c as "#RRGGBB"
func FormatHexColor(c models.RGB) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}
