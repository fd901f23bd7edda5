// Package levels classifies raw readings against the runtime thresholds and
// folds the two per-dimension levels into one display severity.
package levels

import "iot-monitor/internal/models"

// Classify maps value onto Low/Normal/High. Values equal to a threshold are Normal.
func Classify(value, low, high float32) models.Level {
	if value < low {
		return models.LevelLow
	}
	if value > high {
		return models.LevelHigh
	}
	return models.LevelNormal
}

// ClassifyReading classifies both dimensions against a single threshold snapshot
func ClassifyReading(r models.Reading, t models.ThresholdSet) (temp, humi models.Level) {
	temp = Classify(r.Temperature, t.TempCold, t.TempHot)
	humi = Classify(r.Humidity, t.HumiDry, t.HumiHumid)
	return temp, humi
}

// Resolve combines both levels. High in either dimension wins over Low in the other.
func Resolve(temp, humi models.Level) models.DisplayState {
	if temp == models.LevelHigh || humi == models.LevelHigh {
		return models.DisplayCritical
	}
	if temp == models.LevelLow || humi == models.LevelLow {
		return models.DisplayWarning
	}
	return models.DisplayNormal
}

// GroundTruthAnomaly is the rule-based anomaly flag used to score the model.
// It shares the classifier thresholds, so it measures model/threshold agreement.
func GroundTruthAnomaly(r models.Reading, t models.ThresholdSet) bool {
	temp, humi := ClassifyReading(r, t)
	return temp != models.LevelNormal || humi != models.LevelNormal
}
