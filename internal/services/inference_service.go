package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"iot-monitor/internal/levels"
	"iot-monitor/internal/metrics"
	"iot-monitor/internal/ml"
	"iot-monitor/internal/models"
	"iot-monitor/internal/state"
	"iot-monitor/internal/telemetry"
)

// InferenceService periodically scores the latest reading with the anomaly
// model and grades the prediction against the threshold rules
type InferenceService struct {
	store     *state.Store
	model     ml.Model
	publisher telemetry.Publisher
	metrics   *metrics.Metrics
	config    InferenceServiceConfig
	sleep     sleepFunc
	now       func() time.Time

	// Owned by the inference goroutine
	stats state.InferenceStats
}

// InferenceServiceConfig holds configuration for inference service
type InferenceServiceConfig struct {
	Interval   time.Duration // Time between two successful inferences
	RetryDelay time.Duration // Time before retrying a failed invocation
	ScoreCut   float32       // Scores strictly above this are anomalous
}

// DefaultInferenceServiceConfig returns default configuration
func DefaultInferenceServiceConfig() InferenceServiceConfig {
	return InferenceServiceConfig{
		Interval:   5 * time.Second,
		RetryDelay: 2 * time.Second,
		ScoreCut:   0.6,
	}
}

// NewInferenceService creates a new inference service
func NewInferenceService(
	store *state.Store,
	model ml.Model,
	publisher telemetry.Publisher,
	m *metrics.Metrics,
	config InferenceServiceConfig,
) *InferenceService {
	return &InferenceService{
		store:     store,
		model:     model,
		publisher: publisher,
		metrics:   m,
		config:    config,
		sleep:     sleepContext,
		now:       time.Now,
	}
}

// Start runs the inference loop until ctx is cancelled
func (is *InferenceService) Start(ctx context.Context) {
	log.Printf("InferenceService: Starting (every %v, retry after %v, cut=%.2f)",
		is.config.Interval, is.config.RetryDelay, is.config.ScoreCut)

	for {
		delay := is.config.Interval
		if err := is.RunCycle(ctx); err != nil {
			log.Printf("InferenceService: %v", err)
			delay = is.config.RetryDelay
		}

		if !is.sleep(ctx, delay) {
			log.Println("InferenceService: Shutdown complete")
			return
		}
	}
}

// RunCycle performs one inference. On failure nothing is counted or published.
func (is *InferenceService) RunCycle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	reading := is.store.Reading()
	score, err := is.model.Invoke([ml.InputCount]float32{reading.Temperature, reading.Humidity})
	if err != nil {
		is.metrics.InferenceCycle("error")
		return fmt.Errorf("failed to invoke model: %w", err)
	}

	predicted := score > is.config.ScoreCut
	groundTruth := levels.GroundTruthAnomaly(reading, is.store.Thresholds())

	is.stats.Record(predicted, groundTruth)
	accuracy := is.stats.Accuracy()

	is.store.SetInference(models.InferenceResult{
		Score:       score,
		Predicted:   predicted,
		GroundTruth: groundTruth,
		Accuracy:    accuracy,
		Timestamp:   is.now(),
	})
	is.metrics.InferenceCycle("ok")
	is.metrics.SetInference(score, accuracy)

	if is.publisher != nil {
		is.publisher.Publish(models.TagTinyML, map[string]any{
			"score": score,
			"pred":  models.AnomalyLabel(predicted),
			"gt":    models.AnomalyLabel(groundTruth),
			"acc":   accuracy,
		})
	}

	log.Printf("InferenceService: score=%.3f pred=%s gt=%s acc=%.1f%%",
		score, models.AnomalyLabel(predicted), models.AnomalyLabel(groundTruth), accuracy)
	return nil
}

// Stats returns the running counters. Only safe once the loop has stopped or
// from the goroutine running it.
func (is *InferenceService) Stats() state.InferenceStats {
	return is.stats
}
