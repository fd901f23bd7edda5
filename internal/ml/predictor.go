package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/chewxy/math32"
)

// InputCount is the number of model inputs: temperature and humidity
const InputCount = 2

var (
	// ErrModelNotLoaded is returned when Invoke is called on a predictor without parameters
	ErrModelNotLoaded = errors.New("model not loaded")
	// ErrInvalidInput is returned when an input or the computed score is NaN or infinite
	ErrInvalidInput = errors.New("invalid model input")
)

// Model is the inference collaborator: one score in [0,1] per invocation
type Model interface {
	Invoke(inputs [InputCount]float32) (float32, error)
}

// Params is the serialized anomaly model. The score is
// sigmoid(bias + sum(weights[i] * ((x[i]-center[i])/scale[i])^2)).
type Params struct {
	Center  [InputCount]float32 `json:"center"`
	Scale   [InputCount]float32 `json:"scale"`
	Weights [InputCount]float32 `json:"weights"`
	Bias    float32             `json:"bias"`
}

// Validate checks that the parameters can be evaluated
func (p Params) Validate() error {
	for i := 0; i < InputCount; i++ {
		if p.Scale[i] == 0 {
			return fmt.Errorf("scale[%d] must be non-zero", i)
		}
		if !finite(p.Center[i]) || !finite(p.Scale[i]) || !finite(p.Weights[i]) {
			return fmt.Errorf("parameter %d is not finite", i)
		}
	}
	if !finite(p.Bias) {
		return errors.New("bias is not finite")
	}
	return nil
}

// Predictor evaluates the anomaly model
type Predictor struct {
	params *Params
}

// NewPredictor creates a new predictor by loading the model from file
func NewPredictor(modelPath string) (*Predictor, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var params Params
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model %s: %w", modelPath, err)
	}

	log.Printf("Predictor: Loaded model from %s (center=%v, bias=%.2f)", modelPath, params.Center, params.Bias)

	return &Predictor{params: &params}, nil
}

// NewPredictorFromParams builds a predictor from in-memory parameters
func NewPredictorFromParams(params Params) (*Predictor, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	return &Predictor{params: &params}, nil
}

// Invoke runs one inference over (temperature, humidity)
func (p *Predictor) Invoke(inputs [InputCount]float32) (float32, error) {
	if p == nil || p.params == nil {
		return 0, ErrModelNotLoaded
	}

	logit := p.params.Bias
	for i, x := range inputs {
		if !finite(x) {
			return 0, fmt.Errorf("%w: input %d is %v", ErrInvalidInput, i, x)
		}
		z := (x - p.params.Center[i]) / p.params.Scale[i]
		logit += p.params.Weights[i] * z * z
	}

	score := sigmoid(logit)
	if !finite(score) {
		return 0, fmt.Errorf("%w: score is %v", ErrInvalidInput, score)
	}
	return score, nil
}

func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

func finite(x float32) bool {
	return !math32.IsNaN(x) && !math32.IsInf(x, 0)
}

// SampleParams returns the bundled model: comfortable near 28°C / 55%,
// anomalous as either dimension drifts away
func SampleParams() Params {
	return Params{
		Center:  [InputCount]float32{28, 55},
		Scale:   [InputCount]float32{4, 25},
		Weights: [InputCount]float32{1.2, 1.2},
		Bias:    -3,
	}
}

// CreateSampleModel creates a sample model file for demonstration
// Call this if no model file exists
func CreateSampleModel(path string) error {
	data, err := json.MarshalIndent(SampleParams(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}

	log.Printf("Predictor: Created sample model at %s", path)
	return nil
}
