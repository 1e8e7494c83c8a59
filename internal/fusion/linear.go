package fusion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
)

// LinearModel is a multinomial logistic model: one weight row and bias per
// class, softmax over the resulting logits.
type LinearModel struct {
	Version string                  `json:"version"`
	Weights [][FeatureCount]float64 `json:"weights"`
	Bias    []float64               `json:"bias"`
}

// LoadLinearModel reads and validates a model file.
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var model LinearModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}
	if err := model.validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}

	log.Printf("fusion: loaded model %q from %s (%d classes)", model.Version, path, len(model.Weights))
	return &model, nil
}

func (m *LinearModel) validate() error {
	if len(m.Weights) != len(Labels) {
		return fmt.Errorf("%w: %d weight rows for %d labels", ErrScoreCount, len(m.Weights), len(Labels))
	}
	if len(m.Bias) != len(m.Weights) {
		return fmt.Errorf("bias has %d entries, expected %d", len(m.Bias), len(m.Weights))
	}
	return nil
}

// Predict returns class probabilities for the feature vector.
func (m *LinearModel) Predict(_ context.Context, features FeatureVector) ([]float64, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	logits := make([]float64, len(m.Weights))
	for c, row := range m.Weights {
		z := m.Bias[c]
		for i, w := range row {
			z += w * features[i]
		}
		logits[c] = z
	}
	return softmax(logits), nil
}

func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, z := range logits {
		if z > maxLogit {
			maxLogit = z
		}
	}

	out := make([]float64, len(logits))
	var sum float64
	for i, z := range logits {
		out[i] = math.Exp(z - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// SampleModel returns hand-tuned weights usable until a trained model is deployed.
// Rain classes lean on precipitation, cloud cover on humidity, clear sky on
// temperature and low humidity.
func SampleModel() *LinearModel {
	return &LinearModel{
		Version: "sample-1",
		Weights: [][FeatureCount]float64{
			{0.10, -0.04, -2.0, -0.02}, // Clear
			{0.02, 0.01, -0.8, 0.01},   // Partially cloudy
			{-0.06, 0.05, 1.8, 0.03},   // Rain, Overcast
			{0.02, 0.02, 1.2, 0.01},    // Rain, Partially cloudy
		},
		Bias: []float64{1.0, 0, -3.0, -2.5},
	}
}

// WriteSampleModel stores SampleModel at path, for first start without a model file.
func WriteSampleModel(path string) error {
	data, err := json.MarshalIndent(SampleModel(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create model directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}

	log.Printf("fusion: created sample model at %s", path)
	return nil
}
