package fusion

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Model is the opaque classifier: a feature vector in, one score per class out.
type Model interface {
	Predict(ctx context.Context, features FeatureVector) ([]float64, error)
}

// ErrScoreCount is returned when a model's output does not match the label set.
var ErrScoreCount = errors.New("model score count does not match label count")

// Predictor maps model scores onto the fixed label set.
type Predictor struct {
	model Model
}

func NewPredictor(model Model) *Predictor {
	return &Predictor{model: model}
}

// Classify runs the model and returns the label of the highest score.
func (p *Predictor) Classify(ctx context.Context, features FeatureVector) (Label, error) {
	scores, err := p.model.Predict(ctx, features)
	if err != nil {
		return "", fmt.Errorf("model predict: %w", err)
	}
	if len(scores) != len(Labels) {
		return "", fmt.Errorf("%w: got %d, want %d", ErrScoreCount, len(scores), len(Labels))
	}

	idx, err := argmax(scores)
	if err != nil {
		return "", err
	}
	return LabelAt(idx)
}

// argmax returns the index of the largest score; ties go to the lower index.
func argmax(scores []float64) (int, error) {
	best := -1
	for i, s := range scores {
		if math.IsNaN(s) {
			return 0, fmt.Errorf("model returned NaN score at index %d", i)
		}
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	if best < 0 {
		return 0, ErrScoreCount
	}
	return best, nil
}
