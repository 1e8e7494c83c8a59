package fusion

import (
	"errors"
	"fmt"
)

// Label is a weather condition class produced by the classifier.
type Label string

const (
	LabelClear               Label = "Clear"
	LabelPartiallyCloudy     Label = "Partially cloudy"
	LabelRainOvercast        Label = "Rain, Overcast"
	LabelRainPartiallyCloudy Label = "Rain, Partially cloudy"
)

// Labels is the model's output order; index i of the score vector is Labels[i].
var Labels = []Label{
	LabelClear,
	LabelPartiallyCloudy,
	LabelRainOvercast,
	LabelRainPartiallyCloudy,
}

// ErrUnknownClass is returned for a class index outside Labels.
var ErrUnknownClass = errors.New("class index out of range")

// LabelAt maps a class index to its label.
func LabelAt(i int) (Label, error) {
	if i < 0 || i >= len(Labels) {
		return "", fmt.Errorf("%w: %d (have %d labels)", ErrUnknownClass, i, len(Labels))
	}
	return Labels[i], nil
}
