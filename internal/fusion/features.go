package fusion

import (
	"github.com/i474232898/irrigation-agent/internal/sensor"
	"github.com/i474232898/irrigation-agent/internal/weather"
)

// FeatureCount is the input width the classifier is trained on.
const FeatureCount = 4

// FeatureNames gives the fixed order of the feature vector.
var FeatureNames = [FeatureCount]string{"temp", "humidity", "precip", "windgust"}

// FeatureVector is the classifier input, ordered as FeatureNames.
type FeatureVector [FeatureCount]float64

// BuildFeatures projects a sensor reading and a weather observation onto the
// classifier schema. Missing sensor values count as 0. Temperature is taken
// from "temp" when present, otherwise from "temperature".
func BuildFeatures(reading sensor.Reading, obs weather.Observation) FeatureVector {
	temp, ok := reading["temp"]
	if !ok {
		temp = reading.Get("temperature")
	}

	return FeatureVector{
		temp,
		reading.Get("humidity"),
		obs.Precip,
		obs.WindGust,
	}
}
