package sensor

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Reading names the values reported by the field device,
// e.g. "temperature", "humidity", "soil_moisture".
type Reading map[string]float64

// ErrNotObject is returned when an inbound payload is valid JSON but not an object.
var ErrNotObject = errors.New("sensor payload is not a JSON object")

// Get returns the named value, or 0 when the device did not report it.
func (r Reading) Get(key string) float64 {
	return r[key]
}

// Clone returns an independent copy of the reading.
func (r Reading) Clone() Reading {
	out := make(Reading, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Decode parses an inbound sensor message. Numeric members are kept, anything
// else (strings, booleans, nested values) is ignored.
func Decode(payload []byte) (Reading, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode sensor payload: %w", err)
	}
	if raw == nil {
		return nil, ErrNotObject
	}

	reading := make(Reading, len(raw))
	for k, v := range raw {
		if n, ok := v.(float64); ok {
			reading[k] = n
		}
	}
	return reading, nil
}

// MonitorSnapshot is the live view republished on every poll tick.
type MonitorSnapshot struct {
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	SoilMoisture float64 `json:"soil_moisture"`
}

// Snapshot projects the reading onto the monitor payload.
func (r Reading) Snapshot() MonitorSnapshot {
	return MonitorSnapshot{
		Temperature:  r.Get("temperature"),
		Humidity:     r.Get("humidity"),
		SoilMoisture: r.Get("soil_moisture"),
	}
}
