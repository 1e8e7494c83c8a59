package weather

import (
	"context"
)

// Provider abstracts a daily weather source (e.g. Visual Crossing, Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location) (Observation, error)
}
