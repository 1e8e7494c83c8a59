package weather

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultTimeout bounds a whole Fetch when the caller sets none.
const DefaultTimeout = 10 * time.Second

// FailureRecorder receives one call per Fetch that fell back to the default observation.
type FailureRecorder interface {
	WeatherFallback()
}

// Enricher queries the configured providers and normalizes their answers into
// a single Observation. It never fails: when no provider answers within the
// timeout the zero observation is returned and the failure is only logged.
type Enricher struct {
	providers []Provider
	timeout   time.Duration
	failures  FailureRecorder
}

// NewEnricher creates an Enricher. A non-positive timeout uses DefaultTimeout.
func NewEnricher(providers []Provider, timeout time.Duration, failures FailureRecorder) *Enricher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Enricher{
		providers: providers,
		timeout:   timeout,
		failures:  failures,
	}
}

// Fetch returns today's observation for loc.
func (e *Enricher) Fetch(ctx context.Context, loc Location) Observation {
	if len(e.providers) == 0 {
		log.Printf("weather: no providers configured; using default observation for %s", loc.Key())
		e.recordFailure()
		return Observation{}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		obs []Observation
	)

	for _, p := range e.providers {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()

			o, err := p.Fetch(ctx, loc)
			if err != nil {
				log.Printf("weather: provider %s fetch failed for %s: %v", p.Name(), loc.Key(), err)
				return
			}

			mu.Lock()
			obs = append(obs, o)
			mu.Unlock()
		}()
	}

	wg.Wait()

	if len(obs) == 0 {
		log.Printf("weather: no successful provider readings for %s; using default observation", loc.Key())
		e.recordFailure()
		return Observation{}
	}

	return AggregateObservations(obs)
}

func (e *Enricher) recordFailure() {
	if e.failures != nil {
		e.failures.WeatherFallback()
	}
}
