package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/irrigation-agent/internal/weather"
)

// VisualCrossingProvider implements the weather.Provider interface for the
// Visual Crossing timeline API.
type VisualCrossingProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewVisualCrossingProvider(client *http.Client, apiKey string, opts ...Option) *VisualCrossingProvider {
	o := applyOptions("https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline", opts)

	return &VisualCrossingProvider{
		name:    "visualcrossing",
		apiKey:  apiKey,
		baseURL: o.baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: o.backoff,
		},
		circuit: newCircuitBreaker("visualcrossing", o.observer),
	}
}

func (p *VisualCrossingProvider) Name() string {
	return p.name
}

// Fetch reads today's precipitation and wind gust. Only days[0] is used.
func (p *VisualCrossingProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Observation, error) {
	if p.apiKey == "" {
		return weather.Observation{}, fmt.Errorf("visualcrossing api key is not configured")
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("unitGroup", "metric")
		values.Set("include", "days")
		values.Set("key", p.apiKey)
		values.Set("contentType", "json")

		u := fmt.Sprintf("%s/%s/today?%s", p.baseURL, loc.Key(), values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Observation{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Days []struct {
			Precip   *float64 `json:"precip"`
			WindGust *float64 `json:"windgust"`
		} `json:"days"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if len(payload.Days) == 0 {
		return weather.Observation{}, fmt.Errorf("%w: no days in response", errMalformed)
	}

	today := payload.Days[0]
	return weather.Observation{
		Precip:   floatOrZero(today.Precip),
		WindGust: floatOrZero(today.WindGust),
	}, nil
}
